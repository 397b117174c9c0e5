package model

// ResourceKinds lists every resource in deterministic order. All iteration
// over resource maps goes through this slice so event payloads and deficit
// calculations are stable across runs.
var ResourceKinds = []string{"ore", "lumber", "coal", "rations", "cloth", "platinum"}

// Resources is a bundle of per-kind resource counts. Stored values are
// never negative; deltas (transfers, upkeep costs) may use the same shape.
type Resources struct {
	Ore      int `json:"ore"`
	Lumber   int `json:"lumber"`
	Coal     int `json:"coal"`
	Rations  int `json:"rations"`
	Cloth    int `json:"cloth"`
	Platinum int `json:"platinum"`
}

// Get returns the count for a resource kind. Unknown kinds return 0.
func (r *Resources) Get(kind string) int {
	switch kind {
	case "ore":
		return r.Ore
	case "lumber":
		return r.Lumber
	case "coal":
		return r.Coal
	case "rations":
		return r.Rations
	case "cloth":
		return r.Cloth
	case "platinum":
		return r.Platinum
	}
	return 0
}

// Set assigns the count for a resource kind. Unknown kinds are ignored.
func (r *Resources) Set(kind string, v int) {
	switch kind {
	case "ore":
		r.Ore = v
	case "lumber":
		r.Lumber = v
	case "coal":
		r.Coal = v
	case "rations":
		r.Rations = v
	case "cloth":
		r.Cloth = v
	case "platinum":
		r.Platinum = v
	}
}

// Add adds the counts of other to r in place.
func (r *Resources) Add(other Resources) {
	for _, kind := range ResourceKinds {
		r.Set(kind, r.Get(kind)+other.Get(kind))
	}
}

// IsZero reports whether every count is zero.
func (r *Resources) IsZero() bool {
	for _, kind := range ResourceKinds {
		if r.Get(kind) != 0 {
			return false
		}
	}
	return true
}

// ToMap returns the nonzero counts keyed by kind, for event payloads.
func (r *Resources) ToMap() map[string]int {
	m := make(map[string]int)
	for _, kind := range ResourceKinds {
		if v := r.Get(kind); v != 0 {
			m[kind] = v
		}
	}
	return m
}

// ResourcesFromMap builds a Resources from a kind->count map.
func ResourcesFromMap(m map[string]int) Resources {
	var r Resources
	for kind, v := range m {
		r.Set(kind, v)
	}
	return r
}
