package model

import "fmt"

// OwnerKind discriminates the Owner union.
type OwnerKind int

const (
	OwnerNone OwnerKind = iota
	OwnerCharacter
	OwnerFaction
)

// Owner identifies who owns or controls an entity: a character, a faction,
// or nobody. It replaces the nullable twin-column pattern so the two sides
// can never both be set.
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   int64     `json:"id"`
}

// CharacterOwner returns an Owner for a character.
func CharacterOwner(id int64) Owner { return Owner{Kind: OwnerCharacter, ID: id} }

// FactionOwner returns an Owner for a faction.
func FactionOwner(id int64) Owner { return Owner{Kind: OwnerFaction, ID: id} }

// NoOwner returns the empty Owner.
func NoOwner() Owner { return Owner{} }

// IsNone reports whether no owner is set.
func (o Owner) IsNone() bool { return o.Kind == OwnerNone }

// IsCharacter reports whether the owner is a character.
func (o Owner) IsCharacter() bool { return o.Kind == OwnerCharacter }

// IsFaction reports whether the owner is a faction.
func (o Owner) IsFaction() bool { return o.Kind == OwnerFaction }

// String renders the owner for logs and diagnostics.
func (o Owner) String() string {
	switch o.Kind {
	case OwnerCharacter:
		return fmt.Sprintf("character:%d", o.ID)
	case OwnerFaction:
		return fmt.Sprintf("faction:%d", o.ID)
	}
	return "none"
}

// OwnerFromColumns converts the stored nullable column pair into an Owner.
func OwnerFromColumns(characterID, factionID *int64) Owner {
	switch {
	case characterID != nil:
		return CharacterOwner(*characterID)
	case factionID != nil:
		return FactionOwner(*factionID)
	}
	return NoOwner()
}

// Columns splits an Owner back into the nullable column pair for storage.
func (o Owner) Columns() (characterID, factionID *int64) {
	switch o.Kind {
	case OwnerCharacter:
		id := o.ID
		return &id, nil
	case OwnerFaction:
		id := o.ID
		return nil, &id
	}
	return nil, nil
}
