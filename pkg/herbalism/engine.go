// Package herbalism evaluates ingredient blends against the recipe
// catalog: a fixed product-type decision table, subset recipes, a
// chakra/tier computation and wildcard constraint recipes.
package herbalism

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// Ingredient property tags consumed by the decision table.
const (
	propAlcohol    = "alcohol"
	propIngestible = "ingestible"
	propAromatic   = "aromatic"
	propSalt       = "salt"
)

// Sludge is the hard-coded last-resort product when a ruined blend has no
// row in the product table.
var Sludge = model.Product{ItemNumber: "6000", ProductType: model.ProductSalve, Name: "Sludge"}

var (
	ErrEmptyBlend  = errors.New("herbalism: blend has no ingredients")
	ErrBlendTooBig = errors.New("herbalism: blend has more than six ingredients")
)

// UnknownIngredientsError lists the item numbers that matched no ingredient.
type UnknownIngredientsError struct {
	ItemNumbers []string
}

func (e *UnknownIngredientsError) Error() string {
	return fmt.Sprintf("herbalism: unknown ingredients: %s", strings.Join(e.ItemNumbers, ", "))
}

// Catalog is the in-memory recipe book a blend is evaluated against.
type Catalog struct {
	Ingredients       map[string]*model.Ingredient // by item number
	Products          []*model.Product
	SubsetRecipes     []*model.SubsetRecipe
	ConstraintRecipes []*model.ConstraintRecipe
	FailedBlends      map[string]string // product type -> ruined item number
}

// BlendResult describes the outcome of a blend attempt.
type BlendResult struct {
	Product     model.Product `json:"product"`
	Quantity    int           `json:"quantity"`
	ProductType string        `json:"product_type"`
	Ruined      bool          `json:"ruined"`

	Tier            int    `json:"tier"`
	PrimaryChakra   string `json:"primary_chakra,omitempty"`
	PrimaryIsBoon   bool   `json:"primary_is_boon,omitempty"`
	SecondaryChakra string `json:"secondary_chakra,omitempty"`
	SecondaryIsBoon bool   `json:"secondary_is_boon,omitempty"`
}

// MakeBlend evaluates an ordered list of 1..6 ingredient item numbers.
func (c *Catalog) MakeBlend(itemNumbers []string) (*BlendResult, error) {
	if len(itemNumbers) == 0 {
		return nil, ErrEmptyBlend
	}
	if len(itemNumbers) > 6 {
		return nil, ErrBlendTooBig
	}

	items := append([]string(nil), itemNumbers...)
	sort.Slice(items, func(i, j int) bool { return itemNumberLess(items[j], items[i]) })

	var ingredients []*model.Ingredient
	var unknown []string
	for _, n := range items {
		ing, ok := c.Ingredients[n]
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		ingredients = append(ingredients, ing)
	}
	if len(unknown) > 0 {
		return nil, &UnknownIngredientsError{ItemNumbers: unknown}
	}

	productType, ruined := calcProductType(ingredients)
	if ruined {
		return c.ruinedResult(productType), nil
	}

	if recipe := c.bestSubsetRecipe(productType, items); recipe != nil {
		return &BlendResult{
			Product:     c.productByID(recipe.ProductID),
			Quantity:    recipe.QuantityProduced,
			ProductType: productType,
		}, nil
	}

	facts := calcChakraFacts(ingredients)
	if facts.Tier == 0 {
		return c.ruinedResult(productType), nil
	}

	if recipe := c.firstConstraintMatch(productType, items, facts); recipe != nil {
		return &BlendResult{
			Product:         c.productByID(recipe.ProductID),
			Quantity:        1,
			ProductType:     productType,
			Tier:            facts.Tier,
			PrimaryChakra:   facts.PrimaryChakra,
			PrimaryIsBoon:   facts.PrimaryIsBoon,
			SecondaryChakra: facts.SecondaryChakra,
			SecondaryIsBoon: facts.SecondaryIsBoon,
		}, nil
	}

	return c.ruinedResult(productType), nil
}

// itemNumberLess compares digit-string item numbers numerically.
func itemNumberLess(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// calcProductType runs the fixed decision table over the blend's
// properties. The second return is true when the blend is ruined outright.
func calcProductType(ingredients []*model.Ingredient) (string, bool) {
	alcohol := 0
	allIngestible := true
	anyAromatic := false
	anySalt := false
	for _, ing := range ingredients {
		if ing.HasProperty(propAlcohol) {
			alcohol++
		}
		if !ing.HasProperty(propIngestible) {
			allIngestible = false
		}
		if ing.HasProperty(propAromatic) {
			anyAromatic = true
		}
		if ing.HasProperty(propSalt) {
			anySalt = true
		}
	}

	switch {
	case alcohol > 2:
		return model.ProductTincture, true
	case alcohol == 2:
		if allIngestible {
			return model.ProductTincture, false
		}
		return model.ProductTincture, true
	case alcohol == 1:
		if allIngestible {
			return model.ProductTincture, false
		}
		if anyAromatic {
			return model.ProductIncense, false
		}
		return model.ProductDecoction, false
	default:
		if allIngestible {
			return model.ProductTea, false
		}
		if anySalt {
			return model.ProductBath, false
		}
		return model.ProductSalve, false
	}
}

// bestSubsetRecipe returns the largest subset recipe of the product type
// contained in the input, ties broken by id.
func (c *Catalog) bestSubsetRecipe(productType string, items []string) *model.SubsetRecipe {
	have := make(map[string]bool, len(items))
	for _, n := range items {
		have[n] = true
	}

	var candidates []*model.SubsetRecipe
	for _, r := range c.SubsetRecipes {
		if r.ProductType != productType || len(r.Ingredients) == 0 {
			continue
		}
		contained := true
		for _, n := range r.Ingredients {
			if !have[n] {
				contained = false
				break
			}
		}
		if contained {
			candidates = append(candidates, r)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		if len(candidates[i].Ingredients) != len(candidates[j].Ingredients) {
			return len(candidates[i].Ingredients) > len(candidates[j].Ingredients)
		}
		return candidates[i].ID < candidates[j].ID
	})
	return candidates[0]
}

// chakraFacts are the computed constraint inputs of a blend.
type chakraFacts struct {
	Tier            int
	PrimaryChakra   string
	PrimaryIsBoon   bool
	SecondaryChakra string
	SecondaryIsBoon bool
}

// calcChakraFacts sums chakra strengths across the blend and derives the
// primary/secondary chakras and the tier.
func calcChakraFacts(ingredients []*model.Ingredient) chakraFacts {
	sums := make(map[string]int)
	add := func(chakra *string, strength *int) {
		if chakra == nil || strength == nil {
			return
		}
		sums[strings.ToLower(*chakra)] += *strength
	}
	for _, ing := range ingredients {
		add(ing.PrimaryChakra, ing.PrimaryChakraStrength)
		add(ing.SecondaryChakra, ing.SecondaryChakraStrength)
	}

	names := make([]string, 0, len(sums))
	for name, sum := range sums {
		if sum != 0 {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		ai, aj := abs(sums[names[i]]), abs(sums[names[j]])
		if ai != aj {
			return ai > aj
		}
		return names[i] < names[j]
	})

	var facts chakraFacts
	if len(names) == 0 {
		return facts
	}
	primary := sums[names[0]]
	facts.PrimaryChakra = names[0]
	facts.PrimaryIsBoon = primary > 0

	diff := abs(primary)
	if len(names) > 1 {
		secondary := sums[names[1]]
		facts.SecondaryChakra = names[1]
		facts.SecondaryIsBoon = secondary > 0
		diff = abs(primary) - abs(secondary)
	}

	switch {
	case diff > 10:
		facts.Tier = 3
	case diff >= 8:
		facts.Tier = 2
	case diff >= 4:
		facts.Tier = 1
	default:
		facts.Tier = 0
	}
	if facts.SecondaryChakra == "" {
		facts.Tier++
	}
	return facts
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// firstConstraintMatch scans the product type's constraint recipes FIFO
// and returns the first whose constraints all hold.
func (c *Catalog) firstConstraintMatch(productType string, items []string, facts chakraFacts) *model.ConstraintRecipe {
	recipes := make([]*model.ConstraintRecipe, 0, len(c.ConstraintRecipes))
	for _, r := range c.ConstraintRecipes {
		if r.ProductType == productType {
			recipes = append(recipes, r)
		}
	}
	sort.Slice(recipes, func(i, j int) bool {
		if !recipes[i].CreatedAt.Equal(recipes[j].CreatedAt) {
			return recipes[i].CreatedAt.Before(recipes[j].CreatedAt)
		}
		return recipes[i].ID < recipes[j].ID
	})

	for _, r := range recipes {
		if constraintsHold(r, facts) && patternsMatch(r.IngredientPatterns, items) {
			return r
		}
	}
	return nil
}

func constraintsHold(r *model.ConstraintRecipe, facts chakraFacts) bool {
	if r.Tier != nil && *r.Tier != facts.Tier {
		return false
	}
	if r.PrimaryChakra != nil && !strings.EqualFold(*r.PrimaryChakra, facts.PrimaryChakra) {
		return false
	}
	if r.PrimaryIsBoon != nil && *r.PrimaryIsBoon != facts.PrimaryIsBoon {
		return false
	}
	if r.SecondaryChakra != nil {
		if facts.SecondaryChakra == "" || !strings.EqualFold(*r.SecondaryChakra, facts.SecondaryChakra) {
			return false
		}
	}
	if r.SecondaryIsBoon != nil {
		if facts.SecondaryChakra == "" || *r.SecondaryIsBoon != facts.SecondaryIsBoon {
			return false
		}
	}
	return true
}

// patternsMatch requires, for every pattern, some input item number of the
// same length whose non-wildcard characters match positionally.
func patternsMatch(patterns, items []string) bool {
	for _, p := range patterns {
		found := false
		for _, n := range items {
			if patternMatches(p, n) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func patternMatches(pattern, item string) bool {
	if len(pattern) != len(item) {
		return false
	}
	for i := 0; i < len(pattern); i++ {
		if pattern[i] != '*' && pattern[i] != item[i] {
			return false
		}
	}
	return true
}

// ruinedResult looks up the product type's ruined product, falling back to
// sludge when the catalog has no such row.
func (c *Catalog) ruinedResult(productType string) *BlendResult {
	item := c.FailedBlends[productType]
	if item != "" {
		for _, p := range c.Products {
			if p.ItemNumber == item {
				return &BlendResult{Product: *p, Quantity: 1, ProductType: productType, Ruined: true}
			}
		}
	}
	return &BlendResult{Product: Sludge, Quantity: 1, ProductType: productType, Ruined: true}
}

// productByID resolves a recipe's product reference.
func (c *Catalog) productByID(id int64) model.Product {
	for _, p := range c.Products {
		if p.ID == id {
			return *p
		}
	}
	return Sludge
}
