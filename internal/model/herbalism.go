package model

import "time"

// Product types produced by the herbalism engine.
const (
	ProductTea       = "tea"
	ProductSalve     = "salve"
	ProductTincture  = "tincture"
	ProductDecoction = "decoction"
	ProductBath      = "bath"
	ProductIncense   = "incense"
)

// Ingredient is a raw herbalism component. Item numbers are digit strings.
type Ingredient struct {
	ID                      int64    `json:"id"`
	ItemNumber              string   `json:"item_number"`
	Name                    string   `json:"name"`
	PrimaryChakra           *string  `json:"primary_chakra,omitempty"`
	PrimaryChakraStrength   *int     `json:"primary_chakra_strength,omitempty"`
	SecondaryChakra         *string  `json:"secondary_chakra,omitempty"`
	SecondaryChakraStrength *int     `json:"secondary_chakra_strength,omitempty"`
	Properties              []string `json:"properties"`
}

// HasProperty reports whether the ingredient carries the given tag.
func (i *Ingredient) HasProperty(tag string) bool {
	for _, p := range i.Properties {
		if p == tag {
			return true
		}
	}
	return false
}

// Product is a craftable result, unique by (item_number, product_type).
type Product struct {
	ID          int64  `json:"id"`
	ItemNumber  string `json:"item_number"`
	ProductType string `json:"product_type"`
	Name        string `json:"name"`
}

// SubsetRecipe matches when its ingredient list is a subset of the input.
// Ingredients are stored sorted descending; the largest matching subset wins.
type SubsetRecipe struct {
	ID               int64    `json:"id"`
	ProductID        int64    `json:"product_id"`
	ProductType      string   `json:"product_type"`
	Ingredients      []string `json:"ingredients"`
	QuantityProduced int      `json:"quantity_produced"`
}

// ConstraintRecipe matches on computed chakra facts and wildcard ingredient
// patterns. Scanned FIFO by (created_at, id); first match wins.
type ConstraintRecipe struct {
	ID                 int64     `json:"id"`
	ProductID          int64     `json:"product_id"`
	ProductType        string    `json:"product_type"`
	IngredientPatterns []string  `json:"ingredient_patterns"`
	Tier               *int      `json:"tier,omitempty"`
	PrimaryChakra      *string   `json:"primary_chakra,omitempty"`
	PrimaryIsBoon      *bool     `json:"primary_is_boon,omitempty"`
	SecondaryChakra    *string   `json:"secondary_chakra,omitempty"`
	SecondaryIsBoon    *bool     `json:"secondary_is_boon,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// FailedBlend maps a product type to its ruined product item number.
type FailedBlend struct {
	ProductType      string `json:"product_type"`
	RuinedItemNumber string `json:"ruined_item_number"`
}
