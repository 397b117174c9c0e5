package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/arvenwood/campaign/engine/internal/model"
)

// HerbRepo reads the herbalism catalog. The catalog is global, not
// per-guild: item numbers and recipes are shared by every game.
type HerbRepo struct {
	db *sql.DB
}

// NewHerbRepo creates a HerbRepo.
func NewHerbRepo(db *sql.DB) *HerbRepo {
	return &HerbRepo{db: db}
}

// ListIngredients returns every ingredient with its chakra stats and
// property tags.
func (r *HerbRepo) ListIngredients(ctx context.Context) ([]model.Ingredient, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, item_number, name, primary_chakra, primary_chakra_strength,
		        secondary_chakra, secondary_chakra_strength, properties
		 FROM herb_ingredients ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list ingredients: %w", err)
	}
	defer rows.Close()

	var ingredients []model.Ingredient
	for rows.Next() {
		var i model.Ingredient
		if err := rows.Scan(&i.ID, &i.ItemNumber, &i.Name, &i.PrimaryChakra, &i.PrimaryChakraStrength,
			&i.SecondaryChakra, &i.SecondaryChakraStrength, pq.Array(&i.Properties)); err != nil {
			return nil, fmt.Errorf("scan ingredient: %w", err)
		}
		ingredients = append(ingredients, i)
	}
	return ingredients, rows.Err()
}

// ListProducts returns every craftable product.
func (r *HerbRepo) ListProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, item_number, product_type, name FROM herb_products ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.ItemNumber, &p.ProductType, &p.Name); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// ListSubsetRecipes returns subset recipes largest-first, so the first
// containment match during blending is the winning one.
func (r *HerbRepo) ListSubsetRecipes(ctx context.Context) ([]model.SubsetRecipe, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, product_type, ingredients, quantity_produced
		 FROM herb_subset_recipes
		 ORDER BY array_length(ingredients, 1) DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("list subset recipes: %w", err)
	}
	defer rows.Close()

	var recipes []model.SubsetRecipe
	for rows.Next() {
		var sr model.SubsetRecipe
		if err := rows.Scan(&sr.ID, &sr.ProductID, &sr.ProductType,
			pq.Array(&sr.Ingredients), &sr.QuantityProduced); err != nil {
			return nil, fmt.Errorf("scan subset recipe: %w", err)
		}
		recipes = append(recipes, sr)
	}
	return recipes, rows.Err()
}

// ListConstraintRecipes returns constraint recipes in FIFO creation order.
func (r *HerbRepo) ListConstraintRecipes(ctx context.Context) ([]model.ConstraintRecipe, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, product_id, product_type, ingredient_patterns, tier,
		        primary_chakra, primary_is_boon, secondary_chakra, secondary_is_boon, created_at
		 FROM herb_constraint_recipes
		 ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list constraint recipes: %w", err)
	}
	defer rows.Close()

	var recipes []model.ConstraintRecipe
	for rows.Next() {
		var cr model.ConstraintRecipe
		if err := rows.Scan(&cr.ID, &cr.ProductID, &cr.ProductType,
			pq.Array(&cr.IngredientPatterns), &cr.Tier,
			&cr.PrimaryChakra, &cr.PrimaryIsBoon,
			&cr.SecondaryChakra, &cr.SecondaryIsBoon, &cr.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan constraint recipe: %w", err)
		}
		recipes = append(recipes, cr)
	}
	return recipes, rows.Err()
}

// ListFailedBlends returns the per-product-type ruined item mapping.
func (r *HerbRepo) ListFailedBlends(ctx context.Context) ([]model.FailedBlend, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT product_type, ruined_item_number FROM herb_failed_blends ORDER BY product_type`)
	if err != nil {
		return nil, fmt.Errorf("list failed blends: %w", err)
	}
	defer rows.Close()

	var blends []model.FailedBlend
	for rows.Next() {
		var fb model.FailedBlend
		if err := rows.Scan(&fb.ProductType, &fb.RuinedItemNumber); err != nil {
			return nil, fmt.Errorf("scan failed blend: %w", err)
		}
		blends = append(blends, fb)
	}
	return blends, rows.Err()
}
