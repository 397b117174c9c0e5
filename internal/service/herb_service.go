package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/arvenwood/campaign/engine/internal/model"
	"github.com/arvenwood/campaign/engine/internal/repository"
	"github.com/arvenwood/campaign/engine/pkg/herbalism"
)

// HerbService loads the herbalism catalog from the store and evaluates
// blends against it. The catalog changes only when recipes are edited, so
// it is loaded once and reused; Reload drops the cache.
type HerbService struct {
	repo repository.HerbRepository

	mu      sync.Mutex
	catalog *herbalism.Catalog
}

// NewHerbService creates a HerbService.
func NewHerbService(repo repository.HerbRepository) *HerbService {
	return &HerbService{repo: repo}
}

// Blend evaluates an ingredient list against the catalog.
func (s *HerbService) Blend(ctx context.Context, itemNumbers []string) (*herbalism.BlendResult, error) {
	catalog, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return catalog.MakeBlend(itemNumbers)
}

// Catalog returns the cached catalog, loading it on first use.
func (s *HerbService) Catalog(ctx context.Context) (*herbalism.Catalog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.catalog != nil {
		return s.catalog, nil
	}

	catalog, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	s.catalog = catalog
	return catalog, nil
}

// Reload drops the cached catalog so the next blend sees fresh recipes.
func (s *HerbService) Reload() {
	s.mu.Lock()
	s.catalog = nil
	s.mu.Unlock()
}

func (s *HerbService) load(ctx context.Context) (*herbalism.Catalog, error) {
	ingredients, err := s.repo.ListIngredients(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ingredients: %w", err)
	}
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	subset, err := s.repo.ListSubsetRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load subset recipes: %w", err)
	}
	constraint, err := s.repo.ListConstraintRecipes(ctx)
	if err != nil {
		return nil, fmt.Errorf("load constraint recipes: %w", err)
	}
	failed, err := s.repo.ListFailedBlends(ctx)
	if err != nil {
		return nil, fmt.Errorf("load failed blends: %w", err)
	}

	catalog := &herbalism.Catalog{
		Ingredients:  make(map[string]*model.Ingredient, len(ingredients)),
		FailedBlends: make(map[string]string, len(failed)),
	}
	for i := range ingredients {
		catalog.Ingredients[ingredients[i].ItemNumber] = &ingredients[i]
	}
	for i := range products {
		catalog.Products = append(catalog.Products, &products[i])
	}
	for i := range subset {
		catalog.SubsetRecipes = append(catalog.SubsetRecipes, &subset[i])
	}
	for i := range constraint {
		catalog.ConstraintRecipes = append(catalog.ConstraintRecipes, &constraint[i])
	}
	for _, fb := range failed {
		catalog.FailedBlends[fb.ProductType] = fb.RuinedItemNumber
	}

	log.Info().Int("ingredients", len(ingredients)).Int("products", len(products)).
		Int("subsetRecipes", len(subset)).Int("constraintRecipes", len(constraint)).
		Msg("Herbalism catalog loaded")
	return catalog, nil
}
