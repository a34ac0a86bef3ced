// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/unipkg/internal/domain/entities"
)

// RecipeRepository defines the interface for accessing pair recipes
type RecipeRepository interface {
	// GetRecipe retrieves a pair recipe by name
	GetRecipe(ctx context.Context, name string) (*entities.PairRecipe, error)

	// ListRecipes returns all available pair recipes
	ListRecipes(ctx context.Context) ([]*entities.PairRecipe, error)
}
