package yaml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ochairo/unipkg/internal/domain/entities"
	"github.com/ochairo/unipkg/internal/domain/interfaces"
)

var recipeExtensions = []string{".yml", ".yaml"}

// RecipeRepository implements repositories.RecipeRepository using YAML files
type RecipeRepository struct {
	recipesDir string
	parser     *RecipeParser
	logger     interfaces.Logger
}

// NewRecipeRepository creates a new YAML-based recipe repository
func NewRecipeRepository(recipesDir string, logger interfaces.Logger) *RecipeRepository {
	return &RecipeRepository{
		recipesDir: recipesDir,
		parser:     NewRecipeParser(),
		logger:     interfaces.OrNoOp(logger),
	}
}

// GetRecipe retrieves a pair recipe by name
func (r *RecipeRepository) GetRecipe(_ context.Context, name string) (*entities.PairRecipe, error) {
	for _, ext := range recipeExtensions {
		filePath := filepath.Join(r.recipesDir, name+ext)
		if _, err := os.Stat(filePath); err == nil {
			return r.parser.ParseFile(filePath)
		}
	}
	return nil, fmt.Errorf("recipe not found: %s", name)
}

// ListRecipes returns all available pair recipes sorted by name
func (r *RecipeRepository) ListRecipes(_ context.Context) ([]*entities.PairRecipe, error) {
	entries, err := os.ReadDir(r.recipesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipes directory: %w", err)
	}

	recipes := make([]*entities.PairRecipe, 0)
	for _, entry := range entries {
		if entry.IsDir() || !isRecipeFile(entry.Name()) {
			continue
		}

		filePath := filepath.Join(r.recipesDir, entry.Name())
		def, err := r.parser.ParseFile(filePath)
		if err != nil {
			// Skip broken recipes but keep listing the rest
			r.logger.Warn("skipping unparsable recipe", interfaces.F("file", entry.Name()), interfaces.Err(err))
			continue
		}

		recipes = append(recipes, def)
	}

	sort.Slice(recipes, func(i, j int) bool { return recipes[i].Name < recipes[j].Name })
	return recipes, nil
}

func isRecipeFile(name string) bool {
	for _, ext := range recipeExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
