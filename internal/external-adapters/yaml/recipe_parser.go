// Package yaml provides YAML-based recipe parsing and repository implementations.
package yaml

import (
	"fmt"
	"os"
	"strings"

	"github.com/ochairo/unipkg/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlRecipe represents the raw YAML structure
type yamlRecipe struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Arm         yamlInput `yaml:"arm"`
	Intel       yamlInput `yaml:"intel"`
	Output      string    `yaml:"output"`
}

type yamlInput struct {
	Source    string `yaml:"source"`
	SHA256    string `yaml:"sha256"`
	Signature string `yaml:"signature"`
}

// RecipeParser parses YAML pair recipe files
type RecipeParser struct{}

// NewRecipeParser creates a new YAML parser
func NewRecipeParser() *RecipeParser {
	return &RecipeParser{}
}

// ParseFile parses a YAML recipe file into a PairRecipe entity
func (p *RecipeParser) ParseFile(filePath string) (*entities.PairRecipe, error) {
	//nolint:gosec // G304: filePath is recipe definition path from repository
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into a PairRecipe entity
func (p *RecipeParser) Parse(data []byte) (*entities.PairRecipe, error) {
	var yamlDef yamlRecipe
	if err := yaml.Unmarshal(data, &yamlDef); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if strings.TrimSpace(yamlDef.Name) == "" {
		return nil, fmt.Errorf("recipe must have a name")
	}

	return &entities.PairRecipe{
		Name:        yamlDef.Name,
		Description: yamlDef.Description,
		Arm:         convertInput(yamlDef.Arm),
		Intel:       convertInput(yamlDef.Intel),
		Output:      yamlDef.Output,
	}, nil
}

func convertInput(yi yamlInput) entities.InputSource {
	return entities.InputSource{
		Descriptor: strings.TrimSpace(yi.Source),
		SHA256:     strings.ToLower(strings.TrimSpace(yi.SHA256)),
		Signature:  strings.TrimSpace(yi.Signature),
	}
}
