package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ochairo/unipkg/internal/domain/entities"
	"github.com/ochairo/unipkg/internal/external-adapters/yaml"
)

func (c *cli) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List available pair recipes",
		Example: `  unipkg list
  unipkg list --recipes-dir ./recipes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runList(cmd)
		},
	}
}

func (c *cli) runList(cmd *cobra.Command) error {
	repo := yaml.NewRecipeRepository(c.v.GetString(keyRecipesDir), c.logger)
	recipes, err := repo.ListRecipes(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list recipes: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Available recipes (%d total):\n\n", len(recipes))
	for _, r := range recipes {
		fmt.Fprintf(out, "  %-20s %s\n", r.Name, r.Description)
		fmt.Fprintf(out, "  %-20s Apple silicon: %s%s\n", "", r.Arm.Descriptor, integrityNote(r.Arm))
		fmt.Fprintf(out, "  %-20s Intel:         %s%s\n", "", r.Intel.Descriptor, integrityNote(r.Intel))
		if r.Output != "" {
			fmt.Fprintf(out, "  %-20s Output: %s\n", "", r.Output)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func integrityNote(src entities.InputSource) string {
	switch {
	case src.SHA256 != "" && src.Signature != "":
		return " (sha256, signature)"
	case src.SHA256 != "":
		return " (sha256)"
	case src.Signature != "":
		return " (signature)"
	default:
		return ""
	}
}
