package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ochairo/unipkg/internal/domain/entities"
	"github.com/ochairo/unipkg/internal/external-adapters/yaml"
)

type buildOptions struct {
	arm            string
	intel          string
	output         string
	recipe         string
	armSHA256      string
	intelSHA256    string
	armSignature   string
	intelSignature string
}

func (c *cli) buildCmd() *cobra.Command {
	opts := &buildOptions{}
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a universal installer from an arm64 and an x86_64 input",
		Long: `Build a universal installer package from two builds of one application.

Both inputs must carry the same bundle identifier and version. The
Apple silicon input must be arm64 and the Intel input must be x86_64.`,
		Example: `  unipkg build --arm Foo-arm64.zip --intel Foo-x86_64.zip --output dist
  unipkg build --arm https://example.com/Foo-arm64.dmg --intel ./Foo-x86_64.dmg --output dist --checksum
  unipkg build --recipe foo --parallel
  unipkg build --recipe ./recipes/foo.yml --output dist`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.runBuild(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.arm, "arm", "", "Apple silicon input (path or URL)")
	f.StringVar(&opts.intel, "intel", "", "Intel input (path or URL)")
	f.StringVarP(&opts.output, "output", "o", "", "Output directory for the installer")
	f.StringVar(&opts.recipe, "recipe", "", "Pair recipe name, or path to a .yml/.yaml recipe file")
	f.StringVar(&opts.armSHA256, "arm-sha256", "", "Expected SHA-256 of the Apple silicon archive")
	f.StringVar(&opts.intelSHA256, "intel-sha256", "", "Expected SHA-256 of the Intel archive")
	f.StringVar(&opts.armSignature, "arm-signature", "", "Detached signature of the Apple silicon archive (path or URL)")
	f.StringVar(&opts.intelSignature, "intel-signature", "", "Detached signature of the Intel archive (path or URL)")
	f.String(keyKeyring, "", "OpenPGP public keyring for signature checks")
	f.Bool(keyParallel, false, "Process both inputs concurrently")
	f.Bool(keyChecksum, false, "Write <installer>.sha256 next to the installer")
	f.String(keyFallbackDir, "", "Output location used when --output is not writable (default: ~/Desktop, then home)")
	return cmd
}

func (c *cli) runBuild(cmd *cobra.Command, opts *buildOptions) error {
	comp, err := c.newComponents()
	if err != nil {
		return err
	}
	orchestrator := c.newOrchestrator(comp, newConsoleProgress(c.stderr))
	ctx := cmd.Context()

	var result *entities.PackageResult
	switch {
	case opts.recipe != "" && !isRecipeFile(opts.recipe) && !opts.overridesInputs():
		result, err = orchestrator.BuildFromRecipe(ctx, opts.recipe, opts.output)
	default:
		req, reqErr := c.buildRequest(ctx, opts)
		if reqErr != nil {
			return reqErr
		}
		result, err = orchestrator.BuildUniversalPackage(ctx, req)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Built %s %s (%s)\n", result.Name, result.Version, result.Identifier)
	fmt.Fprintf(out, "  installer: %s\n", result.Path)
	if result.ChecksumPath != "" {
		fmt.Fprintf(out, "  checksum:  %s\n", result.ChecksumPath)
	}
	if result.UsedFallback {
		fmt.Fprintf(out, "  note: output directory was not writable, used %s\n", filepath.Dir(result.Path))
	}
	return nil
}

func (o *buildOptions) overridesInputs() bool {
	return o.arm != "" || o.intel != "" ||
		o.armSHA256 != "" || o.intelSHA256 != "" ||
		o.armSignature != "" || o.intelSignature != ""
}

// buildRequest assembles the run from an optional recipe, with explicit
// flags taking precedence
func (c *cli) buildRequest(ctx context.Context, o *buildOptions) (entities.PackageRequest, error) {
	req := entities.PackageRequest{OutputDir: o.output}

	if o.recipe != "" {
		recipe, err := c.loadRecipe(ctx, o.recipe)
		if err != nil {
			return req, err
		}
		req = recipe.Request(o.output)
	}

	overlay(&req.First, o.arm, o.armSHA256, o.armSignature)
	overlay(&req.Second, o.intel, o.intelSHA256, o.intelSignature)
	return req, nil
}

func (c *cli) loadRecipe(ctx context.Context, recipe string) (*entities.PairRecipe, error) {
	var (
		r   *entities.PairRecipe
		err error
	)
	if isRecipeFile(recipe) {
		r, err = yaml.NewRecipeParser().ParseFile(recipe)
	} else {
		r, err = yaml.NewRecipeRepository(c.v.GetString(keyRecipesDir), c.logger).GetRecipe(ctx, recipe)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load recipe: %w", err)
	}
	return r, nil
}

func overlay(src *entities.InputSource, descriptor, sha, signature string) {
	if descriptor != "" {
		src.Descriptor = descriptor
	}
	if sha != "" {
		src.SHA256 = sha
	}
	if signature != "" {
		src.Signature = signature
	}
}

func isRecipeFile(recipe string) bool {
	ext := strings.ToLower(filepath.Ext(recipe))
	return ext == ".yml" || ext == ".yaml"
}
