package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ochairo/unipkg/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/unipkg/internal/domain-orchestrators"
	"github.com/ochairo/unipkg/internal/domain/entities"
	uerrors "github.com/ochairo/unipkg/internal/domain/errors"
)

type inspectOptions struct {
	expect    string
	sha256    string
	signature string
}

func (c *cli) inspectCmd() *cobra.Command {
	opts := &inspectOptions{}
	cmd := &cobra.Command{
		Use:   "inspect <input>",
		Short: "Resolve one input and print its bundle metadata",
		Example: `  unipkg inspect Foo-arm64.zip
  unipkg inspect https://example.com/Foo-x86_64.dmg --expect x86_64`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInspect(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.expect, "expect", "", "Fail unless the executable is this architecture (arm64, x86_64)")
	f.StringVar(&opts.sha256, "sha256", "", "Expected SHA-256 of the archive")
	f.StringVar(&opts.signature, "signature", "", "Detached signature of the archive (path or URL)")
	f.String(keyKeyring, "", "OpenPGP public keyring for signature checks")
	return cmd
}

func (c *cli) runInspect(cmd *cobra.Command, input string, opts *inspectOptions) error {
	var expected entities.Architecture
	if opts.expect != "" {
		expected = entities.ParseArchitecture(strings.ToLower(strings.TrimSpace(opts.expect)))
		if expected != entities.ArchARM64 && expected != entities.ArchX86_64 {
			return fmt.Errorf("--expect must be %s or %s, got %q", entities.ArchARM64, entities.ArchX86_64, opts.expect)
		}
	}

	comp, err := c.newComponents()
	if err != nil {
		return err
	}

	area, err := orchestrators.NewWorkingArea(c.v.GetString(keyWorkDir), c.logger)
	if err != nil {
		return uerrors.Wrap(err, uerrors.KindExtractionFailed, "cannot allocate working area")
	}
	defer func() { _ = area.Close() }()

	ctx := cmd.Context()
	src := entities.InputSource{Descriptor: input, SHA256: opts.sha256, Signature: opts.signature}
	bundlePath, err := comp.resolver.ResolveSource(ctx, src, area.Root)
	if err != nil {
		return err
	}
	meta, err := comp.extractor.ExtractMetadata(ctx, bundlePath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Name:         %s\n", gateways.DisplayName(bundlePath))
	fmt.Fprintf(out, "Identifier:   %s\n", meta.Identifier)
	fmt.Fprintf(out, "Version:      %s\n", meta.Version)
	fmt.Fprintf(out, "Executable:   %s\n", meta.Executable)
	if meta.BundleName != "" {
		fmt.Fprintf(out, "Bundle name:  %s\n", meta.BundleName)
	}
	if meta.BundleDisplayName != "" {
		fmt.Fprintf(out, "Display name: %s\n", meta.BundleDisplayName)
	}
	if meta.MinimumSystemVersion != "" {
		fmt.Fprintf(out, "Minimum OS:   %s\n", meta.MinimumSystemVersion)
	}
	fmt.Fprintf(out, "Architecture: %s\n", meta.Architecture)

	if expected != "" && meta.Architecture != expected {
		return uerrors.New(uerrors.KindArchitectureMismatch,
			"input must be %s, found %s", expected, meta.Architecture)
	}
	return nil
}
