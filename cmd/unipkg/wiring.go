package main

import (
	"fmt"
	"strings"

	"github.com/ochairo/unipkg/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/unipkg/internal/domain-orchestrators"
	"github.com/ochairo/unipkg/internal/domain/interfaces"
	"github.com/ochairo/unipkg/internal/domain/services"
	"github.com/ochairo/unipkg/internal/external-adapters/gpg"
	"github.com/ochairo/unipkg/internal/external-adapters/yaml"
)

// components are the gateways shared by the commands
type components struct {
	runner    *gateways.ExecRunner
	resolver  *gateways.ArchiveResolver
	extractor *gateways.MetadataExtractor
}

func (c *cli) newComponents() (*components, error) {
	logger := c.logger

	var signatures gateways.SignatureChecker
	if keyring := strings.TrimSpace(c.v.GetString(keyKeyring)); keyring != "" {
		verifier := gpg.NewVerifier()
		if err := verifier.ImportKeyFromFile(keyring); err != nil {
			return nil, fmt.Errorf("failed to load keyring %s: %w", keyring, err)
		}
		logger.Debug("keyring loaded", interfaces.F("path", keyring))
		signatures = verifier
	}

	runner := gateways.NewExecRunner(c.toolTimeout(), logger)
	downloader := gateways.NewDownloader(c.stderr, logger)
	integrity := gateways.NewIntegrityVerifier(signatures, logger)

	return &components{
		runner:    runner,
		resolver:  gateways.NewArchiveResolver(runner, downloader, integrity, logger),
		extractor: gateways.NewMetadataExtractor(gateways.NewMachOInspector(), logger),
	}, nil
}

func (c *cli) newOrchestrator(comp *components, progress interfaces.ProgressReporter) *orchestrators.PackageOrchestrator {
	logger := c.logger
	return orchestrators.NewPackageOrchestrator(
		yaml.NewRecipeRepository(c.v.GetString(keyRecipesDir), logger),
		orchestrators.NewInputPipeline(comp.resolver, comp.extractor, logger),
		gateways.NewPackager(comp.runner, c.fallbackDirs(), logger),
		services.NewChecksumService(),
		progress,
		logger,
		orchestrators.PackageOrchestratorConfig{
			WorkDir:  c.v.GetString(keyWorkDir),
			Parallel: c.v.GetBool(keyParallel),
			Checksum: c.v.GetBool(keyChecksum),
		},
	)
}
