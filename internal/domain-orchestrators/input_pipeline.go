package orchestrators

import (
	"context"
	"os"
	"path/filepath"

	"github.com/ochairo/unipkg/internal/domain-adapters/gateways"
	"github.com/ochairo/unipkg/internal/domain/entities"
	uerrors "github.com/ochairo/unipkg/internal/domain/errors"
	"github.com/ochairo/unipkg/internal/domain/interfaces"
)

// BundleResolver turns an input into a bundle path below workDir
type BundleResolver interface {
	ResolveSource(ctx context.Context, src entities.InputSource, workDir string) (string, error)
}

// MetadataExtractor reads identity, version and architecture of a bundle
type MetadataExtractor interface {
	ExtractMetadata(ctx context.Context, bundlePath string) (*entities.BundleMetadata, error)
}

// InputPipeline resolves one slot's input into a validated bundle inside
// the working area
type InputPipeline struct {
	resolver  BundleResolver
	extractor MetadataExtractor
	logger    interfaces.Logger
}

// NewInputPipeline creates a new input pipeline
func NewInputPipeline(resolver BundleResolver, extractor MetadataExtractor, logger interfaces.Logger) *InputPipeline {
	return &InputPipeline{
		resolver:  resolver,
		extractor: extractor,
		logger:    interfaces.OrNoOp(logger).Named("input"),
	}
}

// Process resolves src, checks that it holds the slot's architecture and
// copies the bundle into the slot directory. Download and extraction
// scratch is removed before returning.
func (p *InputPipeline) Process(
	ctx context.Context,
	src entities.InputSource,
	slot entities.Slot,
	area *WorkingArea,
) (*entities.ResolvedBundle, error) {
	// Step 1: Scratch space for this slot
	scratch, err := area.ScratchDir(slot)
	if err != nil {
		return nil, uerrors.Wrap(err, uerrors.KindExtractionFailed, "failed to create scratch directory")
	}
	defer func() {
		if err := os.RemoveAll(scratch); err != nil {
			p.logger.Warn("failed to remove scratch directory", interfaces.F("path", scratch), interfaces.Err(err))
		}
	}()

	// Step 2: Resolve to a bundle
	bundle, err := p.resolver.ResolveSource(ctx, src, scratch)
	if err != nil {
		return nil, err
	}

	// Step 3: Metadata
	meta, err := p.extractor.ExtractMetadata(ctx, bundle)
	if err != nil {
		return nil, err
	}

	// Step 4: Architecture must be exactly the slot's
	if meta.Architecture != slot.Expected() {
		return nil, uerrors.New(uerrors.KindArchitectureMismatch,
			"%s input must be %s, found %s", slot.Label(), slot.Expected(), meta.Architecture)
	}

	// Step 5: Keep a private copy so the extraction location can go
	source, err := filepath.EvalSymlinks(bundle)
	if err != nil {
		return nil, uerrors.Wrap(err, uerrors.KindBundleNotFound, "cannot resolve %s", bundle)
	}
	name := filepath.Base(filepath.Clean(bundle))
	dest := filepath.Join(area.SlotDir(slot), name)
	if err := gateways.CopyTree(source, dest); err != nil {
		return nil, uerrors.Wrap(err, uerrors.KindExtractionFailed, "failed to copy %s into the working area", name)
	}

	resolved := &entities.ResolvedBundle{
		Slot:         slot,
		BundlePath:   dest,
		DisplayName:  gateways.DisplayName(bundle),
		Identifier:   meta.Identifier,
		Version:      meta.Version,
		Architecture: meta.Architecture,
	}
	p.logger.Info("input resolved",
		interfaces.F("slot", slot),
		interfaces.F("name", resolved.DisplayName),
		interfaces.F("identifier", resolved.Identifier),
		interfaces.F("version", resolved.Version))
	return resolved, nil
}
