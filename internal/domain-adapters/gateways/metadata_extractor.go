package gateways

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/ochairo/unipkg/internal/domain/entities"
	uerrors "github.com/ochairo/unipkg/internal/domain/errors"
	"github.com/ochairo/unipkg/internal/domain/interfaces"
	"github.com/ochairo/unipkg/internal/external-adapters/plist"
)

// BundleSuffix marks an application bundle directory
const BundleSuffix = ".app"

// ArchitectureInspector lists the CPU architectures of an executable
type ArchitectureInspector interface {
	InspectArchitectures(path string) ([]entities.Architecture, error)
}

// MetadataExtractor reads identity, version and architecture from a bundle
type MetadataExtractor struct {
	inspector ArchitectureInspector
	logger    interfaces.Logger
}

// NewMetadataExtractor creates an extractor. A nil inspector selects MachOInspector.
func NewMetadataExtractor(inspector ArchitectureInspector, logger interfaces.Logger) *MetadataExtractor {
	if inspector == nil {
		inspector = NewMachOInspector()
	}
	return &MetadataExtractor{
		inspector: inspector,
		logger:    interfaces.OrNoOp(logger).Named("metadata"),
	}
}

// ManifestPath returns the location of a bundle's Info.plist
func ManifestPath(bundlePath string) string {
	return filepath.Join(bundlePath, "Contents", "Info.plist")
}

// DisplayName is the bundle's file name without the bundle suffix
func DisplayName(bundlePath string) string {
	base := filepath.Base(filepath.Clean(bundlePath))
	if strings.HasSuffix(strings.ToLower(base), BundleSuffix) {
		return base[:len(base)-len(BundleSuffix)]
	}
	return base
}

// ExtractMetadata reads the bundle manifest and classifies its main
// executable. A missing or malformed manifest, or one without an
// identifier or version, is ManifestUnreadable. Inspection problems
// only degrade the architecture to unknown.
func (e *MetadataExtractor) ExtractMetadata(_ context.Context, bundlePath string) (*entities.BundleMetadata, error) {
	info, err := plist.ReadBundleInfo(ManifestPath(bundlePath))
	if err != nil {
		return nil, uerrors.Wrap(err, uerrors.KindManifestUnreadable, "cannot read manifest of %s", filepath.Base(bundlePath))
	}
	if strings.TrimSpace(info.Identifier) == "" {
		return nil, uerrors.New(uerrors.KindManifestUnreadable, "manifest of %s has no CFBundleIdentifier", filepath.Base(bundlePath))
	}
	if strings.TrimSpace(info.ShortVersion) == "" {
		return nil, uerrors.New(uerrors.KindManifestUnreadable, "manifest of %s has no CFBundleShortVersionString", filepath.Base(bundlePath))
	}

	meta := &entities.BundleMetadata{
		Identifier:   info.Identifier,
		Version:      info.ShortVersion,
		Executable:   info.Executable,
		BundleName:   info.Name,
		Architecture: e.classifyExecutable(bundlePath, info.Executable),

		BundleDisplayName:    info.DisplayName,
		MinimumSystemVersion: info.MinimumOSVersion,
	}

	e.logger.Debug("bundle metadata",
		interfaces.F("bundle", filepath.Base(bundlePath)),
		interfaces.F("identifier", meta.Identifier),
		interfaces.F("version", meta.Version),
		interfaces.F("architecture", meta.Architecture))
	return meta, nil
}

func (e *MetadataExtractor) classifyExecutable(bundlePath, executable string) entities.Architecture {
	if executable == "" || strings.ContainsRune(executable, filepath.Separator) {
		e.logger.Warn("manifest declares no usable executable", interfaces.F("bundle", bundlePath))
		return entities.ArchUnknown
	}

	archs, err := e.inspector.InspectArchitectures(filepath.Join(bundlePath, "Contents", "MacOS", executable))
	if err != nil {
		e.logger.Warn("cannot inspect executable", interfaces.F("executable", executable), interfaces.Err(err))
		return entities.ArchUnknown
	}
	return Classify(archs)
}
