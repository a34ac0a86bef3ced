// Package services holds pure domain rules shared by the orchestrators.
package services

import (
	"path/filepath"
	"strings"

	"github.com/ochairo/unipkg/internal/domain/entities"
	uerrors "github.com/ochairo/unipkg/internal/domain/errors"
)

// ValidateRequest rejects requests that cannot start: blank inputs or a
// blank output directory, and local inputs of different file types.
// It performs no I/O.
func ValidateRequest(req entities.PackageRequest) error {
	if strings.TrimSpace(req.First.Descriptor) == "" {
		return uerrors.New(uerrors.KindMissingInput, "no %s input provided", entities.SlotFirst.Label())
	}
	if strings.TrimSpace(req.Second.Descriptor) == "" {
		return uerrors.New(uerrors.KindMissingInput, "no %s input provided", entities.SlotSecond.Label())
	}
	if strings.TrimSpace(req.OutputDir) == "" {
		return uerrors.New(uerrors.KindMissingInput, "no output directory provided")
	}

	// Remote inputs may carry any suffix; only compare two local paths.
	if req.First.IsRemote() || req.Second.IsRemote() {
		return nil
	}
	firstExt := rawSuffix(req.First.Descriptor)
	secondExt := rawSuffix(req.Second.Descriptor)
	if firstExt != secondExt {
		return uerrors.New(uerrors.KindInputTypeMismatch,
			"inputs must be the same file type: %q vs %q", firstExt, secondExt)
	}
	return nil
}

// ValidatePair checks that two resolved bundles are variants of the same
// release. Architecture is checked per slot before this runs.
func ValidatePair(first, second *entities.ResolvedBundle) error {
	if first.Version != second.Version {
		return uerrors.New(uerrors.KindVersionMismatch,
			"version mismatch: %s has %q, %s has %q",
			entities.SlotFirst.Label(), first.Version, entities.SlotSecond.Label(), second.Version)
	}
	if first.Identifier != second.Identifier {
		return uerrors.New(uerrors.KindBundleIDMismatch,
			"bundle identifier mismatch: %s has %q, %s has %q",
			entities.SlotFirst.Label(), first.Identifier, entities.SlotSecond.Label(), second.Identifier)
	}
	return nil
}

func rawSuffix(descriptor string) string {
	return filepath.Ext(strings.TrimRight(strings.TrimSpace(descriptor), "/"))
}
