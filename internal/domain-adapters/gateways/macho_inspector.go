package gateways

import (
	"debug/macho"
	"errors"
	"fmt"

	"github.com/ochairo/unipkg/internal/domain/entities"
)

// MachOInspector reads the CPU slices of a Mach-O executable using debug/macho
type MachOInspector struct{}

// NewMachOInspector creates a new inspector
func NewMachOInspector() *MachOInspector {
	return &MachOInspector{}
}

// InspectArchitectures lists the architectures contained in a thin or fat
// Mach-O file. Slices for unrecognized CPUs are reported as ArchUnknown.
func (i *MachOInspector) InspectArchitectures(path string) ([]entities.Architecture, error) {
	fat, err := macho.OpenFat(path)
	if err == nil {
		//nolint:errcheck // Defer close on read-only file
		defer fat.Close()

		archs := make([]entities.Architecture, 0, len(fat.Arches))
		for _, a := range fat.Arches {
			archs = append(archs, archFromCPU(a.Cpu))
		}
		return archs, nil
	}
	if !errors.Is(err, macho.ErrNotFat) {
		return nil, fmt.Errorf("failed to open universal Mach-O file: %w", err)
	}

	f, err := macho.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Mach-O file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	return []entities.Architecture{archFromCPU(f.Cpu)}, nil
}

// Classify reduces an architecture set to a single tag: both recognized
// architectures make it universal, exactly one makes it that one, and
// anything else is unknown.
func Classify(archs []entities.Architecture) entities.Architecture {
	var hasARM, hasX86 bool
	for _, a := range archs {
		switch a {
		case entities.ArchARM64:
			hasARM = true
		case entities.ArchX86_64:
			hasX86 = true
		}
	}

	switch {
	case hasARM && hasX86:
		return entities.ArchUniversal
	case hasARM:
		return entities.ArchARM64
	case hasX86:
		return entities.ArchX86_64
	default:
		return entities.ArchUnknown
	}
}

func archFromCPU(cpu macho.Cpu) entities.Architecture {
	switch cpu {
	case macho.CpuArm64:
		return entities.ArchARM64
	case macho.CpuAmd64:
		return entities.ArchX86_64
	default:
		return entities.ArchUnknown
	}
}
