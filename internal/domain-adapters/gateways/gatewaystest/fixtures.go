// Package gatewaystest provides fixtures and a scripted tool runner for
// exercising the packaging pipeline without macOS tooling.
package gatewaystest

import (
	"bytes"
	"debug/macho"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ochairo/unipkg/internal/external-adapters/plist"
)

// Bundle describes an application bundle fixture
type Bundle struct {
	Name       string // file name without ".app"
	Identifier string
	Version    string
	Executable string // defaults to Name
	CPUs       []macho.Cpu

	DisplayName          string // CFBundleDisplayName, omitted when empty
	MinimumSystemVersion string // LSMinimumSystemVersion, omitted when empty
}

// ARM returns an arm64-only bundle description
func ARM(name, id, version string) Bundle {
	return Bundle{Name: name, Identifier: id, Version: version, CPUs: []macho.Cpu{macho.CpuArm64}}
}

// Intel returns an x86_64-only bundle description
func Intel(name, id, version string) Bundle {
	return Bundle{Name: name, Identifier: id, Version: version, CPUs: []macho.Cpu{macho.CpuAmd64}}
}

// WriteBundle creates <dir>/<Name>.app with a manifest and a Mach-O main
// executable, and returns its path
func WriteBundle(dir string, b Bundle) (string, error) {
	exe := b.Executable
	if exe == "" {
		exe = b.Name
	}

	bundlePath := filepath.Join(dir, b.Name+".app")
	macOS := filepath.Join(bundlePath, "Contents", "MacOS")
	if err := os.MkdirAll(macOS, 0750); err != nil {
		return "", err
	}

	manifest := map[string]interface{}{
		"CFBundleExecutable": exe,
		"CFBundleName":       b.Name,
	}
	if b.Identifier != "" {
		manifest["CFBundleIdentifier"] = b.Identifier
	}
	if b.Version != "" {
		manifest["CFBundleShortVersionString"] = b.Version
	}
	if b.DisplayName != "" {
		manifest["CFBundleDisplayName"] = b.DisplayName
	}
	if b.MinimumSystemVersion != "" {
		manifest["LSMinimumSystemVersion"] = b.MinimumSystemVersion
	}
	if err := plist.WriteXML(filepath.Join(bundlePath, "Contents", "Info.plist"), manifest); err != nil {
		return "", err
	}

	if err := WriteMachO(filepath.Join(macOS, exe), b.CPUs...); err != nil {
		return "", err
	}
	return bundlePath, nil
}

// WriteMachO writes a minimal executable: thin for one CPU, fat for several
func WriteMachO(path string, cpus ...macho.Cpu) error {
	var data []byte
	switch len(cpus) {
	case 0:
		data = []byte("#!/bin/sh\n")
	case 1:
		data = thinHeader(cpus[0])
	default:
		data = fatImage(cpus)
	}
	//nolint:gosec // G306: fixture executables must be executable
	return os.WriteFile(path, data, 0755)
}

func thinHeader(cpu macho.Cpu) []byte {
	var buf bytes.Buffer
	hdr := macho.FileHeader{
		Magic: macho.Magic64,
		Cpu:   cpu,
		Type:  macho.TypeExec,
	}
	_ = binary.Write(&buf, binary.LittleEndian, hdr)
	buf.Write(make([]byte, 4)) // reserved field of the 64-bit header
	return buf.Bytes()
}

const sliceStride = 64

func fatImage(cpus []macho.Cpu) []byte {
	headerLen := 8 + 20*len(cpus)
	firstOffset := (headerLen/sliceStride + 1) * sliceStride

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, uint32(macho.MagicFat))
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(cpus)))

	slices := make([][]byte, len(cpus))
	for i, cpu := range cpus {
		slices[i] = thinHeader(cpu)
		_ = binary.Write(&buf, binary.BigEndian, macho.FatArchHeader{
			Cpu:    cpu,
			Offset: uint32(firstOffset + i*sliceStride),
			Size:   uint32(len(slices[i])),
			Align:  3,
		})
	}

	out := make([]byte, firstOffset+len(cpus)*sliceStride)
	copy(out, buf.Bytes())
	for i, s := range slices {
		copy(out[firstOffset+i*sliceStride:], s)
	}
	return out
}

// MustWriteBundle is WriteBundle that panics on error, for table setup
func MustWriteBundle(dir string, b Bundle) string {
	p, err := WriteBundle(dir, b)
	if err != nil {
		panic(fmt.Sprintf("write bundle fixture: %v", err))
	}
	return p
}
