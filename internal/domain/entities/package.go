package entities

import "fmt"

// PackageRequest is the input of one universal packaging run
type PackageRequest struct {
	First     InputSource
	Second    InputSource
	OutputDir string
}

// Source returns the input bound to a slot.
func (r PackageRequest) Source(slot Slot) InputSource {
	if slot == SlotFirst {
		return r.First
	}
	return r.Second
}

// PackageResult describes the produced installer
type PackageResult struct {
	Path         string
	Name         string
	Identifier   string
	Version      string
	ChecksumPath string
	UsedFallback bool
}

// ArtifactName is the installer file name for an application name and version.
func ArtifactName(name, version string) string {
	return fmt.Sprintf("%s-%s-universal.pkg", name, version)
}
