package entities

import "strings"

// InputSource describes where one architecture variant comes from
type InputSource struct {
	Descriptor string // local path or http(s) URL
	SHA256     string // optional hex digest of the archive
	Signature  string // optional detached OpenPGP signature (path or URL)
}

// BundleMetadata is what the manifest and main executable of a bundle declare
type BundleMetadata struct {
	Identifier   string
	Version      string
	Executable   string
	BundleName   string // CFBundleName, informational only
	Architecture Architecture

	// Informational manifest keys, empty when absent
	BundleDisplayName    string // CFBundleDisplayName
	MinimumSystemVersion string // LSMinimumSystemVersion
}

// ResolvedBundle is an application bundle copied into the working area for one slot
type ResolvedBundle struct {
	Slot         Slot
	BundlePath   string
	DisplayName  string
	Identifier   string
	Version      string
	Architecture Architecture
}

// IsRemote reports whether the source is fetched over HTTP(S).
func (s InputSource) IsRemote() bool {
	return IsRemoteDescriptor(s.Descriptor)
}

// IsRemoteDescriptor reports whether descriptor starts with an http or https scheme.
func IsRemoteDescriptor(descriptor string) bool {
	d := strings.ToLower(strings.TrimSpace(descriptor))
	return strings.HasPrefix(d, "http://") || strings.HasPrefix(d, "https://")
}
