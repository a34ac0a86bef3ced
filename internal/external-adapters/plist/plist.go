// Package plist reads application manifests and rewrites installer
// component property lists.
package plist

import (
	"fmt"
	"os"

	"howett.net/plist"
)

// BundleInfo holds the Info.plist keys the pipeline relies on
type BundleInfo struct {
	Identifier       string `plist:"CFBundleIdentifier"`
	ShortVersion     string `plist:"CFBundleShortVersionString"`
	Executable       string `plist:"CFBundleExecutable"`
	Name             string `plist:"CFBundleName"`
	DisplayName      string `plist:"CFBundleDisplayName"`
	MinimumOSVersion string `plist:"LSMinimumSystemVersion"`
}

// ReadBundleInfo decodes an Info.plist in XML, binary or OpenStep format
func ReadBundleInfo(path string) (*BundleInfo, error) {
	//nolint:gosec // G304: path points inside a bundle being inspected
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var info BundleInfo
	if _, err := plist.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &info, nil
}

// Component is one entry of a pkgbuild component property list
type Component map[string]interface{}

// ReadComponents decodes the array written by `pkgbuild --analyze`
func ReadComponents(path string) ([]Component, error) {
	//nolint:gosec // G304: path is produced inside the synthesis directory
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read component plist: %w", err)
	}

	var components []Component
	if _, err := plist.Unmarshal(data, &components); err != nil {
		return nil, fmt.Errorf("failed to decode component plist: %w", err)
	}
	return components, nil
}

// MarkNonRelocatable sets BundleIsRelocatable to false on every component
// in the list at path and rewrites it as XML. It returns how many
// components were found.
func MarkNonRelocatable(path string) (int, error) {
	components, err := ReadComponents(path)
	if err != nil {
		return 0, err
	}
	if len(components) == 0 {
		return 0, fmt.Errorf("component plist %s lists no bundles", path)
	}

	for _, c := range components {
		c["BundleIsRelocatable"] = false
	}

	if err := WriteXML(path, components); err != nil {
		return 0, err
	}
	return len(components), nil
}

// WriteXML encodes v as an XML property list at path
func WriteXML(path string, v interface{}) error {
	data, err := plist.MarshalIndent(v, plist.XMLFormat, "\t")
	if err != nil {
		return fmt.Errorf("failed to encode plist: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write plist: %w", err)
	}
	return nil
}
