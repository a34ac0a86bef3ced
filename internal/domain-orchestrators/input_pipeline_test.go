package orchestrators

import (
	"context"
	"debug/macho"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ochairo/unipkg/internal/domain-adapters/gateways"
	"github.com/ochairo/unipkg/internal/domain-adapters/gateways/gatewaystest"
	"github.com/ochairo/unipkg/internal/domain/entities"
	uerrors "github.com/ochairo/unipkg/internal/domain/errors"
)

func newTestPipeline(tc *gatewaystest.Toolchain) (*InputPipeline, *gatewaystest.Runner) {
	runner := tc.Install(gatewaystest.NewRunner())
	resolver := gateways.NewArchiveResolver(runner, gateways.NewDownloader(nil, nil), nil, nil)
	return NewInputPipeline(resolver, gateways.NewMetadataExtractor(nil, nil), nil), runner
}

func writeInput(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(name), 0600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestInputPipeline_Process(t *testing.T) {
	tc := gatewaystest.NewToolchain(t.TempDir()).Add("app-arm.zip", gatewaystest.ARM("Foo", "com.acme.foo", "2.0"))
	pipeline, _ := newTestPipeline(tc)

	area, err := NewWorkingArea(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer area.Close()

	src := entities.InputSource{Descriptor: writeInput(t, t.TempDir(), "app-arm.zip")}
	got, err := pipeline.Process(context.Background(), src, entities.SlotFirst, area)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	want := filepath.Join(area.SlotDir(entities.SlotFirst), "Foo.app")
	if got.BundlePath != want {
		t.Errorf("BundlePath = %s, want %s", got.BundlePath, want)
	}
	if got.DisplayName != "Foo" || got.Identifier != "com.acme.foo" || got.Version != "2.0" {
		t.Errorf("unexpected bundle %+v", got)
	}
	if got.Architecture != entities.ArchARM64 || got.Slot != entities.SlotFirst {
		t.Errorf("unexpected architecture/slot %s/%s", got.Architecture, got.Slot)
	}
	if _, err := os.Stat(gateways.ManifestPath(got.BundlePath)); err != nil {
		t.Errorf("copied bundle has no manifest: %v", err)
	}

	// Only the two slot directories remain; extraction scratch is gone
	entries, err := os.ReadDir(area.Root)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("working area holds %v, want only slot directories", names)
	}
}

func TestInputPipeline_ArchitectureMismatch(t *testing.T) {
	tests := []struct {
		name   string
		bundle gatewaystest.Bundle
		slot   entities.Slot
		found  string
	}{
		{"intel in first slot", gatewaystest.Intel("Foo", "com.acme.foo", "2.0"), entities.SlotFirst, "x86_64"},
		{"arm in second slot", gatewaystest.ARM("Foo", "com.acme.foo", "2.0"), entities.SlotSecond, "arm64"},
		{"universal", gatewaystest.Bundle{
			Name: "Foo", Identifier: "com.acme.foo", Version: "2.0",
			CPUs: []macho.Cpu{macho.CpuArm64, macho.CpuAmd64},
		}, entities.SlotFirst, "universal"},
		{"unknown", gatewaystest.Bundle{Name: "Foo", Identifier: "com.acme.foo", Version: "2.0"}, entities.SlotSecond, "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tc := gatewaystest.NewToolchain(t.TempDir()).Add("in.zip", tt.bundle)
			pipeline, _ := newTestPipeline(tc)
			area, err := NewWorkingArea(t.TempDir(), nil)
			if err != nil {
				t.Fatal(err)
			}
			defer area.Close()

			src := entities.InputSource{Descriptor: writeInput(t, t.TempDir(), "in.zip")}
			_, err = pipeline.Process(context.Background(), src, tt.slot, area)
			if !uerrors.Is(err, uerrors.KindArchitectureMismatch) {
				t.Fatalf("Process() error = %v, want ArchitectureMismatch", err)
			}
			if !strings.Contains(err.Error(), string(tt.slot.Expected())) || !strings.Contains(err.Error(), tt.found) {
				t.Errorf("error %q should name expected %s and found %s", err, tt.slot.Expected(), tt.found)
			}
		})
	}
}

func TestInputPipeline_ResolveErrorCleansScratch(t *testing.T) {
	tc := gatewaystest.NewToolchain(t.TempDir())
	pipeline, _ := newTestPipeline(tc)
	area, err := NewWorkingArea(t.TempDir(), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer area.Close()

	src := entities.InputSource{Descriptor: writeInput(t, t.TempDir(), "corrupt.zip")}
	_, err = pipeline.Process(context.Background(), src, entities.SlotSecond, area)
	if !uerrors.Is(err, uerrors.KindExtractionFailed) {
		t.Fatalf("Process() error = %v, want ExtractionFailed", err)
	}

	entries, _ := os.ReadDir(area.Root)
	if len(entries) != 2 {
		t.Errorf("scratch directories left behind: %d entries", len(entries))
	}
}
