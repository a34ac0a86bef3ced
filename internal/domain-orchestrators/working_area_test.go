package orchestrators

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ochairo/unipkg/internal/domain/entities"
)

func TestWorkingArea_Lifecycle(t *testing.T) {
	parent := t.TempDir()

	area, err := NewWorkingArea(parent, nil)
	if err != nil {
		t.Fatalf("NewWorkingArea() error = %v", err)
	}

	if filepath.Dir(area.Root) != parent {
		t.Errorf("Root = %s, want a child of %s", area.Root, parent)
	}
	if !strings.HasPrefix(filepath.Base(area.Root), "unipkg-") {
		t.Errorf("Root name = %s, want unipkg- prefix", filepath.Base(area.Root))
	}
	for _, slot := range entities.Slots {
		if info, err := os.Stat(area.SlotDir(slot)); err != nil || !info.IsDir() {
			t.Errorf("slot directory %s missing: %v", slot, err)
		}
	}

	scratch, err := area.ScratchDir(entities.SlotFirst)
	if err != nil {
		t.Fatalf("ScratchDir() error = %v", err)
	}
	if filepath.Dir(scratch) != area.Root {
		t.Errorf("scratch %s is not inside the working area", scratch)
	}

	if err := area.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(area.Root); !os.IsNotExist(err) {
		t.Errorf("working area still exists after Close()")
	}
	if err := area.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestWorkingArea_UniqueNames(t *testing.T) {
	parent := t.TempDir()

	a, err := NewWorkingArea(parent, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := NewWorkingArea(parent, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	if a.Root == b.Root {
		t.Errorf("two working areas share %s", a.Root)
	}
}

func TestWorkingArea_DefaultParent(t *testing.T) {
	area, err := NewWorkingArea("", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer area.Close()

	if filepath.Dir(area.Root) != filepath.Clean(os.TempDir()) {
		t.Errorf("Root = %s, want it under %s", area.Root, os.TempDir())
	}
}
