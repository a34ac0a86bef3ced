// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/ochairo/unipkg/internal/domain/entities"
	"github.com/ochairo/unipkg/internal/domain/interfaces"
)

// WorkingArea is the single scratch tree of one run. Everything a run
// writes outside the output directory lives below Root.
type WorkingArea struct {
	Root string

	logger    interfaces.Logger
	closeOnce sync.Once
	closeErr  error
}

// NewWorkingArea creates a uniquely named directory below parent (the
// system temp directory when empty) with one subdirectory per slot.
func NewWorkingArea(parent string, logger interfaces.Logger) (*WorkingArea, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	if err := os.MkdirAll(parent, 0750); err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	root := filepath.Join(parent, "unipkg-"+uuid.NewString())
	if err := os.Mkdir(root, 0700); err != nil {
		return nil, fmt.Errorf("failed to create working area: %w", err)
	}

	area := &WorkingArea{Root: root, logger: interfaces.OrNoOp(logger)}
	for _, slot := range entities.Slots {
		if err := os.Mkdir(area.SlotDir(slot), 0700); err != nil {
			_ = area.Close()
			return nil, fmt.Errorf("failed to create %s slot directory: %w", slot, err)
		}
	}

	area.logger.Debug("working area created", interfaces.F("path", root))
	return area, nil
}

// SlotDir is where the bundle of a slot is kept once resolved
func (w *WorkingArea) SlotDir(slot entities.Slot) string {
	return filepath.Join(w.Root, string(slot))
}

// ScratchDir creates a fresh directory for one resolution sub-step of slot
func (w *WorkingArea) ScratchDir(slot entities.Slot) (string, error) {
	return os.MkdirTemp(w.Root, string(slot)+"-scratch-*")
}

// Close removes the whole tree. Repeated calls return the first result.
func (w *WorkingArea) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = os.RemoveAll(w.Root)
		if w.closeErr != nil {
			w.logger.Warn("failed to remove working area", interfaces.F("path", w.Root), interfaces.Err(w.closeErr))
			return
		}
		w.logger.Debug("working area removed", interfaces.F("path", w.Root))
	})
	return w.closeErr
}
