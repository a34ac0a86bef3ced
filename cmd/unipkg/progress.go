package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/ochairo/unipkg/internal/domain/interfaces"
)

// consoleProgress prints milestones as numbered steps
type consoleProgress struct {
	mu   sync.Mutex
	out  io.Writer
	step int
}

func newConsoleProgress(out io.Writer) *consoleProgress {
	return &consoleProgress{out: out}
}

func (p *consoleProgress) Report(event interfaces.ProgressEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.step++
	fmt.Fprintf(p.out, "[%d] %s...\n", p.step, event.Message)
}
