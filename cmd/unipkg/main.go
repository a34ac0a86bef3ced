package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	uerrors "github.com/ochairo/unipkg/internal/domain/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error %s\n", uerrors.Describe(err))
		stop()
		os.Exit(1)
	}
}
