package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wfmk/wfmk/internal/cli"
)

// version is set at build time via -ldflags.
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewRootCmd(version)
	if err := cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
