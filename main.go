// File: main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jennylv001/s1/cmd"
	"github.com/jennylv001/s1/internal/observability"
)

func main() {
	// Cancel the root context on SIGINT/SIGTERM so commands unwind cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()
	if err != nil {
		os.Exit(1)
	}
}
