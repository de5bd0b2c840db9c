// cmd/tracktime/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/law-makers/tracktime/internal/cli"
)

func main() {
	// Cancelling the context lets a running batch finish its bookkeeping
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
