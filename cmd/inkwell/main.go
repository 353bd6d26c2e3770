// ABOUTME: Entry point for the inkwell CLI application.
// ABOUTME: Wires signal handling and executes the root command.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Execute(ctx, os.Args[1:]); err != nil {
		stop()
		os.Exit(1)
	}
}
