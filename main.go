// telectl is a remote-control client for the vehicle telemetry server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"telectl/cmd"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "telectl: %v\n", err)
		os.Exit(1)
	}
}
