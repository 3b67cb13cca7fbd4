package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"valuesift/cmd/valuesift/commands"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := commands.Execute(ctx); err != nil {
		cancel()
		os.Exit(1)
	}
}
