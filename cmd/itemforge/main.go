package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"itemforge/internal/cli"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	cli.Execute(ctx)
}
