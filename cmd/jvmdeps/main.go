package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/xab-mack/jvmdeps/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := app.BuildRoot().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
