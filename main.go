package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/ardnew/jinx/cli"
	"github.com/ardnew/jinx/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Run(ctx, os.Exit, os.Args[1:]...); err != nil {
		log.Error("run failed", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}
