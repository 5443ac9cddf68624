package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/hospicebridge/adtbridge/cmd"
	"github.com/hospicebridge/adtbridge/lib/logging"
)

func main() {
	logging.Init()
	// Listen for interrupt signals (CTRL/CMD+C, OS instructing the process to stop) to cancel context.
	ctx, cancelFunc := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelFunc()
	config, err := cmd.LoadConfig()
	if err != nil {
		panic(err)
	}
	if err := cmd.Start(ctx, config); err != nil {
		panic(err)
	}
}
