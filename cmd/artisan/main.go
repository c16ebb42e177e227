// Package main is artisan, the operator tool for account and mail
// maintenance against the server's database and mail relay.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := NewRootCmd(&Deps{}).ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
