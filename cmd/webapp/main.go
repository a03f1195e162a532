// Command webapp runs the bongo cat web app.
//
// @title        Bongo Cat Web App
// @version      1.0
// @description  Account lifecycle and score ledger of the bongo cat game.
// @BasePath     /
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := NewRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
