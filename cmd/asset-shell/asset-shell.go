package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/tweag/asset-shell/cli"
)

func main() {
	// An interrupt is a user-requested disconnect: the context is
	// cancelled, the dispatch loop observes it between iterations and
	// tears the session down on its own goroutine.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	status := cli.Run(ctx, os.Args)
	stop()
	os.Exit(status)
}
