// Command eventctl drives the events API from a terminal. It keeps the same
// persisted session as the portal, so logging in here logs in there.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	root := newRootCmd()
	go func() {
		<-c
		root.PrintErrln("\nShutting down... (press Ctrl+C again to force)")
		cancel()
		<-c
		os.Exit(1)
	}()

	if err := root.ExecuteContext(ctx); err != nil {
		root.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
