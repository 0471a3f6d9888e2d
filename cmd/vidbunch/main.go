package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd, cmdCtx := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	if closeErr := cmdCtx.close(); closeErr != nil && err == nil {
		err = fmt.Errorf("close log file: %w", closeErr)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(exitCode(err))
}
