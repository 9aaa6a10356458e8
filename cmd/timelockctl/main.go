package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/code-payments/timelock-wallet-client/pkg/timelock"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	env := newEnvironment()
	err := newRootCommand(env).ExecuteContext(ctx)
	env.close()
	stop()

	if err != nil {
		if timelock.IsUnknownOutcome(err) {
			fmt.Fprintln(os.Stderr, "Error: the transaction was sent but not confirmed in time; its outcome is unknown.")
			fmt.Fprintln(os.Stderr, "Check the lock with `timelockctl info --lock <address>` before retrying.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}
