package main

import (
	"errors"
	"fmt"
	"os"

	"autonomous-agent/internal/agent"
)

func main() {
	err := newRootCmd().Execute()
	switch {
	case err == nil:
	case errors.Is(err, agent.ErrCycleInProgress):
		// Another cycle holds the lock; that is a normal outcome for cron.
		fmt.Fprintln(os.Stderr, err)
	default:
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
