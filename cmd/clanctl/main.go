// Command clanctl checks the WiseOldMan API and prints clan reports.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/clanpulse/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "clanctl:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	root, err := cli.NewRootCommand(ctx, os.Stdout)
	if err != nil {
		return err
	}
	return root.ExecuteContext(ctx)
}
