// Command sortable keeps the rows of a SQL table ranked 1..N.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/syssam/sortable/internal/cli"
)

func main() {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		os.Stderr.WriteString("sortable: " + err.Error() + "\n")
		stop()
		os.Exit(cli.GetExitCode(err))
	}
}
