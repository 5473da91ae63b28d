package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"calsync/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "calsync: %v\n", err)
		os.Exit(cli.GetExitCode(err))
	}
}
