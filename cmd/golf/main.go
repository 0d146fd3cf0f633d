package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/jason-s-yu/golf/cmd/golf/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := cmd.NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(rootCmd.OutOrStderr(), err)
		stop()
		os.Exit(1)
	}
}
