package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	zerrors "github.com/alexisbeaulieu97/zbxproxy/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(systemEnvironment()).ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	os.Exit(zerrors.ExitCode(err))
}
