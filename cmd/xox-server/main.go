package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/xoxserver/xox-server/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := cmd.ExitCode(cmd.Execute(ctx), os.Stderr)
	stop()
	os.Exit(code)
}
