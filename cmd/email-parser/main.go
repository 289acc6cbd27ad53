package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/workflow-pipelines/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := cli.NewEmailParserCmd(cli.Streams{Out: os.Stdout, Err: os.Stderr})
	code := cli.Execute(ctx, cmd, os.Stderr)
	stop()
	os.Exit(code)
}
