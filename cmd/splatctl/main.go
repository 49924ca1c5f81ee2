package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/askiada/splatctl/cmd/splatctl/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cmd.Execute(ctx, os.Args[1:], cmd.Options{Stdout: os.Stdout, Stderr: os.Stderr})

	stop()
	os.Exit(code)
}
