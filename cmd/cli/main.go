package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/qrshare/qrshare/internal/client/cli"
	"github.com/qrshare/qrshare/internal/client/config"
	"github.com/qrshare/qrshare/internal/flagx"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.LoadConfig()
	app, err := cli.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		return 1
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := app.Run(ctx, flagx.StripArgs(os.Args[1:], config.Flags)); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
