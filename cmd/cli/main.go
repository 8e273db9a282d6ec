package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/possync/internal/buildinfo"
	"github.com/dmitrijs2005/possync/internal/client/cli"
	"github.com/dmitrijs2005/possync/internal/client/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := cli.NewApp(ctx, config.LoadConfig())
	if err != nil {
		log.Fatalf("%v", err)
	}

	app.Run(ctx)
}
