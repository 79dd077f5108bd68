// The keyserver binary serves one key-issuing service of the threshold
// encryption protocol: share escrow and policy-gated share release.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/attestry/provenance-backend/api/sharehandler"
	"github.com/attestry/provenance-backend/cmd/flags"
	"github.com/attestry/provenance-backend/httpserver"
	"github.com/attestry/provenance-backend/keyserver"
	"github.com/urfave/cli/v2"
)

var serverFlags = append([]cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8081",
		Usage: "address to listen on for API",
	},
	&cli.StringFlag{
		Name:  "server-name",
		Value: "keyserver-1",
		Usage: "identifier for this key server in logs and discovery",
	},
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:  "keyserver",
		Usage: "Serve the key share escrow and release API",
		Flags: serverFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			srv, err := keyserver.New(cCtx.String("server-name"), logger)
			if err != nil {
				logger.Error("Failed to create key server", "err", err)
				return err
			}

			handler := sharehandler.NewHandler(srv, logger)
			server, err := httpserver.New(flags.ConfigureServer(cCtx, logger, cCtx.String("listen-addr")), handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Key server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
