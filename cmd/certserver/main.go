// The certserver binary serves the certificate API: submission of signed
// certificates, retrieval, blob storage, and verification against candidate
// files.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/attestry/provenance-backend/api/certhandler"
	"github.com/attestry/provenance-backend/cmd/flags"
	"github.com/attestry/provenance-backend/httpserver"
	"github.com/attestry/provenance-backend/interfaces"
	"github.com/attestry/provenance-backend/storage"
	"github.com/urfave/cli/v2"
)

var serverFlags = append([]cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for API",
	},
	&cli.StringSliceFlag{
		Name:  "storage",
		Value: cli.NewStringSlice("file:///var/attestry/blobs"),
		Usage: "storage backend URIs (file://, s3://, ipfs://, memory://); multiple for redundancy",
	},
}, flags.CommonFlags...)

func main() {
	app := &cli.App{
		Name:  "certserver",
		Usage: "Serve the provenance certificate API",
		Flags: serverFlags,
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			locations := make([]interfaces.StorageBackendLocation, 0)
			for _, uri := range cCtx.StringSlice("storage") {
				location, err := interfaces.NewStorageBackendLocation(uri)
				if err != nil {
					logger.Error("Invalid storage URI", "uri", uri, "err", err)
					return err
				}
				locations = append(locations, location)
			}

			store, err := storage.NewFactory(logger).CreateMultiStore(locations)
			if err != nil {
				logger.Error("Failed to create storage", "err", err)
				return err
			}

			handler := certhandler.NewHandler(store, logger)
			server, err := httpserver.New(flags.ConfigureServer(cCtx, logger, cCtx.String("listen-addr")), handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
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
