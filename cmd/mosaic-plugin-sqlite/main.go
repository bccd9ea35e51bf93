// Package main is the SQLite plugin executable: the built-in SQLite driver
// served over stdio JSON-RPC, so the same engine can run either in-process or
// out-of-process with identical semantics.
//
// Standard output is reserved for RPC frames; all diagnostics go to standard
// error, where the host forwards them into its own logs.
package main

import (
	"context"
	"os"

	"github.com/mosaic-db/mosaic/internal/driver/sqlite"
	"github.com/mosaic-db/mosaic/internal/logger"
	"github.com/mosaic-db/mosaic/internal/plugin/serve"
)

func main() {
	log := logger.New(&logger.Config{Level: "info", Format: "json", Output: os.Stderr})

	drv := sqlite.New(sqlite.Options{Log: log})
	defer drv.Shutdown(context.Background())

	if err := serve.New(drv, log).Serve(context.Background(), os.Stdin, os.Stdout); err != nil {
		log.Errorf("plugin loop failed: %v", err)
		os.Exit(1)
	}
}
