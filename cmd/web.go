package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zalepa/mortviz/server"
)

// Web implements the "web" subcommand: serve the JSON API for interactive
// drill-down views.
func Web(args []string) {
	fs := flag.NewFlagSet("web", flag.ExitOnError)
	df := addDataFlags(fs, true)
	port := fs.String("port", "8080", "HTTP server port")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mortviz web [--port 8080] [dataset flags]\n\nServe the drill-down JSON API.\n\nFlags:\n")
		fs.PrintDefaults()
	}
	fs.Parse(reorderArgs(args))

	records, fm := df.mustLoad()
	records = df.scoped(records)
	log := newLogger(true)
	app := server.NewApp(server.New(records, fm, log))

	addr := ":" + *port
	go func() {
		if err := app.Listen(addr); err != nil {
			log.Error().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("addr", addr).Int("records", len(records)).Str("periods", df.periodLabel()).Msg("serving")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
}
