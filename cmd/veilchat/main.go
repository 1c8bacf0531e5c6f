package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"

	"github.com/veilchat/veilchat/internal/relay"
)

const version = "0.1.0"

func main() {
	app := &cli.Command{
		Name:    "veilchat",
		Usage:   "ephemeral single-room encrypted message relay",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Start the relay server",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "addr",
						Aliases: []string{"a"},
						Usage:   "Listen address (overrides VEILCHAT_ADDR)",
					},
				},
				Action: serve,
			},
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log := zerolog.New(os.Stderr).With().Timestamp().Logger()
		log.Error().Err(err).Msg("veilchat exited")
		os.Exit(1)
	}
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := relay.LoadConfig()
	if err != nil {
		return err
	}
	if addr := cmd.String("addr"); addr != "" {
		cfg.Addr = addr
	}

	log := newLogger(cfg.LogLevel)

	hub := relay.NewHub(log)
	go hub.Run()

	server := relay.NewServer(cfg, relay.Routes(hub, cfg, log))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("relay listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			// Typically a bind failure such as the port being in use.
			// Exit cleanly instead of crashing; nothing to tear down yet.
			_ = hub.Shutdown(cfg.ShutdownTimeout)
			return err
		}
		return nil

	case <-ctx.Done():
		log.Info().Msg("shutting down")
		if err := relay.ShutdownServer(server, cfg.ShutdownTimeout, log); err != nil {
			log.Warn().Err(err).Msg("http shutdown incomplete")
		}
		if err := hub.Shutdown(cfg.ShutdownTimeout); err != nil {
			log.Warn().Err(err).Msg("hub shutdown incomplete")
		}
		return nil
	}
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
