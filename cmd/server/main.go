package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/ManasDasri/PomStud/internal/config"
	"github.com/ManasDasri/PomStud/internal/logging"
	"github.com/ManasDasri/PomStud/internal/room"
	"github.com/ManasDasri/PomStud/internal/server"
	"github.com/ManasDasri/PomStud/internal/signaling"
	"github.com/ManasDasri/PomStud/internal/version"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	var opts config.ServerOptions
	cmd := &cobra.Command{
		Use:           "pomstud-server",
		Short:         "Signaling relay for shared pomodoro rooms",
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadServer(opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.Addr, "addr", "", "listen address (env: ADDR)")
	f.StringVar(&opts.CORSAllow, "cors-allow", "", "comma separated allowed origins (env: CORS_ALLOW)")
	f.StringVar(&opts.LogLevel, "log-level", "", "debug, info, warn or error (env: LOG_LEVEL)")
	f.StringVar(&opts.LogFormat, "log-format", "", "text or json (env: LOG_FORMAT)")
	f.IntVar(&opts.QueueSize, "queue-size", 0, "outbound queue per connection (env: QUEUE_SIZE)")
	f.Int64Var(&opts.MaxMessageSize, "max-message-size", 0, "largest inbound frame in bytes (env: MAX_MESSAGE_SIZE)")
	f.Float64Var(&opts.MessageRate, "message-rate", 0, "inbound messages per second per connection (env: MESSAGE_RATE)")
	f.IntVar(&opts.MessageBurst, "message-burst", 0, "inbound burst per connection (env: MESSAGE_BURST)")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Server) error {
	return serve(ctx, cfg, logging.InitServer(cfg.LogLevel, cfg.LogFormat))
}

// serve runs the relay until ctx is cancelled, then shuts it down.
func serve(ctx context.Context, cfg *config.Server, log *slog.Logger) error {
	store := room.NewStore(log)
	hub := signaling.NewHub(store, log, signaling.Options{
		QueueSize:      cfg.QueueSize,
		MaxMessageSize: cfg.MaxMessageSize,
		MessageRate:    rate.Limit(cfg.MessageRate),
		MessageBurst:   cfg.MessageBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.NewRouter(hub, cfg.CORSAllow, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting signaling server", "addr", cfg.Addr, "version", version.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)

		hub.Close()
		store.Close()
		log.Info("shutdown complete")
		return err
	})

	return g.Wait()
}
