package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"

	"github.com/Dashboard4-0/MS5-App-sub003/internal/config"
	"github.com/Dashboard4-0/MS5-App-sub003/internal/events"
	"github.com/Dashboard4-0/MS5-App-sub003/internal/logging"
	"github.com/Dashboard4-0/MS5-App-sub003/internal/realtime"
	"github.com/Dashboard4-0/MS5-App-sub003/internal/redisrelay"
	"github.com/Dashboard4-0/MS5-App-sub003/internal/server"
)

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRelay(ctx context.Context, cfg *config.Config, broadcaster *realtime.Broadcaster) (*goredis.Client, *redisrelay.Relay) {
	if cfg.RedisURL == "" {
		slog.Info("Relay disabled, running single-instance")
		return nil, nil
	}

	client, err := redisrelay.NewClient(ctx, cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}

	relay := redisrelay.NewRelay(client, broadcaster)
	broadcaster.SetRelay(relay)
	slog.Info("Relay enabled", "instance_id", relay.InstanceID())
	return client, relay
}

func runGracefulShutdown(srv *server.Server, hub *realtime.Hub, cfg *config.Config, cancelRelay context.CancelFunc, redisClient *goredis.Client) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		hub.Stop("Server shutting down")
		cancelRelay()

		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				slog.Error("Failed to close Redis client", "error", err)
			}
		}

		close(done)
	}()

	return done
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port)

	hub := realtime.NewHub(clock)
	broadcaster := realtime.NewBroadcaster(hub, clock)

	relayCtx, cancelRelay := context.WithCancel(context.Background())
	redisClient, relay := setupRelay(relayCtx, cfg, broadcaster)
	if relay != nil {
		go relay.Run(relayCtx)
	}

	// bus is the single outbound interface handed to domain services.
	bus := events.NewBus(broadcaster)

	srv := server.NewServer(cfg, hub, bus, clock, redisClient)
	done := runGracefulShutdown(srv, hub, cfg, cancelRelay, redisClient)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}

	<-done
	slog.Info("Shutdown complete")
}
