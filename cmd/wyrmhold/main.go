package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/morrigan/wyrmhold/internal/activity"
	"github.com/morrigan/wyrmhold/internal/api"
	"github.com/morrigan/wyrmhold/internal/command"
	"github.com/morrigan/wyrmhold/internal/config"
	"github.com/morrigan/wyrmhold/internal/feed"
	"github.com/morrigan/wyrmhold/internal/gateway"
	msgrouter "github.com/morrigan/wyrmhold/internal/router"
	"github.com/morrigan/wyrmhold/internal/runner"
	pgstore "github.com/morrigan/wyrmhold/internal/store"
	"github.com/morrigan/wyrmhold/internal/wallet"
	"github.com/morrigan/wyrmhold/internal/world"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting Wyrmhold...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/wyrmhold.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// PostgreSQL store is mandatory: agent configs and the activity log
	// live there.
	store, err := pgstore.New(cfg.Database.Postgres.DSN, logger)
	if err != nil {
		logger.Fatal("PostgreSQL unavailable", zap.Error(err))
	}
	if err := store.Migrate(context.Background(), "migrations"); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}

	// Redis spectator feed is optional.
	var activityFeed *feed.Feed
	if cfg.Database.Redis.URL != "" {
		fd, fdErr := feed.New(cfg.Database.Redis.URL, logger)
		if fdErr != nil {
			logger.Warn("Redis unavailable, running without spectator feed", zap.Error(fdErr))
		} else {
			activityFeed = fd
		}
	}

	sink := activity.NewSink(store, activityFeed, logger)

	worldClient := world.NewClient(cfg.World.BaseURL,
		time.Duration(cfg.World.TimeoutSeconds)*time.Second, logger)
	custody := wallet.NewCustodyClient(cfg.Custody.BaseURL, cfg.Custody.APIKey, logger)

	backoff := runner.DefaultBackoff
	if cfg.Runner.BackoffMillis > 0 {
		backoff.Base = time.Duration(cfg.Runner.BackoffMillis) * time.Millisecond
	}
	if cfg.Runner.BackoffMaxSec > 0 {
		backoff.Max = time.Duration(cfg.Runner.BackoffMaxSec) * time.Second
	}

	fleet := runner.NewFleet(runner.Deps{
		Store:        store,
		World:        worldClient,
		Signer:       custody,
		Activity:     sink,
		TickInterval: cfg.Runner.TickInterval(),
		Backoff:      backoff,
	}, logger)

	// Initialize gateway
	gw := gateway.NewGateway(logger)
	spectator := gateway.NewSpectator(gw, activityFeed, logger)

	commands := command.NewRegistry()
	command.RegisterBuiltins(commands)

	// Wire message router BEFORE registering adapters (Register captures handler)
	msgRouter := msgrouter.New(fleet, gw, store, sink, spectator, commands, logger)
	gw.SetHandler(msgRouter.Handle)

	restAdapter := gateway.NewRESTAdapter(logger)
	gw.Register(restAdapter)

	if cfg.Gateway.Slack.Enabled && cfg.Gateway.Slack.BotToken != "" {
		gw.Register(gateway.NewSlackAdapter(cfg.Gateway.Slack.BotToken, cfg.Gateway.Slack.AppToken, logger))
	}
	if cfg.Gateway.Discord.Enabled && cfg.Gateway.Discord.BotToken != "" {
		gw.Register(gateway.NewDiscordAdapter(cfg.Gateway.Discord.BotToken, logger))
	}

	if err := gw.ConnectAll(context.Background()); err != nil {
		logger.Warn("some gateway adapters failed to connect", zap.Error(err))
	}

	// Redeploy agents that were enabled before the last shutdown. These
	// starts are detached: a failed first tick is logged, not fatal.
	agents, err := store.ListAgents(context.Background())
	if err != nil {
		logger.Warn("failed to list agents for redeploy", zap.Error(err))
	} else {
		redeployed := 0
		for _, a := range agents {
			if !a.Enabled {
				continue
			}
			if depErr := fleet.Deploy(context.Background(), a.Wallet, false); depErr != nil {
				logger.Error("redeploy failed",
					zap.String("wallet", a.Wallet), zap.Error(depErr))
				continue
			}
			redeployed++
		}
		logger.Info("Redeployed enabled agents", zap.Int("count", redeployed))
	}

	// Build HTTP handler
	handler := api.NewHandler(store, fleet, spectator, restAdapter, logger)

	port := fmt.Sprintf("%d", cfg.Server.Port)
	if port == "0" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("Wyrmhold listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down Wyrmhold...")
	srv.Shutdown(context.Background())
	fleet.StopAll()
	spectator.Close()
	gw.Close()
	if activityFeed != nil {
		activityFeed.Close()
	}
	store.Close()
}
