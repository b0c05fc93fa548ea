package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const shutdownTimeout = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "Path to config file (yaml, json or toml)")
	hashPassword := flag.String("hash-password", "", "Print the bcrypt hash of a password for admin.passwordHash and exit")
	bots := flag.Int("bots", 0, "Run N headless bot clients instead of the server")
	botURL := flag.String("bot-url", "ws://localhost:8080/ws", "WebSocket URL the bots connect to")
	botPrefix := flag.String("bot-prefix", "bot", "Name prefix for bot clients")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := HashAdminPassword(*hashPassword)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := setupLogging(cfg.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *bots > 0 {
		err := RunBots(ctx, *botURL, *botPrefix, *bots, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Fatal().Err(err).Msg("bots failed")
		}
		return
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewPCG(uint64(seed), uint64(seed)^0x9e3779b97f4a7c15))
	world := GenerateWorld(cfg.WorldWidth, cfg.WorldHeight, cfg.IslandCount, rng)
	logger.Info().Int64("seed", seed).Int("islands", len(world.Islands)).Msg("world generated")

	var db *DB
	var analytics *Analytics
	if cfg.DBPath != "" {
		db, err = OpenDB(cfg.DBPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
		}
		defer db.Close()
		analytics = NewAnalytics(db, logger)
		defer analytics.Stop()
	}

	auth, err := NewAuth(db, cfg.JWTSecret, cfg.AdminUser, cfg.AdminPasswordHash, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("auth setup")
	}

	relay := NewRelay(cfg, world, rng, analytics, auth, logger)
	hub := NewHub(relay, logger)
	go relay.Run(ctx)
	go hub.Run(ctx)

	mux := SetupRoutes(hub, relay, cfg, db, auth, analytics, logger)
	server := &http.Server{Addr: cfg.Addr(), Handler: mux}

	go func() {
		logger.Info().Str("addr", cfg.Addr()).Str("client", cfg.ClientDir).Msg("server starting")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("ListenAndServe")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("shutdown")
	}
}
