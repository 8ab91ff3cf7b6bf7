package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/matthewbaird/modeleditor/internal/catalog"
	"github.com/matthewbaird/modeleditor/internal/config"
	"github.com/matthewbaird/modeleditor/internal/server"
	"github.com/matthewbaird/modeleditor/internal/store"
	"github.com/matthewbaird/modeleditor/internal/types"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	st, err := store.OpenSQLite(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("opening database: %v", err)
	}
	defer st.Close()
	log.Println("database ready")

	var seed []types.Model
	if cfg.Seed != "" {
		if seed, err = catalog.Load(cfg.Seed); err != nil {
			log.Fatalf("loading seed catalog: %v", err)
		}
	}

	if err := server.Run(ctx, server.Config{
		Port:               cfg.Port,
		Store:              st,
		SessionMaxAge:      time.Duration(cfg.Sessions.MaxAge),
		SessionIdleTimeout: time.Duration(cfg.Sessions.IdleTimeout),
		CleanupInterval:    time.Duration(cfg.Sessions.CleanupInterval),
		EventBuffer:        cfg.Events.Buffer,
		Seed:               seed,
	}); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
