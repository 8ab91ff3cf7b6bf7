// Package server assembles all HTTP handlers and starts the server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/matthewbaird/modeleditor/internal/activity"
	"github.com/matthewbaird/modeleditor/internal/catalog"
	"github.com/matthewbaird/modeleditor/internal/event"
	"github.com/matthewbaird/modeleditor/internal/eventbus"
	"github.com/matthewbaird/modeleditor/internal/handler"
	"github.com/matthewbaird/modeleditor/internal/meta"
	"github.com/matthewbaird/modeleditor/internal/session"
	"github.com/matthewbaird/modeleditor/internal/store"
	"github.com/matthewbaird/modeleditor/internal/types"
	"github.com/matthewbaird/modeleditor/internal/wire"
)

const shutdownTimeout = 10 * time.Second

// Config holds server configuration.
type Config struct {
	Port               int
	Store              store.Store
	SessionMaxAge      time.Duration
	SessionIdleTimeout time.Duration
	CleanupInterval    time.Duration
	EventBuffer        int
	Activity           activity.Store // defaults to an in-memory store
	Seed               []types.Model  // imported once the event bus is running
}

// NewRouter registers every route on a chi router. bus may be nil.
func NewRouter(st store.Store, bus event.Publisher, sessions *session.Manager, act activity.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	mh := handler.NewModelHandler(st, bus)
	sh := handler.NewSessionHandler(sessions)
	ah := handler.NewActivityHandler(act)
	ws := wire.NewHandler(sessions, meta.New())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/types", mh.ListTypes)

		r.Get("/models", mh.ListModels)
		r.Post("/models/validate", mh.ValidateModel)
		r.Get("/models/{id}", mh.GetModel)
		r.Delete("/models/{id}", mh.DeleteModel)
		r.Get("/models/{id}/activity", ah.GetModelActivity)
		r.Get("/activity", ah.SearchActivity)

		r.Post("/sessions", sh.CreateSession)
		r.Get("/sessions/ws", ws.ServeHTTP)
		r.Get("/sessions/{id}", sh.GetSession)
		r.Post("/sessions/{id}/actions", sh.ApplyAction)
	})
	return r
}

// Run starts the HTTP server, the event bus and session cleanup, and blocks
// until ctx is cancelled or one of them fails.
func Run(ctx context.Context, cfg Config) error {
	act := cfg.Activity
	if act == nil {
		act = activity.NewMemoryStore()
	}
	bus := eventbus.New(cfg.EventBuffer)
	bus.Subscribe("log", eventbus.NewLogConsumer())
	bus.Subscribe("activity", activity.NewIndexer(act))

	sessions := session.NewManager(cfg.Store, bus, cfg.SessionMaxAge, cfg.SessionIdleTimeout)

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:    addr,
		Handler: NewRouter(cfg.Store, bus, sessions, act),
	}

	g, gctx := errgroup.WithContext(ctx)
	bus.Start(gctx)

	if len(cfg.Seed) > 0 {
		saved, err := catalog.Import(gctx, cfg.Store, cfg.Seed, bus)
		if err != nil {
			bus.Stop()
			return fmt.Errorf("seeding models: %w", err)
		}
		log.Printf("seeded %d of %d models", len(saved), len(cfg.Seed))
	}

	g.Go(func() error {
		log.Printf("starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		interval := cfg.CleanupInterval
		if interval <= 0 {
			interval = time.Minute
		}
		return sessions.Run(gctx, interval)
	})

	err := g.Wait()
	bus.Stop()
	log.Printf("server stopped")
	return err
}
