// Package app wires the netcode core into the headless bot: logging,
// metrics, the debug HTTP surface, the session, and a wandering steering
// loop standing in for a real renderer and player.
package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"orbsnake/client/internal/diag"
	"orbsnake/client/internal/logger"
	"orbsnake/client/internal/session"
	"orbsnake/client/internal/sphere"
	"orbsnake/client/internal/tuning"
)

// Config is the bot's runtime configuration.
type Config struct {
	LobbyURL  string
	ServerURL string
	Room      string
	Name      string
	Listen    string
	LogLevel  string
	LogFile   string
}

const frameInterval = 16 * time.Millisecond

// Run starts the bot and blocks until ctx is cancelled.
func Run(ctx context.Context, cfg Config) error {
	logger.Init(logger.Config{
		Level:      cfg.LogLevel,
		Console:    true,
		FilePath:   cfg.LogFile,
		MaxSizeMB:  10,
		MaxBackups: 3,
		MaxAgeDays: 14,
		Compress:   true,
	})
	log := logger.Component("app")

	if cfg.ServerURL == "" && cfg.LobbyURL == "" {
		return errors.New("either a server url or a lobby url is required")
	}

	tun := tuning.Load()
	registry := prometheus.NewRegistry()
	metrics := diag.NewMetrics(registry)
	ring := diag.NewEventRing(128)

	sess := session.New(session.Config{
		LobbyURL:  cfg.LobbyURL,
		ServerURL: cfg.ServerURL,
		Room:      cfg.Room,
		Name:      cfg.Name,
	}, tun, metrics, ring, logger.Component("session"))

	srv := &http.Server{Addr: cfg.Listen, Handler: debugRouter(sess, registry)}
	go func() {
		log.Info().Str("addr", cfg.Listen).Msg("debug server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("debug server failed")
		}
	}()

	go frameLoop(ctx, sess)

	err := sess.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
	sess.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("session ended: %w", err)
	}
	return nil
}

// frameLoop plays the part of the render loop: pull a snapshot every frame
// and steer on a slow wander so the session has real inputs to predict.
func frameLoop(ctx context.Context, sess *session.Session) {
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		now := time.Now().UnixMilli()
		snap := sess.RenderSnapshot(now)

		axis := wanderAxis(now)
		sess.SetInput(&axis, false)

		if snap != nil {
			if local := snap.Player(sess.Diagnostics().LocalPlayerID); local != nil && len(local.Snake) > 0 {
				sess.SetView(local.Snake[0], 0.9, 3.2)
			}
		}
	}
}

// wanderAxis precesses the steering axis slowly around the sphere so the
// bot traces long lazy curves.
func wanderAxis(nowMs int64) sphere.Vec {
	t := float64(nowMs) / 8000
	return sphere.Vec{
		X: math.Cos(t),
		Y: math.Sin(t),
		Z: 0.35 * math.Sin(t/3),
	}.Normalized()
}

func debugRouter(sess *session.Session, registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Get("/diagnostics", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(sess.Diagnostics()); err != nil {
			http.Error(w, "failed to encode", http.StatusInternalServerError)
		}
	})
	return r
}
