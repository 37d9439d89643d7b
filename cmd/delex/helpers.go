package main

import (
	"context"
	"log/slog"

	"github.com/MikeSquared-Agency/delex/internal/hermes"
	"github.com/MikeSquared-Agency/delex/internal/store"
)

// integrations holds the optional Postgres and NATS connections. Either
// field is nil when it is not configured or could not be reached.
type integrations struct {
	db     *store.Store
	hermes *hermes.Client
}

func connectIntegrations(ctx context.Context) *integrations {
	in := &integrations{}

	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Warn("database unavailable, runs will not be recorded", "error", err)
		} else if err := db.EnsureSchema(ctx); err != nil {
			slog.Warn("database schema setup failed, runs will not be recorded", "error", err)
			db.Close()
		} else {
			slog.Info("database connected")
			in.db = db
		}
	}

	if cfg.NatsURL != "" {
		client, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Warn("NATS unavailable, run events will not be published", "error", err)
		} else {
			slog.Info("NATS connected", "url", cfg.NatsURL)
			in.hermes = client
		}
	}

	return in
}

func (in *integrations) Close() {
	if in.db != nil {
		in.db.Close()
	}
	if in.hermes != nil {
		in.hermes.Close()
	}
}
