// Package app assembles the application: configuration, database,
// model provider, stores, and services, in dependency order. Entry
// points call Setup once and share the resulting App.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lectern/lectern/internal/answer"
	"github.com/lectern/lectern/internal/artifact"
	"github.com/lectern/lectern/internal/config"
	"github.com/lectern/lectern/internal/embedding"
	"github.com/lectern/lectern/internal/history"
	"github.com/lectern/lectern/internal/index"
	"github.com/lectern/lectern/internal/translate"
)

// App is the assembled application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DBPool   *pgxpool.Pool
	Genkit   *genkit.Genkit
	Embedder *embedding.GenkitProvider

	Index     *index.Store
	Artifacts *artifact.Store
	History   *history.Store

	Answer    *answer.Service
	Translate *translate.Service

	otelCleanup func()
}

// Close releases resources in reverse initialization order. Safe to
// call on a partially initialized App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.DBPool != nil {
		a.DBPool.Close()
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
	}

	return nil
}
