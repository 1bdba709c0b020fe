// Package app provides application initialization and dependency wiring.
//
// App is the container that owns every long-lived component: Genkit, the
// database pool, the knowledge index, the resolution pipeline, the feedback
// log, and the retraining job.
package app

import (
	"log/slog"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mathagent/mathagent/internal/config"
	"github.com/mathagent/mathagent/internal/feedback"
	"github.com/mathagent/mathagent/internal/knowledge"
	"github.com/mathagent/mathagent/internal/resolve"
	"github.com/mathagent/mathagent/internal/retrain"
)

// App is the core application container.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Index    knowledge.Index
	Resolver *resolve.Resolver
	Feedback *feedback.Log
	Retrain  *retrain.Job

	otelCleanup func()
	dbCleanup   func()
}

// Close releases all resources in reverse initialization order.
func (a *App) Close() error {
	a.Logger.Info("shutting down application")

	if a.dbCleanup != nil {
		a.dbCleanup()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
