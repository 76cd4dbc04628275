// Package worker holds the background task handlers run by the asynq worker.
package worker

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/shopsmart-dev/backend-grocer/internal/catalog"
	"github.com/shopsmart-dev/backend-grocer/internal/obs"
)

const (
	// TaskPriceSweep deletes price records whose validity window closed
	// longer ago than the retention period.
	TaskPriceSweep = "price:sweep"
	// TaskCacheWarmup refreshes the hot catalog listing caches.
	TaskCacheWarmup = "catalog:warmup"
)

// Handler wires catalog maintenance tasks into asynq.
type Handler struct {
	Catalog   *catalog.Service
	Retention time.Duration
	Logger    zerolog.Logger
}

// Mux returns the task router for the worker server.
func (h *Handler) Mux() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskPriceSweep, h.HandleSweep)
	mux.HandleFunc(TaskCacheWarmup, h.HandleWarmup)
	return mux
}

// HandleSweep removes expired price records past retention.
func (h *Handler) HandleSweep(ctx context.Context, _ *asynq.Task) error {
	deleted, err := h.Catalog.SweepExpired(ctx, h.Retention)
	if err != nil {
		h.Logger.Error().Err(err).Msg("price sweep failed")
		return err
	}
	if obs.PriceSweepDeleted != nil {
		obs.PriceSweepDeleted.Add(float64(deleted))
	}
	h.Logger.Info().Int64("deleted", deleted).Msg("price sweep complete")
	return nil
}

// HandleWarmup refreshes the store and product listing caches.
func (h *Handler) HandleWarmup(ctx context.Context, _ *asynq.Task) error {
	if err := h.Catalog.WarmListings(ctx); err != nil {
		h.Logger.Error().Err(err).Msg("cache warmup failed")
		return err
	}
	h.Logger.Debug().Msg("cache warmup complete")
	return nil
}
