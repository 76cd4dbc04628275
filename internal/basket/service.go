package basket

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/shopsmart-dev/backend-grocer/internal/common"
	"github.com/shopsmart-dev/backend-grocer/internal/obs"
)

// SnapshotProvider supplies the read-consistent catalog view the engine
// consumes. Implementations fetch everything up front in one bounded read so
// concurrent catalog writes never become visible mid-computation.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, productIDs []uuid.UUID, asOf time.Time) (Snapshot, error)
}

// Service orchestrates snapshot fetching and the pure engine operations.
type Service struct {
	Provider SnapshotProvider
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Compare fetches a snapshot for the basket's products and runs the
// comparison engine over it.
func (s *Service) Compare(ctx context.Context, lines []Line, asOf time.Time) (Result, error) {
	snap, err := s.snapshot(ctx, lines, asOf)
	if err != nil {
		return Result{}, err
	}
	start := time.Now()
	result, err := Compare(lines, snap)
	observe("compare", start, err)
	return result, err
}

// ReconcileAgainstStore computes the payable total for committing the basket
// to a single store.
func (s *Service) ReconcileAgainstStore(ctx context.Context, lines []Line, storeID uuid.UUID, asOf time.Time) (StoreTotal, error) {
	snap, err := s.snapshot(ctx, lines, asOf)
	if err != nil {
		return StoreTotal{}, err
	}
	start := time.Now()
	total, err := ReconcileStore(lines, storeID, snap)
	observe("reconcile", start, err)
	return total, err
}

// Rank reconciles the basket against every store and returns the cheapest
// payable totals.
func (s *Service) Rank(ctx context.Context, lines []Line, asOf time.Time) (Ranking, error) {
	snap, err := s.snapshot(ctx, lines, asOf)
	if err != nil {
		return Ranking{}, err
	}
	start := time.Now()
	ranking, err := RankStores(lines, snap)
	observe("rank", start, err)
	return ranking, err
}

func (s *Service) snapshot(ctx context.Context, lines []Line, asOf time.Time) (Snapshot, error) {
	if s == nil || s.Provider == nil {
		return Snapshot{}, errors.New("basket service not configured")
	}
	if asOf.IsZero() {
		asOf = s.now()
	}
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]struct{}, len(lines))
	for _, line := range lines {
		if _, ok := seen[line.ProductID]; ok {
			continue
		}
		seen[line.ProductID] = struct{}{}
		ids = append(ids, line.ProductID)
	}
	snap, err := s.Provider.Snapshot(ctx, ids, asOf)
	if err != nil {
		return Snapshot{}, fmt.Errorf("fetch catalog snapshot: %w", err)
	}
	obs.ObserveSnapshotSize(len(snap.Offers), len(snap.Stores))
	return snap, nil
}

func observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		var appErr *common.AppError
		if errors.As(err, &appErr) && appErr.Code != "" {
			result = appErr.Code
		} else {
			result = "error"
		}
	}
	obs.ObserveComparison(op, result, time.Since(start))
}
