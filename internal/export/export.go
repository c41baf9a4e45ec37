// Package export decides, per export request, whether an estimate's frozen
// snapshot is reused or recomputed from live data and persisted.
package export

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/AEY-IP/aey-estimate-app-sub001/internal/logger"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/pricing"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/snapshot"
	"github.com/AEY-IP/aey-estimate-app-sub001/internal/store"
)

type CatalogSource interface {
	ListCoefficients(ctx context.Context) ([]pricing.Coefficient, error)
}

type EstimateSource interface {
	LoadEstimate(ctx context.Context, id string) (store.Estimate, error)
}

// SnapshotStore keeps one raw payload per estimate. Found is false when none is stored.
type SnapshotStore interface {
	GetSnapshot(ctx context.Context, estimateID string) (raw []byte, found bool, err error)
	PutSnapshot(ctx context.Context, estimateID string, raw []byte) error
}

// Source tells where an export's numbers came from.
type Source string

const (
	SourceLive             Source = "live"
	SourceReused           Source = "reused"
	SourceComputed         Source = "computed"
	SourceRecomputed       Source = "recomputed"
	SourceRecoveredCorrupt Source = "recovered-corrupt"
)

type Options struct {
	// Recompute discards a stored snapshot and freezes fresh numbers.
	Recompute bool
}

type Result struct {
	Estimate store.Estimate
	Snapshot snapshot.Snapshot
	Source   Source
}

type Service struct {
	catalog   CatalogSource
	estimates EstimateSource
	snapshots SnapshotStore
	log       *logger.Logger
	now       func() time.Time
}

func NewService(catalog CatalogSource, estimates EstimateSource, snapshots SnapshotStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		catalog:   catalog,
		estimates: estimates,
		snapshots: snapshots,
		log:       log,
		now:       time.Now,
	}
}

// Live prices the estimate from current data for display. Nothing is persisted.
func (s *Service) Live(ctx context.Context, estimateID string) (Result, error) {
	var (
		est     store.Estimate
		catalog []pricing.Coefficient
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		est, err = s.estimates.LoadEstimate(gctx, estimateID)
		return err
	})
	g.Go(func() (err error) {
		catalog, err = s.catalog.ListCoefficients(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	snap, err := s.compute(est, catalog)
	if err != nil {
		return Result{}, err
	}
	return Result{Estimate: est, Snapshot: snap, Source: SourceLive}, nil
}

// Export returns the estimate's frozen snapshot, creating it on first export.
// A stored snapshot is only replaced when Recompute is set or it fails to decode;
// the latter is logged and recovered from, never returned as an error.
func (s *Service) Export(ctx context.Context, estimateID string, opts Options) (Result, error) {
	var (
		est     store.Estimate
		catalog []pricing.Coefficient
		raw     []byte
		found   bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		est, err = s.estimates.LoadEstimate(gctx, estimateID)
		return err
	})
	g.Go(func() (err error) {
		catalog, err = s.catalog.ListCoefficients(gctx)
		return err
	})
	g.Go(func() (err error) {
		raw, found, err = s.snapshots.GetSnapshot(gctx, estimateID)
		if err != nil {
			return fmt.Errorf("load snapshot: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	source := SourceComputed
	switch {
	case found && opts.Recompute:
		source = SourceRecomputed
	case found:
		snap, err := snapshot.Decode(raw)
		if err == nil && snap.EstimateID != estimateID {
			err = fmt.Errorf("%w: payload belongs to estimate %s", snapshot.ErrCorrupt, snap.EstimateID)
		}
		if err == nil {
			return Result{Estimate: est, Snapshot: snap, Source: SourceReused}, nil
		}
		if !errors.Is(err, snapshot.ErrCorrupt) {
			return Result{}, err
		}
		s.log.Warn("stored export snapshot is corrupt, recomputing",
			"estimate_id", estimateID,
			"error", err,
		)
		source = SourceRecoveredCorrupt
	}

	snap, err := s.compute(est, catalog)
	if err != nil {
		return Result{}, err
	}
	snap.ID = snapshot.NewID()

	payload, err := snapshot.Encode(snap)
	if err != nil {
		return Result{}, err
	}
	if err := s.snapshots.PutSnapshot(ctx, estimateID, payload); err != nil {
		return Result{}, fmt.Errorf("persist snapshot: %w", err)
	}

	s.log.Info("export snapshot frozen",
		"estimate_id", estimateID,
		"snapshot_id", snap.ID,
		"source", string(source),
		"grand_total", snap.GrandTotal,
	)
	return Result{Estimate: est, Snapshot: snap, Source: source}, nil
}

func (s *Service) compute(est store.Estimate, catalog []pricing.Coefficient) (snapshot.Snapshot, error) {
	totals, err := pricing.Calculate(est.PricingInput(catalog))
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("price estimate %s: %w", est.ID, err)
	}
	return snapshot.FromTotals(est.ID, totals, s.now()), nil
}
