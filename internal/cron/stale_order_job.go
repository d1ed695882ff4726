package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/dishdash-backend/internal/orders"
	"github.com/angelmondragon/dishdash-backend/pkg/db/models"
	"github.com/angelmondragon/dishdash-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/dishdash-backend/pkg/errors"
	"github.com/angelmondragon/dishdash-backend/pkg/logger"
	"github.com/angelmondragon/dishdash-backend/pkg/metrics"
)

const (
	defaultPlacedTTL   = 30 * time.Minute
	defaultExpiryBatch = 100
	expiredReason      = "expired"
)

type staleOrderService interface {
	ListStalePlaced(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	UpdateStatus(ctx context.Context, actor orders.Actor, orderID uuid.UUID, input orders.UpdateStatusInput) (*orders.OrderDTO, error)
}

// StaleOrderJobParams configure the placed-order expiry job.
type StaleOrderJobParams struct {
	Logger    *logger.Logger
	Orders    staleOrderService
	Metrics   *metrics.OrderMetrics
	PlacedTTL time.Duration
	BatchSize int
}

// NewStaleOrderJob cancels orders that restaurants never accepted.
func NewStaleOrderJob(params StaleOrderJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.PlacedTTL
	if ttl <= 0 {
		ttl = defaultPlacedTTL
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultExpiryBatch
	}
	return &staleOrderJob{
		logg:    params.Logger,
		orders:  params.Orders,
		metrics: params.Metrics,
		ttl:     ttl,
		batch:   batch,
		now:     time.Now,
	}, nil
}

type staleOrderJob struct {
	logg    *logger.Logger
	orders  staleOrderService
	metrics *metrics.OrderMetrics
	ttl     time.Duration
	batch   int
	now     func() time.Time
}

func (j *staleOrderJob) Name() string { return "stale_order_expiry" }

func (j *staleOrderJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.orders.ListStalePlaced(ctx, cutoff, j.batch)
	if err != nil {
		return fmt.Errorf("list stale orders: %w", err)
	}

	var errs error
	expired, skipped := 0, 0
	for _, order := range stale {
		version := order.Version
		_, err := j.orders.UpdateStatus(ctx, orders.SystemActor, order.ID, orders.UpdateStatusInput{
			Status:          string(enums.OrderStatusCancelled),
			ExpectedVersion: &version,
			Reason:          expiredReason,
		})
		switch {
		case err == nil:
			expired++
		case pkgerrors.IsCode(err, pkgerrors.CodeConflict), pkgerrors.IsCode(err, pkgerrors.CodeStateConflict):
			// accepted or cancelled by someone else since the listing
			skipped++
		default:
			errs = multierr.Append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
		}
	}

	j.metrics.AddExpired(expired)

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":  cutoff,
		"found":   len(stale),
		"expired": expired,
		"skipped": skipped,
	})
	if expired > 0 || skipped > 0 {
		j.logg.Info(logCtx, "stale orders expired")
	}
	return errs
}
