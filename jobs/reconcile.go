package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/jrr-automobiles/portal/internal/jobs"
)

// JobCardReconciler is the part of the job card service the worker drives.
type JobCardReconciler interface {
	ReconcileDisplayID(ctx context.Context, displayID string) error
	ReconcileAll(ctx context.Context) (int, error)
}

// ReconcileJob handles TaskReconcileJobCards.
type ReconcileJob struct {
	Service JobCardReconciler
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewReconcileJob constructs the job handler.
func NewReconcileJob(service JobCardReconciler, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReconcileJob {
	return &ReconcileJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock:   time.Now,
	}
}

// Handle executes one reconciliation task.
func (j *ReconcileJob) Handle(ctx context.Context, task *asynq.Task) (resultErr error) {
	if j == nil || j.Service == nil {
		return errors.New("reconcile job cards: dependencies not configured")
	}
	var payload ReconcilePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		j.log().Error("decode reconcile payload", slog.Any("error", err))
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskReconcileJobCards)
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if payload.DisplayID != "" {
		if err := j.Service.ReconcileDisplayID(ctx, payload.DisplayID); err != nil {
			j.log().Error("reconcile job card", slog.String("display_id", payload.DisplayID), slog.Any("error", err))
			return err
		}
		return nil
	}

	start := j.clock()
	n, err := j.Service.ReconcileAll(ctx)
	j.log().Info("job card reconcile sweep finished",
		slog.Int("reconciled", n),
		slog.Duration("took", j.clock().Sub(start)),
		slog.Bool("partial", err != nil))
	if err != nil {
		j.log().Error("reconcile sweep", slog.Any("error", err))
		return err
	}
	return nil
}

func (j *ReconcileJob) log() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
