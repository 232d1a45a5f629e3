package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/muniadmin/muniadmin/internal/jobs"
	"github.com/muniadmin/muniadmin/internal/rbac"
)

// Seeder runs the catalog and matrix seed.
type Seeder interface {
	Run(ctx context.Context, opts rbac.SeedOptions) (rbac.SeedResult, error)
}

// ReseedJob inserts catalog permissions and matrix grants missing from storage.
type ReseedJob struct {
	Seeder  Seeder
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewReseedJob initialises the reseed handler.
func NewReseedJob(seeder Seeder, logger *slog.Logger, metrics *jobmetrics.Metrics) *ReseedJob {
	return &ReseedJob{Seeder: seeder, Logger: logger, Metrics: metrics}
}

// Handle executes TaskRBACReseed.
func (j *ReseedJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Seeder == nil {
		return errors.New("rbac reseed: handler not configured")
	}
	var payload ReseedPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskRBACReseed)
	defer func() {
		err = tracker.End(err)
	}()

	logger := loggerOrDefault(j.Logger).With(slog.String("requested_by", payload.RequestedBy))
	result, err := j.Seeder.Run(ctx, rbac.SeedOptions{})
	if err != nil {
		logger.Error("rbac reseed failed", slog.Any("error", err))
		return err
	}
	logger.Info("rbac reseed completed",
		slog.Int64("permissions_inserted", result.PermissionsInserted),
		slog.Int64("grants_inserted", result.GrantsInserted),
		slog.Int("grants_skipped", result.GrantsSkipped))
	return nil
}

func loggerOrDefault(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.Default()
	}
	return l
}
