package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/muniadmin/muniadmin/internal/jobs"
	"github.com/muniadmin/muniadmin/internal/rbac"
)

// Auditor compares persisted grants with a role matrix.
type Auditor interface {
	AuditMatrix(ctx context.Context, m rbac.Matrix, g rbac.GranularMatrix) ([]rbac.Drift, error)
}

// AuditJob reports roles whose persisted grants drifted from the matrix.
type AuditJob struct {
	Auditor  Auditor
	Matrix   rbac.Matrix
	Granular rbac.GranularMatrix
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics

	now func() time.Time
}

// NewAuditJob audits against the default matrices.
func NewAuditJob(auditor Auditor, logger *slog.Logger, metrics *jobmetrics.Metrics) *AuditJob {
	return &AuditJob{
		Auditor:  auditor,
		Matrix:   rbac.DefaultMatrix(),
		Granular: rbac.DefaultGranularMatrix(),
		Logger:   logger,
		Metrics:  metrics,
		now:      time.Now,
	}
}

// Handle executes TaskRBACAudit. Drift is reported, never repaired.
func (j *AuditJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Auditor == nil {
		return errors.New("rbac audit: handler not configured")
	}
	var payload AuditPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskRBACAudit)
	defer func() {
		err = tracker.End(err)
	}()

	if payload.Trigger == "" {
		payload.Trigger = AuditTriggerCron
	}
	now := j.now
	if now == nil {
		now = time.Now
	}
	logger := loggerOrDefault(j.Logger).With(
		slog.String("trigger", payload.Trigger),
		slog.Time("started_at", now().UTC()))
	drift, err := j.Auditor.AuditMatrix(ctx, j.Matrix, j.Granular)
	if err != nil {
		logger.Error("rbac audit failed", slog.Any("error", err))
		return err
	}

	byRole := make(map[rbac.Role]rbac.Drift, len(drift))
	for _, d := range drift {
		byRole[d.Role] = d
	}
	for _, role := range rbac.Roles {
		d := byRole[role]
		missing, extra := countEntries(d.Missing), countEntries(d.Extra)
		j.Metrics.SetDrift(string(role), "missing", missing)
		j.Metrics.SetDrift(string(role), "extra", extra)
		if missing+extra > 0 {
			logger.Warn("role grants drifted from matrix",
				slog.String("role", string(role)),
				slog.Int("missing", missing),
				slog.Int("extra", extra),
				slog.Any("missing_entries", d.Missing),
				slog.Any("extra_entries", d.Extra))
		}
	}
	logger.Info("rbac audit completed", slog.Int("drifted_roles", len(drift)))
	return nil
}

func countEntries(s rbac.Snapshot) int {
	n := 0
	for _, entries := range s {
		n += len(entries)
	}
	return n
}
