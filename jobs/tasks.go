package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRBACReseed backfills the permission catalog and role matrix.
	TaskRBACReseed = "rbac:reseed"
	// TaskRBACAudit compares persisted role grants with the role matrix.
	TaskRBACAudit = "rbac:audit"
)

// ReseedPayload records who asked for a reseed.
type ReseedPayload struct {
	RequestedBy string    `json:"requested_by"`
	RequestedAt time.Time `json:"requested_at"`
}

// NewReseedTask constructs an Asynq task for TaskRBACReseed. Reseeds never
// clean; only the CLI may wipe the RBAC tables.
func NewReseedTask(payload ReseedPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRBACReseed, body, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// AuditTriggerCron marks audits started by the scheduler.
const AuditTriggerCron = "cron"

// AuditPayload names what started an audit. The run time is stamped by the
// handler, since a cron task is built once and replayed on every tick.
type AuditPayload struct {
	Trigger string `json:"trigger"`
}

// NewAuditTask constructs an Asynq task for TaskRBACAudit.
func NewAuditTask(trigger string) (*asynq.Task, error) {
	body, err := json.Marshal(AuditPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRBACAudit, body, asynq.Queue(QueueDefault)), nil
}
