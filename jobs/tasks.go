package jobs

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReconcileJobCards refreshes the payments collected on job cards.
	TaskReconcileJobCards = "jobcards:reconcile"
)

// sweepUniqueFor keeps at most one pending full sweep.
const sweepUniqueFor = 15 * time.Minute

// ReconcilePayload scopes a reconciliation. An empty DisplayID reconciles
// every job card.
type ReconcilePayload struct {
	DisplayID string `json:"display_id,omitempty"`
}

// NewReconcileTask constructs a reconcile task for displayID, or a full sweep
// when displayID is blank.
func NewReconcileTask(displayID string) (*asynq.Task, error) {
	payload := ReconcilePayload{DisplayID: strings.ToUpper(strings.TrimSpace(displayID))}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	opts := []asynq.Option{asynq.Queue(QueueDefault), asynq.MaxRetry(5), asynq.Timeout(2 * time.Minute)}
	if payload.DisplayID == "" {
		opts = append(opts, asynq.Unique(sweepUniqueFor), asynq.Timeout(30*time.Minute))
	}
	return asynq.NewTask(TaskReconcileJobCards, body, opts...), nil
}

// RedisOpt adapts go-redis options to the queue's connection settings.
func RedisOpt(opts *redis.Options) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	}
}
