package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	retry "github.com/sethvargo/go-retry"
	log "github.com/sirupsen/logrus"

	"veracity/internal/config"
	"veracity/internal/tasks"
)

const (
	jobTimeout   = 2 * time.Minute
	jobRetention = 24 * time.Hour
	jobMaxRetry  = 3
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

type taskInspector interface {
	GetTaskInfo(queue, id string) (*asynq.TaskInfo, error)
	Queues() ([]string, error)
	Close() error
}

// AsynqJobClient is the Redis-backed JobClient.
type AsynqJobClient struct {
	client    enqueuer
	inspector taskInspector
	queue     string
	queues    []string
	backoff   func() retry.Backoff
}

var _ JobClient = (*AsynqJobClient)(nil)

// RedisOpt turns the redis section into Asynq connection options.
func RedisOpt(cfg config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

// NewAsynqJobClient connects to the configured Redis. It returns
// ErrUnavailable when no redis address is set.
func NewAsynqJobClient(cfg *config.Config) (*AsynqJobClient, error) {
	if cfg.Redis.Address == "" {
		return nil, ErrUnavailable
	}
	opt := RedisOpt(*cfg)
	return newJobClient(asynq.NewClient(opt), asynq.NewInspector(opt), cfg.Worker.Queues), nil
}

func newJobClient(c enqueuer, in taskInspector, queues map[string]int) *AsynqJobClient {
	jc := &AsynqJobClient{
		client:    c,
		inspector: in,
		queue:     tasks.QueueDefault,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewFibonacci(200*time.Millisecond))
		},
	}
	if _, ok := queues[tasks.QueueAnalysis]; ok {
		jc.queue = tasks.QueueAnalysis
	}
	var rest []string
	for name := range queues {
		if name != jc.queue {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	jc.queues = append([]string{jc.queue}, rest...)
	return jc
}

func (jc *AsynqJobClient) Close() error {
	return errors.Join(jc.client.Close(), jc.inspector.Close())
}

// EnqueueAnalysis queues p. The request ID doubles as the task ID, so
// resubmitting the same request is rejected by the queue instead of being
// analysed twice. Transient Redis errors are retried with backoff.
func (jc *AsynqJobClient) EnqueueAnalysis(ctx context.Context, p tasks.AnalysisPayload) (*JobStatus, error) {
	if p.RequestID == "" {
		p.RequestID = uuid.NewString()
	}
	task, err := tasks.NewAnalysisTask(p,
		asynq.TaskID(p.RequestID),
		asynq.Queue(jc.queue),
		asynq.MaxRetry(jobMaxRetry),
		asynq.Timeout(jobTimeout),
		asynq.Retention(jobRetention),
	)
	if err != nil {
		return nil, err
	}

	var info *asynq.TaskInfo
	err = retry.Do(ctx, jc.backoff(), func(ctx context.Context) error {
		var err error
		info, err = jc.client.EnqueueContext(ctx, task)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, asynq.ErrTaskIDConflict), errors.Is(err, asynq.ErrDuplicateTask):
			return err
		default:
			log.Warnf("Enqueue of %s failed, retrying: %v", p.RequestID, err)
			return retry.RetryableError(err)
		}
	})
	if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
		return nil, fmt.Errorf("enqueue analysis job %s: %w: %w", p.RequestID, ErrDuplicateJob, err)
	}
	if err != nil {
		return nil, fmt.Errorf("enqueue analysis job %s: %w", p.RequestID, err)
	}

	log.WithFields(log.Fields{"job_id": info.ID, "queue": info.Queue}).Debug("Enqueued analysis job")
	return statusFromInfo(info), nil
}

// GetJob looks the job up in every configured queue.
func (jc *AsynqJobClient) GetJob(ctx context.Context, id string) (*JobStatus, error) {
	for _, q := range jc.queues {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		info, err := jc.inspector.GetTaskInfo(q, id)
		switch {
		case err == nil:
			return statusFromInfo(info), nil
		case errors.Is(err, asynq.ErrTaskNotFound), errors.Is(err, asynq.ErrQueueNotFound):
			continue
		default:
			return nil, fmt.Errorf("inspect job %s in queue %s: %w", id, q, err)
		}
	}
	return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
}

// Ping checks that Redis answers.
func (jc *AsynqJobClient) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := jc.inspector.Queues(); err != nil {
		return fmt.Errorf("redis unreachable: %w", err)
	}
	return nil
}

func statusFromInfo(info *asynq.TaskInfo) *JobStatus {
	st := &JobStatus{
		ID:        info.ID,
		Queue:     info.Queue,
		State:     info.State.String(),
		Retried:   info.Retried,
		LastError: info.LastErr,
	}
	if !info.CompletedAt.IsZero() {
		t := info.CompletedAt
		st.CompletedAt = &t
	}
	if len(info.Result) > 0 {
		st.Result = info.Result
	}
	return st
}
