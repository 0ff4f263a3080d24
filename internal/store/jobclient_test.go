package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	retry "github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veracity/internal/tasks"
	"veracity/internal/verification"
)

type fakeEnqueuer struct {
	errs  []error
	calls int
	last  *asynq.Task
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.calls++
	f.last = task
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &asynq.TaskInfo{ID: "job-1", Queue: tasks.QueueAnalysis, State: asynq.TaskStatePending}, nil
}

func (f *fakeEnqueuer) Close() error { return nil }

type fakeInspector struct {
	tasks map[string]*asynq.TaskInfo // queue/id
	err   error
}

func (f *fakeInspector) GetTaskInfo(queue, id string) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	if info, ok := f.tasks[queue+"/"+id]; ok {
		return info, nil
	}
	return nil, asynq.ErrTaskNotFound
}

func (f *fakeInspector) Queues() ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{tasks.QueueAnalysis}, nil
}

func (f *fakeInspector) Close() error { return nil }

func testClient(enq *fakeEnqueuer, in *fakeInspector, queues map[string]int) *AsynqJobClient {
	jc := newJobClient(enq, in, queues)
	jc.backoff = func() retry.Backoff {
		return retry.WithMaxRetries(2, retry.NewConstant(time.Millisecond))
	}
	return jc
}

func payload() tasks.AnalysisPayload {
	return tasks.AnalysisPayload{
		RequestID:  "req-1",
		Submission: verification.Submission{Content: "hello", Platform: "twitter"},
		Mode:       "combined",
	}
}

func TestEnqueueAnalysis(t *testing.T) {
	enq := &fakeEnqueuer{}
	jc := testClient(enq, &fakeInspector{}, map[string]int{"analysis": 6, "default": 1})

	st, err := jc.EnqueueAnalysis(context.Background(), payload())
	require.NoError(t, err)
	assert.Equal(t, "job-1", st.ID)
	assert.Equal(t, "pending", st.State)

	require.NotNil(t, enq.last)
	assert.Equal(t, tasks.TypeAnalyzeSubmission, enq.last.Type())
	p, err := tasks.ParseAnalysisPayload(enq.last)
	require.NoError(t, err)
	assert.Equal(t, "req-1", p.RequestID)
	assert.Equal(t, "hello", p.Submission.Content)
}

func TestEnqueueAnalysis_RetriesTransientErrors(t *testing.T) {
	enq := &fakeEnqueuer{errs: []error{errors.New("connection refused"), nil}}
	jc := testClient(enq, &fakeInspector{}, nil)

	_, err := jc.EnqueueAnalysis(context.Background(), payload())
	require.NoError(t, err)
	assert.Equal(t, 2, enq.calls)
}

func TestEnqueueAnalysis_GivesUp(t *testing.T) {
	down := errors.New("connection refused")
	enq := &fakeEnqueuer{errs: []error{down, down, down, down}}
	jc := testClient(enq, &fakeInspector{}, nil)

	_, err := jc.EnqueueAnalysis(context.Background(), payload())
	assert.ErrorIs(t, err, down)
	assert.Equal(t, 3, enq.calls)
}

func TestEnqueueAnalysis_DuplicateIsNotRetried(t *testing.T) {
	enq := &fakeEnqueuer{errs: []error{asynq.ErrTaskIDConflict}}
	jc := testClient(enq, &fakeInspector{}, nil)

	_, err := jc.EnqueueAnalysis(context.Background(), payload())
	assert.ErrorIs(t, err, asynq.ErrTaskIDConflict)
	assert.ErrorIs(t, err, ErrDuplicateJob)
	assert.Equal(t, 1, enq.calls)
}

func TestGetJob(t *testing.T) {
	done := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	in := &fakeInspector{tasks: map[string]*asynq.TaskInfo{
		"low/job-9": {ID: "job-9", Queue: "low", State: asynq.TaskStateCompleted, CompletedAt: done, Result: []byte(`{"id":"x"}`)},
	}}
	jc := testClient(&fakeEnqueuer{}, in, map[string]int{"analysis": 6, "low": 1})
	assert.Equal(t, []string{"analysis", "low"}, jc.queues)

	st, err := jc.GetJob(context.Background(), "job-9")
	require.NoError(t, err)
	assert.Equal(t, "completed", st.State)
	require.NotNil(t, st.CompletedAt)
	assert.True(t, done.Equal(*st.CompletedAt))
	assert.JSONEq(t, `{"id":"x"}`, string(st.Result))

	_, err = jc.GetJob(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetJob_InspectorFailure(t *testing.T) {
	jc := testClient(&fakeEnqueuer{}, &fakeInspector{err: errors.New("redis down")}, nil)

	_, err := jc.GetJob(context.Background(), "job-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestPing(t *testing.T) {
	assert.NoError(t, testClient(&fakeEnqueuer{}, &fakeInspector{}, nil).Ping(context.Background()))

	err := testClient(&fakeEnqueuer{}, &fakeInspector{err: errors.New("dial tcp")}, nil).Ping(context.Background())
	assert.ErrorContains(t, err, "redis unreachable")
}
