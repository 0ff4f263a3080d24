package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"veracity/internal/consensus"
	"veracity/internal/engine"
	"veracity/internal/tasks"
	"veracity/internal/verification"
	"veracity/pkg/classifier"
)

type mockAssessor struct {
	mock.Mock
}

func (m *mockAssessor) Assess(ctx context.Context, sub verification.Submission, mode consensus.Mode, fetch bool) (engine.Assessment, error) {
	args := m.Called(ctx, sub, mode, fetch)
	return args.Get(0).(engine.Assessment), args.Error(1)
}

func analysisTask(t *testing.T, p tasks.AnalysisPayload) *asynq.Task {
	t.Helper()
	task, err := tasks.NewAnalysisTask(p)
	require.NoError(t, err)
	return task
}

func TestRegisterHandlers(t *testing.T) {
	mux := asynq.NewServeMux()
	RegisterHandlers(mux, AnalysisDeps{Assessor: &mockAssessor{}})

	_, pattern := mux.Handler(asynq.NewTask(tasks.TypeAnalyzeSubmission, nil))
	assert.Equal(t, tasks.TypeAnalyzeSubmission, pattern)
}

func TestHandleAnalysisJob_Success(t *testing.T) {
	sub := verification.Submission{Content: "hello there", Platform: "reddit"}
	m := &mockAssessor{}
	m.On("Assess", mock.Anything, sub, consensus.Combined(), true).
		Return(engine.Assessment{ID: "a1"}, nil).Once()

	h := HandleAnalysisJob(AnalysisDeps{Assessor: m})
	err := h(context.Background(), analysisTask(t, tasks.AnalysisPayload{
		RequestID: "r1", Submission: sub, Mode: "combined", FetchMetadata: true,
	}))
	require.NoError(t, err)
	m.AssertExpectations(t)
}

func TestHandleAnalysisJob_DefaultMode(t *testing.T) {
	sub := verification.Submission{Content: "hello there"}
	m := &mockAssessor{}
	m.On("Assess", mock.Anything, sub, consensus.Mode{}, false).Return(engine.Assessment{}, nil).Once()

	err := HandleAnalysisJob(AnalysisDeps{Assessor: m})(context.Background(),
		analysisTask(t, tasks.AnalysisPayload{Submission: sub}))
	require.NoError(t, err)
	m.AssertExpectations(t)
}

func TestHandleAnalysisJob_SkipsRetryOnBadInput(t *testing.T) {
	h := HandleAnalysisJob(AnalysisDeps{Assessor: &mockAssessor{}})

	err := h(context.Background(), asynq.NewTask(tasks.TypeAnalyzeSubmission, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = h(context.Background(), analysisTask(t, tasks.AnalysisPayload{Mode: "vote!"}))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	m := &mockAssessor{}
	m.On("Assess", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(engine.Assessment{}, verification.ErrInvalidSubmission)
	err = HandleAnalysisJob(AnalysisDeps{Assessor: m})(context.Background(), analysisTask(t, tasks.AnalysisPayload{}))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	m = &mockAssessor{}
	m.On("Assess", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(engine.Assessment{}, classifier.ErrInvalidInput)
	err = HandleAnalysisJob(AnalysisDeps{Assessor: m})(context.Background(), analysisTask(t, tasks.AnalysisPayload{}))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleAnalysisJob_TransientErrorIsRetried(t *testing.T) {
	m := &mockAssessor{}
	m.On("Assess", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(engine.Assessment{}, errors.New("metadata backend down"))

	err := HandleAnalysisJob(AnalysisDeps{Assessor: m})(context.Background(),
		analysisTask(t, tasks.AnalysisPayload{Submission: verification.Submission{Content: "x"}}))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestHandleAnalysisJob_AllProvidersFailedOutsideWorkerStoresFallback(t *testing.T) {
	m := &mockAssessor{}
	m.On("Assess", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(engine.Assessment{ID: "fallback"}, &consensus.AllProvidersFailedError{})

	// a bare context carries no retry metadata, so this counts as the last attempt
	err := HandleAnalysisJob(AnalysisDeps{Assessor: m})(context.Background(),
		analysisTask(t, tasks.AnalysisPayload{Submission: verification.Submission{Content: "x"}}))
	assert.NoError(t, err)
}
