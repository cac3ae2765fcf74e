package client

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedJobs struct {
	states []domain.JobState
	calls  atomic.Int32
	err    error
}

func (s *scriptedJobs) Get(ctx context.Context, path string) (*APIResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	i := int(s.calls.Add(1)) - 1
	if i >= len(s.states) {
		i = len(s.states) - 1
	}
	data, _ := json.Marshal(domain.JobSnapshot{JobID: "j1", Kind: domain.JobKindIngest, State: s.states[i]})
	return &APIResponse{Data: data}, nil
}

func TestWaitForJob_ReturnsTerminalState(t *testing.T) {
	jobs := &scriptedJobs{states: []domain.JobState{
		domain.JobStatePending, domain.JobStateStarted, domain.JobStateSuccess,
	}}

	snap, err := waitForJob(context.Background(), jobs, "j1", 5*time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateSuccess, snap.State)
	assert.Equal(t, int32(3), jobs.calls.Load())
}

func TestWaitForJob_FailureIsTerminal(t *testing.T) {
	jobs := &scriptedJobs{states: []domain.JobState{domain.JobStateFailure}}

	snap, err := waitForJob(context.Background(), jobs, "j1", time.Second, time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStateFailure, snap.State)
}

func TestWaitForJob_Deadline(t *testing.T) {
	jobs := &scriptedJobs{states: []domain.JobState{domain.JobStateStarted}}

	snap, err := waitForJob(context.Background(), jobs, "j1", 30*time.Millisecond, 5*time.Millisecond)
	require.ErrorIs(t, err, ErrWaitTimeout)
	if snap != nil {
		assert.Equal(t, domain.JobStateStarted, snap.State)
	}
}

func TestWaitForJob_APIError(t *testing.T) {
	jobs := &scriptedJobs{err: &APIError{StatusCode: 404, Message: "job not found"}}

	_, err := waitForJob(context.Background(), jobs, "j1", time.Second, time.Millisecond)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrWaitTimeout))

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
}
