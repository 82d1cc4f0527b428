package coordinator_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/eshop/internal/coordinator"
	"github.com/jcmexdev/eshop/internal/coordinator/sagalog"
)

type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(s string) {
	j.mu.Lock()
	j.entries = append(j.entries, s)
	j.mu.Unlock()
}

type fakeStep struct {
	name          string
	j             *journal
	executeErr    error
	compensateErr error
}

func (s *fakeStep) Name() string { return s.name }

func (s *fakeStep) Execute(context.Context) error {
	s.j.add("exec " + s.name)
	return s.executeErr
}

func (s *fakeStep) Compensate(context.Context) error {
	s.j.add("undo " + s.name)
	return s.compensateErr
}

type memLog struct {
	rows []sagalog.SagaLog
	err  error
}

func (m *memLog) Save(_ context.Context, e *sagalog.SagaLog) error {
	if m.err != nil {
		return m.err
	}
	m.rows = append(m.rows, *e)
	return nil
}

func (m *memLog) statuses() []sagalog.Status {
	out := make([]sagalog.Status, len(m.rows))
	for i, r := range m.rows {
		out[i] = r.Status
	}
	return out
}

func TestOrchestrator_AllStepsSucceed(t *testing.T) {
	j := &journal{}
	log := &memLog{}
	steps := []coordinator.Step{
		&fakeStep{name: "a", j: j},
		&fakeStep{name: "b", j: j},
	}

	err := coordinator.NewOrchestrator("order-1", steps, log, coordinator.WithPayload(`{"x":1}`)).Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"exec a", "exec b"}, j.entries)
	assert.Equal(t, []sagalog.Status{
		sagalog.StatusStarted, sagalog.StatusStepDone, sagalog.StatusStepDone, sagalog.StatusCompleted,
	}, log.statuses())
	assert.Equal(t, `{"x":1}`, log.rows[0].Payload)
	assert.Equal(t, "order-1", log.rows[3].SagaID)
}

func TestOrchestrator_FailureCompensatesInReverse(t *testing.T) {
	boom := errors.New("boom")
	j := &journal{}
	log := &memLog{}
	steps := []coordinator.Step{
		&fakeStep{name: "a", j: j},
		&fakeStep{name: "b", j: j},
		&fakeStep{name: "c", j: j, executeErr: boom},
		&fakeStep{name: "d", j: j},
	}

	err := coordinator.NewOrchestrator("order-1", steps, log).Start(context.Background())
	assert.Same(t, boom, err, "the step error is returned unmodified")

	assert.Equal(t, []string{"exec a", "exec b", "exec c", "undo b", "undo a"}, j.entries)
	assert.Equal(t, []sagalog.Status{
		sagalog.StatusStarted, sagalog.StatusStepDone, sagalog.StatusStepDone,
		sagalog.StatusCompensating, sagalog.StatusFailed,
	}, log.statuses())
	last := log.rows[len(log.rows)-1]
	assert.Equal(t, "c", last.CurrentStep)
	assert.Equal(t, []string{"step c failed: boom"}, last.Errors())
}

func TestOrchestrator_CompensationErrorsAreRecorded(t *testing.T) {
	j := &journal{}
	log := &memLog{}
	steps := []coordinator.Step{
		&fakeStep{name: "a", j: j, compensateErr: errors.New("stuck")},
		&fakeStep{name: "b", j: j, executeErr: errors.New("boom")},
	}

	err := coordinator.NewOrchestrator("order-1", steps, log).Start(context.Background())
	require.Error(t, err)
	assert.EqualError(t, err, "boom")

	last := log.rows[len(log.rows)-1]
	assert.Equal(t, []string{"step b failed: boom", "compensation of a failed: stuck"}, last.Errors())
}

func TestOrchestrator_LogFailureDoesNotFailSaga(t *testing.T) {
	j := &journal{}
	steps := []coordinator.Step{&fakeStep{name: "a", j: j}}

	err := coordinator.NewOrchestrator("order-1", steps, &memLog{err: errors.New("disk full")}).Start(context.Background())
	assert.NoError(t, err)
}

func TestOrchestrator_NilLog(t *testing.T) {
	j := &journal{}
	steps := []coordinator.Step{&fakeStep{name: "a", j: j}}

	require.NoError(t, coordinator.NewOrchestrator("order-1", steps, nil).Start(context.Background()))
	assert.Equal(t, []string{"exec a"}, j.entries)
}
