package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	id   string
	mu   sync.Mutex
	runs int
	err  error
}

func (j *countingJob) ID() string { return j.id }

func (j *countingJob) Run(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.runs++
	return j.err
}

func (j *countingJob) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.runs
}

type memStore struct {
	mu   sync.Mutex
	next map[string]time.Time
}

func newMemStore() *memStore {
	return &memStore{next: make(map[string]time.Time)}
}

func (s *memStore) LoadNextRun(ctx context.Context, jobID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.next[jobID]
	return t, ok, nil
}

func (s *memStore) SaveNextRun(ctx context.Context, jobID string, next time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[jobID] = next
	return nil
}

func TestRegisterRejectsBadCadence(t *testing.T) {
	s := New(2, 5*time.Minute, nil)

	err := s.Register(&countingJob{id: "bad"}, "not a cadence")
	assert.Error(t, err)

	err = s.Register(&countingJob{id: "ok"}, "@every 5m")
	assert.NoError(t, err)

	err = s.Register(&countingJob{id: "ok"}, "@every 5m")
	assert.Error(t, err, "duplicate registration must fail")
}

func TestDecide(t *testing.T) {
	now := time.Now()
	grace := 5 * time.Minute

	e := &entry{next: now.Add(time.Minute)}
	assert.Equal(t, actionWait, decide(e, now, grace))

	e = &entry{next: now.Add(-time.Minute)}
	assert.Equal(t, actionDispatch, decide(e, now, grace))

	e = &entry{next: now.Add(-10 * time.Minute)}
	assert.Equal(t, actionMisfire, decide(e, now, grace))

	e = &entry{next: now.Add(-time.Minute), running: true}
	assert.Equal(t, actionSkipRunning, decide(e, now, grace))
}

func TestRunNow(t *testing.T) {
	s := New(1, 5*time.Minute, nil)
	job := &countingJob{id: "stats"}
	require.NoError(t, s.Register(job, "@every 1h"))

	err := s.RunNow(context.Background(), "stats")
	require.NoError(t, err)
	assert.Equal(t, 1, job.count())

	err = s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
}

func TestRunNowRecordsFailure(t *testing.T) {
	s := New(1, 5*time.Minute, nil)
	job := &countingJob{id: "flaky", err: errors.New("boom")}
	require.NoError(t, s.Register(job, "@every 1h"))

	require.NoError(t, s.RunNow(context.Background(), "flaky"))

	statuses := s.Status()
	require.Len(t, statuses, 1)
	assert.Equal(t, "flaky", statuses[0].ID)
	assert.Equal(t, "boom", statuses[0].LastError)
	assert.NotNil(t, statuses[0].LastRun)
	assert.False(t, statuses[0].Running)
}

func TestStatusOrderAndCadence(t *testing.T) {
	s := New(2, 5*time.Minute, nil)
	require.NoError(t, s.Register(&countingJob{id: "cleanup"}, "@every 5m"))
	require.NoError(t, s.Register(&countingJob{id: "purge"}, "0 2 * * *"))

	statuses := s.Status()
	require.Len(t, statuses, 2)
	assert.Equal(t, "cleanup", statuses[0].ID)
	assert.Equal(t, "@every 5m", statuses[0].Cadence)
	assert.Equal(t, "purge", statuses[1].ID)
}

func TestTickDispatchAndMisfire(t *testing.T) {
	store := newMemStore()
	s := New(1, 5*time.Minute, store)

	onTime := &countingJob{id: "on_time"}
	missed := &countingJob{id: "missed"}
	require.NoError(t, s.Register(onTime, "@every 1m"))
	require.NoError(t, s.Register(missed, "@every 1m"))

	now := time.Now()
	s.entries["on_time"].next = now.Add(-time.Second)
	s.entries["missed"].next = now.Add(-time.Hour)

	go func() {
		id := <-s.taskCh
		s.execute(context.Background(), id)
	}()
	s.tick(context.Background(), now)

	require.Eventually(t, func() bool { return onTime.count() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, missed.count(), "run outside grace period must be dropped")

	// 两个任务的 next 都应被推进并落盘
	for _, id := range []string{"on_time", "missed"} {
		next, ok, err := store.LoadNextRun(context.Background(), id)
		require.NoError(t, err)
		require.True(t, ok)
		assert.True(t, next.After(now))
	}
}

func TestStartStop(t *testing.T) {
	s := New(2, 5*time.Minute, newMemStore())
	require.NoError(t, s.Register(&countingJob{id: "idle"}, "@every 1h"))

	s.Start(context.Background())
	s.Stop()
}
