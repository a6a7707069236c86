package worker

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velixa/storefront/pkg/queue"
)

type fakeJobs struct {
	mu      sync.Mutex
	pending []*queue.Job
	retried []*queue.Job
}

func (f *fakeJobs) Dequeue(ctx context.Context) (*queue.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pending) == 0 {
		return nil, nil
	}
	job := f.pending[0]
	f.pending = f.pending[1:]
	return job, nil
}

func (f *fakeJobs) Retry(ctx context.Context, job *queue.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	job.Attempt++
	f.retried = append(f.retried, job)
	return nil
}

func (f *fakeJobs) retriedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.retried)
}

type fakeObjects struct {
	mu      sync.Mutex
	deleted []string
	err     error
}

func (f *fakeObjects) DeleteByURL(ctx context.Context, rawURL string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, rawURL)
	return nil
}

func (f *fakeObjects) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.deleted)
}

func imageJob(t *testing.T, url string) *queue.Job {
	t.Helper()
	job, err := queue.NewJob(queue.JobTypeImageDelete, queue.ImageDeletePayload{URL: url, ProductID: uuid.New()})
	require.NoError(t, err)
	return job
}

func TestImageProcessor_Process(t *testing.T) {
	objects := &fakeObjects{}
	p := NewImageProcessor(&fakeJobs{}, objects, nil)

	require.NoError(t, p.Process(context.Background(), imageJob(t, "https://b.s3.amazonaws.com/products/a.png")))
	assert.Equal(t, []string{"https://b.s3.amazonaws.com/products/a.png"}, objects.deleted)

	require.NoError(t, p.Process(context.Background(), imageJob(t, "")))
	assert.Len(t, objects.deleted, 1)
}

func TestImageProcessor_ProcessRejects(t *testing.T) {
	p := NewImageProcessor(&fakeJobs{}, &fakeObjects{}, nil)

	err := p.Process(context.Background(), &queue.Job{Type: "unknown"})
	assert.Error(t, err)

	err = p.Process(context.Background(), &queue.Job{Type: queue.JobTypeImageDelete, Payload: json.RawMessage(`{`)})
	assert.Error(t, err)
}

func TestImageProcessor_RunRetriesFailures(t *testing.T) {
	jobs := &fakeJobs{pending: []*queue.Job{imageJob(t, "https://b/x.png")}}
	objects := &fakeObjects{err: errors.New("s3 down")}
	p := NewImageProcessor(jobs, objects, nil)
	p.backoff = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return jobs.retriedCount() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Equal(t, 1, jobs.retried[0].Attempt)
	assert.Zero(t, objects.count())
}

func TestImageProcessor_RunDrains(t *testing.T) {
	jobs := &fakeJobs{pending: []*queue.Job{imageJob(t, "https://b/1.png"), imageJob(t, "https://b/2.png")}}
	objects := &fakeObjects{}
	p := NewImageProcessor(jobs, objects, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	assert.Eventually(t, func() bool { return objects.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, jobs.retriedCount())
}

type fakeExpirer struct {
	mu    sync.Mutex
	calls []time.Time
	n     int64
	err   error
}

func (f *fakeExpirer) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, now)
	return f.n, f.err
}

func (f *fakeExpirer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func TestExpirySweeper_Sweep(t *testing.T) {
	store := &fakeExpirer{n: 3}
	s := NewExpirySweeper(store, time.Minute, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.Equal(t, []time.Time{fixed}, store.calls)

	store.err = errors.New("db down")
	_, err = s.Sweep(context.Background())
	assert.Error(t, err)
}

func TestExpirySweeper_Run(t *testing.T) {
	store := &fakeExpirer{}
	s := NewExpirySweeper(store, 5*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return store.callCount() >= 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestNewExpirySweeper_DefaultInterval(t *testing.T) {
	s := NewExpirySweeper(&fakeExpirer{}, 0, nil)
	assert.Equal(t, 5*time.Minute, s.interval)
}
