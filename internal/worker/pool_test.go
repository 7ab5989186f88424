package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingResult struct {
	err error
}

func (r *countingResult) GetError() error { return r.err }

type countingJob struct {
	executed *int32
	fail     bool
	block    time.Duration
}

func (j *countingJob) Execute(ctx context.Context) Result {
	if j.executed != nil {
		atomic.AddInt32(j.executed, 1)
	}
	if j.block > 0 {
		select {
		case <-time.After(j.block):
		case <-ctx.Done():
			return &countingResult{err: ctx.Err()}
		}
	}
	if j.fail {
		return &countingResult{err: errors.New("job failed")}
	}
	return &countingResult{}
}

func TestNewPoolWorkerFloor(t *testing.T) {
	if p := NewPool(context.Background(), 0); p.workers != 1 {
		t.Errorf("expected floor of 1 worker for 0, got %d", p.workers)
	}
	if p := NewPool(context.Background(), -3); p.workers != 1 {
		t.Errorf("expected floor of 1 worker for negative, got %d", p.workers)
	}
	if p := NewPool(context.Background(), 4); p.workers != 4 {
		t.Errorf("expected 4 workers, got %d", p.workers)
	}
}

func TestPoolExecutesAllJobs(t *testing.T) {
	p := NewPool(context.Background(), 4)
	p.Start()

	var executed int32
	for i := 0; i < 20; i++ {
		p.Submit(&countingJob{executed: &executed, fail: i%3 == 0})
	}

	results := p.Wait()
	if len(results) != 20 {
		t.Fatalf("expected 20 results, got %d", len(results))
	}
	if atomic.LoadInt32(&executed) != 20 {
		t.Errorf("expected 20 executions, got %d", executed)
	}

	var failures int
	for _, r := range results {
		if r.GetError() != nil {
			failures++
		}
	}
	if failures != 7 {
		t.Errorf("expected 7 failures, got %d", failures)
	}
}

func TestPoolShutdownStopsWork(t *testing.T) {
	p := NewPool(context.Background(), 2)
	p.Start()

	for i := 0; i < 6; i++ {
		p.Submit(&countingJob{block: 200 * time.Millisecond})
	}

	done := make(chan struct{})
	go func() {
		p.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not complete promptly")
	}
}

func TestPoolRespectsParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewPool(ctx, 2)
	p.Start()

	p.Submit(&countingJob{block: time.Minute})
	cancel()

	done := make(chan []Result, 1)
	go func() { done <- p.Wait() }()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled pool did not drain")
	}
}
