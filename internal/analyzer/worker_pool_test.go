package analyzer

import (
	"image"
	"math"
	"runtime"
	"sync"
	"testing"
)

func TestNewWorkerPool_DefaultsToCPUCount(t *testing.T) {
	for _, n := range []int{0, -3} {
		pool := NewWorkerPool(n)
		if pool.workers != runtime.NumCPU() {
			t.Errorf("NewWorkerPool(%d): expected %d workers, got %d", n, runtime.NumCPU(), pool.workers)
		}
	}
	if pool := NewWorkerPool(3); pool.workers != 3 || cap(pool.jobQueue) != 6 {
		t.Errorf("unexpected pool sizing: workers=%d queue=%d", pool.workers, cap(pool.jobQueue))
	}
}

func TestWorkerPool_ScreensMasksConcurrently(t *testing.T) {
	ca := newTestAnalyzer(t)
	pool := NewWorkerPool(3)
	pool.Start()
	defer pool.Close()

	// squares of growing size all score one right angle
	const jobs = 8
	results := make([]BendResult, jobs)
	errs := make([]error, jobs)
	for i := 0; i < jobs; i++ {
		i := i
		size := 10 + 2*i
		mask := newMask(60, 60, image.Rect(5, 5, 5+size, 5+size))
		pool.Submit(func() {
			results[i], errs[i] = ca.bendFromMask(mask)
		})
	}
	pool.Wait()

	for i := 0; i < jobs; i++ {
		if errs[i] != nil {
			t.Fatalf("job %d failed: %v", i, errs[i])
		}
		if math.Abs(results[i].Score-2.25) > 1e-9 {
			t.Errorf("job %d: expected score 2.25, got %f", i, results[i].Score)
		}
		if want := 5 + 10 + 2*i; results[i].Bounds.Max.X != want {
			t.Errorf("job %d: expected bounds to end at %d, got %v", i, want, results[i].Bounds)
		}
	}
}

func TestWorkerPool_StartOnce(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	pool.Start()
	defer pool.Close()

	var mu sync.Mutex
	executed := 0
	for i := 0; i < 4; i++ {
		pool.Submit(func() {
			mu.Lock()
			executed++
			mu.Unlock()
		})
	}
	pool.Wait()

	if executed != 4 {
		t.Errorf("expected 4 executed jobs, got %d", executed)
	}
}

func TestWorkerPool_Stats(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Start()
	defer pool.Close()

	const jobs = 20
	var readers sync.WaitGroup
	for i := 0; i < jobs; i++ {
		if !pool.Submit(func() {
			for j := 0; j < 5000; j++ {
				_ = j * j
			}
		}) {
			t.Fatal("Submit rejected on an open pool")
		}
	}

	// stats may be read while jobs run
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for j := 0; j < 10; j++ {
				s := pool.GetStats()
				if s.CompletedJobs > s.TotalJobs {
					t.Errorf("completed %d exceeds total %d", s.CompletedJobs, s.TotalJobs)
				}
			}
		}()
	}
	readers.Wait()
	pool.Wait()

	stats := pool.GetStats()
	if stats.TotalJobs != jobs || stats.CompletedJobs != jobs {
		t.Errorf("expected %d total and completed jobs, got %+v", jobs, stats)
	}
	if stats.ActiveWorkers != 0 {
		t.Errorf("expected no active workers after Wait, got %d", stats.ActiveWorkers)
	}
}

func TestWorkerPool_CloseDrainsQueue(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Start()

	done := make(chan struct{}, 3)
	for i := 0; i < 3; i++ {
		pool.Submit(func() { done <- struct{}{} })
	}
	pool.Close()
	pool.Wait()

	if len(done) != 3 {
		t.Errorf("expected queued jobs to finish after Close, got %d", len(done))
	}
}

func TestWorkerPool_SubmitAfterClose(t *testing.T) {
	pool := NewWorkerPool(1)
	pool.Start()
	pool.Close()
	pool.Close() // Second close must not panic

	if pool.Submit(func() {}) {
		t.Error("Expected Submit to be rejected after Close")
	}
	if stats := pool.GetStats(); stats.TotalJobs != 0 {
		t.Errorf("Expected rejected job not to be counted, got %d", stats.TotalJobs)
	}
}
