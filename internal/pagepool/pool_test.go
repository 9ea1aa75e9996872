package pagepool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/logger"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/models"
)

func tasks(n int) []models.PageTask {
	out := make([]models.PageTask, n)
	for i := range out {
		out[i] = models.PageTask{ContestID: "12345", Page: i + 1}
	}
	return out
}

func TestRunProcessesEveryTaskOnce(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[int]int)

	pool := New(3, func(ctx context.Context, task models.PageTask) ([]models.Row, error) {
		mu.Lock()
		seen[task.Page]++
		mu.Unlock()
		return []models.Row{{ContestID: task.ContestID, EntryID: fmt.Sprintf("e%d", task.Page)}}, nil
	}, logger.NewNopLogger())

	results := pool.Run(context.Background(), tasks(7))

	if len(results) != 7 {
		t.Fatalf("got %d results, want 7", len(results))
	}
	for page, count := range seen {
		if count != 1 {
			t.Errorf("page %d processed %d times", page, count)
		}
	}
	for i, r := range results {
		if r.Page != i+1 {
			t.Errorf("result %d has page %d, want %d", i, r.Page, i+1)
		}
		if r.Err != nil || len(r.Rows) != 1 {
			t.Errorf("page %d: err=%v rows=%d", r.Page, r.Err, len(r.Rows))
		}
	}
}

func TestRunFailedPageDoesNotStopOthers(t *testing.T) {
	pool := New(2, func(ctx context.Context, task models.PageTask) ([]models.Row, error) {
		if task.Page == 2 {
			return nil, errors.New("page 2 exhausted retries")
		}
		return []models.Row{{EntryID: "e"}}, nil
	}, logger.NewNopLogger())

	results := pool.Run(context.Background(), tasks(3))

	var failed, succeeded int
	for _, r := range results {
		if r.Err != nil {
			failed++
		} else {
			succeeded++
		}
	}
	if failed != 1 || succeeded != 2 {
		t.Errorf("failed=%d succeeded=%d, want 1/2", failed, succeeded)
	}
}

func TestRunRecoversPanic(t *testing.T) {
	pool := New(2, func(ctx context.Context, task models.PageTask) ([]models.Row, error) {
		if task.Page == 1 {
			panic("selector blew up")
		}
		return nil, nil
	}, logger.NewNopLogger())

	results := pool.Run(context.Background(), tasks(2))

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Err == nil {
		t.Error("panicked page should surface as a failed result")
	}
	if results[1].Err != nil {
		t.Errorf("healthy page should succeed: %v", results[1].Err)
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var started int32
	pool := New(1, func(ctx context.Context, task models.PageTask) ([]models.Row, error) {
		if atomic.AddInt32(&started, 1) == 1 {
			cancel()
		}
		return nil, nil
	}, logger.NewNopLogger())

	results := pool.Run(ctx, tasks(5))

	if len(results) != 5 {
		t.Fatalf("every task must produce a result, got %d", len(results))
	}
	var cancelled int
	for _, r := range results {
		if errors.Is(r.Err, context.Canceled) {
			cancelled++
		}
	}
	if cancelled != 4 {
		t.Errorf("cancelled=%d, want 4 after first task cancels", cancelled)
	}
}

func TestRunEmptyTasks(t *testing.T) {
	pool := New(3, func(ctx context.Context, task models.PageTask) ([]models.Row, error) {
		t.Error("process should not run")
		return nil, nil
	}, logger.NewNopLogger())

	if results := pool.Run(context.Background(), nil); results != nil {
		t.Errorf("expected nil results, got %v", results)
	}
}
