// Package pagepool fans one contest's pages out over a bounded set of
// workers. Each contest gets a fresh pool; workers are torn down when the
// contest's pages are done so no goroutines leak across work units.
package pagepool

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/logger"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/models"
)

// ProcessFunc handles one page and returns its enriched rows
type ProcessFunc func(ctx context.Context, task models.PageTask) ([]models.Row, error)

// Result is the outcome of one page. A failed page carries its error and no
// rows; the contest continues without it.
type Result struct {
	Page int
	Rows []models.Row
	Err  error
}

// Pool runs page tasks concurrently with a fixed worker count
type Pool struct {
	workers int
	process ProcessFunc
	logger  logger.Logger
}

// New creates a pool. Workers below one are clamped to one.
func New(workers int, process ProcessFunc, log logger.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pool{workers: workers, process: process, logger: log}
}

// Run processes every task and returns one result per task, ordered by page
// number. Each task is consumed exactly once. Cancellation stops workers from
// picking up new tasks; tasks never started come back with the context error.
func (p *Pool) Run(ctx context.Context, tasks []models.PageTask) []Result {
	if len(tasks) == 0 {
		return nil
	}

	taskQueue := make(chan models.PageTask, len(tasks))
	resultQueue := make(chan Result, len(tasks))

	for _, task := range tasks {
		taskQueue <- task
	}
	close(taskQueue)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for task := range taskQueue {
				select {
				case <-ctx.Done():
					resultQueue <- Result{Page: task.Page, Err: ctx.Err()}
					continue
				default:
				}
				resultQueue <- p.runTask(ctx, workerID, task)
			}
		}(i)
	}

	wg.Wait()
	close(resultQueue)

	results := make([]Result, 0, len(tasks))
	for r := range resultQueue {
		results = append(results, r)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Page < results[j].Page })
	return results
}

// runTask executes one page with panic containment. A panicking page becomes
// a failed page, it must not take the whole contest down.
func (p *Pool) runTask(ctx context.Context, workerID int, task models.PageTask) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.ErrorWithFields("page worker panic recovered", map[string]interface{}{
				"worker":     workerID,
				"contest_id": task.ContestID,
				"page":       task.Page,
				"panic":      fmt.Sprintf("%v", r),
			})
			result = Result{Page: task.Page, Err: fmt.Errorf("page %d panicked: %v", task.Page, r)}
		}
	}()

	rows, err := p.process(ctx, task)
	return Result{Page: task.Page, Rows: rows, Err: err}
}
