// Package campaign drives a crawl over many contests: skipping ones already
// done, retrying whole contests on transient trouble, folding results into
// the aggregated dataset and checkpointing it as the campaign progresses.
package campaign

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/config"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/dataset"
	errs "github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/errors"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/ledger"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/logger"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/models"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/retry"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/scraper"
)

// AggregateFilename is the campaign-wide dataset written next to the
// per-contest folders
const AggregateFilename = "Aggregated_Contests.csv"

// ContestCrawler crawls one contest. Satisfied by scraper.Scraper.
type ContestCrawler interface {
	CrawlContest(ctx context.Context, contest models.Contest) (*scraper.Result, error)
}

// Summary reports what a campaign run did
type Summary struct {
	RunID       string
	Completed   int
	Skipped     int
	Failed      int
	Rows        int
	Interrupted bool
	Duration    time.Duration
}

// SuccessRate is the fraction of attempted contests that completed. Skipped
// contests were never attempted and do not count either way.
func (s *Summary) SuccessRate() float64 {
	attempted := s.Completed + s.Failed
	if attempted == 0 {
		return 1
	}
	return float64(s.Completed) / float64(attempted)
}

// Controller owns one campaign run
type Controller struct {
	scraper  ContestCrawler
	cfg      *config.Config
	logger   logger.Logger
	progress *ledger.Progress
	failures *ledger.Failures
	agg      *dataset.Aggregate
	runID    string
	stopping int32
}

// New creates a controller and opens the campaign ledgers under the output
// directory. Close releases them.
func New(s ContestCrawler, cfg *config.Config, log logger.Logger) (*Controller, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	progress, err := ledger.OpenProgress(filepath.Join(cfg.Output.BaseDirectory, "finished_contests.txt"))
	if err != nil {
		return nil, err
	}
	failures, err := ledger.OpenFailures(filepath.Join(cfg.Output.BaseDirectory, "failed_contests.txt"))
	if err != nil {
		progress.Close()
		return nil, err
	}

	return &Controller{
		scraper:  s,
		cfg:      cfg,
		logger:   log,
		progress: progress,
		failures: failures,
		agg:      dataset.NewAggregate(),
		runID:    uuid.New().String(),
	}, nil
}

// Close releases the campaign ledgers
func (c *Controller) Close() error {
	err := c.progress.Close()
	if ferr := c.failures.Close(); err == nil {
		err = ferr
	}
	return err
}

// RequestStop asks the controller to stop after the contest currently in
// flight. Safe to call from a signal handler goroutine.
func (c *Controller) RequestStop() {
	if atomic.CompareAndSwapInt32(&c.stopping, 0, 1) {
		c.logger.Warn("stop requested, finishing current contest before shutdown")
	}
}

func (c *Controller) stopRequested() bool {
	return atomic.LoadInt32(&c.stopping) == 1
}

// Run crawls every contest in order and returns the campaign summary. The
// aggregated dataset is checkpointed every few contests and once more at the
// end, so even an interrupted campaign leaves a consistent dataset behind.
func (c *Controller) Run(ctx context.Context, contests []models.Contest) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: c.runID}
	aggregatePath := filepath.Join(c.cfg.Output.BaseDirectory, AggregateFilename)

	// A resumed campaign extends the aggregate from the last run.
	if err := c.agg.LoadCheckpoint(aggregatePath); err != nil {
		return summary, err
	}

	c.logger.InfoWithFields("campaign started", map[string]interface{}{
		"run_id":   c.runID,
		"contests": len(contests),
	})

	sinceCheckpoint := 0
	for _, contest := range contests {
		if c.stopRequested() || ctx.Err() != nil {
			summary.Interrupted = true
			break
		}

		if c.shouldSkip(contest) {
			summary.Skipped++
			c.foldExistingRows(contest)
			continue
		}

		result, err := c.crawlWithBudget(ctx, contest)
		if err != nil {
			if ctx.Err() != nil {
				summary.Interrupted = true
				break
			}
			summary.Failed++
			if lerr := c.failures.Record(contest.ID, err.Error()); lerr != nil {
				c.logger.WithError(lerr).Error("recording contest failure")
			}
			c.logger.WithField("contest_id", contest.ID).WithError(err).Error("contest failed, moving on")
			continue
		}

		summary.Completed++
		c.agg.Add(result.Rows)
		if err := c.progress.MarkCompleted(contest.ID); err != nil {
			c.logger.WithError(err).Error("recording contest completion")
		}

		sinceCheckpoint++
		if sinceCheckpoint >= c.cfg.Output.CheckpointEvery {
			if err := c.agg.Checkpoint(aggregatePath); err != nil {
				c.logger.WithError(err).Error("checkpointing aggregated dataset")
			}
			sinceCheckpoint = 0
		}
	}

	if err := c.agg.Checkpoint(aggregatePath); err != nil {
		return summary, fmt.Errorf("final aggregate checkpoint: %w", err)
	}

	summary.Rows = c.agg.Len()
	summary.Duration = time.Since(start)

	c.logger.InfoWithFields("campaign finished", map[string]interface{}{
		"run_id":      summary.RunID,
		"completed":   summary.Completed,
		"skipped":     summary.Skipped,
		"failed":      summary.Failed,
		"rows":        summary.Rows,
		"interrupted":  summary.Interrupted,
		"success_rate": fmt.Sprintf("%.1f%%", summary.SuccessRate()*100),
		"duration":     summary.Duration.String(),
	})
	return summary, nil
}

// shouldSkip reports whether a contest is already done: recorded in the
// progress ledger, or its per-contest CSV from an earlier run is valid.
func (c *Controller) shouldSkip(contest models.Contest) bool {
	if c.progress.Completed(contest.ID) {
		c.logger.WithField("contest_id", contest.ID).Debug("already completed, skipping")
		return true
	}

	if dataset.IsValid(c.unitCSVPath(contest.ID)) {
		c.logger.WithField("contest_id", contest.ID).Info("valid dataset from earlier run, skipping")
		if err := c.progress.MarkCompleted(contest.ID); err != nil {
			c.logger.WithError(err).Error("recording contest completion")
		}
		return true
	}
	return false
}

// foldExistingRows reloads a skipped contest's per-contest CSV into the
// aggregate. A contest finished right before a crash may be absent from the
// last aggregate checkpoint; without this the resumed campaign would drop its
// rows. Design-id dedup makes the fold idempotent when the checkpoint already
// carries them.
func (c *Controller) foldExistingRows(contest models.Contest) {
	rows, err := dataset.ReadUnitCSV(c.unitCSVPath(contest.ID))
	if err != nil {
		c.logger.WithField("contest_id", contest.ID).WithError(err).Warn("could not reload skipped contest rows")
		return
	}
	c.agg.Add(rows)
}

func (c *Controller) unitCSVPath(contestID string) string {
	return filepath.Join(c.cfg.Output.BaseDirectory, contestID, "Submission_Contestant_"+contestID+".csv")
}

// crawlWithBudget retries a whole contest under the unit retry budget.
// Transient failures burn budget; a fatal failure ends the contest on its
// first occurrence.
func (c *Controller) crawlWithBudget(ctx context.Context, contest models.Contest) (*scraper.Result, error) {
	unit := c.cfg.Retry.Unit
	policy := retry.NewPolicy(unit.MaxAttempts, unit.BaseDelay, unit.MaxDelay, unit.MaxJitter)
	policy.ResetCooldownMax = c.cfg.Retry.ResetCooldownMax
	policy.Logger = c.logger
	policy.RetryIf = func(err error) bool {
		return !c.stopRequested() && retry.DefaultRetryIf(err)
	}

	result, err := retry.DoWithResult(func() (*scraper.Result, error) {
		return c.scraper.CrawlContest(ctx, contest)
	}, policy.WithContext(ctx))
	if err != nil {
		if errs.IsFatal(err) || ctx.Err() != nil {
			return nil, err
		}
		return nil, errs.UnitExhausted("contest %s: %v", contest.ID, err)
	}
	return result, nil
}
