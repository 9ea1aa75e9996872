package campaign

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/config"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/dataset"
	errs "github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/errors"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/logger"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/models"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/scraper"
)

type fakeCrawler struct {
	mu      sync.Mutex
	calls   map[string]int
	results map[string]func(attempt int) (*scraper.Result, error)
	onCrawl func(contestID string)
}

func newFakeCrawler() *fakeCrawler {
	return &fakeCrawler{
		calls:   make(map[string]int),
		results: make(map[string]func(int) (*scraper.Result, error)),
	}
}

func (f *fakeCrawler) CrawlContest(ctx context.Context, contest models.Contest) (*scraper.Result, error) {
	f.mu.Lock()
	f.calls[contest.ID]++
	attempt := f.calls[contest.ID]
	fn := f.results[contest.ID]
	onCrawl := f.onCrawl
	f.mu.Unlock()

	if onCrawl != nil {
		onCrawl(contest.ID)
	}
	if fn == nil {
		return &scraper.Result{}, nil
	}
	return fn(attempt)
}

func (f *fakeCrawler) callCount(contestID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[contestID]
}

func rowsFor(contestID string, designIDs ...string) []models.Row {
	rows := make([]models.Row, 0, len(designIDs))
	for _, d := range designIDs {
		rows = append(rows, models.Row{
			ContestID:  contestID,
			EntryID:    d,
			DesignID:   d,
			Brief:      models.UnavailableBrief(),
			Profile:    models.UnavailableProfile(),
			Rating:     models.NotAvailable,
			ImageURL:   models.NotAvailable,
			UserID:     "u",
			UserName:   "n",
			UserURL:    "u",
			CreateTime: models.NotAvailable,
		})
	}
	return rows
}

func campaignConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Output.BaseDirectory = dir
	cfg.Output.CheckpointEvery = 2
	cfg.Retry.Unit = config.PolicyConfig{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
	cfg.Retry.ResetCooldownMax = 0
	return cfg
}

func newController(t *testing.T, crawler ContestCrawler, cfg *config.Config) *Controller {
	t.Helper()
	c, err := New(crawler, cfg, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestRunAggregatesAndCheckpoints(t *testing.T) {
	dir := t.TempDir()
	crawler := newFakeCrawler()
	crawler.results["100"] = func(int) (*scraper.Result, error) {
		return &scraper.Result{Rows: rowsFor("100", "901", "902")}, nil
	}
	crawler.results["200"] = func(int) (*scraper.Result, error) {
		return &scraper.Result{Rows: rowsFor("200", "902", "903")}, nil
	}

	c := newController(t, crawler, campaignConfig(dir))
	summary, err := c.Run(context.Background(), []models.Contest{
		{ID: "100"}, {ID: "200"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Completed)
	assert.Equal(t, 0, summary.Failed)
	assert.Equal(t, 3, summary.Rows, "design 902 deduplicated across contests")
	assert.NotEmpty(t, summary.RunID)
	assert.True(t, dataset.IsValid(filepath.Join(dir, AggregateFilename)))
}

func TestRunSkipsCompletedContests(t *testing.T) {
	dir := t.TempDir()
	cfg := campaignConfig(dir)

	first := newFakeCrawler()
	first.results["100"] = func(int) (*scraper.Result, error) {
		return &scraper.Result{Rows: rowsFor("100", "901")}, nil
	}
	c1 := newController(t, first, cfg)
	_, err := c1.Run(context.Background(), []models.Contest{{ID: "100"}})
	require.NoError(t, err)

	second := newFakeCrawler()
	c2 := newController(t, second, cfg)
	summary, err := c2.Run(context.Background(), []models.Contest{{ID: "100"}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, second.callCount("100"), "completed contest must not be recrawled")
}

func TestRunSkipsContestWithValidDataset(t *testing.T) {
	dir := t.TempDir()
	cfg := campaignConfig(dir)

	// A valid per-contest CSV from a previous run, but no ledger entry.
	csvPath := filepath.Join(dir, "100", "Submission_Contestant_100.csv")
	require.NoError(t, dataset.WriteUnitCSV(csvPath, rowsFor("100", "901")))

	crawler := newFakeCrawler()
	c := newController(t, crawler, cfg)
	summary, err := c.Run(context.Background(), []models.Contest{{ID: "100"}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, crawler.callCount("100"))
}

func TestRunFoldsSkippedContestRowsIntoAggregate(t *testing.T) {
	dir := t.TempDir()
	cfg := campaignConfig(dir)

	// Contest 100 finished right before a crash: its per-contest CSV is on
	// disk but the aggregate checkpoint never saw it.
	csvPath := filepath.Join(dir, "100", "Submission_Contestant_100.csv")
	require.NoError(t, dataset.WriteUnitCSV(csvPath, rowsFor("100", "901")))

	crawler := newFakeCrawler()
	crawler.results["200"] = func(int) (*scraper.Result, error) {
		return &scraper.Result{Rows: rowsFor("200", "902")}, nil
	}

	c := newController(t, crawler, cfg)
	summary, err := c.Run(context.Background(), []models.Contest{{ID: "100"}, {ID: "200"}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, crawler.callCount("100"))
	assert.Equal(t, 2, summary.Rows, "skipped contest keeps its rows in the final dataset")

	resumed := dataset.NewAggregate()
	require.NoError(t, resumed.LoadCheckpoint(filepath.Join(dir, AggregateFilename)))
	assert.Equal(t, 2, resumed.Len(), "final checkpoint matches an uninterrupted run")
}

func TestRunRetriesTransientUnitFailures(t *testing.T) {
	dir := t.TempDir()
	crawler := newFakeCrawler()
	crawler.results["100"] = func(attempt int) (*scraper.Result, error) {
		if attempt < 3 {
			return nil, errs.Transient(503, "catalog flaky")
		}
		return &scraper.Result{Rows: rowsFor("100", "901")}, nil
	}

	c := newController(t, crawler, campaignConfig(dir))
	summary, err := c.Run(context.Background(), []models.Contest{{ID: "100"}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Completed)
	assert.Equal(t, 3, crawler.callCount("100"))
}

func TestRunFatalFailureGetsSingleAttempt(t *testing.T) {
	dir := t.TempDir()
	crawler := newFakeCrawler()
	crawler.results["100"] = func(int) (*scraper.Result, error) {
		return nil, errs.Fatal(404, "contest removed")
	}

	c := newController(t, crawler, campaignConfig(dir))
	summary, err := c.Run(context.Background(), []models.Contest{{ID: "100"}})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, crawler.callCount("100"), "fatal errors must not burn retry budget")

	data, err := os.ReadFile(filepath.Join(dir, "failed_contests.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "100")
}

func TestRunExhaustedBudgetRecordsFailure(t *testing.T) {
	dir := t.TempDir()
	crawler := newFakeCrawler()
	crawler.results["100"] = func(int) (*scraper.Result, error) {
		return nil, errs.Transient(0, "never recovers")
	}
	crawler.results["200"] = func(int) (*scraper.Result, error) {
		return &scraper.Result{Rows: rowsFor("200", "902")}, nil
	}

	c := newController(t, crawler, campaignConfig(dir))
	summary, err := c.Run(context.Background(), []models.Contest{{ID: "100"}, {ID: "200"}})
	require.NoError(t, err)

	assert.Equal(t, 3, crawler.callCount("100"), "budget of 3 attempts")
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.Completed, "campaign continues past a failed contest")
}

func TestRunExtendsAggregateAcrossRuns(t *testing.T) {
	dir := t.TempDir()
	cfg := campaignConfig(dir)

	first := newFakeCrawler()
	first.results["100"] = func(int) (*scraper.Result, error) {
		return &scraper.Result{Rows: rowsFor("100", "901")}, nil
	}
	c1 := newController(t, first, cfg)
	_, err := c1.Run(context.Background(), []models.Contest{{ID: "100"}})
	require.NoError(t, err)

	second := newFakeCrawler()
	second.results["200"] = func(int) (*scraper.Result, error) {
		return &scraper.Result{Rows: rowsFor("200", "902")}, nil
	}
	c2 := newController(t, second, cfg)
	summary, err := c2.Run(context.Background(), []models.Contest{{ID: "100"}, {ID: "200"}})
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Rows, "second run keeps the first run's rows")
}

func TestRunStopsAfterCurrentContestOnRequest(t *testing.T) {
	dir := t.TempDir()
	crawler := newFakeCrawler()

	var c *Controller
	crawler.onCrawl = func(contestID string) {
		if contestID == "100" {
			c.RequestStop()
		}
	}
	crawler.results["100"] = func(int) (*scraper.Result, error) {
		return &scraper.Result{Rows: rowsFor("100", "901")}, nil
	}

	c = newController(t, crawler, campaignConfig(dir))
	summary, err := c.Run(context.Background(), []models.Contest{{ID: "100"}, {ID: "200"}})
	require.NoError(t, err)

	assert.True(t, summary.Interrupted)
	assert.Equal(t, 1, summary.Completed, "in-flight contest finishes")
	assert.Equal(t, 0, crawler.callCount("200"), "later contests are not started")
	assert.True(t, dataset.IsValid(filepath.Join(dir, AggregateFilename)),
		"interrupted campaign still writes the final checkpoint")
}
