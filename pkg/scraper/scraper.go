// Package scraper runs the crawl pipeline for a single contest: brief
// attributes and brief assets first, then every entry page fanned out over
// the page pool, each entry enriched with its designer profile and its
// full-resolution asset.
package scraper

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/internal/pagepool"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/catalog"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/config"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/dataset"
	errs "github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/errors"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/journal"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/logger"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/models"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/parser"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/profilecache"
	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/retry"
)

// Result summarizes one contest crawl
type Result struct {
	Rows        []models.Row
	TotalPages  int
	FailedPages int
	CSVPath     string
}

// Scraper crawls one contest at a time. Safe to reuse across contests; all
// per-contest state (journal, profile cache, page pool) is created fresh for
// each CrawlContest call.
type Scraper struct {
	client *catalog.Client
	parser parser.Parser
	cfg    *config.Config
	logger logger.Logger
}

// New creates a scraper
func New(client *catalog.Client, p parser.Parser, cfg *config.Config, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Scraper{client: client, parser: p, cfg: cfg, logger: log}
}

func (s *Scraper) policy(pc config.PolicyConfig) *retry.Policy {
	p := retry.NewPolicy(pc.MaxAttempts, pc.BaseDelay, pc.MaxDelay, pc.MaxJitter)
	p.ResetCooldownMax = s.cfg.Retry.ResetCooldownMax
	p.Logger = s.logger
	return p
}

// CrawlContest runs the full pipeline for one contest and writes its assets
// and CSV under the output directory. A failure to fetch the first entries
// page fails the whole contest; later pages that exhaust their retries are
// skipped and counted in the result instead.
func (s *Scraper) CrawlContest(ctx context.Context, contest models.Contest) (*Result, error) {
	log := s.logger.WithField("contest_id", contest.ID)

	dir := filepath.Join(s.cfg.Output.BaseDirectory, contest.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating contest directory: %w", err)
	}

	jnl, err := journal.Open(filepath.Join(dir, contest.ID+"_download_progress.txt"))
	if err != nil {
		return nil, err
	}
	defer jnl.Close()

	// The first page probe establishes reachability and the page count.
	// If this fails the contest is not crawlable right now.
	firstHTML, err := s.client.FetchPage(ctx, pageURL(contest.URL, 1), s.policy(s.cfg.Retry.PageFetch))
	if err != nil {
		return nil, fmt.Errorf("fetching first entries page: %w", err)
	}
	totalPages := s.parser.TotalPages(firstHTML)

	brief := s.fetchBrief(ctx, contest, dir, jnl)
	log.InfoWithFields("contest crawl started", map[string]interface{}{
		"pages":       totalPages,
		"inspiration": brief.InspirationCount,
		"reference":   brief.ReferenceCount,
	})

	profiles := profilecache.New(s.profileFetcher(ctx))

	// Pages can overlap when the listing reorders during a long crawl; the
	// set is shared across page workers so a repeated entry is skipped
	// before any enrichment fetches happen.
	seen := newEntrySet()

	tasks := make([]models.PageTask, 0, totalPages)
	for page := 1; page <= totalPages; page++ {
		tasks = append(tasks, models.PageTask{
			ContestID: contest.ID,
			Page:      page,
			URL:       pageURL(contest.URL, page),
		})
	}

	pool := pagepool.New(s.cfg.Pool.PageWorkers, func(ctx context.Context, task models.PageTask) ([]models.Row, error) {
		return s.processPage(ctx, contest, task, dir, brief, jnl, profiles, seen)
	}, s.logger)
	pageResults := pool.Run(ctx, tasks)

	result := &Result{TotalPages: totalPages}
	for _, pr := range pageResults {
		if pr.Err != nil {
			result.FailedPages++
			logger.LogPageFailure(contest.ID, pr.Page, pr.Err)
			continue
		}
		result.Rows = append(result.Rows, pr.Rows...)
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if result.FailedPages == totalPages {
		return result, errs.Transient(0, "all %d pages failed for contest %s", totalPages, contest.ID)
	}

	if len(result.Rows) > 0 {
		result.CSVPath = filepath.Join(dir, "Submission_Contestant_"+contest.ID+".csv")
		if err := dataset.WriteUnitCSV(result.CSVPath, result.Rows); err != nil {
			return result, err
		}
	} else {
		log.Warn("no rows collected, skipping CSV creation")
	}

	log.InfoWithFields("contest crawl finished", map[string]interface{}{
		"rows":         len(result.Rows),
		"failed_pages": result.FailedPages,
	})
	return result, nil
}

// fetchBrief retrieves and parses the brief page, then downloads its
// attachments. Brief problems degrade the contest rather than failing it:
// a missing brief yields placeholder attributes.
func (s *Scraper) fetchBrief(ctx context.Context, contest models.Contest, dir string, jnl *journal.Journal) models.Brief {
	briefURL := strings.Replace(contest.URL, "/entries", "/brief", 1)

	html, err := s.client.FetchPage(ctx, briefURL, s.policy(s.cfg.Retry.PageFetch))
	if err != nil {
		s.logger.WithField("contest_id", contest.ID).WithError(err).Warn("brief page unavailable, continuing with placeholders")
		return models.UnavailableBrief()
	}

	brief := s.parser.Brief(html)
	s.downloadBriefAssets(ctx, contest.ID, dir, brief, jnl)
	return brief
}

// downloadBriefAssets saves brief attachments under the RefImage subfolder.
// Filenames encode classification and position so the folder reads at a
// glance. A failed attachment is logged and skipped.
func (s *Scraper) downloadBriefAssets(ctx context.Context, contestID, dir string, brief models.Brief, jnl *journal.Journal) {
	if len(brief.Assets) == 0 {
		return
	}
	refDir := filepath.Join(dir, "RefImage")
	policy := s.policy(s.cfg.Retry.AssetDownload)

	for idx, asset := range brief.Assets {
		if jnl.Contains(asset.PublicID) {
			continue
		}

		var filename string
		if asset.IsReference {
			filename = fmt.Sprintf("Ref_%d_%s.png", idx+1, contestID)
		} else {
			filename = fmt.Sprintf("Inspiration_%d_%s.png", idx+1, contestID)
		}

		url := fmt.Sprintf("%s/contests/%s/brief/download/%s",
			strings.TrimRight(s.cfg.Site.BaseURL, "/"), contestID, asset.PublicID)

		err := s.client.DownloadAsset(ctx, url, filepath.Join(refDir, filename), policy)
		logger.LogAssetDownload(contestID, asset.PublicID, err == nil, err)
		if err != nil {
			continue
		}
		if err := jnl.Record(asset.PublicID); err != nil {
			s.logger.WithError(err).Error("recording brief asset in journal")
		}
	}
}

// processPage fetches one entries page and enriches every entry on it
func (s *Scraper) processPage(ctx context.Context, contest models.Contest, task models.PageTask, dir string, brief models.Brief, jnl *journal.Journal, profiles *profilecache.Cache, seen *entrySet) ([]models.Row, error) {
	html, err := s.client.FetchPage(ctx, task.URL, s.policy(s.cfg.Retry.PageFetch))
	if err != nil {
		return nil, err
	}

	entries := s.parser.Entries(html)
	rows := make([]models.Row, 0, len(entries))
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return rows, err
		}
		if !seen.add(entry.EntryID) {
			continue
		}

		row, keep := s.processEntry(ctx, contest, entry, dir, brief, jnl, profiles)
		if keep {
			rows = append(rows, row)
		}

		if err := s.recordPause(ctx); err != nil {
			return rows, err
		}
	}
	return rows, nil
}

// processEntry enriches one entry: designer profile from the cache, asset
// URL and creation time from the entry page, then the asset download itself.
// Enrichment failures degrade fields to N/A; only the assetless-row policy
// can drop the record entirely.
func (s *Scraper) processEntry(ctx context.Context, contest models.Contest, entry models.RawEntry, dir string, brief models.Brief, jnl *journal.Journal, profiles *profilecache.Cache) (models.Row, bool) {
	profile := profiles.Get(entry.UserID, entry.UserURL)

	imageURL, createTime := "", models.NotAvailable
	if entry.EntryURL != "" {
		html, err := s.client.FetchPage(ctx, entry.EntryURL, s.policy(s.cfg.Retry.AssetResolve))
		if err != nil {
			s.logger.WithFields(map[string]interface{}{
				"contest_id": contest.ID,
				"entry_id":   entry.EntryID,
			}).WithError(err).Warn("entry page unavailable, asset unresolved")
		} else {
			imageURL, createTime = s.parser.EntryAsset(html)
		}
	}

	if imageURL == "" {
		if s.cfg.Output.DropAssetlessRows {
			return models.Row{}, false
		}
		imageURL = models.NotAvailable
	} else {
		s.downloadEntryAsset(ctx, contest.ID, entry, imageURL, dir, jnl)
	}

	return models.Row{
		ContestID:  contest.ID,
		Brief:      brief,
		CreateTime: createTime,
		DesignID:   entry.DesignID,
		EntryID:    entry.EntryID,
		Rating:     entry.Rating,
		Winner:     entry.Winner,
		ImageURL:   imageURL,
		UserID:     entry.UserID,
		UserName:   entry.UserName,
		UserURL:    entry.UserURL,
		Profile:    profile,
		Status:     entry.Status,
	}, true
}

// downloadEntryAsset saves one entry's asset unless the journal already has
// it. The journal entry is written only after the file is fully on disk, so
// a crash between the two re-downloads rather than losing the asset.
func (s *Scraper) downloadEntryAsset(ctx context.Context, contestID string, entry models.RawEntry, imageURL, dir string, jnl *journal.Journal) {
	assetID := fmt.Sprintf("%s_%s_entry", entry.EntryID, entry.UserID)
	if jnl.Contains(assetID) {
		return
	}

	dest := filepath.Join(dir, assetID+".png")
	err := s.client.DownloadAsset(ctx, imageURL, dest, s.policy(s.cfg.Retry.AssetDownload))
	logger.LogAssetDownload(contestID, assetID, err == nil, err)
	if err != nil {
		return
	}
	if err := jnl.Record(assetID); err != nil {
		s.logger.WithError(err).Error("recording entry asset in journal")
	}
}

// profileFetcher adapts the executor and parser into the profile cache's
// fetch callback
func (s *Scraper) profileFetcher(ctx context.Context) profilecache.Fetcher {
	return func(userID, userURL string) (models.DesignerProfile, error) {
		if userURL == "" || userURL == models.NotAvailable {
			return models.UnavailableProfile(), nil
		}
		html, err := s.client.FetchPage(ctx, userURL, s.policy(s.cfg.Retry.ProfileFetch))
		if err != nil {
			return models.DesignerProfile{}, err
		}
		return s.parser.Profile(html), nil
	}
}

// recordPause sleeps a random interval between records to keep the request
// pattern irregular
func (s *Scraper) recordPause(ctx context.Context) error {
	min := s.cfg.Pool.RecordPauseMin
	max := s.cfg.Pool.RecordPauseMax
	if max <= 0 || max < min {
		return nil
	}
	pause := min
	if span := max - min; span > 0 {
		pause += time.Duration(rand.Int63n(int64(span)))
	}
	return retry.Wait(ctx, pause)
}

// entrySet tracks entry ids already claimed in this contest run, shared
// across page workers. First claimer wins.
type entrySet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func newEntrySet() *entrySet {
	return &entrySet{ids: make(map[string]struct{})}
}

// add claims id, reporting whether this caller was first
func (e *entrySet) add(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.ids[id]; ok {
		return false
	}
	e.ids[id] = struct{}{}
	return true
}

// pageURL appends the page selector, respecting URLs that already carry a
// query string
func pageURL(base string, page int) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%spage=%d", base, sep, page)
}
