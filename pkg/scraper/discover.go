package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/models"
)

// DiscoverContests walks the catalog listing starting at startURL and
// collects contest summaries until the last page. Duplicate contest ids
// across pages are dropped, the first sighting wins.
func (s *Scraper) DiscoverContests(ctx context.Context, startURL string) ([]models.ContestListing, error) {
	policy := s.policy(s.cfg.Retry.PageFetch)

	var listings []models.ContestListing
	seen := make(map[string]struct{})
	url := startURL
	page := 0

	for url != "" {
		if err := ctx.Err(); err != nil {
			return listings, err
		}
		page++

		html, err := s.client.FetchPage(ctx, url, policy)
		if err != nil {
			if page == 1 {
				return nil, fmt.Errorf("fetching first listing page: %w", err)
			}
			s.logger.WithField("page", page).WithError(err).Warn("listing page unavailable, stopping discovery")
			break
		}

		crawlTime := time.Now()
		found := 0
		for _, l := range s.parser.Listings(html, crawlTime) {
			if l.ContestID == "" {
				continue
			}
			if _, ok := seen[l.ContestID]; ok {
				continue
			}
			seen[l.ContestID] = struct{}{}
			listings = append(listings, l)
			found++
		}

		s.logger.InfoWithFields("listing page crawled", map[string]interface{}{
			"page":     page,
			"contests": found,
		})

		url = s.parser.NextListingURL(html)
	}

	return listings, nil
}
