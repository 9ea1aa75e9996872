package parser

import (
	"time"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/models"
)

// Parser turns raw page markup into typed records. The crawl core depends
// only on this interface; markup structure, selectors and embedded-data
// scraping live entirely behind it, swappable per target site.
type Parser interface {
	// TotalPages extracts the declared page count from a listing page.
	// Returns 1 when no pagination marker is present: absence is the
	// single-page case, not an error.
	TotalPages(html string) int

	// Entries extracts the submission entries from one listing page
	Entries(html string) []models.RawEntry

	// Brief extracts contest-level attributes and the brief's
	// downloadable assets from the brief page
	Brief(html string) models.Brief

	// Profile extracts designer profile attributes. Absent fields come
	// back as the N/A placeholder, never as an error.
	Profile(html string) models.DesignerProfile

	// EntryAsset resolves the true downloadable asset URL and creation
	// time from an entry page. An empty URL means the page carried none.
	EntryAsset(html string) (imageURL, createTime string)

	// Listings extracts contest summaries from a catalog listing page
	Listings(html string, crawlTime time.Time) []models.ContestListing

	// NextListingURL extracts the next catalog listing page address, or
	// empty when the last page is reached
	NextListingURL(html string) string
}
