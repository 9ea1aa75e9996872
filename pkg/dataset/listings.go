package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/models"
)

// ListingColumns is the schema of the discovered contest list
var ListingColumns = []string{
	"ContestID", "ContestURL", "ContestName", "Reward", "Blind", "Tags",
	"CurrentIdeas", "CrawlTime",
}

// WriteListings writes discovered contest summaries to path, atomically,
// ordered by contest id descending so the newest contests lead the list
func WriteListings(path string, listings []models.ContestListing) error {
	ordered := make([]models.ContestListing, len(listings))
	copy(ordered, listings)
	sort.SliceStable(ordered, func(i, j int) bool {
		return numeric(ordered[i].ContestID) > numeric(ordered[j].ContestID)
	})

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating listing directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp listing file: %w", err)
	}
	tmpName := tmp.Name()

	writer := csv.NewWriter(tmp)
	writeErr := writer.Write(ListingColumns)
	for _, l := range ordered {
		if writeErr != nil {
			break
		}
		writeErr = writer.Write([]string{
			l.ContestID,
			l.ContestURL,
			l.ContestName,
			l.Reward,
			strconv.Itoa(l.Blind),
			l.Tags,
			strconv.Itoa(l.CurrentIdeas),
			l.CrawlTime.Format(time.RFC3339),
		})
	}
	if writeErr == nil {
		writer.Flush()
		writeErr = writer.Error()
	}
	if writeErr == nil {
		writeErr = tmp.Sync()
	}

	if closeErr := tmp.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing listings %s: %w", path, writeErr)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming listings into place: %w", err)
	}
	return nil
}

// ReadContestList loads a contest list CSV produced by WriteListings, or a
// hand-made file with at least ContestID and ContestURL columns, into crawlable
// work units.
func ReadContestList(path string) ([]models.Contest, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening contest list %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading contest list header: %w", err)
	}

	idIdx, urlIdx, nameIdx := -1, -1, -1
	for i, col := range header {
		switch col {
		case "ContestID":
			idIdx = i
		case "ContestURL":
			urlIdx = i
		case "ContestName":
			nameIdx = i
		}
	}
	if idIdx < 0 || urlIdx < 0 {
		return nil, fmt.Errorf("contest list %s missing ContestID or ContestURL column", path)
	}

	var contests []models.Contest
	for {
		rec, err := reader.Read()
		if err != nil {
			break
		}
		if idIdx >= len(rec) || urlIdx >= len(rec) || rec[idIdx] == "" {
			continue
		}
		c := models.Contest{
			ID:     rec[idIdx],
			URL:    rec[urlIdx],
			Status: models.StatusPending,
		}
		if nameIdx >= 0 && nameIdx < len(rec) {
			c.Name = rec[nameIdx]
		}
		contests = append(contests, c)
	}
	return contests, nil
}
