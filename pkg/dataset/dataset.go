// Package dataset writes the crawl output CSVs: one file per contest and a
// deduplicated aggregate across the whole campaign. Files appear atomically
// so a crash mid-write never leaves a torn dataset behind.
package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/models"
)

// Columns is the output schema, in order. Every writer in this package emits
// exactly these headers.
var Columns = []string{
	"ContestID", "PriceUSD", "PackageLevel", "Guarantee", "Blind", "Fasttrack",
	"Industry", "OtherNotes", "Inspiration", "Reference", "CreateTime",
	"DesignID", "Entry", "Rating", "Winner", "Image URL", "UserID", "UserName",
	"UserURL", "AggregateRating", "AggregateReviews", "StartDate",
	"ContestsWon", "RunnerUp", "OnetoOne", "RepeatClients", "UserTag",
	"Certifications", "Languages", "ClassicModern", "MatureYouthful",
	"FeminineMasculine", "PlayfulSophisticated", "EconomicalLuxurious",
	"GeometricOrganic", "AbstractLiteral", "Status",
}

func record(r models.Row) []string {
	return []string{
		r.ContestID,
		r.Brief.PriceUSD,
		r.Brief.PackageLevel,
		strconv.Itoa(r.Brief.Guarantee),
		strconv.Itoa(r.Brief.Blind),
		strconv.Itoa(r.Brief.FastTrack),
		r.Brief.Industry,
		r.Brief.OtherNotes,
		strconv.Itoa(r.Brief.InspirationCount),
		strconv.Itoa(r.Brief.ReferenceCount),
		r.CreateTime,
		r.DesignID,
		r.EntryID,
		r.Rating,
		strconv.Itoa(r.Winner),
		r.ImageURL,
		r.UserID,
		r.UserName,
		r.UserURL,
		r.Profile.AggregateRating,
		r.Profile.AggregateReviews,
		r.Profile.StartDate,
		r.Profile.ContestsWon,
		r.Profile.RunnerUp,
		r.Profile.OneToOne,
		r.Profile.RepeatClients,
		r.Profile.UserTag,
		r.Profile.Certifications,
		r.Profile.Languages,
		r.Brief.Styles.ClassicModern,
		r.Brief.Styles.MatureYouthful,
		r.Brief.Styles.FeminineMasculine,
		r.Brief.Styles.PlayfulSophisticated,
		r.Brief.Styles.EconomicalLuxurious,
		r.Brief.Styles.GeometricOrganic,
		r.Brief.Styles.AbstractLiteral,
		r.Status,
	}
}

// WriteUnitCSV writes one contest's rows to path, deduplicated by entry id
// with the first occurrence winning. A contest with no rows produces no file
// at all; zero-row CSVs are noise for downstream tooling.
func WriteUnitCSV(path string, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(rows))
	deduped := make([]models.Row, 0, len(rows))
	for _, r := range rows {
		if _, ok := seen[r.EntryID]; ok {
			continue
		}
		seen[r.EntryID] = struct{}{}
		deduped = append(deduped, r)
	}

	return writeCSVAtomic(path, deduped)
}

// Aggregate accumulates rows across contests, deduplicated by design id with
// the first occurrence winning. Safe for concurrent Add.
type Aggregate struct {
	mu   sync.Mutex
	seen map[string]struct{}
	rows []models.Row
}

// NewAggregate creates an empty aggregate
func NewAggregate() *Aggregate {
	return &Aggregate{seen: make(map[string]struct{})}
}

// Add folds rows into the aggregate. Rows whose design id was already seen
// are dropped; rows with no design id are kept, they cannot collide.
func (a *Aggregate) Add(rows []models.Row) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, r := range rows {
		if r.DesignID != "" && r.DesignID != models.NotAvailable {
			if _, ok := a.seen[r.DesignID]; ok {
				continue
			}
			a.seen[r.DesignID] = struct{}{}
		}
		a.rows = append(a.rows, r)
	}
}

// Len returns the number of accumulated rows
func (a *Aggregate) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.rows)
}

// Checkpoint writes the current aggregate to path, sorted by contest id
// descending then entry id descending. The write is atomic, so the previous
// checkpoint stays intact until the new one is complete.
func (a *Aggregate) Checkpoint(path string) error {
	a.mu.Lock()
	rows := make([]models.Row, len(a.rows))
	copy(rows, a.rows)
	a.mu.Unlock()

	sort.SliceStable(rows, func(i, j int) bool {
		ci, cj := numeric(rows[i].ContestID), numeric(rows[j].ContestID)
		if ci != cj {
			return ci > cj
		}
		return numeric(rows[i].EntryID) > numeric(rows[j].EntryID)
	})

	return writeCSVAtomic(path, rows)
}

// numeric parses an id for ordering; unparseable ids sort last
func numeric(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// LoadCheckpoint reads a previously written aggregate back into memory so a
// resumed campaign extends it instead of starting over. A missing file is
// fine; the campaign simply starts empty.
func (a *Aggregate) LoadCheckpoint(path string) error {
	rows, err := readRows(path)
	if err != nil {
		return err
	}
	a.Add(rows)
	return nil
}

// ReadUnitCSV loads a per-contest CSV written by WriteUnitCSV back into rows.
// A missing file yields no rows; the campaign treats that as a contest with
// nothing to fold back.
func ReadUnitCSV(path string) ([]models.Row, error) {
	return readRows(path)
}

func readRows(path string) ([]models.Row, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening dataset %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("reading dataset header: %w", err)
	}
	if len(header) != len(Columns) {
		return nil, fmt.Errorf("dataset %s has %d columns, want %d", path, len(header), len(Columns))
	}

	var rows []models.Row
	for {
		rec, err := reader.Read()
		if err != nil {
			break
		}
		if len(rec) != len(Columns) {
			continue
		}
		rows = append(rows, rowFromRecord(rec))
	}
	return rows, nil
}

func rowFromRecord(rec []string) models.Row {
	atoi := func(s string) int {
		n, _ := strconv.Atoi(s)
		return n
	}
	return models.Row{
		ContestID: rec[0],
		Brief: models.Brief{
			PriceUSD:         rec[1],
			PackageLevel:     rec[2],
			Guarantee:        atoi(rec[3]),
			Blind:            atoi(rec[4]),
			FastTrack:        atoi(rec[5]),
			Industry:         rec[6],
			OtherNotes:       rec[7],
			InspirationCount: atoi(rec[8]),
			ReferenceCount:   atoi(rec[9]),
			Styles: models.StyleScales{
				ClassicModern:        rec[29],
				MatureYouthful:       rec[30],
				FeminineMasculine:    rec[31],
				PlayfulSophisticated: rec[32],
				EconomicalLuxurious:  rec[33],
				GeometricOrganic:     rec[34],
				AbstractLiteral:      rec[35],
			},
		},
		CreateTime: rec[10],
		DesignID:   rec[11],
		EntryID:    rec[12],
		Rating:     rec[13],
		Winner:     atoi(rec[14]),
		ImageURL:   rec[15],
		UserID:     rec[16],
		UserName:   rec[17],
		UserURL:    rec[18],
		Profile: models.DesignerProfile{
			AggregateRating:  rec[19],
			AggregateReviews: rec[20],
			StartDate:        rec[21],
			ContestsWon:      rec[22],
			RunnerUp:         rec[23],
			OneToOne:         rec[24],
			RepeatClients:    rec[25],
			UserTag:          rec[26],
			Certifications:   rec[27],
			Languages:        rec[28],
		},
		Status: rec[36],
	}
}

// IsValid reports whether the CSV at path is a usable dataset: it exists, has
// the expected header and carries at least one row with a design id. Used to
// decide whether a contest can be skipped on resume.
func IsValid(path string) bool {
	file, err := os.Open(path)
	if err != nil {
		return false
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		return false
	}

	designIdx := -1
	for i, col := range header {
		if col == "DesignID" {
			designIdx = i
			break
		}
	}
	if designIdx < 0 || len(header) != len(Columns) {
		return false
	}

	for {
		rec, err := reader.Read()
		if err != nil {
			return false
		}
		if designIdx < len(rec) && rec[designIdx] != "" && rec[designIdx] != models.NotAvailable {
			return true
		}
	}
}

func writeCSVAtomic(path string, rows []models.Row) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating dataset directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return fmt.Errorf("creating temp dataset file: %w", err)
	}
	tmpName := tmp.Name()

	writer := csv.NewWriter(tmp)
	writeErr := writer.Write(Columns)
	for _, r := range rows {
		if writeErr != nil {
			break
		}
		writeErr = writer.Write(record(r))
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
		return fmt.Errorf("writing dataset %s: %w", path, writeErr)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming dataset into place: %w", err)
	}
	return nil
}
