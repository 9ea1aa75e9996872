package models

import "time"

// NotAvailable is the placeholder for fields that could not be resolved.
// Partial data is preferred over record loss, so degraded rows carry it.
const NotAvailable = "N/A"

// ContestStatus tracks a contest through the campaign state machine
type ContestStatus string

const (
	StatusPending    ContestStatus = "pending"
	StatusSkipped    ContestStatus = "skipped"
	StatusInProgress ContestStatus = "in_progress"
	StatusCompleted  ContestStatus = "completed"
	StatusFailed     ContestStatus = "failed"
)

// Contest is one independently crawlable work unit
type Contest struct {
	ID     string
	URL    string
	Name   string
	Status ContestStatus
}

// ContestListing is one row of the discovered contest list
type ContestListing struct {
	ContestID    string
	ContestURL   string
	ContestName  string
	Reward       string
	Blind        int
	Tags         string
	CurrentIdeas int
	CrawlTime    time.Time
}

// PageTask is one page of one contest, consumed exactly once by the pool
type PageTask struct {
	ContestID string
	Page      int
	URL       string
}

// RawEntry is one entry as parsed from a listing page, before enrichment
type RawEntry struct {
	EntryID    string
	DesignID   string
	UserID     string
	UserName   string
	UserURL    string
	EntryURL   string
	Rating     string
	Winner     int
	Status     string
}

// DesignerProfile is the attribute bag fetched from a designer profile page.
// Cached per contest; fetched at most once per designer per run.
type DesignerProfile struct {
	AggregateRating  string
	AggregateReviews string
	StartDate        string
	ContestsWon      string
	RunnerUp         string
	OneToOne         string
	RepeatClients    string
	UserTag          string
	Certifications   string
	Languages        string
}

// UnavailableProfile returns the placeholder profile used when a designer
// page could not be fetched. The record survives with degraded fields.
func UnavailableProfile() DesignerProfile {
	return DesignerProfile{
		AggregateRating:  NotAvailable,
		AggregateReviews: NotAvailable,
		StartDate:        NotAvailable,
		ContestsWon:      NotAvailable,
		RunnerUp:         NotAvailable,
		OneToOne:         NotAvailable,
		RepeatClients:    NotAvailable,
		UserTag:          NotAvailable,
		Certifications:   NotAvailable,
		Languages:        NotAvailable,
	}
}

// StyleScales are the seven design style sliders declared in a brief
type StyleScales struct {
	ClassicModern        string
	MatureYouthful       string
	FeminineMasculine    string
	PlayfulSophisticated string
	EconomicalLuxurious  string
	GeometricOrganic     string
	AbstractLiteral      string
}

// UnknownStyles returns style scales with every slider unresolved
func UnknownStyles() StyleScales {
	return StyleScales{
		ClassicModern:        NotAvailable,
		MatureYouthful:       NotAvailable,
		FeminineMasculine:    NotAvailable,
		PlayfulSophisticated: NotAvailable,
		EconomicalLuxurious:  NotAvailable,
		GeometricOrganic:     NotAvailable,
		AbstractLiteral:      NotAvailable,
	}
}

// BriefAsset is one downloadable attachment of a contest brief. Exactly one
// attachment class is flagged reference; all others default to inspiration.
type BriefAsset struct {
	PublicID    string
	IsReference bool
}

// Brief holds the contest-level attributes extracted from the brief page
type Brief struct {
	PriceUSD         string
	PackageLevel     string
	Guarantee        int
	FastTrack        int
	Industry         string
	Blind            int
	OtherNotes       string
	InspirationCount int
	ReferenceCount   int
	Styles           StyleScales
	Assets           []BriefAsset
}

// UnavailableBrief returns the placeholder brief used when the brief page
// yields no data
func UnavailableBrief() Brief {
	return Brief{
		PriceUSD:     NotAvailable,
		PackageLevel: NotAvailable,
		Industry:     NotAvailable,
		OtherNotes:   NotAvailable,
		Styles:       UnknownStyles(),
	}
}

// Row is one flat output record: entry attributes, designer profile
// attributes and contest-level brief attributes combined
type Row struct {
	ContestID  string
	Brief      Brief
	CreateTime string
	DesignID   string
	EntryID    string
	Rating     string
	Winner     int
	ImageURL   string
	UserID     string
	UserName   string
	UserURL    string
	Profile    DesignerProfile
	Status     string
}
