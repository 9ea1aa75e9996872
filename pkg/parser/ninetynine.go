package parser

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/models"
)

var (
	totalPagesRe   = regexp.MustCompile(`of (\d+)`)
	contestIDRe    = regexp.MustCompile(`contests/[^/]+-(\d+)`)
	designCountRe  = regexp.MustCompile(`(\d+) designs`)
	industryRe     = regexp.MustCompile(`industry&quot;:\{&quot;value&quot;:&quot;([a-zA-Z]+)&quot;`)
	notesRe        = regexp.MustCompile(`notes&quot;:\{&quot;value&quot;:&quot;(.*?)&quot;`)
	stylesRe       = regexp.MustCompile(`&quot;(classicModern|matureYouthful|feminineMasculine|playfulSophisticated|economicalLuxurious|geometricOrganic|abstractLiteral)&quot;:(-?\d)`)
	publicIDRe     = regexp.MustCompile(`&quot;publicId&quot;:&quot;([a-zA-Z0-9]+)&quot;`)
	referenceRe    = regexp.MustCompile(`References&quot;,&quot;elements&quot;:\{&quot;attachments&quot;:\{&quot;value&quot;:\[\{&quot;publicId&quot;:&quot;([a-zA-Z0-9]+)&quot;`)
	timeCreatedRe  = regexp.MustCompile(`"timeCreatedString":"([^"]+)"`)
	guaranteeText  = "The client has guaranteed to award the prize."
	fastTrackText  = "Following the open round, the client will select a winning design. There is no refinement stage."
)

// NinetyNine parses 99designs-style contest markup
type NinetyNine struct {
	baseURL string
}

// NewNinetyNine creates the default parser for 99designs-style markup.
// baseURL absolutizes the relative hrefs the site emits.
func NewNinetyNine(baseURL string) *NinetyNine {
	return &NinetyNine{baseURL: strings.TrimRight(baseURL, "/")}
}

func (p *NinetyNine) document(html string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// An unparseable body behaves like an empty page; callers treat
		// missing data as DataMissing, not as a failure.
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	return doc
}

func (p *NinetyNine) absolute(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	return p.baseURL + href
}

// TotalPages extracts the declared page count from the pagination summary
func (p *NinetyNine) TotalPages(html string) int {
	doc := p.document(html)

	summary := doc.Find("span.pagination__summary").First()
	if summary.Length() == 0 {
		return 1
	}
	m := totalPagesRe.FindStringSubmatch(strings.TrimSpace(summary.Text()))
	if m == nil {
		return 1
	}
	total, err := strconv.Atoi(m[1])
	if err != nil || total < 1 {
		return 1
	}
	return total
}

// Entries extracts the submission entries from one listing page
func (p *NinetyNine) Entries(html string) []models.RawEntry {
	doc := p.document(html)

	var entries []models.RawEntry
	doc.Find("div[id^='entry-']").Each(func(_ int, sel *goquery.Selection) {
		id, _ := sel.Attr("id")
		parts := strings.SplitN(id, "-", 2)
		if len(parts) != 2 || parts[1] == "" {
			return
		}

		entry := models.RawEntry{
			EntryID:  parts[1],
			DesignID: sel.AttrOr("data-design-id", ""),
			UserID:   sel.AttrOr("data-user-id", ""),
			UserName: models.NotAvailable,
			UserURL:  models.NotAvailable,
			Rating:   models.NotAvailable,
		}

		if designer := sel.Find("a.entry-owner__designer-name-link").First(); designer.Length() > 0 {
			entry.UserName = strings.TrimSpace(designer.Text())
			if href, ok := designer.Attr("href"); ok {
				entry.UserURL = p.absolute(href)
			}
		}

		if link := sel.Find("a.entry__image__inner").First(); link.Length() > 0 {
			if href, ok := link.Attr("href"); ok {
				entry.EntryURL = p.absolute(href)
			}
		}

		if rating := sel.Find("input[checked='checked']").First(); rating.Length() > 0 {
			if v, ok := rating.Attr("value"); ok {
				entry.Rating = v
			}
		}

		if sel.Find("div[data-entry-status='winner']").Length() > 0 {
			entry.Winner = 1
		}

		sel.Find("div.entry__image__status-overlay div.entry-status-overlay").EachWithBreak(func(_ int, overlay *goquery.Selection) bool {
			if _, hidden := overlay.Attr("data-hidden"); hidden {
				return true
			}
			if title := overlay.Find("span.entry-status-overlay__title").First(); title.Length() > 0 {
				entry.Status = strings.TrimSpace(title.Text())
			}
			return false
		})

		entries = append(entries, entry)
	})

	return entries
}

// Brief extracts contest-level attributes and downloadable assets from the
// brief page. The site embeds most of the interesting data in escaped JSON
// blobs, so this mixes selectors with pattern matches over the raw body.
func (p *NinetyNine) Brief(html string) models.Brief {
	doc := p.document(html)
	brief := models.UnavailableBrief()

	if props, ok := doc.Find("div#header-price-data").First().Attr("data-initial-props"); ok {
		var data struct {
			PurchasePrice string `json:"purchasePrice"`
			PackageName   string `json:"packageName"`
		}
		if err := json.Unmarshal([]byte(props), &data); err == nil {
			if data.PurchasePrice != "" {
				brief.PriceUSD = strings.ReplaceAll(data.PurchasePrice, "US$", "")
			}
			if data.PackageName != "" {
				brief.PackageLevel = data.PackageName
			}
		}
	}

	doc.Find("div[data-meta-guarantee-tooltip-content]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.Contains(sel.Text(), guaranteeText) {
			brief.Guarantee = 1
			return false
		}
		return true
	})

	if strings.Contains(html, fastTrackText) {
		brief.FastTrack = 1
	}

	if m := industryRe.FindStringSubmatch(html); m != nil {
		brief.Industry = m[1]
	}

	doc.Find("span.meta-item__label").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if strings.TrimSpace(sel.Text()) == "Blind" {
			brief.Blind = 1
			return false
		}
		return true
	})

	if m := notesRe.FindStringSubmatch(html); m != nil {
		brief.OtherNotes = strings.ReplaceAll(m[1], "&quot;", `"`)
	}

	for _, m := range stylesRe.FindAllStringSubmatch(html, -1) {
		switch m[1] {
		case "classicModern":
			brief.Styles.ClassicModern = m[2]
		case "matureYouthful":
			brief.Styles.MatureYouthful = m[2]
		case "feminineMasculine":
			brief.Styles.FeminineMasculine = m[2]
		case "playfulSophisticated":
			brief.Styles.PlayfulSophisticated = m[2]
		case "economicalLuxurious":
			brief.Styles.EconomicalLuxurious = m[2]
		case "geometricOrganic":
			brief.Styles.GeometricOrganic = m[2]
		case "abstractLiteral":
			brief.Styles.AbstractLiteral = m[2]
		}
	}

	// Exactly one attachment class is flagged reference; everything else
	// defaults to inspiration.
	var referenceID string
	if m := referenceRe.FindStringSubmatch(html); m != nil {
		referenceID = m[1]
	}

	seen := make(map[string]bool)
	for _, m := range publicIDRe.FindAllStringSubmatch(html, -1) {
		publicID := m[1]
		if seen[publicID] {
			continue
		}
		seen[publicID] = true

		asset := models.BriefAsset{
			PublicID:    publicID,
			IsReference: referenceID != "" && publicID == referenceID,
		}
		if asset.IsReference {
			brief.ReferenceCount++
		} else {
			brief.InspirationCount++
		}
		brief.Assets = append(brief.Assets, asset)
	}

	return brief
}

// Profile extracts designer profile attributes; absent fields stay N/A
func (p *NinetyNine) Profile(html string) models.DesignerProfile {
	doc := p.document(html)
	profile := models.UnavailableProfile()

	if aggregate := doc.Find("span[itemprop='aggregateRating']").First(); aggregate.Length() > 0 {
		if v := aggregate.Find("span[itemprop='ratingValue']").First(); v.Length() > 0 {
			profile.AggregateRating = strings.TrimSpace(v.Text())
		}
		if v := aggregate.Find("span[itemprop='reviewCount']").First(); v.Length() > 0 {
			profile.AggregateReviews = strings.TrimSpace(v.Text())
		}
	}

	doc.Find("span.subtle-text").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		text := strings.TrimSpace(sel.Text())
		if strings.Contains(text, "Member since:") {
			profile.StartDate = strings.TrimSpace(strings.ReplaceAll(text, "Member since:", ""))
			return false
		}
		return true
	})

	profile.ContestsWon = p.statsPanelValue(doc, "Total number of contest prize awards")
	profile.RunnerUp = p.statsPanelValue(doc, "Total times named as a contest finalist")
	profile.OneToOne = p.statsPanelValue(doc, "Total number of 1-to-1 Projects completed")
	profile.RepeatClients = p.statsPanelValue(doc, "Total number of clients who hired this designer")

	if tagSection := doc.Find("div.profile__tag-section").First(); tagSection.Length() > 0 {
		var tags []string
		tagSection.Find("span.pill--tag").Each(func(_ int, sel *goquery.Selection) {
			tags = append(tags, strings.TrimSpace(sel.Text()))
		})
		if len(tags) > 0 {
			profile.UserTag = strings.Join(tags, ", ")
		}
	}

	doc.Find("h3.heading").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.Contains(sel.Text(), "Languages") {
			return true
		}
		if group := sel.NextAllFiltered("div.pill-group").First(); group.Length() > 0 {
			var langs []string
			group.Find("span.pill--tag").Each(func(_ int, lang *goquery.Selection) {
				langs = append(langs, strings.TrimSpace(lang.Text()))
			})
			if len(langs) > 0 {
				profile.Languages = strings.Join(langs, ", ")
			}
		}
		return false
	})

	var certifications []string
	doc.Find("span.pill--certification").Each(func(_ int, sel *goquery.Selection) {
		certifications = append(certifications, strings.TrimSpace(sel.Text()))
	})
	doc.Find("div.pill-group__item[data-tooltip][title]").Each(func(_ int, sel *goquery.Selection) {
		title := sel.AttrOr("title", "")
		level := strings.TrimSpace(sel.Find("span").First().Text())
		if level == "" {
			return
		}
		switch {
		case strings.Contains(title, "New or developing professionals on 99designs"),
			strings.Contains(title, "skilled in the essentials of design"),
			strings.Contains(title, "built trust on 99designs with their expert skills"):
			certifications = append(certifications, level)
		}
	})
	if len(certifications) > 0 {
		profile.Certifications = strings.Join(certifications, ", ")
	}

	return profile
}

func (p *NinetyNine) statsPanelValue(doc *goquery.Document, titleFragment string) string {
	value := models.NotAvailable
	doc.Find("div.stats-panel__item, div.stats-panel__item--first").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if !strings.Contains(sel.AttrOr("title", ""), titleFragment) {
			return true
		}
		if v := sel.Find("div.stats-panel__item__value").First(); v.Length() > 0 {
			value = strings.TrimSpace(v.Text())
		}
		return false
	})
	return value
}

// EntryAsset resolves the downloadable asset URL and creation time from an
// entry page
func (p *NinetyNine) EntryAsset(html string) (string, string) {
	doc := p.document(html)

	imageURL := ""
	if link := doc.Find("link[rel='image_src']").First(); link.Length() > 0 {
		imageURL = link.AttrOr("href", "")
	}

	createTime := models.NotAvailable
	if m := timeCreatedRe.FindStringSubmatch(html); m != nil {
		createTime = m[1]
	}

	return imageURL, createTime
}

// Listings extracts contest summaries from a catalog listing page
func (p *NinetyNine) Listings(html string, crawlTime time.Time) []models.ContestListing {
	doc := p.document(html)

	var listings []models.ContestListing
	doc.Find("div.content-listing__item").Each(func(_ int, item *goquery.Selection) {
		link := item.Find("a.listing-details__title__link").First()
		if link.Length() == 0 {
			link = item.Find("a.content-listing__item__link-overlay").First()
		}
		if link.Length() == 0 {
			return
		}
		href := link.AttrOr("href", "")
		if href == "" {
			return
		}

		listing := models.ContestListing{
			ContestURL:  p.absolute(href) + "/entries",
			ContestName: strings.TrimSpace(link.Text()),
			Reward:      models.NotAvailable,
			Tags:        "NA",
			CrawlTime:   crawlTime,
		}

		if m := contestIDRe.FindStringSubmatch(href); m != nil {
			listing.ContestID = m[1]
		}

		if reward := item.Find("div.ribbon__text").First(); reward.Length() > 0 {
			listing.Reward = strings.TrimSpace(reward.Text())
		}

		var tags []string
		item.Find("div.listing-details__section span.listing-details__pill").Each(func(_ int, pill *goquery.Selection) {
			tag := strings.TrimSpace(pill.Text())
			tags = append(tags, tag)
			if tag == "Blind" {
				listing.Blind = 1
			}
		})
		if len(tags) > 0 {
			listing.Tags = strings.Join(tags, ",")
		}

		item.Find("div.listing-details__stat-item span.listing-details__stat__label").EachWithBreak(func(_ int, stat *goquery.Selection) bool {
			if m := designCountRe.FindStringSubmatch(strings.TrimSpace(stat.Text())); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					listing.CurrentIdeas = n
				}
				return false
			}
			return true
		})

		listings = append(listings, listing)
	})

	return listings
}

// NextListingURL extracts the next catalog page address, empty on the last page
func (p *NinetyNine) NextListingURL(html string) string {
	doc := p.document(html)

	next := doc.Find("span.pagination--next a.pagination__button").First()
	if next.Length() == 0 {
		return ""
	}
	href, ok := next.Attr("href")
	if !ok || href == "" {
		return ""
	}
	return p.absolute(href)
}
