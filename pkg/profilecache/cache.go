// Package profilecache memoizes designer profile lookups within one contest.
// A designer submitting forty entries costs one profile fetch, and concurrent
// page workers asking for the same designer share a single in-flight request.
package profilecache

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/models"
)

// Fetcher retrieves a designer profile from the site
type Fetcher func(userID, userURL string) (models.DesignerProfile, error)

// Cache holds designer profiles for the lifetime of one contest. A profile is
// fetched at most once per designer; a failed fetch is cached as the N/A
// placeholder and never retried within the contest.
type Cache struct {
	fetch    Fetcher
	group    singleflight.Group
	mu       sync.RWMutex
	profiles map[string]models.DesignerProfile
}

// New creates an empty cache backed by fetch
func New(fetch Fetcher) *Cache {
	return &Cache{
		fetch:    fetch,
		profiles: make(map[string]models.DesignerProfile),
	}
}

// Get returns the profile for userID, fetching it on first use. Concurrent
// calls for the same designer collapse into one fetch. Get never fails; a
// fetch error degrades to the placeholder profile.
func (c *Cache) Get(userID, userURL string) models.DesignerProfile {
	if userID == "" {
		return models.UnavailableProfile()
	}

	c.mu.RLock()
	profile, ok := c.profiles[userID]
	c.mu.RUnlock()
	if ok {
		return profile
	}

	v, _, _ := c.group.Do(userID, func() (interface{}, error) {
		// Another caller may have stored the profile between the read
		// above and winning the flight.
		c.mu.RLock()
		cached, ok := c.profiles[userID]
		c.mu.RUnlock()
		if ok {
			return cached, nil
		}

		fetched, err := c.fetch(userID, userURL)
		if err != nil {
			fetched = models.UnavailableProfile()
		}

		c.mu.Lock()
		c.profiles[userID] = fetched
		c.mu.Unlock()
		return fetched, nil
	})

	return v.(models.DesignerProfile)
}

// Len returns the number of cached designers
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.profiles)
}
