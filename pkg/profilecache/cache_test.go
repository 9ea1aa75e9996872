package profilecache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ShenXiexs/InnovationContest-Crawl-4-99Design/pkg/models"
)

func TestGetFetchesOnce(t *testing.T) {
	var calls int32
	cache := New(func(userID, userURL string) (models.DesignerProfile, error) {
		atomic.AddInt32(&calls, 1)
		return models.DesignerProfile{AggregateRating: "4.9"}, nil
	})

	for i := 0; i < 5; i++ {
		profile := cache.Get("501", "https://example.com/profiles/alpha")
		if profile.AggregateRating != "4.9" {
			t.Fatalf("unexpected profile: %+v", profile)
		}
	}

	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
	if cache.Len() != 1 {
		t.Errorf("cache len = %d, want 1", cache.Len())
	}
}

func TestGetCachesFailureAsPlaceholder(t *testing.T) {
	var calls int32
	cache := New(func(userID, userURL string) (models.DesignerProfile, error) {
		atomic.AddInt32(&calls, 1)
		return models.DesignerProfile{}, errors.New("profile page gone")
	})

	first := cache.Get("501", "u")
	second := cache.Get("501", "u")

	if first.AggregateRating != models.NotAvailable {
		t.Errorf("failed fetch should degrade to placeholder, got %+v", first)
	}
	if second != first {
		t.Error("placeholder should be served from cache")
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1; failures are not retried", calls)
	}
}

func TestGetEmptyUserID(t *testing.T) {
	cache := New(func(userID, userURL string) (models.DesignerProfile, error) {
		t.Error("fetch should not be called for empty user id")
		return models.DesignerProfile{}, nil
	})

	profile := cache.Get("", "")
	if profile.StartDate != models.NotAvailable {
		t.Errorf("expected placeholder, got %+v", profile)
	}
	if cache.Len() != 0 {
		t.Error("empty user id should not be cached")
	}
}

func TestConcurrentGetCollapses(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	cache := New(func(userID, userURL string) (models.DesignerProfile, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return models.DesignerProfile{AggregateRating: "5.0"}, nil
	})

	const workers = 8
	var wg sync.WaitGroup
	results := make([]models.DesignerProfile, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = cache.Get("501", "u")
		}(i)
	}

	close(release)
	wg.Wait()

	if calls != 1 {
		t.Errorf("fetch called %d times, want 1 for concurrent callers", calls)
	}
	for i, r := range results {
		if r.AggregateRating != "5.0" {
			t.Errorf("worker %d got %+v", i, r)
		}
	}
}
