// Package retry provides configurable retry with exponential backoff.
//
// Every network call site in the crawler owns a Policy instance: maximum
// attempts, backoff bounds, jitter and a retryable-error predicate. The
// backoff before attempt k is min(base*2^(k-1), cap) plus a uniform random
// offset in [0, MaxJitter]. Peer-initiated connection resets add a further
// bounded cooldown, because resets arrive in clusters.
//
// Basic usage:
//
//	p := retry.NewPolicy(8, 2*time.Second, 30*time.Second, time.Second)
//	err := retry.Do(func() error {
//	    return client.FetchPage(url)
//	}, p)
//
// Transient errors (see pkg/errors) are retried until the attempt bound is
// spent; fatal errors propagate on the first occurrence.
package retry
