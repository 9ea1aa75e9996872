package auth

import (
	"os"
	"time"
)

// EnvironmentStore implements SessionStore using environment variables.
// Read-only; meant for CI and containerized runs.
type EnvironmentStore struct{}

// NewEnvironmentStore creates an environment-based session store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(session *Session) error {
	return ErrStoreUnavailable
}

// Retrieve gets the session from environment variables
func (e *EnvironmentStore) Retrieve(name string) (*Session, error) {
	cookie := os.Getenv("CONTESTCRAWL_COOKIE_HEADER")
	if cookie == "" {
		return nil, ErrSessionNotFound
	}

	if name == "" {
		name = "default"
	}

	return &Session{
		Name:         name,
		CookieHeader: cookie,
		UserAgent:    os.Getenv("CONTESTCRAWL_USER_AGENT"),
		LastModified: time.Now(),
	}, nil
}

// List returns a single session if the environment variable is set
func (e *EnvironmentStore) List() ([]*Session, error) {
	session, err := e.Retrieve("")
	if err != nil {
		return []*Session{}, nil
	}
	return []*Session{session}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

// Exists checks if an environment session is configured
func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv("CONTESTCRAWL_COOKIE_HEADER") != ""
}
