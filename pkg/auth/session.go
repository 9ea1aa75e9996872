// Package auth stores the catalog session cookie outside the repository:
// system keychain first, an encrypted file as fallback, environment
// variables as a read-only last resort.
package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// Session holds one named catalog session. The cookie header is opaque; it
// is sent verbatim on every request.
type Session struct {
	Name         string    `json:"name"`
	CookieHeader string    `json:"cookie_header"`
	UserAgent    string    `json:"user_agent,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// SessionStore is the interface for persisting sessions
type SessionStore interface {
	// Store saves a session
	Store(session *Session) error

	// Retrieve gets a session by name
	Retrieve(name string) (*Session, error)

	// List returns all stored sessions
	List() ([]*Session, error)

	// Delete removes a session by name
	Delete(name string) error

	// Exists checks if a session exists
	Exists(name string) bool
}

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSession   = errors.New("invalid session")
	ErrStoreUnavailable = errors.New("session store unavailable")
)

// Manager handles session storage with fallback mechanisms
type Manager struct {
	stores []SessionStore
}

// NewManager creates a session manager with the available storage backends
func NewManager() (*Manager, error) {
	var stores []SessionStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "sessions.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// Store saves a session using the first store that accepts it
func (m *Manager) Store(session *Session) error {
	if session.Name == "" {
		return errors.New("session name is required")
	}
	if session.CookieHeader == "" {
		return errors.New("cookie header is required")
	}

	session.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(session); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store session: %w", lastErr)
	}
	return errors.New("no available session stores")
}

// Retrieve gets a session from the first store that has it
func (m *Manager) Retrieve(name string) (*Session, error) {
	for _, store := range m.stores {
		if session, err := store.Retrieve(name); err == nil && session != nil {
			return session, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, name)
}

// RetrieveDefault gets the environment session if one is configured, else
// the most recently stored session
func (m *Manager) RetrieveDefault() (*Session, error) {
	if envStore, ok := m.stores[len(m.stores)-1].(*EnvironmentStore); ok {
		if session, err := envStore.Retrieve(""); err == nil && session != nil {
			return session, nil
		}
	}

	sessions, err := m.List()
	if err == nil && len(sessions) > 0 {
		newest := sessions[0]
		for _, s := range sessions[1:] {
			if s.LastModified.After(newest.LastModified) {
				newest = s
			}
		}
		return newest, nil
	}

	return nil, errors.New("no sessions found")
}

// List returns all stored sessions across stores, newest version per name
func (m *Manager) List() ([]*Session, error) {
	byName := make(map[string]*Session)

	for _, store := range m.stores {
		sessions, err := store.List()
		if err != nil {
			continue
		}
		for _, s := range sessions {
			if existing, ok := byName[s.Name]; !ok || s.LastModified.After(existing.LastModified) {
				byName[s.Name] = s
			}
		}
	}

	var result []*Session
	for _, s := range byName {
		result = append(result, s)
	}
	return result, nil
}

// Delete removes a session from every store that holds it
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if !deleted && lastErr != nil {
		return fmt.Errorf("failed to delete session: %w", lastErr)
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, name)
	}
	return nil
}

// getConfigDir returns the configuration directory path
func getConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "contestcrawl")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "contestcrawl")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "contestcrawl")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "contestcrawl")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// Sanitize returns a copy of the session with the cookie masked for display
func Sanitize(session *Session) *Session {
	if session == nil {
		return nil
	}
	return &Session{
		Name:         session.Name,
		CookieHeader: maskString(session.CookieHeader),
		UserAgent:    session.UserAgent,
		LastModified: session.LastModified,
	}
}

// maskString masks all but the first 4 and last 4 characters of a string
func maskString(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
