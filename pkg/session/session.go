package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ErrNotLoggedIn is returned by operations that need an active session.
var ErrNotLoggedIn = errors.New("not logged in")

// Session is the persisted login state.
type Session struct {
	Email      string    `toml:"email"`
	LoggedInAt time.Time `toml:"logged_in_at"`
}

// Manager owns the session file. Load reads it at startup and Logout removes it.
type Manager struct {
	mu      sync.RWMutex
	path    string
	current *Session
	now     func() time.Time
}

// NewManager returns a manager backed by the session file at path
func NewManager(path string) *Manager {
	return &Manager{path: path, now: time.Now}
}

// DefaultPath returns session.toml next to the config file
func DefaultPath(configDir string) string {
	return filepath.Join(configDir, "session.toml")
}

// Load reads the session file. A missing file means logged out.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.path)
	if errors.Is(err, os.ErrNotExist) {
		m.current = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read session file: %w", err)
	}

	var s Session
	if err := toml.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("failed to parse session file: %w", err)
	}
	if s.Email == "" {
		m.current = nil
		return nil
	}
	m.current = &s
	return nil
}

// Login records a session for email and persists it.
func (m *Manager) Login(email string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email %q", email)
	}

	s := &Session{Email: email, LoggedInAt: m.now().UTC().Truncate(time.Second)}
	data, err := toml.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(m.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(m.path, data, 0600); err != nil {
		return nil, fmt.Errorf("failed to write session file: %w", err)
	}
	m.current = s
	return s, nil
}

// Logout clears the session and deletes the file.
func (m *Manager) Logout() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = nil
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// Current returns a copy of the active session, or ErrNotLoggedIn.
func (m *Manager) Current() (Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return Session{}, ErrNotLoggedIn
	}
	return *m.current, nil
}

func (m *Manager) Authenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil
}
