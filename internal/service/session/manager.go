// Package session keeps live editor sessions in memory, one per open
// editor tab, and expires the ones nobody touches. Idle time is measured on
// the manager's clock; expired sessions are evicted when they are looked up
// and by the sweep that runs on Open and Count.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"thoughtbox/internal/config"
	"thoughtbox/internal/domain"
	thoughtSvc "thoughtbox/internal/domain/services/thought"
	"thoughtbox/internal/editor"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	cache "github.com/patrickmn/go-cache"
)

type entry struct {
	userID  string
	session *editor.Session
	feed    *statusFeed

	lastSeen atomic.Int64 // unix nanos on the manager's clock
}

func (e *entry) touch(now time.Time) {
	e.lastSeen.Store(now.UnixNano())
}

// Manager owns the live sessions. Sessions are keyed by a random ID and
// bound to the user who opened them.
type Manager struct {
	cache    *cache.Cache
	thoughts thoughtSvc.ThoughtService
	versions thoughtSvc.VersionService
	clock    clockwork.Clock
	ttl      time.Duration
	newStore func(userID string) editor.Store
	newID    func() string
	logger   *slog.Logger
}

// NewManager creates a session manager. Sessions idle for longer than ttl
// are evicted and their timers stopped.
func NewManager(
	thoughts thoughtSvc.ThoughtService,
	versions thoughtSvc.VersionService,
	clock clockwork.Clock,
	ttl time.Duration,
	logger *slog.Logger,
) *Manager {
	if ttl <= 0 {
		ttl = config.DefaultSessionTTL
	}
	m := &Manager{
		cache:    cache.New(cache.NoExpiration, 0),
		thoughts: thoughts,
		versions: versions,
		clock:    clock,
		ttl:      ttl,
		newID:    uuid.NewString,
		logger:   logger,
	}
	m.newStore = func(userID string) editor.Store {
		return newUserStore(userID, m.thoughts, m.versions)
	}
	m.cache.OnEvicted(func(id string, value interface{}) {
		if e, ok := value.(*entry); ok {
			e.session.Close()
			e.feed.close()
			m.logger.Debug("editor session closed", "session_id", id, "user_id", e.userID)
		}
	})
	return m
}

// Open starts a session on thoughtID, or on a brand-new thought when
// thoughtID is empty, and loads its selected version.
func (m *Manager) Open(ctx context.Context, userID, thoughtID string) (*editor.Session, error) {
	if userID == "" {
		return nil, fmt.Errorf("open session: %w", domain.ErrUnauthorized)
	}
	id := m.newID()
	feed := newStatusFeed()
	s := editor.NewSession(id, thoughtID, m.newStore(userID), editor.Options{
		Clock:            m.clock,
		StatusResetDelay: config.StatusResetDelay,
		Logger:           m.logger.With("user_id", userID, "session_id", id),
		OnStatus:         feed.publish,
	})
	if err := s.Load(ctx); err != nil {
		s.Close()
		feed.close()
		return nil, err
	}
	m.sweep()
	e := &entry{userID: userID, session: s, feed: feed}
	e.touch(m.clock.Now())
	m.cache.Set(id, e, cache.NoExpiration)
	m.logger.Info("editor session opened", "session_id", id, "user_id", userID, "thought_id", thoughtID)
	return s, nil
}

// Get returns the user's session and extends its lifetime. Sessions of
// other users are reported as missing.
func (m *Manager) Get(userID, sessionID string) (*editor.Session, error) {
	e, err := m.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return e.session, nil
}

// Subscribe streams the session's status changes, auto-resets included.
// The channel closes when the session ends or cancel is called.
func (m *Manager) Subscribe(userID, sessionID string) (<-chan editor.Status, func(), error) {
	e, err := m.lookup(userID, sessionID)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := e.feed.subscribe()
	return ch, cancel, nil
}

// Touch extends a session's lifetime without returning it.
func (m *Manager) Touch(userID, sessionID string) error {
	_, err := m.lookup(userID, sessionID)
	return err
}

func (m *Manager) lookup(userID, sessionID string) (*entry, error) {
	value, found := m.cache.Get(sessionID)
	if !found {
		return nil, &domain.NotFoundError{Message: "session not found or expired"}
	}
	e, ok := value.(*entry)
	if !ok || e.userID != userID {
		return nil, &domain.NotFoundError{Message: "session not found or expired"}
	}
	if m.expired(e) {
		m.cache.Delete(sessionID)
		return nil, &domain.NotFoundError{Message: "session not found or expired"}
	}
	e.touch(m.clock.Now())
	return e, nil
}

func (m *Manager) expired(e *entry) bool {
	return m.clock.Since(time.Unix(0, e.lastSeen.Load())) > m.ttl
}

// sweep evicts every expired session.
func (m *Manager) sweep() {
	for id, item := range m.cache.Items() {
		if e, ok := item.Object.(*entry); ok && m.expired(e) {
			m.cache.Delete(id)
		}
	}
}

// Close ends a session.
func (m *Manager) Close(userID, sessionID string) error {
	if _, err := m.lookup(userID, sessionID); err != nil {
		return err
	}
	m.cache.Delete(sessionID)
	return nil
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.sweep()
	return m.cache.ItemCount()
}

// Shutdown closes every session.
func (m *Manager) Shutdown() {
	for id := range m.cache.Items() {
		m.cache.Delete(id)
	}
}
