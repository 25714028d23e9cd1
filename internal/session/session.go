// Package session keeps each user's book in memory and persists it in the
// background.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"routine-coach/internal/habit"
	"routine-coach/internal/model"
)

// State gates persistence for a session.
type State int

const (
	StateUnauthenticated State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "unauthenticated"
	}
}

var ErrNotReady = errors.New("session not ready")

// Store is the persistence boundary for user data.
type Store interface {
	Fetch(ctx context.Context, userID uint) (model.Snapshot, error)
	Save(ctx context.Context, userID uint, snap model.Snapshot) error
}

// Options configures a Manager.
type Options struct {
	// Debounce delays writes after a change. Zero writes inline.
	Debounce time.Duration
	// SaveTimeout bounds a background write.
	SaveTimeout time.Duration
	// IDs mints template identifiers for every book.
	IDs habit.IDGenerator
}

// Manager owns the sessions of all users.
type Manager struct {
	store Store
	opts  Options

	mu       sync.Mutex
	sessions map[uint]*Session
}

func NewManager(store Store, opts Options) *Manager {
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = 10 * time.Second
	}
	if opts.IDs == nil {
		opts.IDs = habit.UUIDGenerator{}
	}
	return &Manager{
		store:    store,
		opts:     opts,
		sessions: make(map[uint]*Session),
	}
}

// Session is one user's loaded book.
type Session struct {
	userID uint

	mu      sync.Mutex
	state   State
	book    *habit.Book
	dirty   bool
	pending *time.Timer
	loaded  chan struct{}
	loadErr error

	saveMu sync.Mutex
}

// State returns the state of the user's session.
func (m *Manager) State(userID uint) State {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return StateUnauthenticated
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open returns the user's session, loading it from the store on first use.
func (m *Manager) Open(ctx context.Context, userID uint) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if !ok {
		s = &Session{userID: userID, state: StateLoading, loaded: make(chan struct{})}
		m.sessions[userID] = s
	}
	m.mu.Unlock()

	if ok {
		select {
		case <-s.loaded:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if s.loadErr != nil {
			return nil, s.loadErr
		}
		return s, nil
	}

	snap, err := m.store.Fetch(ctx, userID)
	if err != nil {
		s.loadErr = fmt.Errorf("load session %d: %w", userID, err)
		m.mu.Lock()
		delete(m.sessions, userID)
		m.mu.Unlock()
		s.mu.Lock()
		s.state = StateUnauthenticated
		s.mu.Unlock()
		close(s.loaded)
		return nil, s.loadErr
	}

	clean, report := habit.Sanitize(snap)
	if !report.Empty() {
		log.Printf("[warn] user=%d dropped %d templates and %d logs from stored data", userID, report.DroppedTemplates, report.DroppedLogs)
	}

	s.mu.Lock()
	s.book = habit.NewBook(userID, clean.Templates, clean.Logs, m.opts.IDs)
	s.state = StateReady
	s.mu.Unlock()
	close(s.loaded)
	return s, nil
}

// View runs fn with read access to the user's book.
func (m *Manager) View(ctx context.Context, userID uint, fn func(b *habit.Book) error) error {
	s, err := m.Open(ctx, userID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return ErrNotReady
	}
	return fn(s.book)
}

// Update runs fn against the user's book and schedules a write when fn
// succeeds. The in-memory change is visible immediately.
func (m *Manager) Update(ctx context.Context, userID uint, fn func(b *habit.Book) error) error {
	s, err := m.Open(ctx, userID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return ErrNotReady
	}
	if err := fn(s.book); err != nil {
		s.mu.Unlock()
		return err
	}
	s.dirty = true
	if m.opts.Debounce > 0 {
		if s.pending == nil {
			s.pending = time.AfterFunc(m.opts.Debounce, func() {
				saveCtx, cancel := context.WithTimeout(context.Background(), m.opts.SaveTimeout)
				defer cancel()
				m.flush(saveCtx, s)
			})
		}
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	m.flush(ctx, s)
	return nil
}

// Flush writes the user's session if it has unsaved changes.
func (m *Manager) Flush(ctx context.Context, userID uint) error {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return m.flush(ctx, s)
}

// FlushAll writes every dirty session. Failed writes stay dirty.
func (m *Manager) FlushAll(ctx context.Context) error {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := m.flush(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SignOut flushes and forgets the user's session.
func (m *Manager) SignOut(ctx context.Context, userID uint) error {
	err := m.Flush(ctx, userID)
	m.mu.Lock()
	s, ok := m.sessions[userID]
	delete(m.sessions, userID)
	m.mu.Unlock()
	if ok {
		s.mu.Lock()
		s.state = StateUnauthenticated
		if s.pending != nil {
			s.pending.Stop()
			s.pending = nil
		}
		s.mu.Unlock()
	}
	return err
}

// Close flushes every session and stops pending writes.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	for _, s := range m.sessions {
		s.mu.Lock()
		if s.pending != nil {
			s.pending.Stop()
			s.pending = nil
		}
		s.mu.Unlock()
	}
	m.mu.Unlock()
	return m.FlushAll(ctx)
}

// flush saves the session outside its state lock. saveMu keeps writes in
// issue order.
func (m *Manager) flush(ctx context.Context, s *Session) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	s.mu.Lock()
	s.pending = nil
	if s.state != StateReady || !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snap := s.book.Snapshot()
	s.dirty = false
	s.mu.Unlock()

	if err := m.store.Save(ctx, s.userID, snap); err != nil {
		log.Printf("[warn] persist user=%d: %v", s.userID, err)
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return fmt.Errorf("persist user %d: %w", s.userID, err)
	}
	return nil
}
