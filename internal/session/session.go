// Package session manages model edit sessions. Each session owns one
// editor.Editor; operations on a session are serialized in arrival order.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/matthewbaird/modeleditor/internal/editor"
	"github.com/matthewbaird/modeleditor/internal/event"
	"github.com/matthewbaird/modeleditor/internal/store"
	"github.com/matthewbaird/modeleditor/internal/types"
	"github.com/matthewbaird/modeleditor/internal/validate"
)

// ErrClosed is returned for actions on a session that was saved or cancelled.
var ErrClosed = errors.New("session: closed")

// Session holds the state of one edit session.
type Session struct {
	ID           string    `json:"id"`
	ModelID      string    `json:"model_id,omitempty"`
	History      []string  `json:"history"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`

	mu      sync.Mutex
	editor  *editor.Editor
	store   store.Store
	bus     event.Publisher
	onClose func(id string)
	closed  bool
	saved   *types.Model

	// saveMu is shared by every session of a Manager.
	saveMu *sync.Mutex
	// firstFieldID is the counter read at Begin; fields committed in this
	// session have ids from here up.
	firstFieldID types.FieldID
}

// Touch updates the last activity timestamp.
func (s *Session) Touch() {
	s.LastActiveAt = time.Now()
}

// AddHistory appends an applied action to the session history.
func (s *Session) AddHistory(entry string) {
	s.History = append(s.History, entry)
	s.Touch()
}

// IsExpired returns true if the session has exceeded the given max age.
func (s *Session) IsExpired(maxAge time.Duration) bool {
	return time.Since(s.CreatedAt) > maxAge
}

// IsIdle returns true if the session has been idle longer than the timeout.
func (s *Session) IsIdle(timeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.LastActiveAt) > timeout
}

// State returns a snapshot of the editor.
func (s *Session) State() editor.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor.State()
}

// Closed reports whether the session was saved or cancelled.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// OnSave persists the model and publishes a domain event. It is called by
// the editor while the session lock is held. Saves are serialized across
// sessions, and the name and field ids are checked again against the store
// since other sessions may have saved after this one began.
func (s *Session) OnSave(ctx context.Context, res editor.Result) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	models, err := s.store.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("loading models: %w", err)
	}
	s.editor.SetSiblings(models)
	if !validate.UniqueModelName(res.Model, models) {
		codes := []validate.ErrorCode{validate.UniqueName}
		return validate.Report{Model: codes, ModelMessages: validate.Messages(codes)}.Err()
	}

	if res, err = s.claimFieldIDs(ctx, res); err != nil {
		return err
	}
	stored, err := s.store.SaveModel(ctx, res.Model, res.NextFieldID)
	if err != nil {
		return err
	}
	if s.bus != nil {
		if res.Model.IsNew() {
			s.bus.Publish(ctx, event.NewModelCreated(stored, res.NextFieldID))
		} else {
			s.bus.Publish(ctx, event.NewModelUpdated(stored, res.NextFieldID))
		}
	}
	s.saved = &stored
	s.ModelID = stored.ID
	s.close()
	return nil
}

// claimFieldIDs moves the ids of fields committed in this session past the
// stored counter when another session has taken them in the meantime.
func (s *Session) claimFieldIDs(ctx context.Context, res editor.Result) (editor.Result, error) {
	stored, err := s.store.NextFieldID(ctx)
	if err != nil {
		return res, fmt.Errorf("loading field counter: %w", err)
	}
	if stored <= s.firstFieldID {
		return res, nil
	}
	next := stored
	for i, f := range res.Model.Fields {
		if f.ID >= s.firstFieldID {
			res.Model.Fields[i].ID = next
			next++
		}
	}
	res.NextFieldID = max(res.NextFieldID, next)
	return res, nil
}

// OnCancel closes the session without saving.
func (s *Session) OnCancel(context.Context) error {
	s.close()
	return nil
}

// close marks the session closed. The manager drops it once the current
// action releases the session lock.
func (s *Session) close() {
	s.closed = true
}

// Manager handles session creation, lookup, and cleanup.
type Manager struct {
	mu          sync.RWMutex
	saveMu      sync.Mutex
	sessions    map[string]*Session
	store       store.Store
	bus         event.Publisher
	maxAge      time.Duration
	idleTimeout time.Duration
}

// NewManager creates a session manager with the given timeouts. bus may be
// nil.
func NewManager(st store.Store, bus event.Publisher, maxAge, idleTimeout time.Duration) *Manager {
	return &Manager{
		sessions:    make(map[string]*Session),
		store:       st,
		bus:         bus,
		maxAge:      maxAge,
		idleTimeout: idleTimeout,
	}
}

// Begin starts editing the stored model with the given id, or a new empty
// model when id is "". Sibling names and the field counter are read from
// the store.
func (m *Manager) Begin(ctx context.Context, modelID string) (*Session, error) {
	model := types.Model{Fields: []types.Field{}}
	if modelID != "" {
		var err error
		if model, err = m.store.GetModel(ctx, modelID); err != nil {
			return nil, err
		}
	}
	siblings, err := m.store.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading models: %w", err)
	}
	next, err := m.store.NextFieldID(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading field counter: %w", err)
	}

	now := time.Now()
	s := &Session{
		ID:           uuid.New().String(),
		ModelID:      modelID,
		CreatedAt:    now,
		LastActiveAt: now,
		store:        m.store,
		bus:          m.bus,
		onClose:      m.Remove,
		saveMu:       &m.saveMu,
	}
	s.editor = editor.New(model, siblings, next, s)
	s.firstFieldID = s.editor.NextFieldID()

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	log.Printf("session: %s opened for model %q", s.ID, modelID)
	return s, nil
}

// Get retrieves a session by ID. Returns nil if not found or expired.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
		m.Remove(id)
		return nil
	}
	return s
}

// Remove deletes a session.
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Cleanup removes all expired and idle sessions. Session locks are never
// taken while the manager lock is held.
func (m *Manager) Cleanup() {
	m.mu.RLock()
	all := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.RUnlock()

	for _, s := range all {
		if s.IsExpired(m.maxAge) || s.IsIdle(m.idleTimeout) {
			m.Remove(s.ID)
		}
	}
}

// Run calls Cleanup every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.Cleanup()
		}
	}
}
