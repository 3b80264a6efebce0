// Package store holds the decks and cards in memory and applies every change
// through Dispatch, which is atomic, recorded in a linear undo history and
// persisted to local storage after each success.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/google/uuid"
)

const (
	// DefaultKey is the local storage key the state is saved under.
	DefaultKey = "flashdeck-state"
	// DefaultHistoryLimit caps the undo history.
	DefaultHistoryLimit = 50
	// DefaultTrimTo is the history length kept when storage is full.
	DefaultTrimTo = 10
)

var (
	ErrNothingToUndo = errors.New("flashdeck: nothing to undo")
	ErrNothingToRedo = errors.New("flashdeck: nothing to redo")
	ErrUnknownAction = errors.New("flashdeck: unknown action")
	ErrPanic         = errors.New("flashdeck: action handler panicked")
)

// Backend is the local storage the state is persisted to.
type Backend interface {
	GetItem(key string) ([]byte, bool, error)
	SetItem(key string, value []byte) error
}

// Option configures a Store.
type Option func(*Store)

// WithKey sets the storage key.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithHistoryLimit sets the maximum number of undo entries.
func WithHistoryLimit(n int) Option {
	return func(s *Store) { s.historyLimit = n }
}

// WithTrimTo sets how many history entries survive a full storage.
func WithTrimTo(n int) Option {
	return func(s *Store) { s.trimTo = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithIDFunc replaces the id generator.
func WithIDFunc(f func() string) Option {
	return func(s *Store) { s.newID = f }
}

// Store is a single-writer state container. Create one per user/profile
// with New; there is no package-level instance.
type Store struct {
	mu      sync.Mutex
	state   State
	backend Backend

	key          string
	historyLimit int
	trimTo       int
	newID        func() string
	logger       *slog.Logger

	lastErr    error
	storageErr error
	lastID     string
}

// New creates a Store and loads any state previously saved in backend.
// A nil backend keeps the state in memory only.
func New(backend Backend, opts ...Option) (*Store, error) {
	s := &Store{
		backend:      backend,
		key:          DefaultKey,
		historyLimit: DefaultHistoryLimit,
		trimTo:       DefaultTrimTo,
		newID:        uuid.NewString,
		logger:       slog.Default(),
		state:        State{Theme: "system"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.historyLimit < 1 {
		return nil, fmt.Errorf("%w: history limit %d", domain.ErrInvalidArgument, s.historyLimit)
	}
	if s.trimTo < 0 || s.trimTo > s.historyLimit {
		s.trimTo = min(DefaultTrimTo, s.historyLimit)
	}

	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	if s.backend == nil {
		return nil
	}
	data, ok, err := s.backend.GetItem(s.key)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if !ok {
		return nil
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("load state: decode %s: %w", s.key, err)
	}
	normalizeTags(st.Decks)
	for i := range st.History {
		normalizeTags(st.History[i].Decks)
	}
	if st.HistoryIndex < 0 || st.HistoryIndex > len(st.History) {
		st.HistoryIndex = len(st.History)
	}
	if st.ActiveDeckID != "" && st.deckIndex(st.ActiveDeckID) < 0 {
		st.ActiveDeckID = st.firstLiveDeckID()
	}
	s.state = st
	s.logger.Info("Loaded state", "key", s.key, "decks", len(st.Decks), "history", len(st.History))
	return nil
}

// normalizeTags rewrites missing or untidy card tags as clean arrays.
func normalizeTags(decks []domain.Deck) {
	for i := range decks {
		for j := range decks[i].Cards {
			decks[i].Cards[j].Tags = domain.NormalizeTags(decks[i].Cards[j].Tags)
		}
	}
}

// Dispatch applies a. It returns false, leaving the state exactly as it was,
// when the action is invalid or its handler fails; LastError tells why.
func (s *Store) Dispatch(a Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastErr = s.apply(a)
	if s.lastErr != nil {
		s.logger.Warn("Dispatch rolled back", "action", kindOf(a), "error", s.lastErr)
		return false
	}
	s.persist()
	return true
}

// apply runs the handler of a against the live state and rolls back on
// error or panic.
func (s *Store) apply(a Action) (err error) {
	backup := s.state
	backup.Decks = deepCopy(s.state.Decks)
	backup.History = append([]Snapshot(nil), s.state.History...)
	lastID := s.lastID

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %s: %v", ErrPanic, kindOf(a), r)
		}
		if err != nil {
			s.state = backup
			s.lastID = lastID
		}
	}()

	if a == nil {
		return fmt.Errorf("%w: nil", ErrUnknownAction)
	}
	if err := s.handle(a); err != nil {
		return fmt.Errorf("%s: %w", a.kind(), err)
	}
	if a.recordsHistory() {
		s.pushHistory(Snapshot{Decks: backup.Decks, ActiveDeckID: backup.ActiveDeckID})
	}
	return nil
}

// persist writes the state to the backend. A full storage is retried once
// after trimming the history; a second failure is kept as a warning.
func (s *Store) persist() {
	if s.backend == nil {
		return
	}
	s.storageErr = nil

	err := s.write()
	if errors.Is(err, domain.ErrStorageExhausted) {
		dropped := s.trimHistory()
		s.logger.Warn("Storage full, trimmed history", "key", s.key, "dropped", dropped)
		err = s.write()
	}
	if err != nil {
		s.storageErr = fmt.Errorf("persist state: %w", err)
		s.logger.Warn("Failed to persist state", "key", s.key, "error", err)
	}
}

func (s *Store) write() error {
	data, err := json.Marshal(s.state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	return s.backend.SetItem(s.key, data)
}

// LastError returns why the last Dispatch failed, or nil if it succeeded.
func (s *Store) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// StorageWarning returns the persistence failure of the last successful
// Dispatch, or nil. The in-memory state is correct either way.
func (s *Store) StorageWarning() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storageErr
}

// LastInsertID returns the id of the deck or card created most recently.
func (s *Store) LastInsertID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastID
}
