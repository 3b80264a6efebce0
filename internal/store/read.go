package store

import (
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// DeckByID returns a copy of the deck, deleted or not.
func (s *Store) DeckByID(id string) (domain.Deck, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.state.deckIndex(id)
	if i < 0 {
		return domain.Deck{}, false
	}
	return deepCopy(s.state.Decks[i]), true
}

// ActiveDeck returns a copy of the active deck.
func (s *Store) ActiveDeck() (domain.Deck, bool) {
	s.mu.Lock()
	id := s.state.ActiveDeckID
	s.mu.Unlock()
	if id == "" {
		return domain.Deck{}, false
	}
	return s.DeckByID(id)
}

// Decks returns copies of the non-deleted decks in order.
func (s *Store) Decks() []domain.Deck {
	return s.filterDecks(func(d domain.Deck) bool { return !d.IsDeleted })
}

// DeletedDecks returns copies of the soft-deleted decks.
func (s *Store) DeletedDecks() []domain.Deck {
	return s.filterDecks(func(d domain.Deck) bool { return d.IsDeleted })
}

func (s *Store) filterDecks(keep func(domain.Deck) bool) []domain.Deck {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Deck
	for _, d := range s.state.Decks {
		if keep(d) {
			out = append(out, deepCopy(d))
		}
	}
	return out
}

// State returns a copy of the full state, history included.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepCopy(s.state)
}

// Snapshot returns a copy of the undoable part of the state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deepCopy(s.state.snapshot())
}

// CanUndo reports whether an Undo would succeed.
func (s *Store) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.HistoryIndex > 0
}

// CanRedo reports whether a Redo would succeed.
func (s *Store) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.HistoryIndex < len(s.state.History)
}

// SearchResult is a card matched by Search.
type SearchResult struct {
	DeckID   string
	DeckName string
	Card     domain.Card
}

// Search matches query case-insensitively against the term, definition and
// tags of every card in the live decks. An empty query matches nothing.
func (s *Store) Search(query string) []SearchResult {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []SearchResult
	for _, d := range s.state.Decks {
		if d.IsDeleted {
			continue
		}
		for _, c := range d.Cards {
			if matches(c, q) {
				out = append(out, SearchResult{DeckID: d.ID, DeckName: d.Name, Card: deepCopy(c)})
			}
		}
	}
	return out
}

func matches(c domain.Card, q string) bool {
	if strings.Contains(strings.ToLower(c.Term), q) || strings.Contains(strings.ToLower(c.Definition), q) {
		return true
	}
	for _, t := range c.Tags {
		if strings.Contains(strings.ToLower(t), q) {
			return true
		}
	}
	return false
}
