package store

import (
	"fmt"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/mitchellh/copystructure"
)

// State is the whole store content. It is also the persisted JSON layout.
type State struct {
	Decks        []domain.Deck `json:"decks"`
	ActiveDeckID string        `json:"activeDeckId"`
	SearchQuery  string        `json:"searchQuery"`
	ActiveView   string        `json:"activeView"`
	Theme        string        `json:"theme"`
	History      []Snapshot    `json:"history"`
	HistoryIndex int           `json:"historyIndex"`
}

// Snapshot is the part of the state that undo and redo restore.
type Snapshot struct {
	Decks        []domain.Deck `json:"decks"`
	ActiveDeckID string        `json:"activeDeckId"`
}

func (st *State) snapshot() Snapshot {
	return Snapshot{Decks: st.Decks, ActiveDeckID: st.ActiveDeckID}
}

func (st *State) restore(snap Snapshot) {
	st.Decks = snap.Decks
	st.ActiveDeckID = snap.ActiveDeckID
}

// deckIndex returns the index of the deck with the given id, or -1.
func (st *State) deckIndex(id string) int {
	for i, d := range st.Decks {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// liveDeck resolves a non-deleted deck id to its index.
func (st *State) liveDeck(id string) (int, error) {
	i := st.deckIndex(id)
	if i < 0 || st.Decks[i].IsDeleted {
		return -1, fmt.Errorf("deck %q: %w", id, domain.ErrNotFound)
	}
	return i, nil
}

// liveCard resolves a card id inside a non-deleted deck to its indexes.
func (st *State) liveCard(deckID, cardID string) (int, int, error) {
	di, err := st.liveDeck(deckID)
	if err != nil {
		return -1, -1, err
	}
	ci := st.Decks[di].CardIndex(cardID)
	if ci < 0 {
		return -1, -1, fmt.Errorf("card %q in deck %q: %w", cardID, deckID, domain.ErrNotFound)
	}
	return di, ci, nil
}

// firstLiveDeckID returns the id of the first non-deleted deck, or "".
func (st *State) firstLiveDeckID() string {
	for _, d := range st.Decks {
		if !d.IsDeleted {
			return d.ID
		}
	}
	return ""
}

// deepCopy returns an independent copy of v.
func deepCopy[T any](v T) T {
	c, err := copystructure.Copy(v)
	if err != nil {
		panic(fmt.Sprintf("store: deep copy: %v", err))
	}
	out, _ := c.(T)
	return out
}
