package store

import "github.com/conorfennell/flashdeck/internal/domain"

// Action is a state mutation request passed to Store.Dispatch.
// The set of actions is closed: only types declared in this package satisfy it.
type Action interface {
	// kind names the action in logs and errors.
	kind() string
	// recordsHistory reports whether the pre-dispatch state is pushed onto
	// the undo history.
	recordsHistory() bool
}

type historyAction struct{}

func (historyAction) recordsHistory() bool { return true }

type settingAction struct{}

func (settingAction) recordsHistory() bool { return false }

// AddDeck creates a deck with a fresh id. The first live deck becomes active.
type AddDeck struct {
	historyAction
	Deck domain.DeckDraft
}

// UpdateDeck renames or recolours a deck.
type UpdateDeck struct {
	historyAction
	DeckID string
	Deck   domain.DeckDraft
}

// DeleteDeck soft-deletes a deck. Its cards are kept.
type DeleteDeck struct {
	historyAction
	DeckID string
}

// RestoreDeck undoes a soft delete.
type RestoreDeck struct {
	historyAction
	DeckID string
}

// PurgeDeck permanently removes a deck and its cards.
type PurgeDeck struct {
	historyAction
	DeckID string
}

// SetActiveDeck selects the deck shown by default. An empty id clears it.
type SetActiveDeck struct {
	historyAction
	DeckID string
}

// AddCard appends a new card with a fresh id to a deck.
type AddCard struct {
	historyAction
	DeckID string
	Card   domain.CardDraft
}

// AddCards appends several cards atomically: one invalid draft fails the
// whole batch. With SkipDuplicates, drafts whose content already exists in
// the deck are ignored.
type AddCards struct {
	historyAction
	DeckID         string
	Cards          []domain.CardDraft
	SkipDuplicates bool
}

// UpdateCard replaces the content of a card, keeping its review data.
type UpdateCard struct {
	historyAction
	DeckID string
	CardID string
	Card   domain.CardDraft
}

// DeleteCard removes a card from its deck.
type DeleteCard struct {
	historyAction
	DeckID string
	CardID string
}

// MoveCard moves a card, with its review data, to the end of another deck.
type MoveCard struct {
	historyAction
	FromDeckID string
	ToDeckID   string
	CardID     string
}

// ReorderCards moves the card at From to position To within a deck.
type ReorderCards struct {
	historyAction
	DeckID string
	From   int
	To     int
}

// SetReviewData stores the scheduler's result on a card.
type SetReviewData struct {
	historyAction
	DeckID string
	CardID string
	Record domain.ReviewRecord
}

// ResetProgress forgets the review data of one card, or of every card in
// the deck when CardID is empty.
type ResetProgress struct {
	historyAction
	DeckID string
	CardID string
}

// SetSuspended excludes a card from study sessions, or brings it back.
type SetSuspended struct {
	historyAction
	DeckID    string
	CardID    string
	Suspended bool
}

// SetSearchQuery updates the search box. Not recorded in history.
type SetSearchQuery struct {
	settingAction
	Query string
}

// SetActiveView switches the visible view. Not recorded in history.
type SetActiveView struct {
	settingAction
	View string
}

// SetTheme switches between light, dark and system themes. Not recorded in history.
type SetTheme struct {
	settingAction
	Theme string
}

// Undo steps back one entry in the history.
type Undo struct{ settingAction }

// Redo steps forward one entry in the history.
type Redo struct{ settingAction }

func (AddDeck) kind() string        { return "ADD_DECK" }
func (UpdateDeck) kind() string     { return "UPDATE_DECK" }
func (DeleteDeck) kind() string     { return "DELETE_DECK" }
func (RestoreDeck) kind() string    { return "RESTORE_DECK" }
func (PurgeDeck) kind() string      { return "PURGE_DECK" }
func (SetActiveDeck) kind() string  { return "SET_ACTIVE_DECK" }
func (AddCard) kind() string        { return "ADD_CARD" }
func (AddCards) kind() string       { return "ADD_CARDS" }
func (UpdateCard) kind() string     { return "UPDATE_CARD" }
func (DeleteCard) kind() string     { return "DELETE_CARD" }
func (MoveCard) kind() string       { return "MOVE_CARD" }
func (ReorderCards) kind() string   { return "REORDER_CARDS" }
func (SetReviewData) kind() string  { return "SET_REVIEW_DATA" }
func (ResetProgress) kind() string  { return "RESET_PROGRESS" }
func (SetSuspended) kind() string   { return "SET_SUSPENDED" }
func (SetSearchQuery) kind() string { return "SET_SEARCH_QUERY" }
func (SetActiveView) kind() string  { return "SET_ACTIVE_VIEW" }
func (SetTheme) kind() string       { return "SET_THEME" }
func (Undo) kind() string           { return "UNDO" }
func (Redo) kind() string           { return "REDO" }

// kindOf is safe to call with a nil action.
func kindOf(a Action) string {
	if a == nil {
		return "<nil>"
	}
	return a.kind()
}
