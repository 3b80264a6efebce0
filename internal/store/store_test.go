package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// memBackend is an in-memory local storage with an optional byte quota.
type memBackend struct {
	items  map[string][]byte
	quota  int
	writes int
}

func newMemBackend() *memBackend {
	return &memBackend{items: make(map[string][]byte)}
}

func (m *memBackend) GetItem(key string) ([]byte, bool, error) {
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *memBackend) SetItem(key string, value []byte) error {
	if m.quota > 0 && len(value) > m.quota {
		return fmt.Errorf("set %s: %d bytes: %w", key, len(value), domain.ErrStorageExhausted)
	}
	m.writes++
	m.items[key] = append([]byte(nil), value...)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, backend Backend, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithLogger(quietLogger())}, opts...)
	s, err := New(backend, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func mustDispatch(t *testing.T, s *Store, a Action) {
	t.Helper()
	if !s.Dispatch(a) {
		t.Fatalf("Dispatch(%s) failed: %v", kindOf(a), s.LastError())
	}
}

func addDeck(t *testing.T, s *Store, name string) string {
	t.Helper()
	mustDispatch(t, s, AddDeck{Deck: domain.DeckDraft{Name: name}})
	return s.LastInsertID()
}

func addCard(t *testing.T, s *Store, deckID, term, def string) string {
	t.Helper()
	mustDispatch(t, s, AddCard{DeckID: deckID, Card: domain.CardDraft{Term: term, Definition: def}})
	return s.LastInsertID()
}

func stateJSON(t *testing.T, s *Store) []byte {
	t.Helper()
	data, err := json.Marshal(s.State())
	if err != nil {
		t.Fatalf("marshal state: %v", err)
	}
	return data
}

func TestAddDeckAndCards(t *testing.T) {
	s := newTestStore(t, nil)

	deckID := addDeck(t, s, "Spanish")
	if deckID == "" {
		t.Fatal("LastInsertID is empty after AddDeck")
	}
	active, ok := s.ActiveDeck()
	if !ok || active.ID != deckID {
		t.Fatalf("first deck should become active, got %+v", active)
	}

	cardID := addCard(t, s, deckID, " hola ", "hello")
	if cardID == deckID {
		t.Fatal("card and deck share an id")
	}

	deck, _ := s.DeckByID(deckID)
	if len(deck.Cards) != 1 {
		t.Fatalf("deck has %d cards, want 1", len(deck.Cards))
	}
	c := deck.Cards[0]
	if c.ID != cardID || c.Term != "hola" || c.ReviewData != nil || c.Tags == nil {
		t.Errorf("unexpected card %+v", c)
	}

	second := addDeck(t, s, "French")
	if active, _ := s.ActiveDeck(); active.ID != deckID {
		t.Errorf("adding a second deck changed the active deck to %s", second)
	}
}

func TestReadsReturnCopies(t *testing.T) {
	s := newTestStore(t, nil)
	deckID := addDeck(t, s, "Spanish")
	addCard(t, s, deckID, "uno", "one")

	deck, _ := s.DeckByID(deckID)
	deck.Cards[0].Term = "mutated"
	deck.Name = "mutated"

	again, _ := s.DeckByID(deckID)
	if again.Name != "Spanish" || again.Cards[0].Term != "uno" {
		t.Errorf("store state changed through a returned copy: %+v", again)
	}
}

func TestDispatchNotFound(t *testing.T) {
	s := newTestStore(t, nil)
	deckID := addDeck(t, s, "Spanish")
	before := stateJSON(t, s)

	testCases := []struct {
		name   string
		action Action
	}{
		{"update missing card", UpdateCard{DeckID: deckID, CardID: "nope", Card: domain.CardDraft{Term: "x"}}},
		{"delete missing card", DeleteCard{DeckID: deckID, CardID: "nope"}},
		{"review missing card", SetReviewData{DeckID: deckID, CardID: "nope", Record: domain.ReviewRecord{EaseFactor: 2.5}}},
		{"card in missing deck", AddCard{DeckID: "nope", Card: domain.CardDraft{Term: "x"}}},
		{"activate missing deck", SetActiveDeck{DeckID: "nope"}},
		{"purge missing deck", PurgeDeck{DeckID: "nope"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if s.Dispatch(tc.action) {
				t.Fatal("Dispatch succeeded, want failure")
			}
			if !errors.Is(s.LastError(), domain.ErrNotFound) {
				t.Errorf("LastError = %v, want ErrNotFound", s.LastError())
			}
			if after := stateJSON(t, s); !bytes.Equal(before, after) {
				t.Errorf("state changed after a failed dispatch")
			}
		})
	}
}

func TestDispatchInvalidArgument(t *testing.T) {
	s := newTestStore(t, nil)
	deckID := addDeck(t, s, "Spanish")
	cardID := addCard(t, s, deckID, "uno", "one")

	testCases := []struct {
		name   string
		action Action
	}{
		{"empty card", AddCard{DeckID: deckID}},
		{"empty deck name", AddDeck{Deck: domain.DeckDraft{Name: "  "}}},
		{"ease factor below floor", SetReviewData{DeckID: deckID, CardID: cardID, Record: domain.ReviewRecord{EaseFactor: 1.2}}},
		{"negative interval", SetReviewData{DeckID: deckID, CardID: cardID, Record: domain.ReviewRecord{EaseFactor: 2.5, Interval: -1}}},
		{"reorder out of range", ReorderCards{DeckID: deckID, From: 0, To: 3}},
		{"bad theme", SetTheme{Theme: "neon"}},
		{"empty batch", AddCards{DeckID: deckID}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if s.Dispatch(tc.action) {
				t.Fatal("Dispatch succeeded, want failure")
			}
			if !errors.Is(s.LastError(), domain.ErrInvalidArgument) {
				t.Errorf("LastError = %v, want ErrInvalidArgument", s.LastError())
			}
		})
	}
}

type bogusAction struct{ historyAction }

func (bogusAction) kind() string { return "BOGUS" }

func TestDispatchUnknownAndNil(t *testing.T) {
	s := newTestStore(t, nil)
	if s.Dispatch(bogusAction{}) {
		t.Fatal("unknown action dispatched")
	}
	if !errors.Is(s.LastError(), ErrUnknownAction) {
		t.Errorf("LastError = %v, want ErrUnknownAction", s.LastError())
	}
	if s.Dispatch(nil) {
		t.Fatal("nil action dispatched")
	}
	if s.CanUndo() {
		t.Error("failed dispatches must not record history")
	}
}

func TestAtomicRollback(t *testing.T) {
	s := newTestStore(t, nil)
	deckID := addDeck(t, s, "Spanish")
	addCard(t, s, deckID, "uno", "one")
	before := stateJSON(t, s)

	ok := s.Dispatch(AddCards{DeckID: deckID, Cards: []domain.CardDraft{
		{Term: "dos", Definition: "two"},
		{Term: "tres", Definition: "three"},
		{},
	}})
	if ok {
		t.Fatal("batch with an invalid card succeeded")
	}
	if !errors.Is(s.LastError(), domain.ErrInvalidArgument) {
		t.Errorf("LastError = %v, want ErrInvalidArgument", s.LastError())
	}
	if after := stateJSON(t, s); !bytes.Equal(before, after) {
		t.Errorf("state not rolled back:\nbefore %s\nafter  %s", before, after)
	}
}

func TestPanicRollback(t *testing.T) {
	n := 0
	ids := func() string {
		n++
		if n == 3 {
			panic("id source exhausted")
		}
		return fmt.Sprintf("id-%d", n)
	}
	s := newTestStore(t, nil, WithIDFunc(ids))
	deckID := addDeck(t, s, "Spanish")
	before := stateJSON(t, s)
	lastID := s.LastInsertID()

	ok := s.Dispatch(AddCards{DeckID: deckID, Cards: []domain.CardDraft{{Term: "a"}, {Term: "b"}}})
	if ok {
		t.Fatal("panicking dispatch reported success")
	}
	if !errors.Is(s.LastError(), ErrPanic) {
		t.Errorf("LastError = %v, want ErrPanic", s.LastError())
	}
	if after := stateJSON(t, s); !bytes.Equal(before, after) {
		t.Errorf("state not rolled back after panic")
	}
	if s.LastInsertID() != lastID {
		t.Errorf("LastInsertID = %q, want %q", s.LastInsertID(), lastID)
	}
}

func TestAddCardsSkipDuplicates(t *testing.T) {
	s := newTestStore(t, nil)
	deckID := addDeck(t, s, "Spanish")
	addCard(t, s, deckID, "uno", "one")

	mustDispatch(t, s, AddCards{DeckID: deckID, SkipDuplicates: true, Cards: []domain.CardDraft{
		{Term: "UNO ", Definition: "one"},
		{Term: "dos", Definition: "two"},
		{Term: "dos", Definition: "two"},
	}})
	deck, _ := s.DeckByID(deckID)
	if len(deck.Cards) != 2 {
		t.Fatalf("deck has %d cards, want 2", len(deck.Cards))
	}
}

func TestDeckLifecycle(t *testing.T) {
	s := newTestStore(t, nil)
	a := addDeck(t, s, "A")
	b := addDeck(t, s, "B")
	addCard(t, s, a, "x", "y")

	mustDispatch(t, s, DeleteDeck{DeckID: a})
	deck, ok := s.DeckByID(a)
	if !ok || !deck.IsDeleted || len(deck.Cards) != 1 {
		t.Fatalf("soft delete should keep the deck and its cards: %+v", deck)
	}
	if active, _ := s.ActiveDeck(); active.ID != b {
		t.Errorf("active deck = %q, want %q", active.ID, b)
	}
	if live := s.Decks(); len(live) != 1 || live[0].ID != b {
		t.Errorf("Decks() = %+v", live)
	}
	if s.Dispatch(AddCard{DeckID: a, Card: domain.CardDraft{Term: "z"}}) {
		t.Error("added a card to a deleted deck")
	}
	if s.Dispatch(DeleteDeck{DeckID: a}) {
		t.Error("deleted a deck twice")
	}

	mustDispatch(t, s, RestoreDeck{DeckID: a})
	if len(s.DeletedDecks()) != 0 {
		t.Error("deck still listed as deleted after restore")
	}

	mustDispatch(t, s, DeleteDeck{DeckID: a})
	mustDispatch(t, s, PurgeDeck{DeckID: a})
	if _, ok := s.DeckByID(a); ok {
		t.Error("purged deck still present")
	}
}

func TestCardEdits(t *testing.T) {
	s := newTestStore(t, nil)
	a := addDeck(t, s, "A")
	b := addDeck(t, s, "B")
	c1 := addCard(t, s, a, "one", "1")
	c2 := addCard(t, s, a, "two", "2")
	c3 := addCard(t, s, a, "three", "3")

	mustDispatch(t, s, ReorderCards{DeckID: a, From: 2, To: 0})
	deck, _ := s.DeckByID(a)
	if got := []string{deck.Cards[0].ID, deck.Cards[1].ID, deck.Cards[2].ID}; !reflect.DeepEqual(got, []string{c3, c1, c2}) {
		t.Fatalf("order after reorder = %v", got)
	}

	now := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	rec := domain.ReviewRecord{Interval: 1, EaseFactor: 2.36, Repetitions: 1, NextReview: &now, LastReview: &now}
	mustDispatch(t, s, SetReviewData{DeckID: a, CardID: c1, Record: rec})
	mustDispatch(t, s, UpdateCard{DeckID: a, CardID: c1, Card: domain.CardDraft{Term: "uno", Definition: "1", Tags: []string{"es", "es"}}})
	mustDispatch(t, s, SetSuspended{DeckID: a, CardID: c2, Suspended: true})

	deck, _ = s.DeckByID(a)
	card, _ := deck.FindCard(c1)
	if card.Term != "uno" || card.ReviewData == nil || card.ReviewData.Repetitions != 1 || len(card.Tags) != 1 {
		t.Errorf("UpdateCard should keep review data: %+v", card)
	}
	if card, _ := deck.FindCard(c2); !card.Suspended {
		t.Error("card not suspended")
	}

	mustDispatch(t, s, MoveCard{FromDeckID: a, ToDeckID: b, CardID: c1})
	deckB, _ := s.DeckByID(b)
	if moved, ok := deckB.FindCard(c1); !ok || moved.ReviewData == nil {
		t.Errorf("moved card lost: %+v", deckB)
	}

	mustDispatch(t, s, ResetProgress{DeckID: b})
	deckB, _ = s.DeckByID(b)
	if deckB.Cards[0].ReviewData != nil {
		t.Error("ResetProgress kept review data")
	}

	mustDispatch(t, s, DeleteCard{DeckID: a, CardID: c3})
	deck, _ = s.DeckByID(a)
	if len(deck.Cards) != 1 || deck.Cards[0].ID != c2 {
		t.Errorf("cards after delete = %+v", deck.Cards)
	}
}

func TestSettersSkipHistory(t *testing.T) {
	s := newTestStore(t, nil)
	mustDispatch(t, s, SetSearchQuery{Query: "hola"})
	mustDispatch(t, s, SetActiveView{View: "stats"})
	mustDispatch(t, s, SetTheme{Theme: "dark"})
	if s.CanUndo() {
		t.Error("setters recorded history")
	}
	st := s.State()
	if st.SearchQuery != "hola" || st.ActiveView != "stats" || st.Theme != "dark" {
		t.Errorf("settings not applied: %+v", st)
	}
}

func TestSearch(t *testing.T) {
	s := newTestStore(t, nil)
	a := addDeck(t, s, "A")
	addCard(t, s, a, "Perro", "dog")
	mustDispatch(t, s, AddCard{DeckID: a, Card: domain.CardDraft{Term: "gato", Definition: "cat", Tags: []string{"Animals"}}})
	b := addDeck(t, s, "B")
	addCard(t, s, b, "perro caliente", "hot dog")
	mustDispatch(t, s, DeleteDeck{DeckID: b})

	if got := s.Search("PERRO"); len(got) != 1 || got[0].DeckID != a {
		t.Errorf("Search(PERRO) = %+v", got)
	}
	if got := s.Search("animal"); len(got) != 1 || got[0].Card.Term != "gato" {
		t.Errorf("Search(animal) = %+v", got)
	}
	if got := s.Search("  "); got != nil {
		t.Errorf("blank search returned %+v", got)
	}
}

func snapshotJSON(t *testing.T, s *Store) []byte {
	t.Helper()
	data, err := json.Marshal(s.Snapshot())
	if err != nil {
		t.Fatalf("marshal snapshot: %v", err)
	}
	return data
}

func TestUndoRedoRoundTrip(t *testing.T) {
	s := newTestStore(t, nil)
	a := addDeck(t, s, "A")
	start := snapshotJSON(t, s)

	c1 := addCard(t, s, a, "one", "1")
	b := addDeck(t, s, "B")
	mustDispatch(t, s, SetActiveDeck{DeckID: b})
	mustDispatch(t, s, UpdateCard{DeckID: a, CardID: c1, Card: domain.CardDraft{Term: "uno"}})
	mustDispatch(t, s, DeleteDeck{DeckID: b})
	end := snapshotJSON(t, s)

	const n = 5
	for i := 0; i < n; i++ {
		mustDispatch(t, s, Undo{})
	}
	if got := snapshotJSON(t, s); !bytes.Equal(got, start) {
		t.Fatalf("after %d undos:\n got %s\nwant %s", n, got, start)
	}
	for i := 0; i < n; i++ {
		mustDispatch(t, s, Redo{})
	}
	if got := snapshotJSON(t, s); !bytes.Equal(got, end) {
		t.Fatalf("after %d redos:\n got %s\nwant %s", n, got, end)
	}
	if s.Dispatch(Redo{}) {
		t.Fatal("redo past the end succeeded")
	}
	if !errors.Is(s.LastError(), ErrNothingToRedo) {
		t.Errorf("LastError = %v, want ErrNothingToRedo", s.LastError())
	}
}

func TestUndoKeepsSettings(t *testing.T) {
	s := newTestStore(t, nil)
	addDeck(t, s, "A")
	mustDispatch(t, s, SetTheme{Theme: "dark"})
	mustDispatch(t, s, Undo{})
	if st := s.State(); st.Theme != "dark" || len(st.Decks) != 0 {
		t.Errorf("undo should only restore decks: %+v", st)
	}
}

func TestNewActionDropsRedo(t *testing.T) {
	s := newTestStore(t, nil)
	a := addDeck(t, s, "A")
	addCard(t, s, a, "one", "1")
	addCard(t, s, a, "two", "2")

	mustDispatch(t, s, Undo{})
	mustDispatch(t, s, Undo{})
	if !s.CanRedo() {
		t.Fatal("CanRedo = false after undo")
	}
	addCard(t, s, a, "three", "3")
	if s.CanRedo() {
		t.Error("redo tail survived a new action")
	}
	if got := len(s.State().History); got != 2 {
		t.Errorf("history length = %d, want 2", got)
	}
	deck, _ := s.DeckByID(a)
	if len(deck.Cards) != 1 || deck.Cards[0].Term != "three" {
		t.Errorf("cards = %+v", deck.Cards)
	}
}

func TestHistoryLimit(t *testing.T) {
	s := newTestStore(t, nil)
	a := addDeck(t, s, "A")
	for i := 0; i < DefaultHistoryLimit+10; i++ {
		addCard(t, s, a, fmt.Sprintf("term %d", i), "def")
	}
	if got := len(s.State().History); got != DefaultHistoryLimit {
		t.Fatalf("history length = %d, want %d", got, DefaultHistoryLimit)
	}

	for i := 0; i < DefaultHistoryLimit; i++ {
		mustDispatch(t, s, Undo{})
	}
	if s.Dispatch(Undo{}) {
		t.Fatal("undo past the oldest entry succeeded")
	}
	if !errors.Is(s.LastError(), ErrNothingToUndo) {
		t.Errorf("LastError = %v, want ErrNothingToUndo", s.LastError())
	}
	deck, _ := s.DeckByID(a)
	if len(deck.Cards) != 10 {
		t.Errorf("oldest reachable state has %d cards, want 10", len(deck.Cards))
	}
}

func TestNewRejectsBadHistoryLimit(t *testing.T) {
	if _, err := New(nil, WithHistoryLimit(0)); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("New(limit 0) error = %v, want ErrInvalidArgument", err)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	backend := newMemBackend()
	s1 := newTestStore(t, backend)
	a := addDeck(t, s1, "A")
	addCard(t, s1, a, "one", "1")
	mustDispatch(t, s1, SetTheme{Theme: "light"})
	mustDispatch(t, s1, Undo{})

	if _, ok := backend.items[DefaultKey]; !ok {
		t.Fatalf("nothing saved under %q", DefaultKey)
	}

	s2 := newTestStore(t, backend)
	if !bytes.Equal(stateJSON(t, s1), stateJSON(t, s2)) {
		t.Fatalf("reloaded state differs:\n%s\n%s", stateJSON(t, s1), stateJSON(t, s2))
	}
	if !s2.CanRedo() {
		t.Error("redo lost across reload")
	}
	mustDispatch(t, s2, Redo{})
	deck, _ := s2.DeckByID(a)
	if len(deck.Cards) != 1 {
		t.Errorf("redo after reload gave %d cards", len(deck.Cards))
	}
}

func TestLoadCorruptState(t *testing.T) {
	backend := newMemBackend()
	backend.items[DefaultKey] = []byte("{not json")
	if _, err := New(backend, WithLogger(quietLogger())); err == nil {
		t.Fatal("New accepted corrupt state")
	}
}

func TestLoadRepairsState(t *testing.T) {
	backend := newMemBackend()
	backend.items[DefaultKey] = []byte(`{"decks":[{"id":"d1","name":"A","cards":[]}],"activeDeckId":"gone","history":[],"historyIndex":7}`)
	s := newTestStore(t, backend)
	st := s.State()
	if st.ActiveDeckID != "d1" || st.HistoryIndex != 0 {
		t.Errorf("state not repaired: active=%q index=%d", st.ActiveDeckID, st.HistoryIndex)
	}
}

func TestLoadNormalizesTags(t *testing.T) {
	backend := newMemBackend()
	deck := `{"id":"d1","name":"A","cards":[{"id":"c1","term":"x","definition":"","tags":null},{"id":"c2","term":"y","definition":"","tags":[" a ","a",""]}]}`
	backend.items[DefaultKey] = []byte(`{"decks":[` + deck + `],"activeDeckId":"d1","history":[{"decks":[` + deck + `],"activeDeckId":"d1"}],"historyIndex":1}`)
	s := newTestStore(t, backend)

	for _, c := range s.State().Decks[0].Cards {
		if c.Tags == nil {
			t.Errorf("card %s: tags = nil, want empty", c.ID)
		}
	}
	if got := s.State().Decks[0].Cards[1].Tags; !reflect.DeepEqual(got, []string{"a"}) {
		t.Errorf("tags = %q, want [a]", got)
	}

	mustDispatch(t, s, SetSuspended{DeckID: "d1", CardID: "c1", Suspended: true})
	if bytes.Contains(backend.items[DefaultKey], []byte(`"tags":null`)) {
		t.Errorf("persisted state has null tags:\n%s", backend.items[DefaultKey])
	}
}

func TestStorageFullTrimsHistory(t *testing.T) {
	backend := newMemBackend()
	s := newTestStore(t, backend, WithTrimTo(1))
	a := addDeck(t, s, "A")
	for i := 0; i < 4; i++ {
		addCard(t, s, a, fmt.Sprintf("term %d", i), "definition")
	}
	backend.quota = len(backend.items[DefaultKey])
	writes := backend.writes

	addCard(t, s, a, "term 4", "definition")
	if err := s.StorageWarning(); err != nil {
		t.Fatalf("StorageWarning = %v, want nil after trimming", err)
	}
	if backend.writes != writes+1 {
		t.Errorf("writes = %d, want %d", backend.writes, writes+1)
	}
	if got := len(s.State().History); got != 1 {
		t.Errorf("history length = %d, want 1", got)
	}
	mustDispatch(t, s, Undo{})
	deck, _ := s.DeckByID(a)
	if len(deck.Cards) != 4 {
		t.Errorf("undo after trim gave %d cards, want 4", len(deck.Cards))
	}
}

func TestStorageExhausted(t *testing.T) {
	backend := newMemBackend()
	s := newTestStore(t, backend)
	a := addDeck(t, s, "A")
	backend.quota = 10

	if !s.Dispatch(AddCard{DeckID: a, Card: domain.CardDraft{Term: "one"}}) {
		t.Fatalf("Dispatch failed: %v", s.LastError())
	}
	if err := s.StorageWarning(); !errors.Is(err, domain.ErrStorageExhausted) {
		t.Fatalf("StorageWarning = %v, want ErrStorageExhausted", err)
	}
	deck, _ := s.DeckByID(a)
	if len(deck.Cards) != 1 {
		t.Error("in-memory state should keep the change")
	}

	backend.quota = 0
	mustDispatch(t, s, SetSearchQuery{Query: "x"})
	if err := s.StorageWarning(); err != nil {
		t.Errorf("StorageWarning = %v after space freed", err)
	}
}
