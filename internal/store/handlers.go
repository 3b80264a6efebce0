package store

import (
	"fmt"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/knol"
)

// handle dispatches on the concrete action type. Handlers mutate s.state in
// place; apply restores the backup if they return an error.
func (s *Store) handle(a Action) error {
	switch a := a.(type) {
	case AddDeck:
		return s.addDeck(a)
	case UpdateDeck:
		return s.updateDeck(a)
	case DeleteDeck:
		return s.deleteDeck(a)
	case RestoreDeck:
		return s.restoreDeck(a)
	case PurgeDeck:
		return s.purgeDeck(a)
	case SetActiveDeck:
		return s.setActiveDeck(a)
	case AddCard:
		return s.addCards(a.DeckID, []domain.CardDraft{a.Card}, false)
	case AddCards:
		return s.addCards(a.DeckID, a.Cards, a.SkipDuplicates)
	case UpdateCard:
		return s.updateCard(a)
	case DeleteCard:
		return s.deleteCard(a)
	case MoveCard:
		return s.moveCard(a)
	case ReorderCards:
		return s.reorderCards(a)
	case SetReviewData:
		return s.setReviewData(a)
	case ResetProgress:
		return s.resetProgress(a)
	case SetSuspended:
		return s.setSuspended(a)
	case SetSearchQuery:
		s.state.SearchQuery = a.Query
		return nil
	case SetActiveView:
		s.state.ActiveView = strings.TrimSpace(a.View)
		return nil
	case SetTheme:
		if err := domain.Validator().Var(a.Theme, "oneof=light dark system"); err != nil {
			return fmt.Errorf("%w: theme %q", domain.ErrInvalidArgument, a.Theme)
		}
		s.state.Theme = a.Theme
		return nil
	case Undo:
		return s.undo()
	case Redo:
		return s.redo()
	default:
		return fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
}

func (s *Store) addDeck(a AddDeck) error {
	if err := a.Deck.Validate(); err != nil {
		return err
	}
	deck := domain.Deck{
		ID:    s.newID(),
		Name:  strings.TrimSpace(a.Deck.Name),
		Color: a.Deck.Color,
		Cards: []domain.Card{},
	}
	if s.state.deckIndex(deck.ID) >= 0 {
		return fmt.Errorf("%w: duplicate deck id %q", domain.ErrInvalidArgument, deck.ID)
	}
	s.state.Decks = append(s.state.Decks, deck)
	if s.state.ActiveDeckID == "" {
		s.state.ActiveDeckID = deck.ID
	}
	s.lastID = deck.ID
	return nil
}

func (s *Store) updateDeck(a UpdateDeck) error {
	i, err := s.state.liveDeck(a.DeckID)
	if err != nil {
		return err
	}
	if err := a.Deck.Validate(); err != nil {
		return err
	}
	s.state.Decks[i].Name = strings.TrimSpace(a.Deck.Name)
	s.state.Decks[i].Color = a.Deck.Color
	return nil
}

func (s *Store) deleteDeck(a DeleteDeck) error {
	i, err := s.state.liveDeck(a.DeckID)
	if err != nil {
		return err
	}
	s.state.Decks[i].IsDeleted = true
	if s.state.ActiveDeckID == a.DeckID {
		s.state.ActiveDeckID = s.state.firstLiveDeckID()
	}
	return nil
}

func (s *Store) restoreDeck(a RestoreDeck) error {
	i := s.state.deckIndex(a.DeckID)
	if i < 0 || !s.state.Decks[i].IsDeleted {
		return fmt.Errorf("deleted deck %q: %w", a.DeckID, domain.ErrNotFound)
	}
	s.state.Decks[i].IsDeleted = false
	if s.state.ActiveDeckID == "" {
		s.state.ActiveDeckID = a.DeckID
	}
	return nil
}

func (s *Store) purgeDeck(a PurgeDeck) error {
	i := s.state.deckIndex(a.DeckID)
	if i < 0 {
		return fmt.Errorf("deck %q: %w", a.DeckID, domain.ErrNotFound)
	}
	s.state.Decks = append(s.state.Decks[:i], s.state.Decks[i+1:]...)
	if s.state.ActiveDeckID == a.DeckID {
		s.state.ActiveDeckID = s.state.firstLiveDeckID()
	}
	return nil
}

func (s *Store) setActiveDeck(a SetActiveDeck) error {
	if a.DeckID != "" {
		if _, err := s.state.liveDeck(a.DeckID); err != nil {
			return err
		}
	}
	s.state.ActiveDeckID = a.DeckID
	return nil
}

func (s *Store) addCards(deckID string, drafts []domain.CardDraft, skipDuplicates bool) error {
	di, err := s.state.liveDeck(deckID)
	if err != nil {
		return err
	}
	if len(drafts) == 0 {
		return fmt.Errorf("%w: no cards", domain.ErrInvalidArgument)
	}

	seen := make(map[string]bool)
	if skipDuplicates {
		for _, c := range s.state.Decks[di].Cards {
			seen[knol.Hash(c)] = true
		}
	}

	for n, draft := range drafts {
		if err := draft.Validate(); err != nil {
			return fmt.Errorf("card %d: %w", n+1, err)
		}
		card := domain.Card{
			ID:         s.newID(),
			Term:       strings.TrimSpace(draft.Term),
			Definition: strings.TrimSpace(draft.Definition),
			Tags:       domain.NormalizeTags(draft.Tags),
		}
		if skipDuplicates {
			h := knol.Hash(card)
			if seen[h] {
				continue
			}
			seen[h] = true
		}
		if s.state.Decks[di].CardIndex(card.ID) >= 0 {
			return fmt.Errorf("%w: duplicate card id %q", domain.ErrInvalidArgument, card.ID)
		}
		s.state.Decks[di].Cards = append(s.state.Decks[di].Cards, card)
		s.lastID = card.ID
	}
	return nil
}

func (s *Store) updateCard(a UpdateCard) error {
	di, ci, err := s.state.liveCard(a.DeckID, a.CardID)
	if err != nil {
		return err
	}
	if err := a.Card.Validate(); err != nil {
		return err
	}
	card := &s.state.Decks[di].Cards[ci]
	card.Term = strings.TrimSpace(a.Card.Term)
	card.Definition = strings.TrimSpace(a.Card.Definition)
	card.Tags = domain.NormalizeTags(a.Card.Tags)
	return nil
}

func (s *Store) deleteCard(a DeleteCard) error {
	di, ci, err := s.state.liveCard(a.DeckID, a.CardID)
	if err != nil {
		return err
	}
	cards := s.state.Decks[di].Cards
	s.state.Decks[di].Cards = append(cards[:ci], cards[ci+1:]...)
	return nil
}

func (s *Store) moveCard(a MoveCard) error {
	from, ci, err := s.state.liveCard(a.FromDeckID, a.CardID)
	if err != nil {
		return err
	}
	to, err := s.state.liveDeck(a.ToDeckID)
	if err != nil {
		return err
	}
	if from == to {
		return fmt.Errorf("%w: card already in deck %q", domain.ErrInvalidArgument, a.ToDeckID)
	}
	card := s.state.Decks[from].Cards[ci]
	cards := s.state.Decks[from].Cards
	s.state.Decks[from].Cards = append(cards[:ci], cards[ci+1:]...)
	s.state.Decks[to].Cards = append(s.state.Decks[to].Cards, card)
	return nil
}

func (s *Store) reorderCards(a ReorderCards) error {
	di, err := s.state.liveDeck(a.DeckID)
	if err != nil {
		return err
	}
	cards := s.state.Decks[di].Cards
	if a.From < 0 || a.From >= len(cards) || a.To < 0 || a.To >= len(cards) {
		return fmt.Errorf("%w: reorder %d -> %d in %d cards", domain.ErrInvalidArgument, a.From, a.To, len(cards))
	}
	card := cards[a.From]
	cards = append(cards[:a.From], cards[a.From+1:]...)
	cards = append(cards[:a.To], append([]domain.Card{card}, cards[a.To:]...)...)
	s.state.Decks[di].Cards = cards
	return nil
}

func (s *Store) setReviewData(a SetReviewData) error {
	di, ci, err := s.state.liveCard(a.DeckID, a.CardID)
	if err != nil {
		return err
	}
	r := a.Record
	if r.EaseFactor < 1.3 || r.Interval < 0 || r.Repetitions < 0 {
		return fmt.Errorf("%w: review record interval=%d easeFactor=%.2f repetitions=%d",
			domain.ErrInvalidArgument, r.Interval, r.EaseFactor, r.Repetitions)
	}
	rec := deepCopy(r)
	s.state.Decks[di].Cards[ci].ReviewData = &rec
	return nil
}

func (s *Store) resetProgress(a ResetProgress) error {
	if a.CardID == "" {
		di, err := s.state.liveDeck(a.DeckID)
		if err != nil {
			return err
		}
		for i := range s.state.Decks[di].Cards {
			s.state.Decks[di].Cards[i].ReviewData = nil
		}
		return nil
	}
	di, ci, err := s.state.liveCard(a.DeckID, a.CardID)
	if err != nil {
		return err
	}
	s.state.Decks[di].Cards[ci].ReviewData = nil
	return nil
}

func (s *Store) setSuspended(a SetSuspended) error {
	di, ci, err := s.state.liveCard(a.DeckID, a.CardID)
	if err != nil {
		return err
	}
	s.state.Decks[di].Cards[ci].Suspended = a.Suspended
	return nil
}
