package sm2

import (
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// IsDue reports whether card must be shown at now. New cards are always due.
func IsDue(card domain.Card, now time.Time) bool {
	if card.IsNew() {
		return true
	}
	return !card.ReviewData.NextReview.After(now)
}

// DueCards returns the due cards of deck in deck order. No cap is applied.
func DueCards(deck domain.Deck, now time.Time) []domain.Card {
	var due []domain.Card
	for _, c := range deck.Cards {
		if IsDue(c, now) {
			due = append(due, c)
		}
	}
	return due
}
