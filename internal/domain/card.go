package domain

import (
	"strings"
	"time"
)

// Card represents a single term/definition entry owned by a deck.
// ReviewData is nil until the card has been reviewed once.
type Card struct {
	ID         string        `json:"id"`
	Term       string        `json:"term"`
	Definition string        `json:"definition"`
	Tags       []string      `json:"tags"`
	ReviewData *ReviewRecord `json:"reviewData"`
	Suspended  bool          `json:"suspended"`
}

// IsNew reports whether the card has never been reviewed.
func (c Card) IsNew() bool {
	return c.ReviewData == nil || c.ReviewData.NextReview == nil
}

// ReviewRecord holds the SM-2 scheduling state of a card.
type ReviewRecord struct {
	Interval      int           `json:"interval"`
	EaseFactor    float64       `json:"easeFactor"`
	Repetitions   int           `json:"repetitions"`
	NextReview    *time.Time    `json:"nextReview"`
	LastReview    *time.Time    `json:"lastReview"`
	ReviewHistory []ReviewEvent `json:"reviewHistory"`
}

// ReviewEvent records a single review. Events are appended, never rewritten.
type ReviewEvent struct {
	Timestamp  time.Time `json:"timestamp"`
	Quality    int       `json:"quality"`
	Interval   int       `json:"interval"`
	EaseFactor float64   `json:"easeFactor"`
}

// CardDraft is the user-supplied content of a card before it gets an id.
type CardDraft struct {
	Term       string   `json:"term" validate:"required_without=Definition,max=2000"`
	Definition string   `json:"definition" validate:"required_without=Term,max=10000"`
	Tags       []string `json:"tags" validate:"dive,max=64"`
}

// NormalizeTags trims each tag, drops empty ones and removes duplicates,
// keeping the first occurrence order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return []string{}
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
