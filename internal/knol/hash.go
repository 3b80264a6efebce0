// Package knol fingerprints card content. Fingerprints identify a card by what
// it says rather than by its id; they back duplicate detection and the
// content-match fallback for cards whose id changed.
package knol

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// Normalize concatenates the card's term and definition after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each field
// before joining them.
func Normalize(card domain.Card) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		return strings.TrimSpace(p)
	}

	// A newline keeps "ab"+"c" and "a"+"bc" apart.
	return normalizePart(card.Term) + "\n" + normalizePart(card.Definition)
}

// Hash takes a card, normalizes it, and returns its SHA-256 hash as a hex string.
// Tags, review data and the id do not contribute.
func Hash(card domain.Card) string {
	sum := sha256.Sum256([]byte(Normalize(card)))
	return fmt.Sprintf("%x", sum)
}

// Same reports whether two cards carry the same content.
func Same(a, b domain.Card) bool {
	return Normalize(a) == Normalize(b)
}
