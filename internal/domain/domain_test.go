package domain

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestNormalizeTags(t *testing.T) {
	testCases := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil", input: nil, expected: []string{}},
		{name: "trims and drops empty", input: []string{" go ", "", "  "}, expected: []string{"go"}},
		{name: "deduplicates keeping order", input: []string{"b", "a", "b", "c", "a"}, expected: []string{"b", "a", "c"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := NormalizeTags(tc.input)
			if !reflect.DeepEqual(got, tc.expected) {
				t.Errorf("NormalizeTags(%q) = %q, want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestCardDraftValidate(t *testing.T) {
	testCases := []struct {
		name    string
		draft   CardDraft
		wantErr bool
	}{
		{name: "term and definition", draft: CardDraft{Term: "Go", Definition: "A language"}},
		{name: "term only", draft: CardDraft{Term: "Go"}},
		{name: "definition only", draft: CardDraft{Definition: "A language"}},
		{name: "neither", draft: CardDraft{}, wantErr: true},
		{name: "whitespace only", draft: CardDraft{Term: "  ", Definition: "\n"}, wantErr: true},
		{name: "tag too long", draft: CardDraft{Term: "x", Tags: []string{strings.Repeat("t", 65)}}, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.draft.Validate()
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Fatalf("Validate() = %v, want ErrInvalidArgument", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate() returned an unexpected error: %v", err)
			}
		})
	}
}

func TestDeckDraftValidate(t *testing.T) {
	if err := (DeckDraft{Name: "Spanish", Color: "#ff8800"}).Validate(); err != nil {
		t.Errorf("valid deck rejected: %v", err)
	}
	if err := (DeckDraft{Name: "Spanish"}).Validate(); err != nil {
		t.Errorf("deck without colour rejected: %v", err)
	}
	if err := (DeckDraft{Name: " "}).Validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("blank name: got %v, want ErrInvalidArgument", err)
	}
	if err := (DeckDraft{Name: "x", Color: "orange"}).Validate(); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("bad colour: got %v, want ErrInvalidArgument", err)
	}
}

func TestDeckFindCard(t *testing.T) {
	deck := Deck{Cards: []Card{{ID: "a"}, {ID: "b"}}}
	if i := deck.CardIndex("b"); i != 1 {
		t.Errorf("CardIndex(b) = %d, want 1", i)
	}
	if i := deck.CardIndex("zzz"); i != -1 {
		t.Errorf("CardIndex(zzz) = %d, want -1", i)
	}
	if _, ok := deck.FindCard("zzz"); ok {
		t.Error("FindCard(zzz) reported found")
	}
}

func TestCardIsNew(t *testing.T) {
	next := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	if !(Card{}).IsNew() {
		t.Error("card without review data should be new")
	}
	if !(Card{ReviewData: &ReviewRecord{}}).IsNew() {
		t.Error("card without next review should be new")
	}
	if (Card{ReviewData: &ReviewRecord{NextReview: &next}}).IsNew() {
		t.Error("reviewed card should not be new")
	}
}
