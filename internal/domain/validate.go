package domain

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate checks a CardDraft. Whitespace-only fields count as empty.
func (d CardDraft) Validate() error {
	d.Term = strings.TrimSpace(d.Term)
	d.Definition = strings.TrimSpace(d.Definition)
	if err := Validator().Struct(d); err != nil {
		return fmt.Errorf("%w: card: %v", ErrInvalidArgument, err)
	}
	return nil
}

// Validate checks a DeckDraft.
func (d DeckDraft) Validate() error {
	d.Name = strings.TrimSpace(d.Name)
	if err := Validator().Struct(d); err != nil {
		return fmt.Errorf("%w: deck: %v", ErrInvalidArgument, err)
	}
	return nil
}
