package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/parser"
	"github.com/conorfennell/flashdeck/internal/sm2"
	"github.com/conorfennell/flashdeck/internal/store"
	"github.com/dustin/go-humanize"
)

type command struct {
	args    string
	help    string
	minArgs int
	maxArgs int // -1 for no limit
	run     func(a *app, args []string) error
}

var commands = map[string]command{
	"decks":        {"", "List decks", 0, 0, cmdDecks},
	"new-deck":     {"<name> [#color]", "Create a deck", 1, 2, cmdNewDeck},
	"delete-deck":  {"<deck>", "Move a deck to the trash", 1, 1, cmdDeleteDeck},
	"restore-deck": {"<deck>", "Restore a deck from the trash", 1, 1, cmdRestoreDeck},
	"purge-deck":   {"<deck>", "Delete a deck for good", 1, 1, cmdPurgeDeck},
	"use":          {"<deck>", "Set the active deck", 1, 1, cmdUse},
	"add":          {"[file|dir]", "Add cards to the active deck from stdin, a file or a directory", 0, 1, cmdAdd},
	"due":          {"", "List due cards of the active deck", 0, 0, cmdDue},
	"study":        {"", "Study the due cards of the active deck", 0, 0, cmdStudy},
	"undo":         {"", "Undo the last change", 0, 0, cmdUndo},
	"redo":         {"", "Redo the last undone change", 0, 0, cmdRedo},
	"search":       {"<query>", "Search cards in every deck", 1, -1, cmdSearch},
	"move":         {"<card> <deck>", "Move a card of the active deck", 2, 2, cmdMove},
	"suspend":      {"<card>", "Exclude a card from study", 1, 1, cmdSuspend(true)},
	"unsuspend":    {"<card>", "Include a card in study again", 1, 1, cmdSuspend(false)},
	"forget":       {"[card]", "Reset review progress of a card or the whole deck", 0, 1, cmdForget},
	"storage":      {"", "Show stored keys and quota usage", 0, 0, cmdStorage},
	"reset":        {"", "Remove all saved data", 0, 0, cmdReset},
}

// rawCommands work on the database directly and run even when the saved
// state does not decode.
var rawCommands = map[string]bool{"storage": true, "reset": true}

// dispatch applies act and reports a failed write without failing the command.
func (a *app) dispatch(act store.Action) error {
	if !a.store.Dispatch(act) {
		return a.store.LastError()
	}
	if err := a.store.StorageWarning(); err != nil {
		a.logger.Warn("Change not saved", "error", err)
	}
	return nil
}

// findDeck resolves an id or a case-insensitive name among live or deleted decks.
func (a *app) findDeck(ref string, deleted bool) (domain.Deck, error) {
	decks := a.store.Decks()
	if deleted {
		decks = a.store.DeletedDecks()
	}
	for _, d := range decks {
		if d.ID == ref || strings.EqualFold(d.Name, ref) {
			return d, nil
		}
	}
	return domain.Deck{}, fmt.Errorf("deck %q: %w", ref, domain.ErrNotFound)
}

func (a *app) activeDeck() (domain.Deck, error) {
	d, ok := a.store.ActiveDeck()
	if !ok {
		return domain.Deck{}, fmt.Errorf("no active deck, create one with new-deck: %w", domain.ErrNotFound)
	}
	return d, nil
}

func cmdDecks(a *app, _ []string) error {
	active, _ := a.store.ActiveDeck()
	now := time.Now()
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\tNAME\tCARDS\tDUE\tID")
	for _, d := range a.store.Decks() {
		marker := ""
		if d.ID == active.ID {
			marker = "*"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", marker, d.Name, len(d.Cards), len(sm2.DueCards(d, now)), d.ID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if deleted := a.store.DeletedDecks(); len(deleted) > 0 {
		fmt.Fprintln(a.out, "\nTrash:")
		for _, d := range deleted {
			fmt.Fprintf(a.out, "  %s (%d cards) %s\n", d.Name, len(d.Cards), d.ID)
		}
	}
	return nil
}

func cmdNewDeck(a *app, args []string) error {
	draft := domain.DeckDraft{Name: args[0]}
	if len(args) > 1 {
		draft.Color = args[1]
	}
	if err := a.dispatch(store.AddDeck{Deck: draft}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created deck %s (%s)\n", strings.TrimSpace(args[0]), a.store.LastInsertID())
	return nil
}

func cmdDeleteDeck(a *app, args []string) error {
	d, err := a.findDeck(args[0], false)
	if err != nil {
		return err
	}
	if err := a.dispatch(store.DeleteDeck{DeckID: d.ID}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Moved %s to the trash\n", d.Name)
	return nil
}

func cmdRestoreDeck(a *app, args []string) error {
	d, err := a.findDeck(args[0], true)
	if err != nil {
		return err
	}
	if err := a.dispatch(store.RestoreDeck{DeckID: d.ID}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Restored %s\n", d.Name)
	return nil
}

func cmdPurgeDeck(a *app, args []string) error {
	d, err := a.findDeck(args[0], true)
	if errors.Is(err, domain.ErrNotFound) {
		d, err = a.findDeck(args[0], false)
	}
	if err != nil {
		return err
	}
	if err := a.dispatch(store.PurgeDeck{DeckID: d.ID}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Purged %s\n", d.Name)
	return nil
}

func cmdUse(a *app, args []string) error {
	d, err := a.findDeck(args[0], false)
	if err != nil {
		return err
	}
	if err := a.dispatch(store.SetActiveDeck{DeckID: d.ID}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Now using %s\n", d.Name)
	return nil
}

func cmdAdd(a *app, args []string) error {
	deck, err := a.activeDeck()
	if err != nil {
		return err
	}

	drafts, err := a.readCards(args)
	if err != nil {
		return fmt.Errorf("failed to read cards: %w", err)
	}
	if len(drafts) == 0 {
		fmt.Fprintln(a.out, "No cards found. Write cards as \"Q: term\", \"A: definition\", \"T: tag, tag\".")
		return nil
	}

	if err := a.dispatch(store.AddCards{DeckID: deck.ID, Cards: drafts, SkipDuplicates: true}); err != nil {
		return err
	}
	after, _ := a.store.DeckByID(deck.ID)
	added := len(after.Cards) - len(deck.Cards)
	fmt.Fprintf(a.out, "Added %d cards to %s", added, deck.Name)
	if skipped := len(drafts) - added; skipped > 0 {
		fmt.Fprintf(a.out, " (%d duplicates skipped)", skipped)
	}
	fmt.Fprintln(a.out)
	return nil
}

// readCards parses stdin, a file, or every card file under a directory.
func (a *app) readCards(args []string) ([]domain.CardDraft, error) {
	if len(args) == 0 {
		return parser.Parse(a.in)
	}
	info, err := os.Stat(args[0])
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return parser.ParseFile(args[0])
	}
	drafts, parseErrors, err := parser.ParseDir(args[0])
	for _, e := range parseErrors {
		a.logger.Warn("Skipped file", "error", e)
	}
	return drafts, err
}

func cmdDue(a *app, _ []string) error {
	deck, err := a.activeDeck()
	if err != nil {
		return err
	}
	now := time.Now()
	due := sm2.DueCards(deck, now)
	if len(due) == 0 {
		fmt.Fprintf(a.out, "No cards due in %s.\n", deck.Name)
		if next, ok := nextReview(deck); ok {
			fmt.Fprintf(a.out, "Next review %s.\n", humanize.RelTime(next, now, "ago", "from now"))
		}
		return nil
	}

	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TERM\tSTATUS\tID")
	for _, c := range due {
		status := "new"
		if !c.IsNew() {
			status = "due " + humanize.RelTime(*c.ReviewData.NextReview, now, "ago", "from now")
		}
		if c.Suspended {
			status += ", suspended"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", firstLine(c.Term), status, c.ID)
	}
	return w.Flush()
}

// nextReview returns the earliest scheduled review in deck.
func nextReview(deck domain.Deck) (time.Time, bool) {
	var next time.Time
	found := false
	for _, c := range deck.Cards {
		if c.IsNew() || c.Suspended {
			continue
		}
		if t := *c.ReviewData.NextReview; !found || t.Before(next) {
			next, found = t, true
		}
	}
	return next, found
}

func cmdUndo(a *app, _ []string) error {
	err := a.dispatch(store.Undo{})
	if errors.Is(err, store.ErrNothingToUndo) {
		fmt.Fprintln(a.out, "Nothing to undo.")
		return nil
	}
	if err == nil {
		fmt.Fprintln(a.out, "Undone.")
	}
	return err
}

func cmdRedo(a *app, _ []string) error {
	err := a.dispatch(store.Redo{})
	if errors.Is(err, store.ErrNothingToRedo) {
		fmt.Fprintln(a.out, "Nothing to redo.")
		return nil
	}
	if err == nil {
		fmt.Fprintln(a.out, "Redone.")
	}
	return err
}

func cmdSearch(a *app, args []string) error {
	query := strings.Join(args, " ")
	results := a.store.Search(query)
	if len(results) == 0 {
		fmt.Fprintf(a.out, "No cards match %q.\n", query)
		return nil
	}
	w := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DECK\tTERM\tDEFINITION\tID")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.DeckName, firstLine(r.Card.Term), firstLine(r.Card.Definition), r.Card.ID)
	}
	return w.Flush()
}

func cmdMove(a *app, args []string) error {
	from, err := a.activeDeck()
	if err != nil {
		return err
	}
	to, err := a.findDeck(args[1], false)
	if err != nil {
		return err
	}
	if err := a.dispatch(store.MoveCard{FromDeckID: from.ID, ToDeckID: to.ID, CardID: args[0]}); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Moved card to %s\n", to.Name)
	return nil
}

func cmdSuspend(suspended bool) func(*app, []string) error {
	return func(a *app, args []string) error {
		deck, err := a.activeDeck()
		if err != nil {
			return err
		}
		if err := a.dispatch(store.SetSuspended{DeckID: deck.ID, CardID: args[0], Suspended: suspended}); err != nil {
			return err
		}
		if suspended {
			fmt.Fprintln(a.out, "Card suspended.")
		} else {
			fmt.Fprintln(a.out, "Card unsuspended.")
		}
		return nil
	}
}

func cmdForget(a *app, args []string) error {
	deck, err := a.activeDeck()
	if err != nil {
		return err
	}
	act := store.ResetProgress{DeckID: deck.ID}
	if len(args) == 1 {
		act.CardID = args[0]
	}
	if err := a.dispatch(act); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Review progress reset.")
	return nil
}

func cmdStorage(a *app, _ []string) error {
	keys, err := a.db.Keys()
	if err != nil {
		return err
	}
	used, quota, err := a.db.Usage()
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s: %s of %s used\n", a.cfg.DB, humanize.IBytes(uint64(used)), humanize.IBytes(uint64(quota)))
	for _, k := range keys {
		fmt.Fprintf(a.out, "  %s\n", k)
	}
	return nil
}

func cmdReset(a *app, _ []string) error {
	if err := a.db.RemoveItem(a.cfg.Storage.Key); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed %s from %s\n", a.cfg.Storage.Key, a.cfg.DB)
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
