package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/session"
	"github.com/conorfennell/flashdeck/internal/sm2"
)

func cmdStudy(a *app, _ []string) error {
	rq := a.cfg.Requeue
	s := session.New(a.store,
		session.WithLogger(a.logger),
		session.WithRequeue(session.RequeuePolicy{
			Enabled:  rq.Enabled,
			AgainMin: rq.AgainMin,
			AgainMax: rq.AgainMax,
			HardMin:  rq.HardMin,
			HardMax:  rq.HardMax,
		}),
	)
	if err := s.StartActive(); err != nil {
		if errors.Is(err, domain.ErrNoCardsDue) {
			fmt.Fprintln(a.out, "No cards due. Come back later.")
			return nil
		}
		return err
	}

	in := bufio.NewScanner(a.in)
	for s.State() == session.InProgress {
		card, _ := s.Current()
		i, n := s.Position()
		fmt.Fprintf(a.out, "\n[%d/%d] %s\n", i+1, n, card.Term)
		fmt.Fprint(a.out, "Enter to show the answer, q to stop: ")
		if !in.Scan() || strings.TrimSpace(in.Text()) == "q" {
			break
		}

		s.RevealAnswer()
		fmt.Fprintf(a.out, "%s\n", card.Definition)
		if len(card.Tags) > 0 {
			fmt.Fprintf(a.out, "Tags: %s\n", strings.Join(card.Tags, ", "))
		}

		b, ok := askRating(a, in, card)
		if !ok {
			break
		}
		sum, err := s.Rate(b)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			fmt.Fprintln(a.out, "Card was removed, skipped.")
		case err != nil:
			return err
		default:
			if werr := a.store.StorageWarning(); werr != nil {
				a.logger.Warn("Review not saved", "error", werr)
				fmt.Fprintln(a.out, "Warning: storage is full, this review was not saved.")
			}
		}
		if sum != nil {
			printSummary(a, *sum)
			return nil
		}
	}

	printSummary(a, s.End())
	return nil
}

// askRating prompts until a valid bucket is entered. It returns false when
// input ends or the user quits.
func askRating(a *app, in *bufio.Scanner, card domain.Card) (sm2.Bucket, bool) {
	labels := sm2.PreviewAll(card.ReviewData)
	var opts []string
	for _, b := range sm2.Buckets {
		opts = append(opts, fmt.Sprintf("%d %s (%s)", int(b), b, labels[b]))
	}
	prompt := strings.Join(opts, "  ") + ": "

	for {
		fmt.Fprint(a.out, prompt)
		if !in.Scan() {
			return 0, false
		}
		text := strings.TrimSpace(in.Text())
		if text == "q" {
			return 0, false
		}
		b, err := sm2.ParseBucket(text)
		if err == nil {
			return b, true
		}
		fmt.Fprintln(a.out, "Rate with 1-4 or again, hard, good, easy.")
	}
}

func printSummary(a *app, sum session.Summary) {
	c := sum.Counts
	fmt.Fprintf(a.out, "\nReviewed %d cards: %d again, %d hard, %d good, %d easy\n",
		sum.TotalReviewed, c.Again, c.Hard, c.Good, c.Easy)
}
