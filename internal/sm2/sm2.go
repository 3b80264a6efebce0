// Package sm2 implements the SuperMemo-2 review scheduler.
//
// All functions are pure: they take the current review record and the
// review time and return a new record without touching the input.
package sm2

import (
	"fmt"
	"math"
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
)

const (
	// DefaultEaseFactor is the ease factor of a card that was never reviewed.
	DefaultEaseFactor = 2.5
	// MinEaseFactor is the hard floor of the ease factor.
	MinEaseFactor = 1.3
)

// Next computes the review record that results from rating rec with q at now.
// A nil rec is treated as a new card.
func Next(rec *domain.ReviewRecord, q Quality, now time.Time) (domain.ReviewRecord, error) {
	if !q.IsValid() {
		return domain.ReviewRecord{}, fmt.Errorf("%w: quality %d outside 0-5", domain.ErrInvalidArgument, int(q))
	}

	ef, interval, reps := current(rec)
	interval, reps = nextInterval(ef, interval, reps, q)
	ef = nextEaseFactor(ef, q)

	next := now.AddDate(0, 0, interval)
	last := now

	var history []domain.ReviewEvent
	if rec != nil {
		history = make([]domain.ReviewEvent, len(rec.ReviewHistory), len(rec.ReviewHistory)+1)
		copy(history, rec.ReviewHistory)
	}
	history = append(history, domain.ReviewEvent{
		Timestamp:  now,
		Quality:    int(q),
		Interval:   interval,
		EaseFactor: ef,
	})

	return domain.ReviewRecord{
		Interval:      interval,
		EaseFactor:    ef,
		Repetitions:   reps,
		NextReview:    &next,
		LastReview:    &last,
		ReviewHistory: history,
	}, nil
}

// current reads the scheduling fields of rec, falling back to defaults.
func current(rec *domain.ReviewRecord) (ef float64, interval, reps int) {
	if rec == nil {
		return DefaultEaseFactor, 0, 0
	}
	ef = rec.EaseFactor
	if ef == 0 {
		ef = DefaultEaseFactor
	}
	return ef, rec.Interval, rec.Repetitions
}

// nextInterval applies the interval and repetition rules. The multiplication
// uses the ease factor from before this review.
func nextInterval(ef float64, interval, reps int, q Quality) (int, int) {
	if !q.Correct() {
		return 1, 0
	}
	switch reps {
	case 0:
		interval = 1
	case 1:
		interval = 6
	default:
		interval = int(math.Round(float64(interval) * ef))
	}
	return interval, reps + 1
}

// nextEaseFactor applies EF' = EF + (0.1 - (5-q)*(0.08 + (5-q)*0.02)),
// floored at MinEaseFactor. Incorrect answers adjust it too.
func nextEaseFactor(ef float64, q Quality) float64 {
	d := float64(5 - q)
	ef = ef + (0.1 - d*(0.08+d*0.02))
	return math.Max(MinEaseFactor, ef)
}
