package sm2

import (
	"fmt"
	"math"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// PreviewInterval returns the interval rating rec with q would produce,
// formatted for a button label. Nothing is mutated.
func PreviewInterval(rec *domain.ReviewRecord, q Quality) (string, error) {
	if !q.IsValid() {
		return "", fmt.Errorf("%w: quality %d outside 0-5", domain.ErrInvalidArgument, int(q))
	}
	ef, interval, reps := current(rec)
	interval, _ = nextInterval(ef, interval, reps, q)
	return FormatInterval(interval), nil
}

// PreviewAll returns the preview label of every bucket.
func PreviewAll(rec *domain.ReviewRecord) map[Bucket]string {
	out := make(map[Bucket]string, len(Buckets))
	for _, b := range Buckets {
		label, _ := PreviewInterval(rec, b.Quality())
		out[b] = label
	}
	return out
}

// FormatInterval renders a day count as "10m", "Nd", "Nmo" or "Ny".
// Months are 30 days and years 365 days, rounded to the nearest unit.
func FormatInterval(days int) string {
	switch {
	case days < 1:
		return "10m"
	case days < 30:
		return fmt.Sprintf("%dd", days)
	case days < 365:
		return fmt.Sprintf("%dmo", int(math.Round(float64(days)/30)))
	default:
		return fmt.Sprintf("%dy", int(math.Round(float64(days)/365)))
	}
}
