package sm2

import (
	"fmt"
	"strings"

	"github.com/conorfennell/flashdeck/internal/domain"
)

// Quality is the 0-5 self-assessment of recall.
type Quality int

const (
	Blackout  Quality = iota // No recall at all.
	Wrong                    // Wrong, but the answer looked familiar.
	Difficult                // Wrong, but the answer came easily once shown.
	Hesitant                 // Correct after serious effort.
	Correct                  // Correct after some hesitation.
	Perfect                  // Correct immediately.
)

// IsValid reports whether q is within 0-5.
func (q Quality) IsValid() bool {
	return q >= Blackout && q <= Perfect
}

// Correct reports whether q counts as a successful recall.
func (q Quality) Correct() bool {
	return q >= Hesitant
}

func (q Quality) String() string {
	if q.IsValid() {
		return fmt.Sprintf("%d", int(q))
	}
	return fmt.Sprintf("Quality(%d)", int(q))
}

// Bucket is one of the four rating buttons shown to the user.
type Bucket int

const (
	Again Bucket = iota + 1
	Hard
	Good
	Easy
)

// Buckets lists the rating buttons in display order.
var Buckets = []Bucket{Again, Hard, Good, Easy}

var bucketNames = [...]string{Again: "again", Hard: "hard", Good: "good", Easy: "easy"}

// IsValid reports whether b is one of the four buckets.
func (b Bucket) IsValid() bool {
	return b >= Again && b <= Easy
}

// Quality maps the bucket onto the SM-2 scale: again 0, hard 2, good 3, easy 5.
func (b Bucket) Quality() Quality {
	switch b {
	case Again:
		return Blackout
	case Hard:
		return Difficult
	case Good:
		return Hesitant
	case Easy:
		return Perfect
	}
	return Quality(-1)
}

func (b Bucket) String() string {
	if b.IsValid() {
		return bucketNames[b]
	}
	return fmt.Sprintf("Bucket(%d)", int(b))
}

// ParseBucket accepts a bucket name ("again", "Hard", ...) or its 1-4 button number.
func ParseBucket(s string) (Bucket, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, b := range Buckets {
		if s == bucketNames[b] || s == fmt.Sprintf("%d", int(b)) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("%w: rating %q", domain.ErrInvalidArgument, s)
}
