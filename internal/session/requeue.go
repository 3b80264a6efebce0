package session

import (
	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/sm2"
)

// RequeuePolicy reinserts failed cards later in the same session. Offsets
// count positions ahead of the card just rated and are clamped to the end of
// the queue.
type RequeuePolicy struct {
	Enabled  bool
	AgainMin int
	AgainMax int
	HardMin  int
	HardMax  int
}

// DefaultRequeuePolicy returns the offsets used by assignment study, disabled.
func DefaultRequeuePolicy() RequeuePolicy {
	return RequeuePolicy{AgainMin: 3, AgainMax: 8, HardMin: 5, HardMax: 12}
}

func (p RequeuePolicy) window(b sm2.Bucket) (int, int, bool) {
	if !p.Enabled {
		return 0, 0, false
	}
	switch b {
	case sm2.Again:
		return p.AgainMin, p.AgainMax, true
	case sm2.Hard:
		return p.HardMin, p.HardMax, true
	}
	return 0, 0, false
}

// reinsert queues card again after a bad rating when requeueing is enabled.
func (s *Session) reinsert(card domain.Card, b sm2.Bucket) {
	lo, hi, ok := s.requeue.window(b)
	if !ok {
		return
	}
	lo = max(lo, 1)
	hi = max(hi, lo)
	offset := lo + s.intN(hi-lo+1)
	pos := min(s.index+offset, len(s.queue))

	s.queue = append(s.queue, domain.Card{})
	copy(s.queue[pos+1:], s.queue[pos:])
	s.queue[pos] = card
	s.logger.Debug("Requeued card", "id", card.ID, "bucket", b, "position", pos)
}
