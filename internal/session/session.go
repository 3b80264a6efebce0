// Package session runs a study session over the due cards of one deck.
package session

import (
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/conorfennell/flashdeck/internal/domain"
	"github.com/conorfennell/flashdeck/internal/knol"
	"github.com/conorfennell/flashdeck/internal/sm2"
	"github.com/conorfennell/flashdeck/internal/store"
)

// State is the lifecycle stage of a Session.
type State int

const (
	NotStarted State = iota
	InProgress
	Ended
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case InProgress:
		return "in progress"
	case Ended:
		return "ended"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// DeckSource is the part of the store a session reads decks from and writes
// review data to. *store.Store implements it.
type DeckSource interface {
	DeckByID(id string) (domain.Deck, bool)
	ActiveDeck() (domain.Deck, bool)
	Dispatch(a store.Action) bool
	LastError() error
}

// Results counts the ratings given per bucket.
type Results struct {
	Again int
	Hard  int
	Good  int
	Easy  int
}

// Total returns the number of ratings.
func (r Results) Total() int {
	return r.Again + r.Hard + r.Good + r.Easy
}

func (r *Results) add(b sm2.Bucket) {
	switch b {
	case sm2.Again:
		r.Again++
	case sm2.Hard:
		r.Hard++
	case sm2.Good:
		r.Good++
	case sm2.Easy:
		r.Easy++
	}
}

// Summary is emitted when a session ends.
type Summary struct {
	TotalReviewed int
	Counts        Results
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the time source used for scheduling.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithRand sets the random source used to shuffle the queue and pick
// requeue offsets.
func WithRand(r *rand.Rand) Option {
	return func(s *Session) {
		s.shuffle = r.Shuffle
		s.intN = r.Intn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithRequeue enables reinsertion of "again" and "hard" cards.
func WithRequeue(p RequeuePolicy) Option {
	return func(s *Session) { s.requeue = p }
}

// Session is a single-goroutine state machine. It is not persisted.
type Session struct {
	src     DeckSource
	now     func() time.Time
	shuffle func(n int, swap func(i, j int))
	intN    func(n int) int
	logger  *slog.Logger
	requeue RequeuePolicy

	state   State
	deckID  string
	queue   []domain.Card
	index   int
	shown   bool
	results Results
}

// New returns a session in the NotStarted state.
func New(src DeckSource, opts ...Option) *Session {
	s := &Session{
		src:     src,
		now:     time.Now,
		shuffle: rand.Shuffle,
		intN:    rand.Intn,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start loads the due cards of the deck in random order. A deck without due
// cards returns domain.ErrNoCardsDue and leaves the session untouched.
func (s *Session) Start(deckID string) error {
	if s.state != NotStarted {
		return fmt.Errorf("%w: session is %s", domain.ErrInvalidArgument, s.state)
	}
	deck, ok := s.src.DeckByID(deckID)
	if !ok || deck.IsDeleted {
		return fmt.Errorf("deck %q: %w", deckID, domain.ErrNotFound)
	}

	var queue []domain.Card
	for _, c := range sm2.DueCards(deck, s.now()) {
		if !c.Suspended {
			queue = append(queue, c)
		}
	}
	if len(queue) == 0 {
		return fmt.Errorf("deck %q: %w", deck.Name, domain.ErrNoCardsDue)
	}
	s.shuffle(len(queue), func(i, j int) { queue[i], queue[j] = queue[j], queue[i] })

	s.deckID = deck.ID
	s.queue = queue
	s.index = 0
	s.shown = false
	s.results = Results{}
	s.state = InProgress
	s.logger.Info("Started session", "deck", deck.ID, "name", deck.Name, "due", len(queue))
	return nil
}

// StartActive starts a session on the store's active deck.
func (s *Session) StartActive() error {
	deck, ok := s.src.ActiveDeck()
	if !ok {
		return fmt.Errorf("active deck: %w", domain.ErrNotFound)
	}
	return s.Start(deck.ID)
}

// RevealAnswer shows the answer of the current card. It does nothing when
// the answer is already shown or no session is running.
func (s *Session) RevealAnswer() {
	if s.state == InProgress {
		s.shown = true
	}
}

// Rate schedules the current card with the quality of b and moves on. The
// returned summary is non-nil only when this rating finished the session.
// A card removed from the store since Start is skipped without a rating and
// Rate returns an error wrapping domain.ErrNotFound, together with the
// summary when it was the last card.
func (s *Session) Rate(b sm2.Bucket) (*Summary, error) {
	if s.state != InProgress {
		return nil, fmt.Errorf("%w: session is %s", domain.ErrInvalidArgument, s.state)
	}
	if !s.shown {
		return nil, fmt.Errorf("%w: answer not revealed", domain.ErrInvalidArgument)
	}
	if !b.IsValid() {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidArgument, b)
	}

	card, err := s.locate(s.queue[s.index])
	if err != nil {
		s.logger.Warn("Skipped removed card", "deck", s.deckID, "id", s.queue[s.index].ID)
		return s.advance(), err
	}
	rec, err := sm2.Next(card.ReviewData, b.Quality(), s.now())
	if err != nil {
		return nil, err
	}
	if !s.src.Dispatch(store.SetReviewData{DeckID: s.deckID, CardID: card.ID, Record: rec}) {
		return nil, fmt.Errorf("rate card %q: %w", card.ID, s.src.LastError())
	}
	card.ReviewData = &rec

	s.results.add(b)
	s.reinsert(card, b)
	return s.advance(), nil
}

// advance moves past the current card and finishes the session at the end
// of the queue.
func (s *Session) advance() *Summary {
	s.index++
	s.shown = false
	if s.index >= len(s.queue) {
		sum := s.finish()
		return &sum
	}
	return nil
}

// locate finds the stored version of a queued card. Cards are matched by id;
// when the id is gone the first card with the same content is used.
func (s *Session) locate(queued domain.Card) (domain.Card, error) {
	deck, ok := s.src.DeckByID(s.deckID)
	if !ok || deck.IsDeleted {
		return domain.Card{}, fmt.Errorf("deck %q: %w", s.deckID, domain.ErrNotFound)
	}
	if c, ok := deck.FindCard(queued.ID); ok {
		return c, nil
	}
	for _, c := range deck.Cards {
		if knol.Same(c, queued) {
			s.logger.Warn("Card id not found, matched by content", "deck", s.deckID, "id", queued.ID, "match", c.ID)
			return c, nil
		}
	}
	return domain.Card{}, fmt.Errorf("card %q in deck %q: %w", queued.ID, s.deckID, domain.ErrNotFound)
}

// End stops the session from any state and drops the remaining queue.
func (s *Session) End() Summary {
	return s.finish()
}

func (s *Session) finish() Summary {
	if s.state == InProgress {
		s.logger.Info("Finished session", "deck", s.deckID, "reviewed", s.results.Total(), "skipped", s.Remaining())
	}
	s.state = Ended
	s.queue = nil
	s.index = 0
	s.shown = false
	return Summary{TotalReviewed: s.results.Total(), Counts: s.results}
}

// State returns the lifecycle stage.
func (s *Session) State() State { return s.state }

// DeckID returns the deck being studied, or "" before Start.
func (s *Session) DeckID() string { return s.deckID }

// Current returns the card on screen.
func (s *Session) Current() (domain.Card, bool) {
	if s.state != InProgress {
		return domain.Card{}, false
	}
	return s.queue[s.index], true
}

// AnswerShown reports whether the current answer is revealed.
func (s *Session) AnswerShown() bool { return s.shown }

// Remaining returns the number of cards left, the current one included.
func (s *Session) Remaining() int {
	if s.state != InProgress {
		return 0
	}
	return len(s.queue) - s.index
}

// Position returns the zero-based index of the current card and the queue length.
func (s *Session) Position() (int, int) {
	return s.index, len(s.queue)
}

// Results returns the ratings counted so far.
func (s *Session) Results() Results { return s.results }
