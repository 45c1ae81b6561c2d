package board

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Persister is the durable target of the store. Load never fails; a
// missing or unreadable board comes back empty. Save replaces the whole
// persisted board.
type Persister interface {
	Load(ctx context.Context) []Card
	Save(ctx context.Context, cards []Card) error
}

// Store is the in-memory authoritative collection of cards. It is the
// only writer of its Persister. Every mutation is persisted before it
// becomes visible; if the save fails the mutation is discarded.
type Store struct {
	mu          sync.Mutex
	persist     Persister
	log         logrus.FieldLogger
	now         func() time.Time
	newID       func(now time.Time) string
	cards       []Card
	initialized bool
}

type Option func(*Store)

// WithClock sets the time source used for card timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator replaces the card id generator.
func WithIDGenerator(gen func(now time.Time) string) Option {
	return func(s *Store) { s.newID = gen }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) { s.log = log }
}

func NewStore(p Persister, opts ...Option) *Store {
	if p == nil {
		panic("board.NewStore: persister is nil")
	}
	s := &Store{
		persist: p,
		log:     logrus.StandardLogger(),
		now:     time.Now,
		newID:   generateID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// generateID returns ids of the form card-<unix ms>-<9 hex chars>.
func generateID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("card-%d-%s", now.UnixMilli(), random[:9])
}

// Initialize loads the persisted board. It must be called once before
// any other operation.
func (s *Store) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return ErrAlreadyInitialized
	}
	s.cards = s.persist.Load(ctx)
	if s.cards == nil {
		s.cards = []Card{}
	}
	s.initialized = true
	s.log.WithField("cards", len(s.cards)).Info("board loaded")
	return nil
}

// Create validates and appends a new card to the given column.
func (s *Store) Create(ctx context.Context, content, columnID string) (Card, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return Card{}, err
	}
	if !IsValidColumnID(columnID) {
		return Card{}, errInvalidColumn(columnID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	id := s.newID(now)
	for s.indexOf(id) >= 0 {
		id = s.newID(now)
	}
	ts := now.UnixMilli()
	card := Card{
		ID:        id,
		Content:   content,
		ColumnID:  columnID,
		CreatedAt: ts,
		UpdatedAt: ts,
	}

	next := append(slices.Clone(s.cards), card)
	if err := s.commit(ctx, next); err != nil {
		return Card{}, err
	}
	s.log.WithFields(logrus.Fields{"card": card.ID, "column": columnID}).Debug("card created")
	return card, nil
}

// List returns a copy of all cards in insertion order.
func (s *Store) List() []Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.cards)
}

// ListByColumn returns the cards of one column, keeping overall order.
// An unknown column yields an empty list.
func (s *Store) ListByColumn(columnID string) []Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []Card{}
	for _, c := range s.cards {
		if c.ColumnID == columnID {
			out = append(out, c)
		}
	}
	return out
}

func (s *Store) Get(cardID string) (Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(cardID)
	if i < 0 {
		return Card{}, errNotFound(cardID)
	}
	return s.cards[i], nil
}

// Update replaces the content of a card. Column and creation time are
// kept.
func (s *Store) Update(ctx context.Context, cardID, content string) (Card, error) {
	content, err := normalizeContent(content)
	if err != nil {
		return Card{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(cardID)
	if i < 0 {
		return Card{}, errNotFound(cardID)
	}
	next := slices.Clone(s.cards)
	next[i].Content = content
	next[i].UpdatedAt = s.touch(next[i].UpdatedAt)
	if err := s.commit(ctx, next); err != nil {
		return Card{}, err
	}
	s.log.WithField("card", cardID).Debug("card updated")
	return next[i], nil
}

// Delete removes a card and returns it.
func (s *Store) Delete(ctx context.Context, cardID string) (Card, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(cardID)
	if i < 0 {
		return Card{}, errNotFound(cardID)
	}
	removed := s.cards[i]
	next := slices.Delete(slices.Clone(s.cards), i, i+1)
	if err := s.commit(ctx, next); err != nil {
		return Card{}, err
	}
	s.log.WithFields(logrus.Fields{"card": cardID, "column": removed.ColumnID}).Debug("card deleted")
	return removed, nil
}

// Move puts a card in another column. Moving to the card's current
// column still bumps UpdatedAt and persists.
func (s *Store) Move(ctx context.Context, cardID, columnID string) (Card, error) {
	if !IsValidColumnID(columnID) {
		return Card{}, errInvalidColumn(columnID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(cardID)
	if i < 0 {
		return Card{}, errNotFound(cardID)
	}
	from := s.cards[i].ColumnID
	next := slices.Clone(s.cards)
	next[i].ColumnID = columnID
	next[i].UpdatedAt = s.touch(next[i].UpdatedAt)
	if err := s.commit(ctx, next); err != nil {
		return Card{}, err
	}
	s.log.WithFields(logrus.Fields{"card": cardID, "from": from, "to": columnID}).Debug("card moved")
	return next[i], nil
}

// commit persists next and only then makes it the current collection.
// Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next []Card) error {
	if err := s.persist.Save(ctx, next); err != nil {
		s.log.WithError(err).Error("save board")
		return errPersistence(err)
	}
	s.cards = next
	return nil
}

// touch returns the new UpdatedAt for a card last updated at prev. The
// result is always after prev, even if the clock has not advanced.
func (s *Store) touch(prev int64) int64 {
	ts := s.now().UnixMilli()
	if ts <= prev {
		ts = prev + 1
	}
	return ts
}

func (s *Store) indexOf(cardID string) int {
	return slices.IndexFunc(s.cards, func(c Card) bool { return c.ID == cardID })
}

func normalizeContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", errEmptyContent()
	}
	if n := utf8.RuneCountInString(content); n > MaxContentLength {
		return "", errContentTooLong(n)
	}
	return content, nil
}
