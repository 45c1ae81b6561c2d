// Package storage persists the board as a single JSON blob in a
// key-value backend.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/gmllt/taskboard/internal/board"
)

// BoardKey is the key under which the card list is stored.
const BoardKey = "kanban_data"

const (
	probeKey   = "__storage_test__"
	probeValue = "test"
)

var (
	// ErrNotFound is returned by KV.Get for an absent key.
	ErrNotFound = errors.New("storage: key not found")
	// ErrQuotaExceeded is returned when a backend refuses a write for lack of space.
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
)

// KV is a durable string key-value store.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Adapter reads and writes the board blob. Load fails open, Save fails
// closed.
type Adapter struct {
	kv  KV
	log logrus.FieldLogger
}

func NewAdapter(kv KV, log logrus.FieldLogger) *Adapter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Adapter{kv: kv, log: log}
}

// CheckAvailability does a write/read/delete round trip with a
// throwaway key.
func (a *Adapter) CheckAvailability(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("panic", r).Warn("storage probe panicked")
			ok = false
		}
	}()
	if err := a.kv.Set(ctx, probeKey, probeValue); err != nil {
		a.log.WithError(err).Warn("storage unavailable")
		return false
	}
	got, err := a.kv.Get(ctx, probeKey)
	if err != nil {
		a.log.WithError(err).Warn("storage unavailable")
		return false
	}
	if err := a.kv.Remove(ctx, probeKey); err != nil {
		a.log.WithError(err).Warn("storage unavailable")
		return false
	}
	return got == probeValue
}

// Load returns the persisted cards, or an empty list if there are none
// or they cannot be read.
func (a *Adapter) Load(ctx context.Context) []board.Card {
	data, err := a.kv.Get(ctx, BoardKey)
	if errors.Is(err, ErrNotFound) {
		a.log.Info("no saved board, starting empty")
		return []board.Card{}
	}
	if err != nil {
		a.log.WithError(err).Warn("error loading board, starting empty")
		return []board.Card{}
	}
	var cards []board.Card
	if err := json.Unmarshal([]byte(data), &cards); err != nil {
		a.log.WithError(err).Warn("error decoding board json, starting empty")
		return []board.Card{}
	}
	// A JSON null decodes without error.
	if cards == nil {
		a.log.Warn("saved board is not a list, starting empty")
		return []board.Card{}
	}
	return cards
}

// Save replaces the persisted board with cards.
func (a *Adapter) Save(ctx context.Context, cards []board.Card) error {
	if cards == nil {
		cards = []board.Card{}
	}
	data, err := json.Marshal(cards)
	if err != nil {
		return fmt.Errorf("error encoding board json: %w", err)
	}
	if err := a.kv.Set(ctx, BoardKey, string(data)); err != nil {
		return fmt.Errorf("error saving board: %w", err)
	}
	return nil
}
