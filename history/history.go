// Package history keeps the most recent simulations so they can be looked up again by
// an opaque id.
package history

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/kamalbuilds/movetracer/movement"
)

const DefaultLimit = 50

var ErrNotFound = errors.New("history record not found")

type Kind string

const (
	KindSimulate Kind = "simulate"
	KindReplay   Kind = "replay"
)

type Record struct {
	ID        string                     `json:"id"`
	CreatedAt time.Time                  `json:"created_at"`
	Kind      Kind                       `json:"kind"`
	Network   string                     `json:"network"`
	Sender    string                     `json:"sender,omitempty"`
	Function  string                     `json:"function,omitempty"`
	Hash      string                     `json:"hash,omitempty"`
	Request   json.RawMessage            `json:"request,omitempty"`
	Result    *movement.SimulationResult `json:"result"`
}

//go:generate mockgen -destination=../mocks/mock_store.go -package=mocks github.com/kamalbuilds/movetracer/history Store

// Store is a bounded, newest-first list of records. Implementations serialize writes.
type Store interface {
	// Put stores rec, assigning an id and creation time when absent, and returns the id.
	Put(rec Record) (string, error)
	Get(id string) (*Record, error)
	List() ([]Record, error)
	Clear() error
	Close() error
}

func prepare(rec *Record, now func() time.Time) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now().UTC()
	}
}
