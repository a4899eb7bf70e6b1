package changefeed

import (
	"context"

	"traffichub/internal/domain"
)

type Kind string

const (
	Insert Kind = "insert"
	Update Kind = "update"
	Delete Kind = "delete"
)

// Event is one row-level change published by the entity store.
type Event struct {
	Table domain.Table `json:"table"`
	Kind  Kind         `json:"kind"`
	New   *domain.Row  `json:"new,omitempty"`
	Old   *domain.Row  `json:"old,omitempty"`
}

// Row returns the row the event is about: the new image, or the old one for deletes.
func (e Event) Row() *domain.Row {
	if e.New != nil {
		return e.New
	}
	return e.Old
}

// Filter is a single equality predicate on the event row, e.g. user_id = X.
type Filter struct {
	Column string
	Value  string
}

func (f *Filter) Match(ev Event) bool {
	if f == nil {
		return true
	}
	row := ev.Row()
	if row == nil {
		return false
	}
	v, ok := row.Field(f.Column)
	return ok && v == f.Value
}

// Handler receives events in delivery order of one subscription. Duplicates
// and cross-table reordering are possible.
type Handler func(ctx context.Context, ev Event)

// Publisher is implemented by the entity store's change feed.
type Publisher interface {
	Publish(ctx context.Context, events ...Event) error
}
