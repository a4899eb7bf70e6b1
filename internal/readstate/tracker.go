// Package readstate transitions message and notification rows from unread to
// read.
package readstate

import (
	"context"
	"fmt"
	"log/slog"

	"traffichub/internal/domain"
	"traffichub/internal/metrics"
)

// Store persists read transitions. MarkRead returns only the rows this call
// moved from unread to read.
type Store interface {
	MarkRead(ctx context.Context, sel domain.Selector) ([]domain.Row, error)
}

// Invalidator drops cached aggregates.
type Invalidator interface {
	Invalidate(scopes ...domain.Scope)
}

type Tracker struct {
	store Store
	cache Invalidator
	log   *slog.Logger
}

func NewTracker(store Store, cache Invalidator, log *slog.Logger) *Tracker {
	return &Tracker{store: store, cache: cache, log: log.With(slog.String("component", "readstate"))}
}

// MarkRead marks every unread row the selector names as read and returns how
// many rows changed. A selector that cannot resolve any rows is a no-op.
//
// The store's change feed will invalidate the affected aggregates as well;
// invalidating here too means a count read right after MarkRead returns never
// sees the pre-write value, even before the event arrives.
func (t *Tracker) MarkRead(ctx context.Context, sel domain.Selector) (int64, error) {
	if !sel.Valid() {
		return 0, nil
	}
	if !sel.ByIDs() && !sel.Filter.AppliesTo(sel.Scope) {
		return 0, fmt.Errorf("%w: %s", domain.ErrFilterNotApplicable, sel.Scope.Kind)
	}
	rows, err := t.store.MarkRead(ctx, sel)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	kind := sel.RowKind()
	ptrs := make([]*domain.Row, len(rows))
	for i := range rows {
		ptrs[i] = &rows[i]
	}
	scopes := domain.AffectedScopes(kind.Table(), ptrs...)
	if !sel.ByIDs() {
		scopes = append(scopes, sel.Scope)
	}
	if t.cache != nil {
		t.cache.Invalidate(scopes...)
	}

	metrics.RowsMarkedRead.WithLabelValues(kind.String()).Add(float64(len(rows)))
	t.log.Debug("marked read", slog.String("row_kind", kind.String()), slog.Int("rows", len(rows)))
	return int64(len(rows)), nil
}

// MarkReadByIDs marks the listed rows of one kind read. owner, when set,
// limits the transition to rows the owner may read. An empty list never
// reaches the store.
func (t *Tracker) MarkReadByIDs(ctx context.Context, kind domain.RowKind, owner string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return t.MarkRead(ctx, domain.IDSelector(kind, owner, ids))
}
