// Package unread derives unread counts per scope from the current row set
// and caches them until the change feed reports a relevant write.
package unread

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"traffichub/internal/domain"
	"traffichub/internal/metrics"
	"traffichub/internal/models"
)

// Source computes aggregates from the entity store.
type Source interface {
	CountUnread(ctx context.Context, scope domain.Scope, f domain.Filter) (int64, error)
	UnreadByTicket(ctx context.Context, clientID string) (map[string]int64, error)
	ListUnreadNotifications(ctx context.Context, userID string, f domain.Filter, limit int) ([]models.Notification, error)
}

type Aggregator struct {
	src      Source
	counts   *Cache[int64]
	children *Cache[map[string]int64]
	log      *slog.Logger
}

func NewAggregator(src Source, log *slog.Logger) *Aggregator {
	return &Aggregator{
		src:      src,
		counts:   NewCache[int64]("count"),
		children: NewCache[map[string]int64]("children"),
		log:      log.With(slog.String("component", "unread")),
	}
}

// CountUnread returns the number of unread rows in scope matching f. It is 0
// for a scope that cannot be resolved. The client tickets scope counts the
// same rows UnreadByChildScope reports. A filter field the scope does not
// carry fails with domain.ErrFilterNotApplicable.
func (a *Aggregator) CountUnread(ctx context.Context, scope domain.Scope, f domain.Filter) (int64, error) {
	if !scope.Valid() {
		return 0, nil
	}
	if !f.AppliesTo(scope) {
		return 0, fmt.Errorf("%w: %s", domain.ErrFilterNotApplicable, scope.Kind)
	}
	if scope.Kind == domain.ScopeClientTickets {
		byTicket, err := a.childCounts(ctx, scope)
		if err != nil {
			return 0, err
		}
		var n int64
		for _, v := range byTicket {
			n += v
		}
		return n, nil
	}
	n, err := a.counts.Get(ctx, scope, f, func(ctx context.Context) (int64, error) {
		return a.src.CountUnread(ctx, scope, f)
	})
	if err != nil {
		return 0, err
	}
	return max(n, 0), nil
}

// HasUnread reports whether CountUnread is positive.
func (a *Aggregator) HasUnread(ctx context.Context, scope domain.Scope, f domain.Filter) (bool, error) {
	n, err := a.CountUnread(ctx, scope, f)
	return n > 0, err
}

// UnreadByChildScope maps each non-archived ticket of a client to its unread
// internal message count. parent is the client scope or the client tickets
// scope. Tickets with nothing unread are absent from the map.
func (a *Aggregator) UnreadByChildScope(ctx context.Context, parent domain.Scope) (map[string]int64, error) {
	switch parent.Kind {
	case domain.ScopeClient, domain.ScopeClientTickets:
	default:
		return map[string]int64{}, nil
	}
	if !parent.Valid() {
		return map[string]int64{}, nil
	}
	byTicket, err := a.childCounts(ctx, domain.ClientTicketsScope(parent.ID))
	if err != nil {
		return nil, err
	}
	return maps.Clone(byTicket), nil
}

func (a *Aggregator) childCounts(ctx context.Context, scope domain.Scope) (map[string]int64, error) {
	return a.children.Get(ctx, scope, domain.Filter{}, func(ctx context.Context) (map[string]int64, error) {
		byTicket, err := a.src.UnreadByTicket(ctx, scope.ID)
		if err != nil {
			return nil, err
		}
		maps.DeleteFunc(byTicket, func(_ string, n int64) bool { return n <= 0 })
		return byTicket, nil
	})
}

// ListUnread returns a user's unread notifications matching f, newest first.
// Lists are not cached.
func (a *Aggregator) ListUnread(ctx context.Context, userID string, f domain.Filter, limit int) ([]models.Notification, error) {
	if userID == "" {
		return []models.Notification{}, nil
	}
	return a.src.ListUnreadNotifications(ctx, userID, f, limit)
}

// Invalidate marks the aggregates of the given scopes stale.
func (a *Aggregator) Invalidate(scopes ...domain.Scope) {
	if len(scopes) == 0 {
		return
	}
	a.counts.Invalidate(scopes...)
	a.children.Invalidate(scopes...)
	for _, s := range scopes {
		metrics.Invalidations.WithLabelValues(s.Kind.String()).Inc()
	}
}

// InvalidateKind marks every aggregate of one scope kind stale. Used when an
// event does not carry enough to name the exact scope.
func (a *Aggregator) InvalidateKind(kind domain.ScopeKind) {
	a.counts.InvalidateKind(kind)
	a.children.InvalidateKind(kind)
	metrics.Invalidations.WithLabelValues(kind.String()).Inc()
}

// Reset drops every cached aggregate.
func (a *Aggregator) Reset() {
	a.counts.Reset()
	a.children.Reset()
	a.log.Info("unread cache reset")
}
