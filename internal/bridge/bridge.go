// Package bridge turns entity store change events into aggregate
// invalidations and realtime pushes.
package bridge

import (
	"context"
	"log/slog"

	"traffichub/internal/changefeed"
	"traffichub/internal/domain"
)

// Tables the bridge subscribes to.
var Tables = []domain.Table{
	domain.TableExternalMessages,
	domain.TableInternalMessages,
	domain.TableDirectMessages,
	domain.TableNotifications,
	domain.TableTickets,
	domain.TableClients,
}

type Aggregates interface {
	Invalidate(scopes ...domain.Scope)
	InvalidateKind(kind domain.ScopeKind)
	Reset()
}

type Pusher interface {
	BroadcastToUser(userID string, payload any) int
	BroadcastAll(payload any) int
}

// Message is what connected members receive. It only names what went stale;
// clients re-read the aggregate.
type Message struct {
	Type  string           `json:"type"`
	Scope *domain.Scope    `json:"scope,omitempty"`
	Kind  domain.ScopeKind `json:"kind,omitempty"`
}

const (
	TypeInvalidate     = "invalidate"
	TypeInvalidateKind = "invalidate_kind"
	TypeResync         = "resync"
)

type Bridge struct {
	aggs Aggregates
	push Pusher
	log  *slog.Logger
}

// New builds a bridge. push may be nil when nobody listens for realtime
// messages.
func New(aggs Aggregates, push Pusher, log *slog.Logger) *Bridge {
	return &Bridge{aggs: aggs, push: push, log: log.With(slog.String("component", "bridge"))}
}

// Run subscribes the bridge to feed until ctx is done.
func (b *Bridge) Run(ctx context.Context, feed *changefeed.Feed) *changefeed.Subscription {
	return feed.Subscribe(ctx, changefeed.Options{
		Name:     "bridge",
		Tables:   Tables,
		Handler:  b.Handle,
		OnResync: b.Resync,
	})
}

// Handle invalidates exactly the scopes the event's row images touch. Both
// images are used so a row that moved (a ticket changing client, a ticket
// being archived) invalidates the view it left as well as the one it joined.
// Handling the same event twice only repeats the invalidation.
func (b *Bridge) Handle(_ context.Context, ev changefeed.Event) {
	scopes := domain.AffectedScopes(ev.Table, ev.New, ev.Old)
	b.aggs.Invalidate(scopes...)
	for i := range scopes {
		b.notify(scopes[i])
	}

	var kinds []domain.ScopeKind
	switch ev.Table {
	case domain.TableInternalMessages:
		if row := ev.Row(); row != nil && row.ClientID == "" {
			// Without the owning client the parent view cannot be named.
			kinds = append(kinds, domain.ScopeClientTickets)
		}
	case domain.TableClients:
		if ev.Kind == changefeed.Delete {
			// The client's tickets and the notifications referencing it
			// stop counting. The event does not name the tickets.
			kinds = append(kinds, domain.ScopeTicket, domain.ScopeInbox)
		}
	case domain.TableTickets:
		if ev.Kind == changefeed.Delete {
			// Notifications referencing the deleted row stop counting.
			kinds = append(kinds, domain.ScopeInbox)
		}
	}
	for _, k := range kinds {
		b.aggs.InvalidateKind(k)
		if b.push != nil {
			b.push.BroadcastAll(Message{Type: TypeInvalidateKind, Kind: k})
		}
	}

	b.log.Debug("change event handled",
		slog.String("table", string(ev.Table)),
		slog.String("kind", string(ev.Kind)),
		slog.Int("scopes", len(scopes)),
	)
}

// Resync drops every cached aggregate. Events published while the
// subscription was down are lost, so nothing cached can be trusted.
func (b *Bridge) Resync(context.Context) {
	b.aggs.Reset()
	if b.push != nil {
		b.push.BroadcastAll(Message{Type: TypeResync})
	}
	b.log.Info("aggregates reset after resubscribe")
}

func (b *Bridge) notify(s domain.Scope) {
	if b.push == nil {
		return
	}
	msg := Message{Type: TypeInvalidate, Scope: &s}
	switch s.Kind {
	case domain.ScopeInbox:
		b.push.BroadcastToUser(s.ID, msg)
	case domain.ScopeConversation:
		b.push.BroadcastToUser(s.Viewer, msg)
	default:
		b.push.BroadcastAll(msg)
	}
}
