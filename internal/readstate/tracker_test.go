package readstate

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traffichub/internal/domain"
	"traffichub/pkg/logs"
)

type fakeStore struct {
	calls []domain.Selector
	rows  []domain.Row
	err   error
}

func (s *fakeStore) MarkRead(_ context.Context, sel domain.Selector) ([]domain.Row, error) {
	s.calls = append(s.calls, sel)
	return s.rows, s.err
}

type fakeCache struct {
	scopes []domain.Scope
}

func (c *fakeCache) Invalidate(scopes ...domain.Scope) {
	c.scopes = append(c.scopes, scopes...)
}

func TestMarkReadInvalidatesAffectedScopes(t *testing.T) {
	store := &fakeStore{rows: []domain.Row{
		{ID: "m1", TicketID: "t1", ClientID: "c1"},
		{ID: "m2", TicketID: "t1", ClientID: "c1"},
	}}
	cache := &fakeCache{}
	tr := NewTracker(store, cache, logs.Discard())

	n, err := tr.MarkRead(context.Background(), domain.ScopeSelector(domain.TicketScope("t1"), domain.Filter{}))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.ElementsMatch(t, []domain.Scope{
		domain.TicketScope("t1"),
		domain.ClientTicketsScope("c1"),
		domain.TicketScope("t1"),
	}, cache.scopes)
}

func TestMarkReadRejectsFilterForeignToScope(t *testing.T) {
	store := &fakeStore{rows: []domain.Row{{ID: "m1", TicketID: "t1", ClientID: "c1"}}}
	cache := &fakeCache{}
	tr := NewTracker(store, cache, logs.Discard())

	sel := domain.ScopeSelector(domain.TicketScope("t1"), domain.Filter{Type: domain.NotificationMention})
	n, err := tr.MarkRead(context.Background(), sel)
	require.ErrorIs(t, err, domain.ErrFilterNotApplicable)
	assert.Zero(t, n)
	assert.Empty(t, store.calls)
	assert.Empty(t, cache.scopes)
}

func TestMarkReadByIDsEmptyIsNoop(t *testing.T) {
	store := &fakeStore{}
	cache := &fakeCache{}
	tr := NewTracker(store, cache, logs.Discard())

	n, err := tr.MarkReadByIDs(context.Background(), domain.RowNotification, "u1", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	n, err = tr.MarkReadByIDs(context.Background(), domain.RowNotification, "u1", []string{})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.calls)
	assert.Empty(t, cache.scopes)
}

func TestMarkReadMalformedSelector(t *testing.T) {
	store := &fakeStore{}
	tr := NewTracker(store, &fakeCache{}, logs.Discard())

	for _, sel := range []domain.Selector{
		domain.ScopeSelector(domain.ClientScope(""), domain.Filter{}),
		domain.ScopeSelector(domain.ClientTicketsScope("c1"), domain.Filter{}),
		domain.IDSelector(0, "", []string{"x"}),
	} {
		n, err := tr.MarkRead(context.Background(), sel)
		require.NoError(t, err)
		assert.Zero(t, n)
	}
	assert.Empty(t, store.calls)
}

func TestMarkReadNothingChanged(t *testing.T) {
	store := &fakeStore{}
	cache := &fakeCache{}
	tr := NewTracker(store, cache, logs.Discard())

	n, err := tr.MarkRead(context.Background(), domain.ScopeSelector(domain.InboxScope("u1"), domain.Filter{}))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, store.calls, 1)
	assert.Empty(t, cache.scopes)
}

func TestMarkReadStoreError(t *testing.T) {
	boom := errors.New("store unavailable")
	cache := &fakeCache{}
	tr := NewTracker(&fakeStore{err: boom}, cache, logs.Discard())

	_, err := tr.MarkRead(context.Background(), domain.ScopeSelector(domain.ClientScope("c1"), domain.Filter{}))
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, cache.scopes)
}

func TestMarkReadByIDsNotifications(t *testing.T) {
	store := &fakeStore{rows: []domain.Row{{ID: "n1", UserID: "u1"}}}
	cache := &fakeCache{}
	tr := NewTracker(store, cache, logs.Discard())

	n, err := tr.MarkReadByIDs(context.Background(), domain.RowNotification, "u1", []string{"n1"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.Len(t, store.calls, 1)
	assert.Equal(t, domain.IDSelector(domain.RowNotification, "u1", []string{"n1"}), store.calls[0])
	assert.Equal(t, []domain.Scope{domain.InboxScope("u1")}, cache.scopes)
}
