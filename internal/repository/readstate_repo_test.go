package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"traffichub/internal/changefeed"
	"traffichub/internal/domain"
	"traffichub/internal/models"
	"traffichub/internal/testutil"
	"traffichub/pkg/logs"
)

type recordingFeed struct {
	mu     sync.Mutex
	events []changefeed.Event
}

func (f *recordingFeed) Publish(_ context.Context, events ...changefeed.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, events...)
	return nil
}

func (f *recordingFeed) take() []changefeed.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.events
	f.events = nil
	return out
}

type fixture struct {
	feed          *recordingFeed
	profiles      *ProfileRepository
	clients       *ClientRepository
	tickets       *TicketRepository
	messages      *MessageRepository
	notifications *NotificationRepository
	reads         *ReadStateRepository
}

func newFixture(t *testing.T) *fixture {
	db := testutil.NewTestDB(t)
	feed := &recordingFeed{}
	log := logs.Discard()
	return &fixture{
		feed:          feed,
		profiles:      NewProfileRepository(db),
		clients:       NewClientRepository(db, feed, log),
		tickets:       NewTicketRepository(db, feed, log),
		messages:      NewMessageRepository(db, feed, log),
		notifications: NewNotificationRepository(db, feed, log),
		reads:         NewReadStateRepository(db, feed, log),
	}
}

func (f *fixture) profile(t *testing.T, name string) *models.Profile {
	p := &models.Profile{Name: name, Email: name + "@hub.test"}
	require.NoError(t, f.profiles.Create(context.Background(), p))
	return p
}

func (f *fixture) client(t *testing.T, name string) *models.Client {
	c := &models.Client{Name: name}
	require.NoError(t, f.clients.Create(context.Background(), c))
	return c
}

func (f *fixture) ticket(t *testing.T, clientID string) *models.Ticket {
	tk := &models.Ticket{ClientID: clientID, Title: "ticket"}
	require.NoError(t, f.tickets.Create(context.Background(), tk))
	return tk
}

func (f *fixture) internal(t *testing.T, ticket *models.Ticket, senderID string, read bool) *models.InternalMessage {
	m := &models.InternalMessage{TicketID: ticket.ID, SenderID: senderID, Content: "hi", IsRead: read}
	require.NoError(t, f.messages.CreateInternal(context.Background(), m, ticket.ClientID))
	return m
}

func (f *fixture) external(t *testing.T, clientID string, read bool) *models.ExternalMessage {
	m := &models.ExternalMessage{ClientID: clientID, Content: "hello", SenderName: "Acme", Direction: domain.DirectionInbound, IsRead: read}
	require.NoError(t, f.messages.CreateExternal(context.Background(), m))
	return m
}

func (f *fixture) count(t *testing.T, s domain.Scope, flt domain.Filter) int64 {
	n, err := f.reads.CountUnread(context.Background(), s, flt)
	require.NoError(t, err)
	return n
}

func TestCountUnreadExternal(t *testing.T) {
	f := newFixture(t)
	c := f.client(t, "acme")
	other := f.client(t, "globex")
	f.external(t, c.ID, false)
	f.external(t, c.ID, false)
	f.external(t, c.ID, true)
	f.external(t, other.ID, false)

	assert.Equal(t, int64(2), f.count(t, domain.ClientScope(c.ID), domain.Filter{}))
	assert.Equal(t, int64(1), f.count(t, domain.ClientScope(other.ID), domain.Filter{}))
	assert.Equal(t, int64(0), f.count(t, domain.ClientScope("missing"), domain.Filter{}))
	assert.Equal(t, int64(0), f.count(t, domain.Scope{}, domain.Filter{}))
}

func TestCountUnreadExcludesOrphans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	c := f.client(t, "acme")
	tk := f.ticket(t, c.ID)
	f.external(t, c.ID, false)
	f.internal(t, tk, alice.ID, false)

	cid, tid := c.ID, tk.ID
	require.NoError(t, f.notifications.Create(ctx,
		&models.Notification{UserID: alice.ID, Type: domain.NotificationExternalMessage, Title: "a", ClientID: &cid},
		&models.Notification{UserID: alice.ID, Type: domain.NotificationInternalMessage, Title: "b", ClientID: &cid, TicketID: &tid},
		&models.Notification{UserID: alice.ID, Type: domain.NotificationDirectMessage, Title: "c"},
	))
	assert.Equal(t, int64(3), f.count(t, domain.InboxScope(alice.ID), domain.Filter{}))

	require.NoError(t, f.tickets.Delete(ctx, tk.ID))
	assert.Equal(t, int64(0), f.count(t, domain.TicketScope(tk.ID), domain.Filter{}))
	assert.Equal(t, int64(2), f.count(t, domain.InboxScope(alice.ID), domain.Filter{}))

	require.NoError(t, f.clients.Delete(ctx, c.ID))
	assert.Equal(t, int64(0), f.count(t, domain.ClientScope(c.ID), domain.Filter{}))
	assert.Equal(t, int64(1), f.count(t, domain.InboxScope(alice.ID), domain.Filter{}))
}

func TestCountUnreadExcludesTicketsOfDeletedClient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	c := f.client(t, "acme")
	other := f.client(t, "globex")
	tk := f.ticket(t, c.ID)
	kept := f.ticket(t, other.ID)
	f.internal(t, tk, alice.ID, false)
	f.internal(t, tk, alice.ID, false)
	f.internal(t, kept, alice.ID, false)

	cid, tid := c.ID, tk.ID
	require.NoError(t, f.notifications.Create(ctx,
		&models.Notification{UserID: alice.ID, Type: domain.NotificationInternalMessage, Title: "b", TicketID: &tid},
		&models.Notification{UserID: alice.ID, Type: domain.NotificationExternalMessage, Title: "a", ClientID: &cid},
	))
	require.Equal(t, int64(2), f.count(t, domain.TicketScope(tk.ID), domain.Filter{}))

	// The ticket itself is never deleted.
	require.NoError(t, f.clients.Delete(ctx, c.ID))

	assert.Equal(t, int64(0), f.count(t, domain.TicketScope(tk.ID), domain.Filter{}))
	assert.Equal(t, int64(1), f.count(t, domain.TicketScope(kept.ID), domain.Filter{}))
	assert.Equal(t, int64(0), f.count(t, domain.InboxScope(alice.ID), domain.Filter{}))

	byTicket, err := f.reads.UnreadByTicket(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, byTicket)

	rows, err := f.reads.MarkRead(ctx, domain.ScopeSelector(domain.TicketScope(tk.ID), domain.Filter{}))
	require.NoError(t, err)
	assert.Empty(t, rows)

	list, err := f.tickets.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, kept.ID, list[0].ID)

	newCount, err := f.tickets.CountNew(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), newCount)
}

func TestDeleteClientReleasesWhatsAppGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	group := "g1"
	c := &models.Client{Name: "acme", WhatsAppGroupID: &group}
	require.NoError(t, f.clients.Create(ctx, c))

	require.NoError(t, f.clients.Delete(ctx, c.ID))
	_, err := f.clients.GetByWhatsAppGroup(ctx, group)
	assert.ErrorIs(t, err, ErrNotFound)

	again := "g1"
	require.NoError(t, f.clients.Create(ctx, &models.Client{Name: "acme again", WhatsAppGroupID: &again}))

	assert.ErrorIs(t, f.clients.Delete(ctx, c.ID), ErrNotFound)
}

func TestCountUnreadNotificationFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	c := f.client(t, "acme")
	tk := f.ticket(t, c.ID)
	cid, tid, sid := c.ID, tk.ID, bob.ID
	require.NoError(t, f.notifications.Create(ctx,
		&models.Notification{UserID: alice.ID, Type: domain.NotificationMention, Title: "m", ClientID: &cid, TicketID: &tid, SenderID: &sid},
		&models.Notification{UserID: alice.ID, Type: domain.NotificationInternalMessage, Title: "i", ClientID: &cid, TicketID: &tid, SenderID: &sid},
		&models.Notification{UserID: alice.ID, Type: domain.NotificationExternalMessage, Title: "e", ClientID: &cid},
		&models.Notification{UserID: bob.ID, Type: domain.NotificationMention, Title: "other"},
	))

	inbox := domain.InboxScope(alice.ID)
	assert.Equal(t, int64(3), f.count(t, inbox, domain.Filter{}))
	assert.Equal(t, int64(1), f.count(t, inbox, domain.Filter{Type: domain.NotificationMention}))
	assert.Equal(t, int64(3), f.count(t, inbox, domain.Filter{ClientID: c.ID}))
	assert.Equal(t, int64(2), f.count(t, inbox, domain.Filter{TicketID: tk.ID}))
	assert.Equal(t, int64(2), f.count(t, inbox, domain.Filter{SenderID: bob.ID}))
	assert.Equal(t, int64(0), f.count(t, inbox, domain.Filter{ClientID: "elsewhere"}))
}

func TestUnreadByTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	c := f.client(t, "acme")
	t1 := f.ticket(t, c.ID)
	t2 := f.ticket(t, c.ID)
	t3 := f.ticket(t, c.ID)
	archived := f.ticket(t, c.ID)

	f.internal(t, t1, alice.ID, false)
	f.internal(t, t1, alice.ID, false)
	f.internal(t, t2, alice.ID, true)
	f.internal(t, t3, alice.ID, false)
	f.internal(t, archived, alice.ID, false)

	old := *archived
	archived.IsArchived = true
	require.NoError(t, f.tickets.Update(ctx, &old, archived))

	counts, err := f.reads.UnreadByTicket(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{t1.ID: 2, t3.ID: 1}, counts)

	assert.Equal(t, int64(3), f.count(t, domain.ClientTicketsScope(c.ID), domain.Filter{}))
	// An archived ticket still reports its own count.
	assert.Equal(t, int64(1), f.count(t, domain.TicketScope(archived.ID), domain.Filter{}))

	counts, err = f.reads.UnreadByTicket(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestMarkReadScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	c := f.client(t, "acme")
	tk := f.ticket(t, c.ID)
	f.internal(t, tk, alice.ID, false)
	f.internal(t, tk, bob.ID, false)
	f.internal(t, tk, bob.ID, true)
	f.feed.take()

	rows, err := f.reads.MarkRead(ctx, domain.ScopeSelector(domain.TicketScope(tk.ID), domain.Filter{SenderID: bob.ID}))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, c.ID, rows[0].ClientID)
	assert.True(t, rows[0].IsRead)
	assert.Equal(t, int64(1), f.count(t, domain.TicketScope(tk.ID), domain.Filter{}))

	events := f.feed.take()
	require.Len(t, events, 1)
	assert.Equal(t, changefeed.Update, events[0].Kind)
	assert.Equal(t, domain.TableInternalMessages, events[0].Table)
	assert.False(t, events[0].Old.IsRead)
	assert.True(t, events[0].New.IsRead)
	assert.Equal(t, c.ID, events[0].New.ClientID)

	rows, err = f.reads.MarkRead(ctx, domain.ScopeSelector(domain.TicketScope(tk.ID), domain.Filter{}))
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, int64(0), f.count(t, domain.TicketScope(tk.ID), domain.Filter{}))

	// Idempotent: nothing left to transition, nothing published.
	rows, err = f.reads.MarkRead(ctx, domain.ScopeSelector(domain.TicketScope(tk.ID), domain.Filter{}))
	require.NoError(t, err)
	assert.Empty(t, rows)
	f.feed.take()
	rows, err = f.reads.MarkRead(ctx, domain.ScopeSelector(domain.TicketScope(tk.ID), domain.Filter{}))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Empty(t, f.feed.take())
}

func TestMarkReadByIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.reads.now = func() time.Time { return now }

	n1 := &models.Notification{UserID: alice.ID, Type: domain.NotificationMention, Title: "1"}
	n2 := &models.Notification{UserID: alice.ID, Type: domain.NotificationMention, Title: "2"}
	n3 := &models.Notification{UserID: bob.ID, Type: domain.NotificationMention, Title: "3"}
	require.NoError(t, f.notifications.Create(ctx, n1, n2, n3))

	// n3 belongs to bob and is left alone.
	rows, err := f.reads.MarkRead(ctx, domain.IDSelector(domain.RowNotification, alice.ID, []string{n1.ID, n3.ID, "missing"}))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, n1.ID, rows[0].ID)

	got, err := f.notifications.GetByID(ctx, n1.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	require.NotNil(t, got.ReadAt)
	assert.True(t, now.Equal(*got.ReadAt))

	assert.Equal(t, int64(1), f.count(t, domain.InboxScope(alice.ID), domain.Filter{}))
	assert.Equal(t, int64(1), f.count(t, domain.InboxScope(bob.ID), domain.Filter{}))

	rows, err = f.reads.MarkRead(ctx, domain.IDSelector(domain.RowNotification, alice.ID, nil))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestMarkReadConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	bob := f.profile(t, "bob")
	for _, m := range []*models.DirectMessage{
		{SenderID: bob.ID, ReceiverID: alice.ID, Content: "1"},
		{SenderID: bob.ID, ReceiverID: alice.ID, Content: "2"},
		{SenderID: alice.ID, ReceiverID: bob.ID, Content: "3"},
	} {
		require.NoError(t, f.messages.CreateDirect(ctx, m))
	}

	assert.Equal(t, int64(2), f.count(t, domain.ConversationScope(alice.ID, bob.ID), domain.Filter{}))
	assert.Equal(t, int64(1), f.count(t, domain.ConversationScope(bob.ID, alice.ID), domain.Filter{}))

	rows, err := f.reads.MarkRead(ctx, domain.ScopeSelector(domain.ConversationScope(alice.ID, bob.ID), domain.Filter{}))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, int64(0), f.count(t, domain.ConversationScope(alice.ID, bob.ID), domain.Filter{}))
	assert.Equal(t, int64(1), f.count(t, domain.ConversationScope(bob.ID, alice.ID), domain.Filter{}))
}

func TestMarkReadRejectsParentScope(t *testing.T) {
	f := newFixture(t)
	alice := f.profile(t, "alice")
	c := f.client(t, "acme")
	tk := f.ticket(t, c.ID)
	f.internal(t, tk, alice.ID, false)

	rows, err := f.reads.MarkRead(context.Background(), domain.ScopeSelector(domain.ClientTicketsScope(c.ID), domain.Filter{}))
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Equal(t, int64(1), f.count(t, domain.TicketScope(tk.ID), domain.Filter{}))
}

func TestListUnreadNotifications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.profile(t, "alice")
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"oldest", "middle", "newest"} {
		n := &models.Notification{UserID: alice.ID, Type: domain.NotificationMention, Title: title, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, f.notifications.Create(ctx, n))
	}
	read := &models.Notification{UserID: alice.ID, Type: domain.NotificationMention, Title: "read", IsRead: true, CreatedAt: base.Add(time.Hour)}
	require.NoError(t, f.notifications.Create(ctx, read))

	list, err := f.reads.ListUnreadNotifications(ctx, alice.ID, domain.Filter{}, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "newest", list[0].Title)
	assert.Equal(t, "oldest", list[2].Title)

	list, err = f.reads.ListUnreadNotifications(ctx, alice.ID, domain.Filter{}, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
