package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeValid(t *testing.T) {
	tests := []struct {
		name  string
		scope Scope
		want  bool
	}{
		{"client", ClientScope("c1"), true},
		{"client without id", ClientScope(""), false},
		{"ticket", TicketScope("t1"), true},
		{"conversation", ConversationScope("u1", "u2"), true},
		{"conversation without viewer", ConversationScope("", "u2"), false},
		{"inbox", InboxScope("u1"), true},
		{"zero", Scope{}, false},
		{"unknown kind", Scope{Kind: 42, ID: "x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.scope.Valid())
		})
	}
}

func TestSelectorValid(t *testing.T) {
	assert.True(t, ScopeSelector(TicketScope("t1"), Filter{}).Valid())
	assert.False(t, ScopeSelector(ClientTicketsScope("c1"), Filter{}).Valid())
	assert.False(t, ScopeSelector(TicketScope(""), Filter{}).Valid())
	assert.True(t, IDSelector(RowNotification, "u1", []string{"n1"}).Valid())
	assert.False(t, IDSelector(RowNotification, "u1", nil).Valid())
	assert.False(t, IDSelector(0, "u1", []string{"n1"}).Valid())

	assert.Equal(t, RowInternal, ScopeSelector(TicketScope("t1"), Filter{}).RowKind())
	assert.Equal(t, RowDirect, IDSelector(RowDirect, "u1", []string{"d1"}).RowKind())
}

func TestFilterAppliesTo(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		scope  Scope
		want   bool
	}{
		{"empty on client", Filter{}, ClientScope("c1"), true},
		{"sender on client", Filter{SenderID: "u1"}, ClientScope("c1"), false},
		{"sender on ticket", Filter{SenderID: "u1"}, TicketScope("t1"), true},
		{"type on ticket", Filter{Type: NotificationMention}, TicketScope("t1"), false},
		{"client on conversation", Filter{ClientID: "c1"}, ConversationScope("u1", "u2"), false},
		{"sender on conversation", Filter{SenderID: "u2"}, ConversationScope("u1", "u2"), true},
		{"anything on inbox", Filter{Type: NotificationMention, ClientID: "c1", TicketID: "t1", SenderID: "u1"}, InboxScope("u1"), true},
		{"sender on client tickets", Filter{SenderID: "u1"}, ClientTicketsScope("c1"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.AppliesTo(tt.scope))
		})
	}
}

func TestAffectedScopes(t *testing.T) {
	t.Run("internal message invalidates ticket and parent", func(t *testing.T) {
		got := AffectedScopes(TableInternalMessages, &Row{ID: "m1", TicketID: "t1", ClientID: "c1"})
		assert.ElementsMatch(t, []Scope{TicketScope("t1"), ClientTicketsScope("c1")}, got)
	})

	t.Run("direct message keyed by receiver", func(t *testing.T) {
		got := AffectedScopes(TableDirectMessages, &Row{ID: "d1", SenderID: "u1", ReceiverID: "u2"})
		assert.Equal(t, []Scope{ConversationScope("u2", "u1")}, got)
	})

	t.Run("ticket moved between clients", func(t *testing.T) {
		got := AffectedScopes(TableTickets,
			&Row{ID: "t1", ClientID: "c2"},
			&Row{ID: "t1", ClientID: "c1"},
		)
		assert.ElementsMatch(t, []Scope{TicketScope("t1"), ClientTicketsScope("c2"), ClientTicketsScope("c1")}, got)
	})

	t.Run("duplicates collapse", func(t *testing.T) {
		row := &Row{ID: "n1", UserID: "u1"}
		got := AffectedScopes(TableNotifications, row, row, nil)
		assert.Equal(t, []Scope{InboxScope("u1")}, got)
	})

	t.Run("missing scope fields", func(t *testing.T) {
		got := AffectedScopes(TableInternalMessages, &Row{ID: "m1"})
		assert.Empty(t, got)
	})
}

func TestScopeJSON(t *testing.T) {
	b, err := json.Marshal(ConversationScope("u1", "u2"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"conversation","id":"u2","viewer":"u1"}`, string(b))

	var s Scope
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"client_tickets","id":"c1"}`), &s))
	assert.Equal(t, ClientTicketsScope("c1"), s)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"bogus","id":"c1"}`), &s))
}

func TestRowField(t *testing.T) {
	r := Row{ID: "n1", UserID: "u1"}
	v, ok := r.Field("user_id")
	assert.True(t, ok)
	assert.Equal(t, "u1", v)

	_, ok = r.Field("content")
	assert.False(t, ok)
}
