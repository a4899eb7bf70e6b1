package domain

import (
	"errors"
	"fmt"
	"slices"
)

// ErrFilterNotApplicable is returned when a filter names a field the scope's
// rows do not carry.
var ErrFilterNotApplicable = errors.New("filter does not apply to scope")

// Table names of the entity store. They double as change-feed channel suffixes.
type Table string

const (
	TableProfiles         Table = "profiles"
	TableClients          Table = "clients"
	TableTickets          Table = "tickets"
	TableExternalMessages Table = "external_messages"
	TableInternalMessages Table = "internal_messages"
	TableDirectMessages   Table = "direct_messages"
	TableNotifications    Table = "notifications"
)

// RowKind tags a read-trackable row. Counting and marking share one code path
// keyed by this tag instead of one path per message table.
type RowKind uint8

const (
	RowExternal RowKind = iota + 1
	RowInternal
	RowDirect
	RowNotification
)

func (k RowKind) Table() Table {
	switch k {
	case RowExternal:
		return TableExternalMessages
	case RowInternal:
		return TableInternalMessages
	case RowDirect:
		return TableDirectMessages
	case RowNotification:
		return TableNotifications
	}
	return ""
}

func (k RowKind) String() string { return string(k.Table()) }

type ScopeKind uint8

const (
	// ScopeClient groups the external messages of one client.
	ScopeClient ScopeKind = iota + 1
	// ScopeTicket groups the internal messages of one ticket.
	ScopeTicket
	// ScopeConversation groups direct messages sent by ID to Viewer.
	ScopeConversation
	// ScopeClientTickets is the per-ticket unread map of one client.
	ScopeClientTickets
	// ScopeInbox groups the notifications owned by one user.
	ScopeInbox
)

var scopeKindNames = map[ScopeKind]string{
	ScopeClient:        "client",
	ScopeTicket:        "ticket",
	ScopeConversation:  "conversation",
	ScopeClientTickets: "client_tickets",
	ScopeInbox:         "inbox",
}

func (k ScopeKind) String() string {
	if s, ok := scopeKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("scope(%d)", uint8(k))
}

func (k ScopeKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *ScopeKind) UnmarshalText(b []byte) error {
	for kind, name := range scopeKindNames {
		if name == string(b) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown scope kind %q", string(b))
}

// Scope is a derived grouping of rows used as the key of unread aggregates.
// It is comparable and used directly as a map key.
type Scope struct {
	Kind   ScopeKind `json:"kind"`
	ID     string    `json:"id"`
	Viewer string    `json:"viewer,omitempty"`
}

func ClientScope(clientID string) Scope { return Scope{Kind: ScopeClient, ID: clientID} }
func TicketScope(ticketID string) Scope { return Scope{Kind: ScopeTicket, ID: ticketID} }
func InboxScope(userID string) Scope { return Scope{Kind: ScopeInbox, ID: userID} }
func ClientTicketsScope(clientID string) Scope {
	return Scope{Kind: ScopeClientTickets, ID: clientID}
}

// ConversationScope is the set of direct messages partner sent to viewer.
func ConversationScope(viewer, partner string) Scope {
	return Scope{Kind: ScopeConversation, ID: partner, Viewer: viewer}
}

// Valid reports whether the scope names everything it needs to resolve rows.
func (s Scope) Valid() bool {
	if s.ID == "" {
		return false
	}
	switch s.Kind {
	case ScopeClient, ScopeTicket, ScopeClientTickets, ScopeInbox:
		return true
	case ScopeConversation:
		return s.Viewer != ""
	}
	return false
}

// RowKind is the kind of row counted by the scope.
func (s Scope) RowKind() RowKind {
	switch s.Kind {
	case ScopeClient:
		return RowExternal
	case ScopeTicket, ScopeClientTickets:
		return RowInternal
	case ScopeConversation:
		return RowDirect
	case ScopeInbox:
		return RowNotification
	}
	return 0
}

func (s Scope) String() string {
	if s.Viewer != "" {
		return s.Kind.String() + ":" + s.Viewer + ":" + s.ID
	}
	return s.Kind.String() + ":" + s.ID
}

// Filter narrows a count. Type, ClientID and TicketID only apply to
// notifications; SenderID applies to notifications, internal and direct
// messages. Zero fields do not filter. Setting a field the scope does not
// carry is rejected with ErrFilterNotApplicable rather than ignored.
type Filter struct {
	Type     NotificationType `json:"type,omitempty"`
	ClientID string           `json:"client_id,omitempty"`
	TicketID string           `json:"ticket_id,omitempty"`
	SenderID string           `json:"sender_id,omitempty"`
}

func (f Filter) Empty() bool { return f == Filter{} }

// AppliesTo reports whether every set field of f narrows the rows of s.
// The client tickets view takes no filter.
func (f Filter) AppliesTo(s Scope) bool {
	switch s.Kind {
	case ScopeInbox:
		return true
	case ScopeTicket, ScopeConversation:
		return f.Type == "" && f.ClientID == "" && f.TicketID == ""
	}
	return f.Empty()
}

// Selector picks the rows a mark-read transition applies to: either every
// unread row of a scope (narrowed by Filter) or an explicit list of row ids of
// one kind. Owner, when set, restricts id-based selection to rows the owner
// may read (notification owner or direct-message receiver).
type Selector struct {
	Scope  Scope
	Filter Filter
	Kind   RowKind
	IDs    []string
	Owner  string
}

func ScopeSelector(s Scope, f Filter) Selector {
	return Selector{Scope: s, Filter: f}
}

func IDSelector(kind RowKind, owner string, ids []string) Selector {
	return Selector{Kind: kind, Owner: owner, IDs: ids}
}

// ByIDs reports whether the selector names explicit rows.
func (s Selector) ByIDs() bool { return s.Scope.Kind == 0 }

func (s Selector) RowKind() RowKind {
	if s.ByIDs() {
		return s.Kind
	}
	return s.Scope.RowKind()
}

// Valid reports whether the selector can match anything. Parent aggregate
// scopes are not markable.
func (s Selector) Valid() bool {
	if s.ByIDs() {
		return s.Kind.Table() != "" && len(s.IDs) > 0
	}
	return s.Scope.Valid() && s.Scope.Kind != ScopeClientTickets
}

// Row holds the scope-carrying fields of a changed row.
type Row struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id,omitempty"`
	ClientID   string `json:"client_id,omitempty"`
	TicketID   string `json:"ticket_id,omitempty"`
	SenderID   string `json:"sender_id,omitempty"`
	ReceiverID string `json:"receiver_id,omitempty"`
	IsRead     bool   `json:"is_read,omitempty"`
	Archived   bool   `json:"archived,omitempty"`
}

// Field returns the value of a filterable column.
func (r Row) Field(column string) (string, bool) {
	switch column {
	case "id":
		return r.ID, true
	case "user_id":
		return r.UserID, true
	case "client_id":
		return r.ClientID, true
	case "ticket_id":
		return r.TicketID, true
	case "sender_id":
		return r.SenderID, true
	case "receiver_id":
		return r.ReceiverID, true
	}
	return "", false
}

// AffectedScopes maps a changed row of table to every aggregate scope whose
// value may depend on it: the directly owning scope plus any parent view that
// embeds it. Rows lacking the scope-carrying field contribute nothing.
func AffectedScopes(table Table, rows ...*Row) []Scope {
	var out []Scope
	add := func(s Scope) {
		if s.Valid() && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	for _, r := range rows {
		if r == nil {
			continue
		}
		switch table {
		case TableExternalMessages:
			add(ClientScope(r.ClientID))
		case TableInternalMessages:
			add(TicketScope(r.TicketID))
			add(ClientTicketsScope(r.ClientID))
		case TableDirectMessages:
			add(ConversationScope(r.ReceiverID, r.SenderID))
		case TableNotifications:
			add(InboxScope(r.UserID))
		case TableTickets:
			add(TicketScope(r.ID))
			add(ClientTicketsScope(r.ClientID))
		case TableClients:
			add(ClientScope(r.ID))
			add(ClientTicketsScope(r.ID))
		}
	}
	return out
}
