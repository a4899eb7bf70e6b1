package domain

// NotificationType tags what a notification announces.
type NotificationType string

const (
	NotificationExternalMessage     NotificationType = "external_message"
	NotificationInternalMessage     NotificationType = "internal_message"
	NotificationDirectMessage       NotificationType = "direct_message"
	NotificationTicketCreated       NotificationType = "ticket_created"
	NotificationTicketAssigned      NotificationType = "ticket_assigned"
	NotificationMention             NotificationType = "mention"
	NotificationTicketStatusChanged NotificationType = "ticket_status_changed"
)

var notificationTypes = map[NotificationType]struct{}{
	NotificationExternalMessage:     {},
	NotificationInternalMessage:     {},
	NotificationDirectMessage:       {},
	NotificationTicketCreated:       {},
	NotificationTicketAssigned:      {},
	NotificationMention:             {},
	NotificationTicketStatusChanged: {},
}

func (t NotificationType) Valid() bool {
	_, ok := notificationTypes[t]
	return ok
}

type TicketStatus string

const (
	TicketNew             TicketStatus = "new"
	TicketInProgress      TicketStatus = "in_progress"
	TicketDone            TicketStatus = "done"
	TicketPendingInternal TicketStatus = "pending_internal"
	TicketPendingExternal TicketStatus = "pending_external"
)

func (s TicketStatus) Valid() bool {
	switch s {
	case TicketNew, TicketInProgress, TicketDone, TicketPendingInternal, TicketPendingExternal:
		return true
	}
	return false
}

const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

const (
	ProfileOnline  = "online"
	ProfileAway    = "away"
	ProfileOffline = "offline"
)
