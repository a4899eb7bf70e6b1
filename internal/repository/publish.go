package repository

import (
	"context"
	"log/slog"

	"traffichub/internal/changefeed"
	"traffichub/internal/domain"
)

// publisher emits change events for committed writes. A failed publish is
// logged and never fails the write: readers recompute from the tables.
type publisher struct {
	feed changefeed.Publisher
	log  *slog.Logger
}

func (p publisher) publish(ctx context.Context, events ...changefeed.Event) {
	if p.feed == nil || len(events) == 0 {
		return
	}
	if err := p.feed.Publish(context.WithoutCancel(ctx), events...); err != nil {
		p.log.Warn("publish change events failed", slog.String("table", string(events[0].Table)), slog.Int("count", len(events)), slog.Any("error", err))
	}
}

func inserted(table domain.Table, row domain.Row) changefeed.Event {
	return changefeed.Event{Table: table, Kind: changefeed.Insert, New: &row}
}

func updated(table domain.Table, old, row domain.Row) changefeed.Event {
	return changefeed.Event{Table: table, Kind: changefeed.Update, New: &row, Old: &old}
}

func deleted(table domain.Table, old domain.Row) changefeed.Event {
	return changefeed.Event{Table: table, Kind: changefeed.Delete, Old: &old}
}
