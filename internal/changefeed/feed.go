package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"traffichub/config"
	"traffichub/internal/domain"
	"traffichub/internal/metrics"
)

// Feed carries change events over Redis pub/sub, one channel per table.
type Feed struct {
	rdb    *goredis.Client
	prefix string
	wait   time.Duration
	log    *slog.Logger
}

func New(rdb *goredis.Client, cfg config.FeedConfig, log *slog.Logger) *Feed {
	return &Feed{
		rdb:    rdb,
		prefix: cfg.ChannelPrefix,
		wait:   cfg.ReconnectWait,
		log:    log.With(slog.String("component", "changefeed")),
	}
}

func (f *Feed) channel(t domain.Table) string {
	return f.prefix + string(t)
}

func (f *Feed) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	pipe := f.rdb.Pipeline()
	for _, ev := range events {
		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("encode %s event: %w", ev.Table, err)
		}
		pipe.Publish(ctx, f.channel(ev.Table), payload)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish change events: %w", err)
	}
	return nil
}

type Options struct {
	Name    string
	Tables  []domain.Table
	Filter  *Filter
	Handler Handler
	// OnResync runs when the subscription is re-established after a drop.
	// Events published while disconnected are lost.
	OnResync func(ctx context.Context)
}

// Subscription is one long-lived pub/sub subscription. Reconnection and
// resubscription are done by the redis client; the handler stays bound to the
// subscription across reconnects.
type Subscription struct {
	feed      *Feed
	opts      Options
	channels  []string
	state     stateVar
	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}
	log       *slog.Logger
}

// Subscribe starts a subscription that runs until ctx is cancelled.
func (f *Feed) Subscribe(ctx context.Context, opts Options) *Subscription {
	s := &Subscription{
		feed:  f,
		opts:  opts,
		ready: make(chan struct{}),
		done:  make(chan struct{}),
		log:   f.log.With(slog.String("subscription", opts.Name)),
	}
	for _, t := range opts.Tables {
		s.channels = append(s.channels, f.channel(t))
	}
	go s.run(ctx)
	return s
}

func (s *Subscription) State() State { return s.state.load() }

// Ready is closed the first time the subscription reaches Subscribed.
func (s *Subscription) Ready() <-chan struct{} { return s.ready }

// Done is closed once the subscription has stopped.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) setState(next State) State {
	prev := s.state.swap(next)
	if prev != next {
		metrics.FeedState.WithLabelValues(s.opts.Name).Set(float64(next))
		s.log.Debug("subscription state", slog.String("from", prev.String()), slog.String("to", next.String()))
	}
	return prev
}

func (s *Subscription) run(ctx context.Context) {
	defer close(s.done)
	defer s.setState(Disconnected)

	s.setState(Connecting)
	ps := s.feed.rdb.Subscribe(ctx, s.channels...)
	defer ps.Close()
	// Receive does not observe ctx cancellation; closing the PubSub unblocks it.
	stop := context.AfterFunc(ctx, func() { _ = ps.Close() })
	defer stop()

	dropped := false
	for {
		msg, err := ps.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if s.setState(Disconnected) == Subscribed {
				dropped = true
				s.log.Warn("subscription dropped", slog.Any("error", err))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.feed.wait):
			}
			s.setState(Connecting)
			continue
		}

		switch m := msg.(type) {
		case *goredis.Subscription:
			if m.Kind != "subscribe" || m.Count != len(s.channels) {
				continue
			}
			s.setState(Subscribed)
			s.readyOnce.Do(func() { close(s.ready) })
			if dropped {
				dropped = false
				s.log.Info("subscription restored")
				if s.opts.OnResync != nil {
					s.opts.OnResync(ctx)
				}
			}
		case *goredis.Message:
			var ev Event
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
				s.log.Warn("undecodable change event", slog.String("channel", m.Channel), slog.Any("error", err))
				continue
			}
			if !s.opts.Filter.Match(ev) {
				continue
			}
			metrics.FeedEvents.WithLabelValues(string(ev.Table), string(ev.Kind)).Inc()
			s.opts.Handler(ctx, ev)
		}
	}
}
