// Package mq publishes domain events. With redis configured they travel over
// a pub/sub channel so every API instance sees them; otherwise they are
// delivered in-process.
package mq

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/redis/go-redis/v9"

	"tripgenie/logger"
)

// Channel is the redis pub/sub channel events travel on.
const Channel = "tripgenie-events"

const (
	ItineraryCreated  = "itinerary-created"
	ItineraryUpdated  = "itinerary-updated"
	ItineraryDeleted  = "itinerary-deleted"
	ItineraryToggled  = "itinerary-toggled"
	ItineraryFlagged  = "itinerary-flagged"
	BookingCreated    = "booking-created"
	BookingCancelled  = "booking-cancelled"
	AccountDeleted    = "account-deleted"
	ItineraryReviewed = "itinerary-reviewed"
	TourGuideReviewed = "tourguide-reviewed"
	ActivityReviewed  = "activity-reviewed"
)

// Event describes a change to an itinerary, a booking or an account.
type Event struct {
	Type        string    `json:"type"`
	Itinerary   string    `json:"itinerary,omitempty"`
	Booking     string    `json:"booking,omitempty"`
	Account     string    `json:"account,omitempty"`
	IsBooked    bool      `json:"isBooked"`
	IsActivated bool      `json:"isActivated"`
	At          time.Time `json:"at"`
}

// Emitter is how services announce changes.
type Emitter interface {
	Emit(ctx context.Context, evt Event)
}

// Handler consumes events.
type Handler func(Event)

// RedisBus publishes to and consumes from Channel.
type RedisBus struct {
	client *redis.Client
	log    log.Logger
}

func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client, log: logger.With("mq")}
}

// Emit publishes evt. Failures are logged and dropped: events are
// notifications, never the source of truth.
func (b *RedisBus) Emit(ctx context.Context, evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		level.Error(b.log).Log("msg", "marshal event", "type", evt.Type, "err", err)
		return
	}
	if err := b.client.Publish(context.WithoutCancel(ctx), Channel, data).Err(); err != nil {
		level.Warn(b.log).Log("msg", "publish event", "type", evt.Type, "err", err)
		return
	}
	level.Debug(b.log).Log("msg", "event published", "type", evt.Type, "itinerary", evt.Itinerary)
}

// Run delivers every event on Channel to handle until ctx is cancelled.
func (b *RedisBus) Run(ctx context.Context, handle Handler) error {
	sub := b.client.Subscribe(ctx, Channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	level.Info(b.log).Log("msg", "listening for events", "channel", Channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt Event
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				level.Warn(b.log).Log("msg", "bad event payload", "err", err)
				continue
			}
			handle(evt)
		}
	}
}

// LocalBus delivers events synchronously to the handlers registered with
// Subscribe.
type LocalBus struct {
	mu       sync.RWMutex
	handlers []Handler
}

func (b *LocalBus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, h)
}

func (b *LocalBus) Emit(_ context.Context, evt Event) {
	if evt.At.IsZero() {
		evt.At = time.Now().UTC()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, h := range b.handlers {
		h(evt)
	}
}

// Recorder keeps every emitted event. Tests use it to assert on emissions.
type Recorder struct {
	mu     sync.Mutex
	Events []Event
}

func (r *Recorder) Emit(_ context.Context, evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, evt)
}

// Types lists the types of the recorded events in order.
func (r *Recorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = e.Type
	}
	return out
}
