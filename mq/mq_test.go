package mq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLocalBusFansOut(t *testing.T) {
	var bus LocalBus
	var a, b []Event
	bus.Subscribe(func(e Event) { a = append(a, e) })
	bus.Subscribe(func(e Event) { b = append(b, e) })

	bus.Emit(context.Background(), Event{Type: BookingCreated, Itinerary: "it-1", IsBooked: true})

	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
	assert.Equal(t, "it-1", a[0].Itinerary)
	assert.False(t, a[0].At.IsZero(), "emission time is stamped")
}

func TestRecorder(t *testing.T) {
	var r Recorder
	r.Emit(context.Background(), Event{Type: ItineraryCreated})
	r.Emit(context.Background(), Event{Type: ItineraryToggled})
	assert.Equal(t, []string{ItineraryCreated, ItineraryToggled}, r.Types())
}
