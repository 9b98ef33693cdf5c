package reviews

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripgenie/db"
	"tripgenie/errs"
	"tripgenie/globals"
	"tripgenie/models"
	"tripgenie/mq"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Service, *db.Memory, *mq.Recorder) {
	t.Helper()
	ctx := context.Background()
	store := db.NewMemory()
	store.Now = func() time.Time { return now }

	for _, acc := range []models.Account{
		{ID: "g1", Username: "gamal", Role: models.TourGuide},
		{ID: "t1", Username: "tarek", Role: models.Tourist},
		{ID: "t2", Username: "tala", Role: models.Tourist},
	} {
		require.NoError(t, store.InsertAccount(ctx, acc))
	}
	require.NoError(t, store.InsertActivity(ctx, models.Activity{ID: "act-1", Name: "Camel ride", Advertiser: "ad1"}))
	require.NoError(t, store.InsertItinerary(ctx, models.Itinerary{
		ID: "it-1", Title: "Giza", TourGuide: "g1", Activities: []string{"act-1"}, IsActivated: true, Appropriate: true,
	}))
	slot := models.TimeSlot{StartTime: "10:00", EndTime: "14:00"}
	require.NoError(t, store.InsertBooking(ctx, models.ItineraryBooking{
		ID: "b-past", Itinerary: "it-1", Tourist: "t1", NumberOfTickets: 1,
		Date: time.Date(2026, 10, 10, 0, 0, 0, 0, time.UTC), Time: slot,
	}))
	require.NoError(t, store.InsertBooking(ctx, models.ItineraryBooking{
		ID: "b-future", Itinerary: "it-1", Tourist: "t2", NumberOfTickets: 1,
		Date: time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), Time: slot,
	}))

	events := &mq.Recorder{}
	svc := NewService(store, events)
	svc.Now = func() time.Time { return now }
	return svc, store, events
}

func TestRate(t *testing.T) {
	svc, store, events := setup(t)
	ctx := context.Background()

	avg, err := svc.Rate(ctx, "t1", models.Tourist, ItineraryTarget, "it-1", 4)
	require.NoError(t, err)
	assert.Equal(t, 4.0, avg)
	avg, err = svc.Rate(ctx, "t1", models.Tourist, ItineraryTarget, "it-1", 5)
	require.NoError(t, err)
	assert.Equal(t, 4.5, avg)

	avg, err = svc.Rate(ctx, "t1", models.Tourist, TourGuideTarget, "g1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3.0, avg)
	acc, err := store.FindAccount(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, []int{3}, acc.AllRatings)

	_, err = svc.Rate(ctx, "t1", models.Tourist, ActivityTarget, "act-1", 2)
	require.NoError(t, err)

	assert.Equal(t, []string{
		mq.ItineraryReviewed, mq.ItineraryReviewed, mq.TourGuideReviewed, mq.ActivityReviewed,
	}, events.Types())
}

func TestRateRejections(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		reviewer string
		role     models.Role
		target   Target
		id       string
		rating   int
		want     error
	}{
		{"out of range", "t1", models.Tourist, ItineraryTarget, "it-1", 6, errs.ErrValidation},
		{"zero", "t1", models.Tourist, ItineraryTarget, "it-1", 0, errs.ErrValidation},
		{"not a tourist", "g1", models.TourGuide, ItineraryTarget, "it-1", 5, errs.ErrForbidden},
		{"trip not taken yet", "t2", models.Tourist, ItineraryTarget, "it-1", 5, errs.ErrForbidden},
		{"missing itinerary", "t1", models.Tourist, ItineraryTarget, "nope", 5, errs.ErrNotFound},
		{"tourist is not a guide", "t1", models.Tourist, TourGuideTarget, "t2", 5, errs.ErrNotFound},
		{"missing activity", "t1", models.Tourist, ActivityTarget, "nope", 5, errs.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Rate(ctx, tt.reviewer, tt.role, tt.target, tt.id, tt.rating)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestComment(t *testing.T) {
	svc, store, _ := setup(t)
	ctx := context.Background()

	c, err := svc.Comment(ctx, "t1", models.Tourist, ItineraryTarget, "it-1", CommentInput{
		Content: models.CommentContent{Liked: " the view "},
	})
	require.NoError(t, err)
	assert.Equal(t, "tarek", c.Username)
	assert.Equal(t, "the view", c.Content.Liked)

	c, err = svc.Comment(ctx, "t1", models.Tourist, TourGuideTarget, "g1", CommentInput{
		Anonymous: true, Rating: 5, Content: models.CommentContent{Disliked: "too early"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.AnonymousUsername, c.Username)

	_, err = svc.Comment(ctx, "t1", models.Tourist, ActivityTarget, "act-1", CommentInput{})
	assert.ErrorIs(t, err, errs.ErrValidation)

	it, err := store.FindItinerary(ctx, "it-1")
	require.NoError(t, err)
	require.Len(t, it.Comments, 1)
	assert.Zero(t, it.Rating, "comments do not change the rating")
}

func TestHandlers(t *testing.T) {
	svc, _, _ := setup(t)
	req := func(body, user string) *http.Request {
		r := httptest.NewRequest(http.MethodPost, "/tourist/itinerary/rate/it-1", strings.NewReader(body))
		ctx := context.WithValue(r.Context(), globals.UserIDKey, user)
		return r.WithContext(context.WithValue(ctx, globals.RoleKey, models.Tourist))
	}
	ps := httprouter.Params{{Key: "id", Value: "it-1"}}

	rec := httptest.NewRecorder()
	svc.RateHandler(ItineraryTarget)(rec, req(`{"rating":4}`, "t1"), ps)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"rating":4}`, rec.Body.String())

	rec = httptest.NewRecorder()
	svc.RateHandler(ItineraryTarget)(rec, req(`{"rating":4}`, "t2"), ps)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	svc.CommentHandler(ItineraryTarget)(rec, req(`{"content":{"liked":"sunrise"}}`, "t1"), ps)
	assert.Equal(t, http.StatusCreated, rec.Code)
}
