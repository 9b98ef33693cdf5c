package itinerary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripgenie/db"
	"tripgenie/errs"
	"tripgenie/globals"
	"tripgenie/metrics"
	"tripgenie/models"
	"tripgenie/mq"
	"tripgenie/pricing"
	"tripgenie/search"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

var (
	guide   = Viewer{ID: "g1", Role: models.TourGuide}
	rival   = Viewer{ID: "g2", Role: models.TourGuide}
	tourist = Viewer{ID: "t1", Role: models.Tourist}
	admin   = Viewer{ID: "a1", Role: models.Admin}
	guest   = Viewer{}
)

type fixture struct {
	store  *db.Memory
	svc    *Service
	events *mq.Recorder
}

func setup(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	store := db.NewMemory()
	store.Now = func() time.Time { return now }

	require.NoError(t, store.InsertCurrency(ctx, models.Currency{ID: "egp", Code: "EGP", Symbol: "E£", Name: "Egyptian Pound"}))
	require.NoError(t, store.InsertCurrency(ctx, models.Currency{ID: "usd", Code: "USD", Symbol: "$", Name: "US Dollar"}))
	for _, acc := range []models.Account{
		{ID: "g1", Username: "gamal", Role: models.TourGuide},
		{ID: "g2", Username: "gina", Role: models.TourGuide},
		{ID: "t1", Username: "tarek", Role: models.Tourist, PreferredCurrency: "usd"},
		{ID: "a1", Username: "root", Role: models.Admin},
	} {
		require.NoError(t, store.InsertAccount(ctx, acc))
	}
	require.NoError(t, store.InsertActivity(ctx, models.Activity{
		ID: "act-1", Name: "Pyramids tour", Category: []string{"history"}, Tags: []string{"pyramids"}, Advertiser: "ad1",
	}))

	events := &mq.Recorder{}
	svc := NewService(store, pricing.StaticSource{"EGP": 50, "USD": 1}, events, metrics.New())
	svc.Now = func() time.Time { return now }
	return fixture{store: store, svc: svc, events: events}
}

func ptr[T any](v T) *T { return &v }

func input(title string, price float64, day time.Time) CreateInput {
	return CreateInput{
		Title:           title,
		Language:        "English",
		Price:           ptr(price),
		Currency:        "egp",
		PickUpLocation:  "Tahrir",
		DropOffLocation: "Giza",
		AvailableDates: []models.AvailableDate{{
			Date:  day,
			Times: []models.TimeSlot{{StartTime: "10:00", EndTime: "14:00"}},
		}},
		Activities: []string{"act-1"},
	}
}

func titles(views []View) []string {
	out := make([]string, len(views))
	for i, v := range views {
		out[i] = v.Title
	}
	return out
}

func TestCreate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	day := now.AddDate(0, 0, 4)

	_, err := f.svc.Create(ctx, tourist, input("Giza", 500, day))
	assert.ErrorIs(t, err, errs.ErrForbidden)

	bad := input("", 500, day)
	_, err = f.svc.Create(ctx, guide, bad)
	assert.ErrorIs(t, err, errs.ErrValidation)

	bad = input("Giza", 500, day)
	bad.Currency = "xyz"
	_, err = f.svc.Create(ctx, guide, bad)
	assert.ErrorIs(t, err, errs.ErrValidation)

	bad = input("Giza", 500, day)
	bad.Activities = []string{"act-1", "nope"}
	_, err = f.svc.Create(ctx, guide, bad)
	assert.ErrorIs(t, err, errs.ErrValidation)

	bad = input("Giza", 500, day)
	bad.AvailableDates[0].Times = nil
	_, err = f.svc.Create(ctx, guide, bad)
	assert.ErrorIs(t, err, errs.ErrValidation)

	it, err := f.svc.Create(ctx, guide, input("Giza", 500, day.Add(7*time.Hour)))
	require.NoError(t, err)
	assert.Equal(t, "g1", it.TourGuide)
	assert.True(t, it.IsActivated)
	assert.True(t, it.Appropriate)
	assert.False(t, it.IsBooked)
	assert.Equal(t, time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC), it.AvailableDates[0].Date, "dates are stored as days")
	assert.Equal(t, []string{mq.ItineraryCreated}, f.events.Types())
}

func TestListScopes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	day := now.AddDate(0, 0, 4)

	_, err := f.svc.Create(ctx, guide, input("Giza", 500, day))
	require.NoError(t, err)
	hidden, err := f.svc.Create(ctx, rival, input("Luxor", 900, day))
	require.NoError(t, err)
	_, err = f.svc.ToggleActivation(ctx, rival, hidden.ID)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, rival, input("Aswan", 300, now.AddDate(0, 0, -3)))
	require.NoError(t, err)

	public, err := f.svc.List(ctx, guest, search.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Giza"}, titles(public), "deactivated and past itineraries are not browsable")

	own, err := f.svc.List(ctx, rival, search.Criteria{SortBy: search.SortPrice})
	require.NoError(t, err)
	assert.Equal(t, []string{"Aswan", "Luxor"}, titles(own), "guides see all of their own")

	all, err := f.svc.List(ctx, admin, search.Criteria{SortBy: search.SortPrice, Desc: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"Luxor", "Giza", "Aswan"}, titles(all))

	byText, err := f.svc.List(ctx, tourist, search.Criteria{SearchBy: "PYRAMIDS", Types: []string{"history"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Giza"}, titles(byText))
	require.Len(t, byText[0].Activities, 1)
	assert.Equal(t, "Pyramids tour", byText[0].Activities[0].Name)
}

func TestListConvertsPrices(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, guide, input("Giza", 500, now.AddDate(0, 0, 4)))
	require.NoError(t, err)

	views, err := f.svc.List(ctx, tourist, search.Criteria{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, pricing.Price{Amount: 10, Currency: "USD", Symbol: "$", Converted: true}, views[0].DisplayPrice)

	views, err = f.svc.List(ctx, guest, search.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, pricing.Price{Amount: 500, Currency: "EGP", Symbol: "E£"}, views[0].DisplayPrice)
}

type downSource struct{}

func (downSource) Rates(context.Context) (pricing.Rates, error) {
	return nil, errs.Upstream(nil, "rates service down")
}

func TestListFallsBackToNativePriceWhenRatesAreDown(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.svc.rates = downSource{}
	_, err := f.svc.Create(ctx, guide, input("Giza", 500, now.AddDate(0, 0, 4)))
	require.NoError(t, err)

	views, err := f.svc.List(ctx, tourist, search.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, 500.0, views[0].DisplayPrice.Amount)
	assert.False(t, views[0].DisplayPrice.Converted)
}

func TestGet(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	it, err := f.svc.Create(ctx, guide, input("Giza", 500, now.AddDate(0, 0, 4)))
	require.NoError(t, err)

	v, err := f.svc.Get(ctx, guest, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "gamal", v.TourGuide.Username)
	assert.Equal(t, "active", v.State)

	_, err = f.svc.ToggleActivation(ctx, guide, it.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, guest, it.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound, "deactivated itineraries are hidden from the public")

	v, err = f.svc.Get(ctx, guide, it.ID)
	require.NoError(t, err)
	assert.Equal(t, "draft", v.State)

	_, err = f.svc.Get(ctx, guest, "missing")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	it, err := f.svc.Create(ctx, guide, input("Giza", 500, now.AddDate(0, 0, 4)))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, rival, it.ID, UpdateInput{Title: ptr("Stolen")})
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.Update(ctx, guide, it.ID, UpdateInput{Title: ptr("  ")})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.Update(ctx, guide, it.ID, UpdateInput{AvailableDates: []models.AvailableDate{}})
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = f.svc.Update(ctx, guide, "missing", UpdateInput{Title: ptr("x")})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	updated, err := f.svc.Update(ctx, guide, it.ID, UpdateInput{Title: ptr("Giza at dawn"), Price: ptr(650.0)})
	require.NoError(t, err)
	assert.Equal(t, "Giza at dawn", updated.Title)
	assert.Equal(t, 650.0, updated.Price)
	assert.Equal(t, "Tahrir", updated.PickUpLocation, "absent fields are kept")
	assert.Equal(t, "g1", updated.TourGuide)
}

func TestDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	it, err := f.svc.Create(ctx, guide, input("Giza", 500, now.AddDate(0, 0, 4)))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(ctx, guide, "missing"), errs.ErrNotFound)

	_, err = f.store.AdjustBookingCount(ctx, it.ID, +1)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Delete(ctx, rival, it.ID), errs.ErrConflict, "booked wins over ownership")
	assert.ErrorIs(t, f.svc.Delete(ctx, guide, it.ID), errs.ErrConflict)

	_, err = f.store.AdjustBookingCount(ctx, it.ID, -1)
	require.NoError(t, err)
	assert.ErrorIs(t, f.svc.Delete(ctx, rival, it.ID), errs.ErrForbidden)
	require.NoError(t, f.svc.Delete(ctx, guide, it.ID))

	_, err = f.store.FindItinerary(ctx, it.ID)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.Equal(t, mq.ItineraryDeleted, f.events.Types()[len(f.events.Types())-1])
}

func TestToggleAndFlag(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	it, err := f.svc.Create(ctx, guide, input("Giza", 500, now.AddDate(0, 0, 4)))
	require.NoError(t, err)

	_, err = f.svc.ToggleActivation(ctx, rival, it.ID)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	toggled, err := f.svc.ToggleActivation(ctx, guide, it.ID)
	require.NoError(t, err)
	assert.False(t, toggled.IsActivated)
	toggled, err = f.svc.ToggleActivation(ctx, guide, it.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsActivated)

	_, err = f.svc.Flag(ctx, guide, it.ID, false)
	assert.ErrorIs(t, err, errs.ErrForbidden)

	flagged, err := f.svc.Flag(ctx, admin, it.ID, false)
	require.NoError(t, err)
	assert.False(t, flagged.Appropriate)

	public, err := f.svc.List(ctx, guest, search.Criteria{})
	require.NoError(t, err)
	assert.Empty(t, public)

	assert.Equal(t, []string{mq.ItineraryCreated, mq.ItineraryToggled, mq.ItineraryToggled, mq.ItineraryFlagged}, f.events.Types())
}

func serve(h httprouter.Handle, method, path string, v Viewer, ps httprouter.Params) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	ctx := context.WithValue(req.Context(), globals.UserIDKey, v.ID)
	ctx = context.WithValue(ctx, globals.RoleKey, v.Role)
	rec := httptest.NewRecorder()
	h(rec, req.WithContext(ctx), ps)
	return rec
}

func TestHandlers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	it, err := f.svc.Create(ctx, guide, input("Giza", 500, now.AddDate(0, 0, 4)))
	require.NoError(t, err)

	rec := serve(f.svc.GetItineraries, http.MethodGet, "/guest/itineraries?sortBy=name", guest, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(f.svc.GetItineraries, http.MethodGet, "/guest/itineraries?budget=600&languages=english", guest, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"title":"Giza"`)

	ps := httprouter.Params{{Key: "id", Value: it.ID}}
	_, err = f.store.AdjustBookingCount(ctx, it.ID, +1)
	require.NoError(t, err)
	rec = serve(f.svc.DeleteItinerary, http.MethodDelete, "/tour-guide/itineraries/"+it.ID, guide, ps)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, err = f.store.AdjustBookingCount(ctx, it.ID, -1)
	require.NoError(t, err)
	rec = serve(f.svc.DeleteItinerary, http.MethodDelete, "/tour-guide/itineraries/"+it.ID, rival, ps)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = serve(f.svc.DeleteItinerary, http.MethodDelete, "/tour-guide/itineraries/"+it.ID, guide, ps)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(f.svc.GetItinerary, http.MethodGet, "/guest/itineraries/"+it.ID, guest, ps)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
