package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripgenie/booking"
	"tripgenie/db"
	"tripgenie/itinerary"
	"tripgenie/live"
	"tripgenie/metrics"
	"tripgenie/middleware"
	"tripgenie/models"
	"tripgenie/mq"
	"tripgenie/pay"
	"tripgenie/pricing"
	"tripgenie/profile"
	"tripgenie/ratelim"
	"tripgenie/reviews"
	"tripgenie/tickets"
)

type app struct {
	router *httprouter.Router
	auth   *middleware.Auth
	store  *db.Memory
}

func newApp(t *testing.T) app {
	t.Helper()
	ctx := context.Background()
	store := db.NewMemory()
	require.NoError(t, store.InsertCurrency(ctx, models.Currency{ID: "egp", Code: "EGP", Symbol: "E£"}))
	for _, acc := range []models.Account{
		{ID: "g1", Username: "gamal", Role: models.TourGuide},
		{ID: "t1", Username: "tarek", Role: models.Tourist, Wallet: 300},
	} {
		require.NoError(t, store.InsertAccount(ctx, acc))
	}

	bus := &mq.LocalBus{}
	m := metrics.New()
	hub := live.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)
	bus.Subscribe(hub.Publish)

	auth := middleware.NewAuth([]byte("secret"))
	payments := pay.NewPaymentService(store, nil)
	router := httprouter.New()
	RoutesWrapper(router, Deps{
		Auth:        auth,
		Limiter:     ratelim.NewRateLimiter(600, 100),
		Idempotency: store,
		Itineraries: itinerary.NewService(store, pricing.StaticSource{}, bus, m),
		Bookings:    booking.NewService(store, payments, tickets.Signer{Secret: []byte("t")}, bus, m),
		Reviews:     reviews.NewService(store, bus),
		Profiles:    profile.NewService(store, bus, m),
		Payments:    payments,
		Hub:         hub,
	})
	return app{router: router, auth: auth, store: store}
}

func (a app) do(t *testing.T, method, path, user string, role models.Role, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if user != "" {
		token, err := a.auth.Sign(models.Account{ID: user, Role: role}, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func TestItineraryLifecycleOverHTTP(t *testing.T) {
	a := newApp(t)
	day := time.Now().UTC().AddDate(0, 0, 10).Format(time.DateOnly)

	create := `{"title":"Giza","language":"English","price":100,"currency":"egp","pickUpLocation":"Tahrir",` +
		`"dropOffLocation":"Giza","availableDates":[{"date":"` + day + `T00:00:00Z","times":[{"startTime":"10:00","endTime":"14:00"}]}]}`
	rec := a.do(t, http.MethodPost, "/tour-guide/itineraries", "g1", models.TourGuide, create)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var it models.Itinerary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &it))

	rec = a.do(t, http.MethodPost, "/tourist/itineraries", "t1", models.Tourist, create)
	assert.Equal(t, http.StatusForbidden, rec.Code, "tourists do not author itineraries")

	rec = a.do(t, http.MethodGet, "/guest/itineraries?searchBy=giz", "", models.Guest, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), it.ID)

	rec = a.do(t, http.MethodGet, "/tourist/itineraries", "g1", models.TourGuide, "")
	assert.Equal(t, http.StatusForbidden, rec.Code, "the token's role must match the prefix")

	book := `{"itinerary":"` + it.ID + `","numberOfTickets":3,"date":"` + day + `T00:00:00Z",` +
		`"time":{"startTime":"10:00","endTime":"14:00"},"paymentType":"Wallet"}`
	req := httptest.NewRequest(http.MethodPost, "/tourist/itineraryBooking", strings.NewReader(book))
	token, err := a.auth.Sign(models.Account{ID: "t1", Role: models.Tourist}, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Idempotency-Key", "k1")
	first := httptest.NewRecorder()
	a.router.ServeHTTP(first, req)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	var b models.ItineraryBooking
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &b))

	req = httptest.NewRequest(http.MethodPost, "/tourist/itineraryBooking", strings.NewReader(book))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Idempotency-Key", "k1")
	retry := httptest.NewRecorder()
	a.router.ServeHTTP(retry, req)
	assert.Equal(t, http.StatusCreated, retry.Code)
	assert.Equal(t, first.Body.String(), retry.Body.String(), "a retried booking is replayed, not repeated")

	rec = a.do(t, http.MethodGet, "/tourist/wallet", "t1", models.Tourist, "")
	assert.JSONEq(t, `{"balance":0}`, rec.Body.String())

	rec = a.do(t, http.MethodDelete, "/tour-guide/itineraries/"+it.ID, "g1", models.TourGuide, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodDelete, "/tourist/itineraryBooking/"+b.ID, "t1", models.Tourist, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodDelete, "/tour-guide/itineraries/"+it.ID, "g1", models.TourGuide, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/guest/itineraries/"+it.ID, "", models.Guest, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndAuth(t *testing.T) {
	a := newApp(t)
	rec := a.do(t, http.MethodGet, "/health", "", models.Guest, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/tourist/itineraryBooking", "", models.Guest, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodGet, "/tourist/itineraryBooking", "t1", models.Tourist, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}
