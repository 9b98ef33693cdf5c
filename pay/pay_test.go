package pay

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripgenie/db"
	"tripgenie/errs"
	"tripgenie/globals"
	"tripgenie/models"
)

func TestChargeAndRefund(t *testing.T) {
	ctx := context.Background()
	m := db.NewMemory()
	require.NoError(t, m.InsertAccount(ctx, models.Account{ID: "t1", Role: models.Tourist, Wallet: 100}))
	p := NewPaymentService(m, nil)

	debited, err := p.Charge(ctx, "t1", models.CreditCard, 80)
	require.NoError(t, err)
	assert.False(t, debited, "cards are not debited here")

	debited, err = p.Charge(ctx, "t1", models.Wallet, 80)
	require.NoError(t, err)
	assert.True(t, debited)

	_, err = p.Charge(ctx, "t1", models.Wallet, 80)
	assert.ErrorIs(t, err, errs.ErrConflict, "insufficient balance")

	_, err = p.Charge(ctx, "t1", "Cash", 10)
	assert.ErrorIs(t, err, errs.ErrValidation)

	require.NoError(t, p.Refund(ctx, "t1", 80))
	acc, err := m.FindAccount(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, acc.Wallet)
}

func TestIdempotentReplaysResponse(t *testing.T) {
	m := db.NewMemory()
	calls := 0
	h := Idempotent(m, func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"bk-1"}`))
	})

	do := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/tourist/itineraryBooking", strings.NewReader(body))
		req.Header.Set("Idempotency-Key", "abc")
		req = req.WithContext(context.WithValue(req.Context(), globals.UserIDKey, "t1"))
		rec := httptest.NewRecorder()
		h(rec, req, nil)
		return rec
	}

	first := do(`{"itinerary":"it-1"}`)
	assert.Equal(t, http.StatusCreated, first.Code)

	second := do(`{"itinerary":"it-1"}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, `{"id":"bk-1"}`, second.Body.String())
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, 1, calls, "the handler ran once")

	conflict := do(`{"itinerary":"it-2"}`)
	assert.Equal(t, http.StatusConflict, conflict.Code)
}

func TestIdempotentWithoutKeyPassesThrough(t *testing.T) {
	calls := 0
	h := Idempotent(db.NewMemory(), func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		calls++
	})
	for i := 0; i < 2; i++ {
		h(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", nil), nil)
	}
	assert.Equal(t, 2, calls)
}
