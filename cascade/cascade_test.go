package cascade

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripgenie/db"
	"tripgenie/errs"
	"tripgenie/models"
)

func seed(t *testing.T, m *db.Memory) {
	t.Helper()
	ctx := context.Background()
	for _, a := range []models.Account{
		{ID: "guide", Username: "layla", Role: models.TourGuide},
		{ID: "busy-guide", Username: "omar", Role: models.TourGuide},
		{ID: "adv", Username: "nile-tours", Role: models.Advertiser, IsAccepted: true},
		{ID: "seller", Username: "bazaar", Role: models.Seller, IsAccepted: true},
		{ID: "tourist", Username: "amira", Role: models.Tourist},
	} {
		require.NoError(t, m.InsertAccount(ctx, a))
	}
	for _, it := range []models.Itinerary{
		{ID: "free-1", TourGuide: "guide", Activities: []string{"felucca"}},
		{ID: "free-2", TourGuide: "guide"},
		{ID: "free-3", TourGuide: "busy-guide"},
		{ID: "booked", TourGuide: "busy-guide", IsBooked: true, BookingCount: 1},
	} {
		require.NoError(t, m.InsertItinerary(ctx, it))
	}
	require.NoError(t, m.InsertActivity(ctx, models.Activity{ID: "felucca", Advertiser: "adv"}))
	require.NoError(t, m.InsertProduct(ctx, models.Product{ID: "rug", Seller: "seller"}))
}

func account(t *testing.T, m *db.Memory, id string) models.Account {
	a, err := m.FindAccount(context.Background(), id)
	require.NoError(t, err)
	return a
}

func TestTourGuideCascade(t *testing.T) {
	ctx := context.Background()
	m := db.NewMemory()
	seed(t, m)
	c := NewCoordinator(m)

	res, err := c.OnAccountDeleted(ctx, account(t, m, "guide"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.Itineraries)

	left, err := m.FindItineraries(ctx, db.ItineraryFilter{TourGuide: "guide"})
	require.NoError(t, err)
	assert.Empty(t, left)
	_, err = m.FindAccount(ctx, "guide")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestBookedItineraryBlocksTourGuideDeletion(t *testing.T) {
	ctx := context.Background()
	m := db.NewMemory()
	seed(t, m)
	c := NewCoordinator(m)

	_, err := c.OnAccountDeleted(ctx, account(t, m, "busy-guide"))
	require.ErrorIs(t, err, errs.ErrConflict)

	left, err := m.FindItineraries(ctx, db.ItineraryFilter{TourGuide: "busy-guide"})
	require.NoError(t, err)
	assert.Len(t, left, 2, "nothing is deleted when the cascade is refused")
	_, err = m.FindAccount(ctx, "busy-guide")
	assert.NoError(t, err)
}

func TestAdvertiserCascadeUnlinksActivities(t *testing.T) {
	ctx := context.Background()
	m := db.NewMemory()
	seed(t, m)
	c := NewCoordinator(m)

	res, err := c.OnAccountDeleted(ctx, account(t, m, "adv"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Activities)
	assert.Equal(t, int64(1), res.Unlinked)

	it, err := m.FindItinerary(ctx, "free-1")
	require.NoError(t, err)
	assert.Empty(t, it.Activities, "no dangling activity references")
}

func TestSellerAndTouristCascade(t *testing.T) {
	ctx := context.Background()
	m := db.NewMemory()
	seed(t, m)
	c := NewCoordinator(m)

	res, err := c.OnAccountDeleted(ctx, account(t, m, "seller"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.Products)
	products, err := m.FindProducts(ctx, "seller")
	require.NoError(t, err)
	assert.Empty(t, products)

	res, err = c.OnAccountDeleted(ctx, account(t, m, "tourist"))
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}

func TestCascadeOfMissingAccount(t *testing.T) {
	m := db.NewMemory()
	c := NewCoordinator(m)
	_, err := c.OnAccountDeleted(context.Background(), models.Account{ID: "ghost", Role: models.Seller})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

// flakyStore applies each write on its own, as the mongo store does without
// transactions, and cannot delete accounts.
type flakyStore struct {
	*db.Memory
}

func (f flakyStore) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.Compensating(ctx, fn)
}

func (f flakyStore) DeleteAccount(context.Context, string) (bool, error) {
	return false, errors.New("connection reset")
}

func TestFailedCascadeRestoresWithoutTransactions(t *testing.T) {
	ctx := context.Background()
	m := db.NewMemory()
	seed(t, m)
	c := NewCoordinator(flakyStore{m})

	_, err := c.OnAccountDeleted(ctx, account(t, m, "guide"))
	require.Error(t, err)
	left, err := m.FindItineraries(ctx, db.ItineraryFilter{TourGuide: "guide"})
	require.NoError(t, err)
	assert.Len(t, left, 2, "deleted itineraries are put back")

	_, err = c.OnAccountDeleted(ctx, account(t, m, "adv"))
	require.Error(t, err)
	_, err = m.FindActivity(ctx, "felucca")
	assert.NoError(t, err)
	it, err := m.FindItinerary(ctx, "free-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"felucca"}, it.Activities, "references are relinked")

	_, err = c.OnAccountDeleted(ctx, account(t, m, "seller"))
	require.Error(t, err)
	products, err := m.FindProducts(ctx, "seller")
	require.NoError(t, err)
	assert.Len(t, products, 1)
}

func TestBookingDuringCascadeRestoresItineraries(t *testing.T) {
	ctx := context.Background()
	m := db.NewMemory()
	seed(t, m)
	c := NewCoordinator(racingStore{Memory: m, book: "free-2"})

	_, err := c.OnAccountDeleted(ctx, account(t, m, "guide"))
	require.ErrorIs(t, err, errs.ErrConflict)

	left, err := m.FindItineraries(ctx, db.ItineraryFilter{TourGuide: "guide"})
	require.NoError(t, err)
	assert.Len(t, left, 2)
	_, err = m.FindAccount(ctx, "guide")
	assert.NoError(t, err)
}

// racingStore books an itinerary right before the guide's itineraries are
// deleted, after the cascade has been planned.
type racingStore struct {
	*db.Memory
	book string
}

func (r racingStore) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.Compensating(ctx, fn)
}

func (r racingStore) DeleteUnbookedItineraries(ctx context.Context, tourGuide string) (int64, error) {
	if _, err := r.Memory.AdjustBookingCount(ctx, r.book, +1); err != nil {
		return 0, err
	}
	return r.Memory.DeleteUnbookedItineraries(ctx, tourGuide)
}
