package db

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"tripgenie/errs"
	"tripgenie/guard"
	"tripgenie/models"
	"tripgenie/ratings"
)

// Memory is a process-local Store. Every method holds one lock, which gives
// it the same per-document atomicity the Mongo store gets from its update
// operators. Atomically restores a snapshot when fn fails, so writes from
// outside a unit wait for the running unit to finish rather than landing in
// a state it may roll back.
type Memory struct {
	mu          sync.Mutex
	txMu        sync.Mutex
	itineraries map[string]models.Itinerary
	bookings    map[string]models.ItineraryBooking
	activities  map[string]models.Activity
	products    map[string]models.Product
	accounts    map[string]models.Account
	currencies  map[string]models.Currency
	idempotency map[string]models.IdempotencyRecord

	Now func() time.Time
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		itineraries: make(map[string]models.Itinerary),
		bookings:    make(map[string]models.ItineraryBooking),
		activities:  make(map[string]models.Activity),
		products:    make(map[string]models.Product),
		accounts:    make(map[string]models.Account),
		currencies:  make(map[string]models.Currency),
		idempotency: make(map[string]models.IdempotencyRecord),
		Now:         time.Now,
	}
}

type memorySnapshot struct {
	itineraries map[string]models.Itinerary
	bookings    map[string]models.ItineraryBooking
	activities  map[string]models.Activity
	products    map[string]models.Product
	accounts    map[string]models.Account
}

type unitKey struct{}

func (m *Memory) inUnit(ctx context.Context) bool {
	return ctx.Value(unitKey{}) == m
}

// write holds txMu for a single write made outside a unit. A unit's own
// writes already run under it.
func (m *Memory) write(ctx context.Context) (release func()) {
	if m.inUnit(ctx) {
		return func() {}
	}
	m.txMu.Lock()
	return m.txMu.Unlock
}

func (m *Memory) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.inUnit(ctx) {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()
	ctx = context.WithValue(ctx, unitKey{}, m)

	m.mu.Lock()
	snap := memorySnapshot{
		itineraries: maps.Clone(m.itineraries),
		bookings:    maps.Clone(m.bookings),
		activities:  maps.Clone(m.activities),
		products:    maps.Clone(m.products),
		accounts:    maps.Clone(m.accounts),
	}
	m.mu.Unlock()

	err := fn(ctx)
	if err != nil {
		m.mu.Lock()
		m.itineraries = snap.itineraries
		m.bookings = snap.bookings
		m.activities = snap.activities
		m.products = snap.products
		m.accounts = snap.accounts
		m.mu.Unlock()
	}
	return err
}

// Itineraries

func (m *Memory) InsertItinerary(ctx context.Context, it models.Itinerary) error {
	defer m.write(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.itineraries[it.ID]; ok {
		return errs.Conflict("itinerary %s already exists", it.ID)
	}
	m.itineraries[it.ID] = it
	return nil
}

func (m *Memory) FindItinerary(_ context.Context, id string) (models.Itinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.itineraries[id]
	if !ok {
		return models.Itinerary{}, errs.NotFound("itinerary %s not found", id)
	}
	return it, nil
}

func (m *Memory) FindItineraries(_ context.Context, f ItineraryFilter) ([]models.Itinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Itinerary, 0)
	for _, it := range m.itineraries {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// updateItinerary applies fn to the itinerary stored under id when pred
// accepts it, and reports NotFound otherwise.
func (m *Memory) updateItinerary(ctx context.Context, id string, pred func(models.Itinerary) bool, fn func(*models.Itinerary) error) (models.Itinerary, error) {
	defer m.write(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.itineraries[id]
	if !ok || (pred != nil && !pred(it)) {
		return models.Itinerary{}, errs.NotFound("itinerary %s not found", id)
	}
	if err := fn(&it); err != nil {
		return models.Itinerary{}, err
	}
	m.itineraries[id] = it
	return it, nil
}

func ownedBy(owner string) func(models.Itinerary) bool {
	return func(it models.Itinerary) bool { return it.TourGuide == owner }
}

func (m *Memory) PatchItinerary(ctx context.Context, id, owner string, p ItineraryPatch) (models.Itinerary, error) {
	now := m.Now()
	return m.updateItinerary(ctx, id, ownedBy(owner), func(it *models.Itinerary) error {
		p.apply(it, now)
		return nil
	})
}

func (m *Memory) DeleteUnbookedItinerary(ctx context.Context, id, owner string) (bool, error) {
	defer m.write(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.itineraries[id]
	if !ok || it.TourGuide != owner || it.IsBooked {
		return false, nil
	}
	delete(m.itineraries, id)
	return true, nil
}

func (m *Memory) ToggleActivation(ctx context.Context, id, owner string) (models.Itinerary, error) {
	now := m.Now()
	return m.updateItinerary(ctx, id, ownedBy(owner), func(it *models.Itinerary) error {
		it.IsActivated = !it.IsActivated
		it.UpdatedAt = now
		return nil
	})
}

func (m *Memory) SetAppropriate(ctx context.Context, id string, appropriate bool) (models.Itinerary, error) {
	now := m.Now()
	return m.updateItinerary(ctx, id, nil, func(it *models.Itinerary) error {
		it.Appropriate = appropriate
		it.UpdatedAt = now
		return nil
	})
}

func (m *Memory) AdjustBookingCount(ctx context.Context, id string, delta int) (models.Itinerary, error) {
	now := m.Now()
	return m.updateItinerary(ctx, id, nil, func(it *models.Itinerary) error {
		it.BookingCount = max(0, it.BookingCount+delta)
		it.IsBooked = guard.IsBooked(it.BookingCount)
		it.UpdatedAt = now
		return nil
	})
}

func (m *Memory) RateItinerary(ctx context.Context, id string, rating int) (models.Itinerary, error) {
	return m.updateItinerary(ctx, id, nil, func(it *models.Itinerary) error { return rate(&it.Ratings, rating) })
}

func (m *Memory) CommentItinerary(ctx context.Context, id string, c models.Comment) error {
	_, err := m.updateItinerary(ctx, id, nil, func(it *models.Itinerary) error { comment(&it.Ratings, c); return nil })
	return err
}

// rate and comment copy the slices first so that snapshots taken by
// Atomically never share a backing array with the live value.
func rate(r *models.Ratings, rating int) error {
	r.AllRatings = slices.Clone(r.AllRatings)
	_, err := ratings.AddRating(r, rating)
	return err
}

func comment(r *models.Ratings, c models.Comment) {
	r.Comments = slices.Clone(r.Comments)
	ratings.AddComment(r, c)
}

// Bookings

func (m *Memory) InsertBooking(ctx context.Context, b models.ItineraryBooking) error {
	defer m.write(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bookings[b.ID]; ok {
		return errs.Conflict("booking %s already exists", b.ID)
	}
	m.bookings[b.ID] = b
	return nil
}

func (m *Memory) FindBooking(_ context.Context, id string) (models.ItineraryBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return models.ItineraryBooking{}, errs.NotFound("booking %s not found", id)
	}
	return b, nil
}

func (m *Memory) FindBookings(_ context.Context, f BookingFilter) ([]models.ItineraryBooking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.ItineraryBooking, 0)
	for _, b := range m.bookings {
		if f.Match(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (m *Memory) DeleteBooking(ctx context.Context, id, tourist string) (bool, error) {
	defer m.write(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.Tourist != tourist {
		return false, nil
	}
	delete(m.bookings, id)
	return true, nil
}

// Activities and products

func (m *Memory) InsertActivity(ctx context.Context, a models.Activity) error {
	defer m.write(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.activities[a.ID]; ok {
		return errs.Conflict("activity %s already exists", a.ID)
	}
	m.activities[a.ID] = a
	return nil
}

func (m *Memory) FindActivity(_ context.Context, id string) (models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[id]
	if !ok {
		return models.Activity{}, errs.NotFound("activity %s not found", id)
	}
	return a, nil
}

func (m *Memory) FindActivities(_ context.Context, f ActivityFilter) ([]models.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Activity, 0)
	for _, a := range m.activities {
		if f.Match(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *Memory) updateActivity(ctx context.Context, id string, fn func(*models.Activity) error) (models.Activity, error) {
	defer m.write(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.activities[id]
	if !ok {
		return models.Activity{}, errs.NotFound("activity %s not found", id)
	}
	if err := fn(&a); err != nil {
		return models.Activity{}, err
	}
	m.activities[id] = a
	return a, nil
}

func (m *Memory) RateActivity(ctx context.Context, id string, rating int) (models.Activity, error) {
	return m.updateActivity(ctx, id, func(a *models.Activity) error { return rate(&a.Ratings, rating) })
}

func (m *Memory) CommentActivity(ctx context.Context, id string, c models.Comment) error {
	_, err := m.updateActivity(ctx, id, func(a *models.Activity) error { comment(&a.Ratings, c); return nil })
	return err
}

func (m *Memory) InsertProduct(ctx context.Context, p models.Product) error {
	defer m.write(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[p.ID]; ok {
		return errs.Conflict("product %s already exists", p.ID)
	}
	m.products[p.ID] = p
	return nil
}

func (m *Memory) FindProducts(_ context.Context, seller string) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Product, 0)
	for _, p := range m.products {
		if seller == "" || p.Seller == seller {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Accounts and currencies

func (m *Memory) InsertAccount(ctx context.Context, a models.Account) error {
	defer m.write(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.ID]; ok {
		return errs.Conflict("account %s already exists", a.ID)
	}
	m.accounts[a.ID] = a
	return nil
}

func (m *Memory) FindAccount(_ context.Context, id string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return models.Account{}, errs.NotFound("account %s not found", id)
	}
	return a, nil
}

func (m *Memory) updateAccount(ctx context.Context, id string, fn func(*models.Account) error) (models.Account, error) {
	defer m.write(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return models.Account{}, errs.NotFound("account %s not found", id)
	}
	if err := fn(&a); err != nil {
		return models.Account{}, err
	}
	m.accounts[id] = a
	return a, nil
}

func (m *Memory) UpdateProfile(ctx context.Context, id string, p models.Profile) (models.Account, error) {
	return m.updateAccount(ctx, id, func(a *models.Account) error { a.Profile = p; return nil })
}

func (m *Memory) SetAccepted(ctx context.Context, id string, accepted bool) (models.Account, error) {
	return m.updateAccount(ctx, id, func(a *models.Account) error { a.IsAccepted = accepted; return nil })
}

func (m *Memory) AdjustWallet(ctx context.Context, id string, delta float64) (models.Account, error) {
	return m.updateAccount(ctx, id, func(a *models.Account) error {
		if a.Wallet+delta < 0 {
			return errs.Conflict("insufficient wallet balance")
		}
		a.Wallet += delta
		return nil
	})
}

func (m *Memory) RateAccount(ctx context.Context, id string, rating int) (models.Account, error) {
	return m.updateAccount(ctx, id, func(a *models.Account) error { return rate(&a.Ratings, rating) })
}

func (m *Memory) CommentAccount(ctx context.Context, id string, c models.Comment) error {
	_, err := m.updateAccount(ctx, id, func(a *models.Account) error { comment(&a.Ratings, c); return nil })
	return err
}

func (m *Memory) InsertCurrency(_ context.Context, c models.Currency) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.currencies[c.ID]; ok {
		return errs.Conflict("currency %s already exists", c.ID)
	}
	m.currencies[c.ID] = c
	return nil
}

func (m *Memory) FindCurrency(_ context.Context, id string) (models.Currency, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.currencies[id]
	if !ok {
		return models.Currency{}, errs.NotFound("currency %s not found", id)
	}
	return c, nil
}

// Cascade

func (m *Memory) DeleteUnbookedItineraries(ctx context.Context, tourGuide string) (int64, error) {
	defer m.write(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, it := range m.itineraries {
		if it.TourGuide == tourGuide && !it.IsBooked {
			delete(m.itineraries, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) DeleteActivities(ctx context.Context, advertiser string) (int64, error) {
	defer m.write(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, a := range m.activities {
		if a.Advertiser == advertiser {
			delete(m.activities, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) PullActivityRefs(ctx context.Context, activityIDs []string) (int64, error) {
	defer m.write(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, it := range m.itineraries {
		kept := slices.DeleteFunc(slices.Clone(it.Activities), func(a string) bool {
			return slices.Contains(activityIDs, a)
		})
		if len(kept) != len(it.Activities) {
			it.Activities = kept
			m.itineraries[id] = it
			n++
		}
	}
	return n, nil
}

func (m *Memory) DeleteProducts(ctx context.Context, seller string) (int64, error) {
	defer m.write(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, p := range m.products {
		if p.Seller == seller {
			delete(m.products, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) DeleteAccount(ctx context.Context, id string) (bool, error) {
	defer m.write(ctx)()
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[id]; !ok {
		return false, nil
	}
	delete(m.accounts, id)
	return true, nil
}

// Idempotency

func (m *Memory) ReserveIdempotencyKey(_ context.Context, rec models.IdempotencyRecord) (*models.IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.idempotency[rec.Key]; ok && existing.ExpiresAt.After(m.Now()) {
		return &existing, nil
	}
	m.idempotency[rec.Key] = rec
	return nil, nil
}

func (m *Memory) SaveIdempotentResponse(_ context.Context, key string, resp models.IdempotentResponse) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.idempotency[key]
	if !ok {
		return nil
	}
	rec.Response = &resp
	m.idempotency[key] = rec
	return nil
}
