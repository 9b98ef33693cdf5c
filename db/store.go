package db

import (
	"context"
	"regexp"
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"tripgenie/models"
)

// Store is everything the services persist. Mongo and Memory implement it.
type Store interface {
	Itineraries
	Bookings
	Activities
	Products
	Accounts
	Currencies
	Cascader
	Idempotency

	// Atomically runs fn so that either all of its writes land or none do.
	// fn must do its I/O through the ctx it is handed.
	Atomically(ctx context.Context, fn func(ctx context.Context) error) error
}

type Itineraries interface {
	InsertItinerary(ctx context.Context, it models.Itinerary) error
	FindItinerary(ctx context.Context, id string) (models.Itinerary, error)
	FindItineraries(ctx context.Context, f ItineraryFilter) ([]models.Itinerary, error)
	// PatchItinerary applies p only while owner still owns id.
	PatchItinerary(ctx context.Context, id, owner string, p ItineraryPatch) (models.Itinerary, error)
	// DeleteUnbookedItinerary deletes id only if owner owns it and it is not
	// booked at the time of the write. It reports whether a document went.
	DeleteUnbookedItinerary(ctx context.Context, id, owner string) (bool, error)
	ToggleActivation(ctx context.Context, id, owner string) (models.Itinerary, error)
	SetAppropriate(ctx context.Context, id string, appropriate bool) (models.Itinerary, error)
	// AdjustBookingCount adds delta to the live booking count, never going
	// below zero, and derives isBooked from the result in the same write.
	AdjustBookingCount(ctx context.Context, id string, delta int) (models.Itinerary, error)
	RateItinerary(ctx context.Context, id string, rating int) (models.Itinerary, error)
	CommentItinerary(ctx context.Context, id string, c models.Comment) error
}

type Bookings interface {
	InsertBooking(ctx context.Context, b models.ItineraryBooking) error
	FindBooking(ctx context.Context, id string) (models.ItineraryBooking, error)
	FindBookings(ctx context.Context, f BookingFilter) ([]models.ItineraryBooking, error)
	// DeleteBooking deletes id only if it belongs to tourist.
	DeleteBooking(ctx context.Context, id, tourist string) (bool, error)
}

type Activities interface {
	InsertActivity(ctx context.Context, a models.Activity) error
	FindActivity(ctx context.Context, id string) (models.Activity, error)
	FindActivities(ctx context.Context, f ActivityFilter) ([]models.Activity, error)
	RateActivity(ctx context.Context, id string, rating int) (models.Activity, error)
	CommentActivity(ctx context.Context, id string, c models.Comment) error
}

type Products interface {
	InsertProduct(ctx context.Context, p models.Product) error
	FindProducts(ctx context.Context, seller string) ([]models.Product, error)
}

type Accounts interface {
	InsertAccount(ctx context.Context, a models.Account) error
	FindAccount(ctx context.Context, id string) (models.Account, error)
	UpdateProfile(ctx context.Context, id string, p models.Profile) (models.Account, error)
	SetAccepted(ctx context.Context, id string, accepted bool) (models.Account, error)
	// AdjustWallet adds delta to the wallet. A debit that would take the
	// balance below zero fails with Conflict and changes nothing.
	AdjustWallet(ctx context.Context, id string, delta float64) (models.Account, error)
	RateAccount(ctx context.Context, id string, rating int) (models.Account, error)
	CommentAccount(ctx context.Context, id string, c models.Comment) error
}

type Currencies interface {
	InsertCurrency(ctx context.Context, c models.Currency) error
	FindCurrency(ctx context.Context, id string) (models.Currency, error)
}

// Cascader removes what a deleted account owned. Callers plan first and run
// these inside Atomically.
type Cascader interface {
	DeleteUnbookedItineraries(ctx context.Context, tourGuide string) (int64, error)
	DeleteActivities(ctx context.Context, advertiser string) (int64, error)
	PullActivityRefs(ctx context.Context, activityIDs []string) (int64, error)
	DeleteProducts(ctx context.Context, seller string) (int64, error)
	DeleteAccount(ctx context.Context, id string) (bool, error)
}

type Idempotency interface {
	// ReserveIdempotencyKey stores rec unless its key is taken, in which case
	// the stored record is returned instead.
	ReserveIdempotencyKey(ctx context.Context, rec models.IdempotencyRecord) (*models.IdempotencyRecord, error)
	SaveIdempotentResponse(ctx context.Context, key string, resp models.IdempotentResponse) error
}

// ItineraryPatch carries the fields an update sets; nil fields are kept.
type ItineraryPatch struct {
	Title           *string
	Language        *string
	Price           *float64
	Currency        *string
	Timeline        *string
	PickUpLocation  *string
	DropOffLocation *string
	Accessibility   *bool
	AvailableDates  []models.AvailableDate
	Activities      []string
}

func (p ItineraryPatch) setDoc(now time.Time) bson.M {
	set := bson.M{"updatedAt": now}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Language != nil {
		set["language"] = *p.Language
	}
	if p.Price != nil {
		set["price"] = *p.Price
	}
	if p.Currency != nil {
		set["currency"] = *p.Currency
	}
	if p.Timeline != nil {
		set["timeline"] = *p.Timeline
	}
	if p.PickUpLocation != nil {
		set["pickUpLocation"] = *p.PickUpLocation
	}
	if p.DropOffLocation != nil {
		set["dropOffLocation"] = *p.DropOffLocation
	}
	if p.Accessibility != nil {
		set["accessibility"] = *p.Accessibility
	}
	if p.AvailableDates != nil {
		set["availableDates"] = p.AvailableDates
	}
	if p.Activities != nil {
		set["activities"] = p.Activities
	}
	return set
}

func (p ItineraryPatch) apply(it *models.Itinerary, now time.Time) {
	if p.Title != nil {
		it.Title = *p.Title
	}
	if p.Language != nil {
		it.Language = *p.Language
	}
	if p.Price != nil {
		it.Price = *p.Price
	}
	if p.Currency != nil {
		it.Currency = *p.Currency
	}
	if p.Timeline != nil {
		it.Timeline = *p.Timeline
	}
	if p.PickUpLocation != nil {
		it.PickUpLocation = *p.PickUpLocation
	}
	if p.DropOffLocation != nil {
		it.DropOffLocation = *p.DropOffLocation
	}
	if p.Accessibility != nil {
		it.Accessibility = *p.Accessibility
	}
	if p.AvailableDates != nil {
		it.AvailableDates = p.AvailableDates
	}
	if p.Activities != nil {
		it.Activities = p.Activities
	}
	it.UpdatedAt = now
}

// ItineraryFilter narrows an itinerary query. Zero fields do not filter.
type ItineraryFilter struct {
	IDs             []string
	TourGuide       string
	ActivatedOnly   bool
	AppropriateOnly bool
	MaxPrice        *float64
	Languages       []string // case-insensitive exact match
}

func (f ItineraryFilter) BSON() bson.M {
	filter := bson.M{}
	if f.IDs != nil {
		filter["_id"] = bson.M{"$in": f.IDs}
	}
	if f.TourGuide != "" {
		filter["tourGuide"] = f.TourGuide
	}
	if f.ActivatedOnly {
		filter["isActivated"] = true
	}
	if f.AppropriateOnly {
		filter["appropriate"] = true
	}
	if f.MaxPrice != nil {
		filter["price"] = bson.M{"$lte": *f.MaxPrice}
	}
	if len(f.Languages) > 0 {
		langs := make(bson.A, 0, len(f.Languages))
		for _, l := range f.Languages {
			langs = append(langs, primitive.Regex{Pattern: "^" + regexp.QuoteMeta(l) + "$", Options: "i"})
		}
		filter["language"] = bson.M{"$in": langs}
	}
	return filter
}

func (f ItineraryFilter) Match(it models.Itinerary) bool {
	if f.IDs != nil && !slices.Contains(f.IDs, it.ID) {
		return false
	}
	if f.TourGuide != "" && it.TourGuide != f.TourGuide {
		return false
	}
	if f.ActivatedOnly && !it.IsActivated {
		return false
	}
	if f.AppropriateOnly && !it.Appropriate {
		return false
	}
	if f.MaxPrice != nil && it.Price > *f.MaxPrice {
		return false
	}
	if len(f.Languages) > 0 {
		found := false
		for _, l := range f.Languages {
			if strings.EqualFold(l, it.Language) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// BookingFilter narrows a booking query. Zero fields do not filter.
type BookingFilter struct {
	Tourist     string
	Itineraries []string
	Before      *time.Time // booked date strictly before
}

func (f BookingFilter) BSON() bson.M {
	filter := bson.M{}
	if f.Tourist != "" {
		filter["tourist"] = f.Tourist
	}
	if f.Itineraries != nil {
		filter["itinerary"] = bson.M{"$in": f.Itineraries}
	}
	if f.Before != nil {
		filter["date"] = bson.M{"$lt": *f.Before}
	}
	return filter
}

func (f BookingFilter) Match(b models.ItineraryBooking) bool {
	if f.Tourist != "" && b.Tourist != f.Tourist {
		return false
	}
	if f.Itineraries != nil && !slices.Contains(f.Itineraries, b.Itinerary) {
		return false
	}
	if f.Before != nil && !b.Date.Before(*f.Before) {
		return false
	}
	return true
}

// ActivityFilter narrows an activity query. Zero fields do not filter.
type ActivityFilter struct {
	IDs        []string
	Advertiser string
}

func (f ActivityFilter) BSON() bson.M {
	filter := bson.M{}
	if f.IDs != nil {
		filter["_id"] = bson.M{"$in": f.IDs}
	}
	if f.Advertiser != "" {
		filter["advertiser"] = f.Advertiser
	}
	return filter
}

func (f ActivityFilter) Match(a models.Activity) bool {
	if f.IDs != nil && !slices.Contains(f.IDs, a.ID) {
		return false
	}
	return f.Advertiser == "" || a.Advertiser == f.Advertiser
}
