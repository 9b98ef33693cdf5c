// Package itinerary serves the itinerary lifecycle: listing and search,
// authoring, activation, moderation and deletion.
package itinerary

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"tripgenie/availability"
	"tripgenie/db"
	"tripgenie/errs"
	"tripgenie/guard"
	"tripgenie/logger"
	"tripgenie/metrics"
	"tripgenie/models"
	"tripgenie/mq"
	"tripgenie/pricing"
	"tripgenie/search"
	"tripgenie/utils"
)

// Viewer is whoever is asking. Guests have no ID.
type Viewer struct {
	ID   string
	Role models.Role
}

// GuideSummary is the public face of an itinerary's tour guide.
type GuideSummary struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Rating   float64 `json:"rating"`
}

// View is an itinerary as returned to clients: activities populated and the
// price in the viewer's currency.
type View struct {
	models.Itinerary
	Activities   []models.Activity `json:"activities"`
	TourGuide    *GuideSummary     `json:"tourGuide"`
	DisplayPrice pricing.Price     `json:"displayPrice"`
	State        string            `json:"state"`
}

type Service struct {
	store   db.Store
	rates   pricing.RateSource
	events  mq.Emitter
	metrics *metrics.Metrics
	log     log.Logger

	Now func() time.Time
}

func NewService(store db.Store, rates pricing.RateSource, events mq.Emitter, m *metrics.Metrics) *Service {
	return &Service{
		store:   store,
		rates:   rates,
		events:  events,
		metrics: m,
		log:     logger.With("itinerary"),
		Now:     time.Now,
	}
}

// List returns the itineraries visible to v that match c. Tour guides see
// their own, admins see everything, everyone else browses the activated and
// appropriate ones that still have a date ahead.
func (s *Service) List(ctx context.Context, v Viewer, c search.Criteria) ([]View, error) {
	var filter db.ItineraryFilter
	switch v.Role.ListingScope() {
	case models.ScopeOwn:
		filter.TourGuide = v.ID
		c.UpcomingOnly = false
	case models.ScopeAll:
		c.UpcomingOnly = false
	default:
		filter.ActivatedOnly = true
		filter.AppropriateOnly = true
		c.UpcomingOnly = true
	}

	its, err := s.store.FindItineraries(ctx, filter)
	if err != nil {
		return nil, err
	}
	acts, err := s.activitiesFor(ctx, its...)
	if err != nil {
		return nil, err
	}

	corpus := make([]search.Entry, 0, len(its))
	for _, it := range its {
		corpus = append(corpus, search.Entry{Itinerary: it, Activities: pick(acts, it.Activities)})
	}
	found := search.Compose(corpus, c, s.Now())

	pr := s.newPricer(ctx, v)
	views := make([]View, 0, len(found))
	for _, e := range found {
		views = append(views, s.view(ctx, pr, e.Itinerary, e.Activities, nil))
	}
	return views, nil
}

// Get returns one itinerary with its activities and tour guide. Itineraries
// v may not see are reported as not found.
func (s *Service) Get(ctx context.Context, v Viewer, id string) (View, error) {
	it, err := s.store.FindItinerary(ctx, id)
	if err != nil {
		return View{}, err
	}
	if !s.visible(ctx, v, it) {
		return View{}, errs.NotFound("itinerary %s not found", id)
	}
	acts, err := s.activitiesFor(ctx, it)
	if err != nil {
		return View{}, err
	}

	var guide *GuideSummary
	switch acc, err := s.store.FindAccount(ctx, it.TourGuide); {
	case err == nil:
		guide = &GuideSummary{ID: acc.ID, Username: acc.Username, Rating: acc.Rating}
	case !errors.Is(err, errs.ErrNotFound):
		return View{}, err
	}
	return s.view(ctx, s.newPricer(ctx, v), it, pick(acts, it.Activities), guide), nil
}

func (s *Service) visible(ctx context.Context, v Viewer, it models.Itinerary) bool {
	switch v.Role.ListingScope() {
	case models.ScopeAll:
		return true
	case models.ScopeOwn:
		if it.TourGuide == v.ID {
			return true
		}
	}
	if it.IsActivated && it.Appropriate {
		return true
	}
	// Deactivated itineraries stay visible to the tourists who booked them.
	if v.Role.Books() && v.ID != "" {
		bookings, err := s.store.FindBookings(ctx, db.BookingFilter{Tourist: v.ID, Itineraries: []string{it.ID}})
		return err == nil && len(bookings) > 0
	}
	return false
}

type CreateInput struct {
	Title           string                 `json:"title" validate:"required"`
	Language        string                 `json:"language" validate:"required"`
	Price           *float64               `json:"price" validate:"required,gte=0"`
	Currency        string                 `json:"currency" validate:"required"`
	Timeline        string                 `json:"timeline"`
	PickUpLocation  string                 `json:"pickUpLocation" validate:"required"`
	DropOffLocation string                 `json:"dropOffLocation" validate:"required"`
	Accessibility   bool                   `json:"accessibility"`
	AvailableDates  []models.AvailableDate `json:"availableDates" validate:"required,min=1"`
	Activities      []string               `json:"activities" validate:"dive,required"`
}

// Create stores a new itinerary authored by guide. New itineraries are
// activated and appropriate.
func (s *Service) Create(ctx context.Context, guide Viewer, in CreateInput) (models.Itinerary, error) {
	if !guide.Role.AuthorsItineraries() {
		return models.Itinerary{}, errs.Forbidden("only tour guides can create itineraries")
	}
	if err := utils.ValidateStruct(in); err != nil {
		return models.Itinerary{}, err
	}
	dates, err := availability.Normalize(in.AvailableDates)
	if err != nil {
		return models.Itinerary{}, err
	}
	if err := s.checkCurrency(ctx, in.Currency); err != nil {
		return models.Itinerary{}, err
	}
	activities := dedupe(in.Activities)
	if err := s.checkActivities(ctx, activities); err != nil {
		return models.Itinerary{}, err
	}

	now := s.Now().UTC()
	it := models.Itinerary{
		ID:              utils.GetUUID(),
		Title:           strings.TrimSpace(in.Title),
		Language:        strings.TrimSpace(in.Language),
		Price:           *in.Price,
		Currency:        in.Currency,
		Timeline:        in.Timeline,
		PickUpLocation:  in.PickUpLocation,
		DropOffLocation: in.DropOffLocation,
		Accessibility:   in.Accessibility,
		AvailableDates:  dates,
		Activities:      activities,
		TourGuide:       guide.ID,
		IsActivated:     true,
		Appropriate:     true,
		Ratings:         models.Ratings{AllRatings: []int{}, Comments: []models.Comment{}},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.InsertItinerary(ctx, it); err != nil {
		return models.Itinerary{}, err
	}
	level.Info(s.log).Log("msg", "itinerary created", "id", it.ID, "tourGuide", guide.ID)
	s.emit(ctx, mq.ItineraryCreated, it)
	return it, nil
}

// UpdateInput changes only the fields present. The tour guide and the
// booking and moderation flags cannot be changed here.
type UpdateInput struct {
	Title           *string                `json:"title"`
	Language        *string                `json:"language"`
	Price           *float64               `json:"price" validate:"omitempty,gte=0"`
	Currency        *string                `json:"currency"`
	Timeline        *string                `json:"timeline"`
	PickUpLocation  *string                `json:"pickUpLocation"`
	DropOffLocation *string                `json:"dropOffLocation"`
	Accessibility   *bool                  `json:"accessibility"`
	AvailableDates  []models.AvailableDate `json:"availableDates"`
	Activities      []string               `json:"activities" validate:"omitempty,dive,required"`
}

// Update applies in to itinerary id on behalf of its tour guide.
func (s *Service) Update(ctx context.Context, requester Viewer, id string, in UpdateInput) (models.Itinerary, error) {
	it, err := s.store.FindItinerary(ctx, id)
	if err != nil {
		return models.Itinerary{}, err
	}
	if err := guard.CheckOwner(requester.ID, it); err != nil {
		return models.Itinerary{}, err
	}
	p, err := s.toPatch(ctx, in)
	if err != nil {
		return models.Itinerary{}, err
	}
	updated, err := s.store.PatchItinerary(ctx, id, requester.ID, p)
	if err != nil {
		return models.Itinerary{}, err
	}
	s.emit(ctx, mq.ItineraryUpdated, updated)
	return updated, nil
}

func (s *Service) toPatch(ctx context.Context, in UpdateInput) (db.ItineraryPatch, error) {
	if err := utils.ValidateStruct(in); err != nil {
		return db.ItineraryPatch{}, err
	}
	for field, v := range map[string]*string{
		"title":           in.Title,
		"language":        in.Language,
		"pickUpLocation":  in.PickUpLocation,
		"dropOffLocation": in.DropOffLocation,
	} {
		if v != nil && strings.TrimSpace(*v) == "" {
			return db.ItineraryPatch{}, errs.Validation("%s cannot be blank", field)
		}
	}

	p := db.ItineraryPatch{
		Title:           in.Title,
		Language:        in.Language,
		Price:           in.Price,
		Timeline:        in.Timeline,
		PickUpLocation:  in.PickUpLocation,
		DropOffLocation: in.DropOffLocation,
		Accessibility:   in.Accessibility,
	}
	if in.Currency != nil {
		if err := s.checkCurrency(ctx, *in.Currency); err != nil {
			return p, err
		}
		p.Currency = in.Currency
	}
	if in.AvailableDates != nil {
		if len(in.AvailableDates) == 0 {
			return p, errs.Validation("an itinerary needs at least one available date")
		}
		dates, err := availability.Normalize(in.AvailableDates)
		if err != nil {
			return p, err
		}
		p.AvailableDates = dates
	}
	if in.Activities != nil {
		activities := dedupe(in.Activities)
		if err := s.checkActivities(ctx, activities); err != nil {
			return p, err
		}
		p.Activities = activities
	}
	return p, nil
}

// Delete removes itinerary id. A booked itinerary cannot be deleted by
// anyone; otherwise only its tour guide may delete it.
func (s *Service) Delete(ctx context.Context, requester Viewer, id string) error {
	it, err := s.store.FindItinerary(ctx, id)
	if err != nil {
		return err
	}
	if err := guard.CheckDelete(requester.ID, it); err != nil {
		return err
	}

	deleted, err := s.store.DeleteUnbookedItinerary(ctx, id, requester.ID)
	if err != nil {
		return err
	}
	if !deleted {
		// Lost a race with a booking or another delete; report the state that won.
		current, err := s.store.FindItinerary(ctx, id)
		if err != nil {
			return err
		}
		if err := guard.CheckDelete(requester.ID, current); err != nil {
			return err
		}
		return errs.Conflict("itinerary %s changed while it was being deleted, please retry", id)
	}

	level.Info(s.log).Log("msg", "itinerary deleted", "id", id, "tourGuide", requester.ID)
	s.emit(ctx, mq.ItineraryDeleted, it)
	return nil
}

// ToggleActivation flips whether itinerary id accepts new bookings. Existing
// bookings are unaffected.
func (s *Service) ToggleActivation(ctx context.Context, requester Viewer, id string) (models.Itinerary, error) {
	it, err := s.store.FindItinerary(ctx, id)
	if err != nil {
		return models.Itinerary{}, err
	}
	if err := guard.CheckOwner(requester.ID, it); err != nil {
		return models.Itinerary{}, err
	}
	toggled, err := s.store.ToggleActivation(ctx, id, requester.ID)
	if err != nil {
		return models.Itinerary{}, err
	}
	level.Info(s.log).Log("msg", "itinerary toggled", "id", id, "state", guard.StateOf(toggled))
	s.emit(ctx, mq.ItineraryToggled, toggled)
	return toggled, nil
}

// Flag sets the moderation flag. Inappropriate itineraries disappear from
// public browsing and cannot be booked.
func (s *Service) Flag(ctx context.Context, moderator Viewer, id string, appropriate bool) (models.Itinerary, error) {
	if !moderator.Role.Moderates() {
		return models.Itinerary{}, errs.Forbidden("only admins can flag itineraries")
	}
	it, err := s.store.SetAppropriate(ctx, id, appropriate)
	if err != nil {
		return models.Itinerary{}, err
	}
	level.Info(s.log).Log("msg", "itinerary flagged", "id", id, "appropriate", appropriate, "admin", moderator.ID)
	s.emit(ctx, mq.ItineraryFlagged, it)
	return it, nil
}

func (s *Service) emit(ctx context.Context, typ string, it models.Itinerary) {
	s.events.Emit(ctx, mq.Event{
		Type:        typ,
		Itinerary:   it.ID,
		IsBooked:    it.IsBooked,
		IsActivated: it.IsActivated,
	})
}

func (s *Service) checkCurrency(ctx context.Context, id string) error {
	_, err := s.store.FindCurrency(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return errs.Validation("unknown currency %q", id)
	}
	return err
}

func (s *Service) checkActivities(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	found, err := s.store.FindActivities(ctx, db.ActivityFilter{IDs: ids})
	if err != nil {
		return err
	}
	if len(found) != len(ids) {
		for _, id := range ids {
			if !slices.ContainsFunc(found, func(a models.Activity) bool { return a.ID == id }) {
				return errs.Validation("unknown activity %q", id)
			}
		}
	}
	return nil
}

// activitiesFor loads every activity referenced by its in one query.
func (s *Service) activitiesFor(ctx context.Context, its ...models.Itinerary) (map[string]models.Activity, error) {
	var ids []string
	for _, it := range its {
		ids = append(ids, it.Activities...)
	}
	out := make(map[string]models.Activity)
	if len(ids) == 0 {
		return out, nil
	}
	acts, err := s.store.FindActivities(ctx, db.ActivityFilter{IDs: dedupe(ids)})
	if err != nil {
		return nil, err
	}
	for _, a := range acts {
		out[a.ID] = a
	}
	return out, nil
}

// pick resolves refs in order, skipping activities that no longer exist.
func pick(acts map[string]models.Activity, refs []string) []models.Activity {
	out := make([]models.Activity, 0, len(refs))
	for _, id := range refs {
		if a, ok := acts[id]; ok {
			out = append(out, a)
		}
	}
	return out
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

func (s *Service) view(ctx context.Context, pr *pricer, it models.Itinerary, acts []models.Activity, guide *GuideSummary) View {
	if it.AllRatings == nil {
		it.AllRatings = []int{}
	}
	if it.Comments == nil {
		it.Comments = []models.Comment{}
	}
	if guide == nil {
		guide = &GuideSummary{ID: it.TourGuide}
	}
	return View{
		Itinerary:    it,
		Activities:   acts,
		TourGuide:    guide,
		DisplayPrice: pr.price(ctx, it.Price, it.Currency),
		State:        guard.StateOf(it).String(),
	}
}
