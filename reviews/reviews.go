// Package reviews lets tourists rate and comment on the itineraries they
// went on, on the tour guides who led them and on the activities they
// included.
package reviews

import (
	"context"
	"slices"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"tripgenie/availability"
	"tripgenie/db"
	"tripgenie/errs"
	"tripgenie/logger"
	"tripgenie/models"
	"tripgenie/mq"
	"tripgenie/ratings"
)

// Target is the kind of entity a review is about.
type Target uint8

const (
	ItineraryTarget Target = iota
	TourGuideTarget
	ActivityTarget
)

func (t Target) String() string {
	switch t {
	case ItineraryTarget:
		return "itinerary"
	case TourGuideTarget:
		return "tour guide"
	case ActivityTarget:
		return "activity"
	}
	return "unknown"
}

func (t Target) event() string {
	switch t {
	case TourGuideTarget:
		return mq.TourGuideReviewed
	case ActivityTarget:
		return mq.ActivityReviewed
	}
	return mq.ItineraryReviewed
}

type Service struct {
	store  db.Store
	events mq.Emitter
	log    log.Logger

	Now func() time.Time
}

func NewService(store db.Store, events mq.Emitter) *Service {
	return &Service{store: store, events: events, log: logger.With("reviews"), Now: time.Now}
}

// Rate adds rating to the target and returns its new average.
func (s *Service) Rate(ctx context.Context, reviewer string, role models.Role, t Target, id string, rating int) (float64, error) {
	if err := ratings.Validate(rating); err != nil {
		return 0, err
	}
	if _, err := s.eligible(ctx, reviewer, role, t, id); err != nil {
		return 0, err
	}

	var avg float64
	switch t {
	case ItineraryTarget:
		it, err := s.store.RateItinerary(ctx, id, rating)
		if err != nil {
			return 0, err
		}
		avg = it.Rating
	case TourGuideTarget:
		acc, err := s.store.RateAccount(ctx, id, rating)
		if err != nil {
			return 0, err
		}
		avg = acc.Rating
	case ActivityTarget:
		a, err := s.store.RateActivity(ctx, id, rating)
		if err != nil {
			return 0, err
		}
		avg = a.Rating
	}

	level.Info(s.log).Log("msg", "rated", "target", t, "id", id, "tourist", reviewer, "rating", rating, "average", avg)
	s.emit(ctx, t, id, reviewer)
	return avg, nil
}

type CommentInput struct {
	Anonymous bool                  `json:"anonymous"`
	Rating    int                   `json:"rating"`
	Content   models.CommentContent `json:"content"`
}

// Comment appends a comment to the target.
func (s *Service) Comment(ctx context.Context, reviewer string, role models.Role, t Target, id string, in CommentInput) (models.Comment, error) {
	acc, err := s.eligible(ctx, reviewer, role, t, id)
	if err != nil {
		return models.Comment{}, err
	}
	c, err := ratings.NewComment(acc.Username, in.Anonymous, in.Rating, in.Content, s.Now().UTC())
	if err != nil {
		return models.Comment{}, err
	}

	switch t {
	case ItineraryTarget:
		err = s.store.CommentItinerary(ctx, id, c)
	case TourGuideTarget:
		err = s.store.CommentAccount(ctx, id, c)
	case ActivityTarget:
		err = s.store.CommentActivity(ctx, id, c)
	}
	if err != nil {
		return models.Comment{}, err
	}

	level.Info(s.log).Log("msg", "commented", "target", t, "id", id, "tourist", reviewer, "anonymous", in.Anonymous)
	s.emit(ctx, t, id, reviewer)
	return c, nil
}

// eligible checks that reviewer is a tourist who went on the itinerary, on
// an itinerary led by the tour guide, or on one including the activity.
func (s *Service) eligible(ctx context.Context, reviewer string, role models.Role, t Target, id string) (models.Account, error) {
	if !role.Reviews() {
		return models.Account{}, errs.Forbidden("only tourists can write reviews")
	}
	if err := s.exists(ctx, t, id); err != nil {
		return models.Account{}, err
	}
	acc, err := s.store.FindAccount(ctx, reviewer)
	if err != nil {
		return models.Account{}, err
	}

	attended, err := s.attended(ctx, reviewer)
	if err != nil {
		return models.Account{}, err
	}
	ok := slices.ContainsFunc(attended, func(it models.Itinerary) bool {
		switch t {
		case ItineraryTarget:
			return it.ID == id
		case TourGuideTarget:
			return it.TourGuide == id
		case ActivityTarget:
			return slices.Contains(it.Activities, id)
		}
		return false
	})
	if !ok {
		return models.Account{}, errs.Forbidden("you can only review a %s after going on a trip with it", t)
	}
	return acc, nil
}

func (s *Service) exists(ctx context.Context, t Target, id string) error {
	switch t {
	case ItineraryTarget:
		_, err := s.store.FindItinerary(ctx, id)
		return err
	case TourGuideTarget:
		acc, err := s.store.FindAccount(ctx, id)
		if err != nil {
			return err
		}
		if acc.Role != models.TourGuide {
			return errs.NotFound("tour guide %s not found", id)
		}
		return nil
	case ActivityTarget:
		_, err := s.store.FindActivity(ctx, id)
		return err
	}
	return errs.Validation("unknown review target")
}

// attended returns the itineraries of tourist's bookings whose slot has
// already started.
func (s *Service) attended(ctx context.Context, tourist string) ([]models.Itinerary, error) {
	now := s.Now()
	bookings, err := s.store.FindBookings(ctx, db.BookingFilter{Tourist: tourist, Before: &now})
	if err != nil {
		return nil, err
	}
	var ids []string
	for _, b := range bookings {
		start, err := availability.SlotStart(b.Date, b.Time)
		if err != nil || start.After(now) {
			continue
		}
		if !slices.Contains(ids, b.Itinerary) {
			ids = append(ids, b.Itinerary)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.store.FindItineraries(ctx, db.ItineraryFilter{IDs: ids})
}

func (s *Service) emit(ctx context.Context, t Target, id, reviewer string) {
	evt := mq.Event{Type: t.event(), Account: reviewer}
	switch t {
	case ItineraryTarget:
		evt.Itinerary = id
	case TourGuideTarget:
		evt.Account = id
	}
	s.events.Emit(ctx, evt)
}
