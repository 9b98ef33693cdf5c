// Package booking lets tourists book itinerary slots, cancel them and fetch
// their tickets.
package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
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
	"tripgenie/pay"
	"tripgenie/pricing"
	"tripgenie/tickets"
	"tripgenie/utils"
)

type Service struct {
	store    db.Store
	payments *pay.PaymentService
	signer   tickets.Signer
	events   mq.Emitter
	metrics  *metrics.Metrics
	log      log.Logger

	Now func() time.Time
}

func NewService(store db.Store, payments *pay.PaymentService, signer tickets.Signer, events mq.Emitter, m *metrics.Metrics) *Service {
	return &Service{
		store:    store,
		payments: payments,
		signer:   signer,
		events:   events,
		metrics:  m,
		log:      logger.With("booking"),
		Now:      time.Now,
	}
}

type CreateInput struct {
	Itinerary       string             `json:"itinerary" validate:"required"`
	NumberOfTickets int                `json:"numberOfTickets" validate:"required,gt=0"`
	Date            time.Time          `json:"date" validate:"required"`
	Time            models.TimeSlot    `json:"time" validate:"required"`
	PaymentType     models.PaymentType `json:"paymentType" validate:"required,oneof=CreditCard DebitCard Wallet"`
}

// UnmarshalJSON accepts the date as "2006-01-02" or as an RFC 3339 timestamp.
func (in *CreateInput) UnmarshalJSON(data []byte) error {
	type plain CreateInput
	aux := struct {
		*plain
		Date string `json:"date"`
	}{plain: (*plain)(in)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Date == "" {
		return nil
	}
	d := utils.ParseDate(aux.Date)
	if d == nil {
		return fmt.Errorf("invalid date %q", aux.Date)
	}
	in.Date = *d
	return nil
}

// Create books in.Time on in.Date for tourist. The slot must be listed
// exactly on the itinerary; slots have no capacity so any number of tourists
// may book the same one.
func (s *Service) Create(ctx context.Context, tourist string, role models.Role, in CreateInput) (models.ItineraryBooking, error) {
	b, err := s.create(ctx, tourist, role, in)
	if err != nil {
		s.rejected(err)
		return models.ItineraryBooking{}, err
	}
	return b, nil
}

func (s *Service) create(ctx context.Context, tourist string, role models.Role, in CreateInput) (models.ItineraryBooking, error) {
	if !role.Books() {
		return models.ItineraryBooking{}, errs.Forbidden("only tourists can book itineraries")
	}
	if err := utils.ValidateStruct(in); err != nil {
		return models.ItineraryBooking{}, err
	}

	it, err := s.store.FindItinerary(ctx, in.Itinerary)
	if err != nil {
		return models.ItineraryBooking{}, err
	}
	if err := guard.CanBook(it); err != nil {
		return models.ItineraryBooking{}, err
	}
	if !availability.HasSlot(it.AvailableDates, in.Date, in.Time) {
		return models.ItineraryBooking{}, errs.Validation("the selected date and time are not available for this itinerary")
	}
	start, err := availability.SlotStart(in.Date, in.Time)
	if err != nil {
		return models.ItineraryBooking{}, err
	}
	now := s.Now().UTC()
	if !start.After(now) {
		return models.ItineraryBooking{}, errs.Validation("the selected slot has already started")
	}

	b := models.ItineraryBooking{
		ID:              utils.GetUUID(),
		Itinerary:       it.ID,
		Tourist:         tourist,
		NumberOfTickets: in.NumberOfTickets,
		Date:            availability.Day(in.Date),
		Time:            in.Time,
		PaymentType:     in.PaymentType,
		PaymentAmount:   pricing.Charge(it.Price, in.NumberOfTickets),
		Currency:        it.Currency,
		CreatedAt:       now,
	}

	// The count goes up first: once isBooked is set the owner can no longer
	// delete the itinerary under the booking being written.
	var updated models.Itinerary
	err = s.store.Atomically(ctx, func(ctx context.Context) error {
		var err error
		if updated, err = s.store.AdjustBookingCount(ctx, it.ID, +1); err != nil {
			return err
		}
		db.OnRollback(ctx, func(ctx context.Context) error {
			_, err := s.store.AdjustBookingCount(ctx, it.ID, -1)
			return err
		})
		charged, err := s.payments.Charge(ctx, tourist, b.PaymentType, b.PaymentAmount)
		if err != nil {
			return err
		}
		if charged {
			db.OnRollback(ctx, func(ctx context.Context) error {
				return s.payments.Refund(ctx, tourist, b.PaymentAmount)
			})
		}
		return s.store.InsertBooking(ctx, b)
	})
	if err != nil {
		return models.ItineraryBooking{}, err
	}

	s.metrics.BookingsCreated.Inc()
	level.Info(s.log).Log("msg", "itinerary booked", "booking", b.ID, "itinerary", it.ID, "tourist", tourist,
		"tickets", b.NumberOfTickets, "amount", b.PaymentAmount, "paymentType", b.PaymentType)
	s.events.Emit(ctx, mq.Event{
		Type:        mq.BookingCreated,
		Itinerary:   it.ID,
		Booking:     b.ID,
		Account:     tourist,
		IsBooked:    updated.IsBooked,
		IsActivated: updated.IsActivated,
	})
	return b, nil
}

// Cancel deletes booking id for tourist, refunds what was paid to the
// tourist's wallet and releases the itinerary once no bookings remain.
// Cancelling needs at least 48 hours notice before the slot starts.
func (s *Service) Cancel(ctx context.Context, tourist, id string) error {
	if err := s.cancel(ctx, tourist, id); err != nil {
		s.rejected(err)
		return err
	}
	return nil
}

func (s *Service) cancel(ctx context.Context, tourist, id string) error {
	b, err := s.store.FindBooking(ctx, id)
	if err != nil {
		return err
	}
	if b.Tourist != tourist {
		return errs.Forbidden("booking %s belongs to another tourist", id)
	}
	start, err := availability.SlotStart(b.Date, b.Time)
	if err != nil {
		return err
	}
	if err := guard.CheckCancellation(start, s.Now()); err != nil {
		return err
	}

	updated := models.Itinerary{ID: b.Itinerary}
	err = s.store.Atomically(ctx, func(ctx context.Context) error {
		deleted, err := s.store.DeleteBooking(ctx, id, tourist)
		if err != nil {
			return err
		}
		if !deleted {
			return errs.NotFound("booking %s not found", id)
		}
		db.OnRollback(ctx, func(ctx context.Context) error {
			return s.store.InsertBooking(ctx, b)
		})
		if err := s.payments.Refund(ctx, tourist, b.PaymentAmount); err != nil {
			return err
		}
		if b.PaymentAmount > 0 {
			db.OnRollback(ctx, func(ctx context.Context) error {
				_, err := s.store.AdjustWallet(ctx, tourist, -b.PaymentAmount)
				return err
			})
		}
		updated, err = s.store.AdjustBookingCount(ctx, b.Itinerary, -1)
		if errors.Is(err, errs.ErrNotFound) {
			// The itinerary is gone; there is no count left to release.
			updated = models.Itinerary{ID: b.Itinerary}
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}

	s.metrics.BookingsCancelled.Inc()
	level.Info(s.log).Log("msg", "booking cancelled", "booking", id, "itinerary", b.Itinerary, "tourist", tourist,
		"refund", b.PaymentAmount)
	s.events.Emit(ctx, mq.Event{
		Type:        mq.BookingCancelled,
		Itinerary:   b.Itinerary,
		Booking:     id,
		Account:     tourist,
		IsBooked:    updated.IsBooked,
		IsActivated: updated.IsActivated,
	})
	return nil
}

// ListMine returns tourist's bookings, soonest first.
func (s *Service) ListMine(ctx context.Context, tourist string) ([]models.ItineraryBooking, error) {
	bookings, err := s.store.FindBookings(ctx, db.BookingFilter{Tourist: tourist})
	if err != nil {
		return nil, err
	}
	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].Date.Equal(bookings[j].Date) {
			return bookings[i].Date.Before(bookings[j].Date)
		}
		return bookings[i].Time.StartTime < bookings[j].Time.StartTime
	})
	return bookings, nil
}

// Ticket writes the PDF ticket of booking id to w.
func (s *Service) Ticket(ctx context.Context, tourist, id string, w io.Writer) error {
	b, err := s.store.FindBooking(ctx, id)
	if err != nil {
		return err
	}
	if b.Tourist != tourist {
		return errs.Forbidden("booking %s belongs to another tourist", id)
	}
	it, err := s.store.FindItinerary(ctx, b.Itinerary)
	if err != nil {
		return err
	}
	acc, err := s.store.FindAccount(ctx, tourist)
	if err != nil {
		return err
	}
	cur, err := s.store.FindCurrency(ctx, b.Currency)
	if err != nil {
		cur = models.Currency{ID: b.Currency, Code: b.Currency}
	}
	return s.signer.Render(w, tickets.Ticket{
		Booking:   b,
		Itinerary: it,
		Tourist:   acc.Username,
		Paid:      pricing.Resolve(b.PaymentAmount, cur, nil, nil),
	})
}

func (s *Service) rejected(err error) {
	if k := errs.KindOf(err); k != errs.KindInternal {
		s.metrics.BookingsRejected.WithLabelValues(k.String()).Inc()
	}
}
