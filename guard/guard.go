// Package guard decides who may change an itinerary and when. Stores apply
// the resulting transitions atomically but never decide them.
package guard

import (
	"time"

	"tripgenie/errs"
	"tripgenie/models"
)

// CancellationLeadTime is the minimum notice a tourist must give to cancel.
const CancellationLeadTime = 48 * time.Hour

// State is the lifecycle position of an itinerary.
type State uint8

const (
	Draft  State = iota // created, not yet open for booking
	Active              // activated, accepting bookings
	Booked              // at least one live booking
)

func (s State) String() string {
	switch s {
	case Draft:
		return "draft"
	case Active:
		return "active"
	case Booked:
		return "booked"
	}
	return "unknown"
}

// StateOf derives the lifecycle state from the stored flags. Booked wins over
// activation: a deactivated itinerary with live bookings is still Booked.
func StateOf(it models.Itinerary) State {
	switch {
	case it.IsBooked:
		return Booked
	case it.IsActivated:
		return Active
	}
	return Draft
}

// IsBooked is the booked flag implied by a live booking count.
func IsBooked(bookingCount int) bool { return bookingCount > 0 }

// CheckOwner fails with Forbidden unless requesterID created it.
func CheckOwner(requesterID string, it models.Itinerary) error {
	if requesterID == "" || requesterID != it.TourGuide {
		return errs.Forbidden("only the tour guide who created itinerary %s may change it", it.ID)
	}
	return nil
}

// CheckDelete runs after the caller established that it exists. A booked
// itinerary is a Conflict for every requester; ownership is checked after.
func CheckDelete(requesterID string, it models.Itinerary) error {
	if StateOf(it) == Booked {
		return errs.Conflict("itinerary %s has active bookings and cannot be deleted", it.ID)
	}
	return CheckOwner(requesterID, it)
}

// CanBook fails with Conflict unless the itinerary is open for new bookings.
func CanBook(it models.Itinerary) error {
	if !it.IsActivated {
		return errs.Conflict("itinerary %s is not activated", it.ID)
	}
	if !it.Appropriate {
		return errs.Conflict("itinerary %s has been flagged as inappropriate", it.ID)
	}
	return nil
}

// CheckCancellation fails with TooLate when less than CancellationLeadTime
// remains before slotStart. Exactly 48 hours is still in time.
func CheckCancellation(slotStart, now time.Time) error {
	if left := slotStart.Sub(now); left < CancellationLeadTime {
		return errs.TooLate("bookings can only be cancelled at least 48 hours in advance (%s left)",
			left.Truncate(time.Minute))
	}
	return nil
}

// CheckAccepted fails with NotAccepted for advertisers and sellers an admin
// has not accepted yet. Other roles always pass.
func CheckAccepted(acc models.Account) error {
	if acc.Role.RequiresAcceptance() && !acc.IsAccepted {
		return errs.NotAccepted("%s account %s has not been accepted yet", acc.Role, acc.Username)
	}
	return nil
}
