package booking

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"tripgenie/utils"
)

const requestTimeout = 10 * time.Second

// POST /{role}/itineraryBooking
func (s *Service) CreateBooking(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in CreateInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	b, err := s.Create(ctx, utils.GetUserIDFromRequest(r), utils.GetRoleFromRequest(r), in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, b)
}

// DELETE /{role}/itineraryBooking/:id
func (s *Service) CancelBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.Cancel(ctx, utils.GetUserIDFromRequest(r), ps.ByName("id")); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Booking cancelled successfully"})
}

// GET /{role}/itineraryBooking
func (s *Service) ListBookings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	bookings, err := s.ListMine(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, bookings)
}

// GET /{role}/itineraryBooking/:id/ticket
func (s *Service) DownloadTicket(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	id := ps.ByName("id")
	var buf bytes.Buffer
	if err := s.Ticket(ctx, utils.GetUserIDFromRequest(r), id, &buf); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ticket-%s.pdf"`, id))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
