package itinerary

import (
	"context"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"tripgenie/errs"
	"tripgenie/utils"
)

// POST /{role}/itineraries
func (s *Service) CreateItinerary(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in CreateInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	it, err := s.Create(ctx, viewerOf(r), in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, it)
}

// PUT /{role}/itineraries/:id
func (s *Service) UpdateItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var in UpdateInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	it, err := s.Update(ctx, viewerOf(r), ps.ByName("id"), in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, it)
}

// DELETE /{role}/itineraries/:id
func (s *Service) DeleteItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	if err := s.Delete(ctx, viewerOf(r), ps.ByName("id")); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Itinerary deleted successfully"})
}

// PUT /{role}/itineraries-activation/:id
func (s *Service) ToggleItineraryActivation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	it, err := s.ToggleActivation(ctx, viewerOf(r), ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, it)
}

// PUT /admin/itineraries-flag/:id
func (s *Service) FlagItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Appropriate *bool `json:"appropriate"`
	}
	if err := utils.DecodeJSON(w, r, &body); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	if body.Appropriate == nil {
		utils.RespondWithAppError(w, r, errs.Validation("appropriate is required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	it, err := s.Flag(ctx, viewerOf(r), ps.ByName("id"), *body.Appropriate)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, it)
}
