package profile

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"tripgenie/models"
	"tripgenie/utils"
)

const requestTimeout = 5 * time.Second

// GET /{role}/profile
func (s *Service) GetProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	acc, err := s.Get(ctx, utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, acc)
}

// PUT /{role}/profile
func (s *Service) EditProfile(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var p models.Profile
	if err := utils.DecodeJSON(w, r, &p); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	acc, err := s.Update(ctx, utils.GetUserIDFromRequest(r), p)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, acc)
}

// POST /advertiser/activities
func (s *Service) PostActivity(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in ActivityInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	a, err := s.CreateActivity(ctx, utils.GetUserIDFromRequest(r), in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, a)
}

// POST /seller/products
func (s *Service) PostProduct(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in ProductInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	p, err := s.CreateProduct(ctx, utils.GetUserIDFromRequest(r), in)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, p)
}

// PUT /admin/accounts/:id/accept
func (s *Service) AcceptAccount(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	acc, err := s.Accept(ctx, utils.GetRoleFromRequest(r), ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, acc)
}

// DELETE /{role}/account
func (s *Service) DeleteOwnAccount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	s.deleteAccount(w, r, userID)
}

// DELETE /admin/accounts/:id
func (s *Service) DeleteAccount(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	s.deleteAccount(w, r, ps.ByName("id"))
}

func (s *Service) deleteAccount(w http.ResponseWriter, r *http.Request, id string) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*requestTimeout)
	defer cancel()

	res, err := s.Delete(ctx, utils.GetUserIDFromRequest(r), utils.GetRoleFromRequest(r), id)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Account deleted successfully", "removed": res})
}
