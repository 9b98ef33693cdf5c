package reviews

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"tripgenie/utils"
)

const requestTimeout = 5 * time.Second

// RateHandler serves POST /{role}/<target>/rate/:id with {"rating": n}.
func (s *Service) RateHandler(t Target) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var body struct {
			Rating int `json:"rating"`
		}
		if err := utils.DecodeJSON(w, r, &body); err != nil {
			utils.RespondWithAppError(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		avg, err := s.Rate(ctx, utils.GetUserIDFromRequest(r), utils.GetRoleFromRequest(r), t, ps.ByName("id"), body.Rating)
		if err != nil {
			utils.RespondWithAppError(w, r, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusOK, utils.M{"rating": avg})
	}
}

// CommentHandler serves POST /{role}/<target>/comment/:id.
func (s *Service) CommentHandler(t Target) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		var in CommentInput
		if err := utils.DecodeJSON(w, r, &in); err != nil {
			utils.RespondWithAppError(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
		defer cancel()

		c, err := s.Comment(ctx, utils.GetUserIDFromRequest(r), utils.GetRoleFromRequest(r), t, ps.ByName("id"), in)
		if err != nil {
			utils.RespondWithAppError(w, r, err)
			return
		}
		utils.RespondWithJSON(w, http.StatusCreated, c)
	}
}
