package itinerary

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"tripgenie/search"
	"tripgenie/utils"
)

const requestTimeout = 10 * time.Second

func viewerOf(r *http.Request) Viewer {
	return Viewer{ID: utils.GetUserIDFromRequest(r), Role: utils.GetRoleFromRequest(r)}
}

// GET /{role}/itineraries?budget=&upperDate=&lowerDate=&types=&languages=&searchBy=&sortBy=&order=
func (s *Service) GetItineraries(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	c, err := search.ParseCriteria(r.URL.Query())
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	views, err := s.List(ctx, viewerOf(r), c)
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, views)
}

// GET /{role}/itineraries/:id
func (s *Service) GetItinerary(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	view, err := s.Get(ctx, viewerOf(r), ps.ByName("id"))
	if err != nil {
		utils.RespondWithAppError(w, r, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, view)
}
