package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mvaldes/spotistats/internal/aggregate"
)

// GenresHandler serves the ranked genre summary.
type GenresHandler struct {
	engine *aggregate.Engine
	logger *log.Logger
}

func NewGenresHandler(engine *aggregate.Engine, logger *log.Logger) *GenresHandler {
	return &GenresHandler{engine: engine, logger: logger}
}

// TopGenres handles GET /top-genres, returning a bare ordered array of genre
// names ranked by occurrence across the user's top artists.
func (h *GenresHandler) TopGenres(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	genres, err := h.engine.TopGenres(r.Context(), identity.AccessToken, r.URL.Query().Get("time_range"))
	if err != nil {
		respondAggregateError(w, h.logger, err, "top genres")
		return
	}

	writeJSON(w, http.StatusOK, genres)
}
