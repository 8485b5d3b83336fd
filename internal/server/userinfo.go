package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/mvaldes/spotistats/internal/aggregate"
	"github.com/mvaldes/spotistats/internal/shared"
)

// UserInfoHandler serves the composed profile and top-items summary.
type UserInfoHandler struct {
	engine *aggregate.Engine
	logger *log.Logger
}

func NewUserInfoHandler(engine *aggregate.Engine, logger *log.Logger) *UserInfoHandler {
	return &UserInfoHandler{engine: engine, logger: logger}
}

// UserInfo handles GET /user-info. The request must already carry a verified
// identity; a failure of any one upstream fetch fails the whole response.
func (h *UserInfoHandler) UserInfo(w http.ResponseWriter, r *http.Request) {
	identity, ok := IdentityFrom(r.Context())
	if !ok {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	info, err := h.engine.UserInfo(r.Context(), identity.AccessToken, r.URL.Query().Get("time_range"))
	if err != nil {
		respondAggregateError(w, h.logger, err, "user data")
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// respondAggregateError maps aggregation failures onto the response: locally
// rejected input becomes a 400, everything upstream becomes a 500 with a
// message embedding the upstream failure.
func respondAggregateError(w http.ResponseWriter, logger *log.Logger, err error, subject string) {
	if errors.Is(err, shared.ErrInvalidTimeRange) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Error("upstream aggregation failed", "subject", subject, "err", err)
	http.Error(w, fmt.Sprintf("Error fetching %s from Spotify: %v", subject, err), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
