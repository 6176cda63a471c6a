package http

import (
	"encoding/json"
	"net/http"

	"github.com/cockroachdb/errors"

	"github.com/transitlab/bus-reservations/internal/auth"
	"github.com/transitlab/bus-reservations/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeDetail(w http.ResponseWriter, status int, detail interface{}) {
	writeJSON(w, status, map[string]interface{}{"detail": detail})
}

// writeError maps domain errors onto the API's status codes. Seat
// conflicts and insufficient balance carry structured detail bodies so
// clients can show which seats clashed or how much is missing.
func writeError(w http.ResponseWriter, err error) {
	var conflict *domain.SeatConflictError
	if errors.As(err, &conflict) {
		writeDetail(w, http.StatusConflict, map[string]interface{}{
			"conflicting_seats": conflict.Seats,
		})
		return
	}
	var insufficient *domain.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		writeDetail(w, http.StatusPaymentRequired, map[string]interface{}{
			"required":  insufficient.Required,
			"available": insufficient.Available,
		})
		return
	}
	var invalid *domain.ValidationError
	if errors.As(err, &invalid) {
		writeDetail(w, http.StatusBadRequest, invalid.Msg)
		return
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrEmailTaken):
		writeDetail(w, http.StatusBadRequest, "email already registered")
	case errors.Is(err, domain.ErrInvalidState):
		writeDetail(w, http.StatusConflict, "invalid state for this operation")
	case errors.Is(err, domain.ErrSalesNotOpen):
		writeDetail(w, http.StatusConflict, "sales not open yet")
	case errors.Is(err, domain.ErrSerializationFailure):
		writeDetail(w, http.StatusConflict, "conflict, try again")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeDetail(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrInvalidToken):
		writeDetail(w, http.StatusUnauthorized, "invalid token")
	default:
		writeDetail(w, http.StatusInternalServerError, "internal error")
	}
}
