package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/transitlab/bus-reservations/internal/account"
	"github.com/transitlab/bus-reservations/internal/adapters/redis"
	"github.com/transitlab/bus-reservations/internal/booking"
	"github.com/transitlab/bus-reservations/internal/domain"
	"github.com/transitlab/bus-reservations/internal/fleet"
	"github.com/transitlab/bus-reservations/internal/reservation"
	"github.com/transitlab/bus-reservations/internal/topup"
	"github.com/transitlab/bus-reservations/internal/wallet"
)

type Handlers struct {
	accounts     *account.Service
	fleet        *fleet.Service
	reservations *reservation.Manager
	bookings     *booking.Confirmer
	wallet       *wallet.Ledger
	topups       *topup.Queue
	idemp        *redis.Idempotency
}

func NewHandlers(accounts *account.Service, fleetSvc *fleet.Service, reservations *reservation.Manager, bookings *booking.Confirmer, ledger *wallet.Ledger, topups *topup.Queue, idemp *redis.Idempotency) *Handlers {
	return &Handlers{
		accounts:     accounts,
		fleet:        fleetSvc,
		reservations: reservations,
		bookings:     bookings,
		wallet:       ledger,
		topups:       topups,
		idemp:        idemp,
	}
}

func decode(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.Validationf("invalid request body")
	}
	return nil
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	return parseUUIDField(chi.URLParam(r, name), name)
}

func parseUUIDField(raw, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Validationf("invalid %s", name)
	}
	return id, nil
}

func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Mobile   string `json:"mobile"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, token, err := h.accounts.Signup(r.Context(), req.Name, req.Email, req.Mobile, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"user":  userResponse(u),
		"token": token,
	})
}

func (h *Handlers) Signin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, token, err := h.accounts.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":  userResponse(u),
		"token": token,
	})
}

func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	u, err := h.accounts.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	balance, err := h.wallet.Balance(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := userResponse(u)
	resp["wallet_balance"] = balance
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) ListBuses(w http.ResponseWriter, r *http.Request) {
	buses, err := h.fleet.ListBuses(r.Context(), false)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(buses))
	for _, b := range buses {
		out = append(out, busResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) GetBus(w http.ResponseWriter, r *http.Request) {
	busID, err := pathID(r, "busId")
	if err != nil {
		writeError(w, err)
		return
	}
	bus, seats, err := h.fleet.GetBusWithSeats(r.Context(), busID, false)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := busResponse(bus)
	seatOut := make([]map[string]interface{}, 0, len(seats))
	for _, s := range seats {
		seatOut = append(seatOut, map[string]interface{}{
			"seat_number": s.SeatNo,
			"status":      s.Status,
			"row":         s.Row,
			"side":        s.Side,
		})
	}
	resp["seats"] = seatOut
	writeJSON(w, http.StatusOK, resp)
}

const replayTTL = 24 * time.Hour

// replayIdempotent serves a previously recorded response for the
// request's Idempotency-Key, if any. The key is optional.
func (h *Handlers) replayIdempotent(w http.ResponseWriter, r *http.Request) bool {
	key := r.Header.Get("Idempotency-Key")
	if key == "" || h.idemp == nil {
		return false
	}
	saved, ok, err := h.idemp.Lookup(r.Context(), key)
	if err != nil || !ok {
		return false
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(saved.Code)
	w.Write(saved.Body)
	return true
}

func (h *Handlers) recordIdempotent(r *http.Request, status int, data []byte) {
	key := r.Header.Get("Idempotency-Key")
	if key == "" || h.idemp == nil {
		return
	}
	h.idemp.Record(r.Context(), key, redis.SavedResponse{Code: status, Body: data}, replayTTL)
}

func (h *Handlers) SelectSeats(w http.ResponseWriter, r *http.Request) {
	if h.replayIdempotent(w, r) {
		return
	}
	userID, _ := userIDFrom(r.Context())
	busID, err := pathID(r, "busId")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		SeatNumbers []string `json:"seat_numbers"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	res, err := h.reservations.Select(r.Context(), busID, userID, req.SeatNumbers)
	if err != nil {
		writeError(w, err)
		return
	}

	data, _ := json.Marshal(reservationResponse(res))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)
	h.recordIdempotent(r, http.StatusCreated, data)
}

func (h *Handlers) GetReservation(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.reservations.Get(r.Context(), id, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reservationResponse(res))
}

// ConfirmReservation is the one money-moving endpoint, so it honors
// Idempotency-Key: a replayed request gets the recorded response
// instead of a second debit attempt.
func (h *Handlers) ConfirmReservation(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if h.replayIdempotent(w, r) {
		return
	}

	var req struct {
		Passengers []struct {
			SeatNumber string `json:"seat_number"`
			Name       string `json:"name"`
			Email      string `json:"email"`
			Mobile     string `json:"mobile"`
		} `json:"passengers"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	passengers := make([]domain.Passenger, 0, len(req.Passengers))
	for _, p := range req.Passengers {
		passengers = append(passengers, domain.Passenger{
			SeatNo: p.SeatNumber,
			Name:   p.Name,
			Email:  p.Email,
			Mobile: p.Mobile,
		})
	}

	b, err := h.bookings.Confirm(r.Context(), id, userID, passengers)
	if err != nil {
		writeError(w, err)
		return
	}

	data, _ := json.Marshal(map[string]interface{}{"booking_id": b.ID})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	w.Write(data)
	h.recordIdempotent(r, http.StatusCreated, data)
}

func (h *Handlers) CancelReservation(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.reservations.Cancel(r.Context(), id, userID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

func (h *Handlers) ListMyBookings(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	bookings, err := h.bookings.ListForUser(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, bookingResponse(b))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"bookings": out})
}

func (h *Handlers) CancelBooking(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	refund, balance, err := h.bookings.CancelBooking(r.Context(), id, userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"refunded":    refund,
		"new_balance": balance,
	})
}

func (h *Handlers) GetWallet(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	balance, err := h.wallet.Balance(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"balance": balance})
}

func (h *Handlers) RequestTopup(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	var req struct {
		Amount float64 `json:"amount"`
		Note   string  `json:"note"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	topupReq, err := h.topups.Submit(r.Context(), userID, req.Amount, req.Note)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, topupResponse(topupReq))
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Ready"))
}

func userResponse(u domain.User) map[string]interface{} {
	return map[string]interface{}{
		"id":     u.ID,
		"name":   u.Name,
		"email":  u.Email,
		"mobile": u.Mobile,
		"role":   u.Role,
	}
}

func busResponse(b domain.Bus) map[string]interface{} {
	return map[string]interface{}{
		"id":             b.ID,
		"route_id":       b.RouteID,
		"name":           b.Name,
		"departure_at":   b.DepartureAt.Format(time.RFC3339),
		"seats_count":    b.SeatsCount,
		"price_per_seat": b.PricePerSeat,
		"status":         b.Status,
	}
}

// reservationResponse keeps the shape the booking clients consume:
// the id travels as _id and the seats as seat_numbers.
func reservationResponse(res domain.Reservation) map[string]interface{} {
	return map[string]interface{}{
		"_id":          res.ID,
		"bus_id":       res.BusID,
		"seat_numbers": res.SeatNumbers,
		"total_price":  res.TotalPrice,
		"status":       res.Status,
		"expires_at":   res.ExpiresAt.Format(time.RFC3339),
	}
}

func bookingResponse(b domain.Booking) map[string]interface{} {
	passengers := make([]map[string]string, 0, len(b.Passengers))
	for _, p := range b.Passengers {
		passengers = append(passengers, map[string]string{
			"seat_number": p.SeatNo,
			"name":        p.Name,
			"email":       p.Email,
			"mobile":      p.Mobile,
		})
	}
	return map[string]interface{}{
		"id":             b.ID,
		"reservation_id": b.ReservationID,
		"bus_id":         b.BusID,
		"seats":          b.SeatNumbers,
		"passengers":     passengers,
		"total_price":    b.TotalPrice,
		"status":         b.Status,
		"created_at":     b.CreatedAt.Format(time.RFC3339),
	}
}

func topupResponse(req domain.TopupRequest) map[string]interface{} {
	out := map[string]interface{}{
		"id":         req.ID,
		"user_id":    req.UserID,
		"amount":     req.Amount,
		"note":       req.Note,
		"status":     req.Status,
		"created_at": req.CreatedAt.Format(time.RFC3339),
	}
	if req.RejectReason != "" {
		out["reject_reason"] = req.RejectReason
	}
	return out
}
