package http

import (
	"net/http"
	"time"

	"github.com/transitlab/bus-reservations/internal/domain"
)

func (h *Handlers) AdminCreateRoute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SrcCity string `json:"src_city"`
		DstCity string `json:"dst_city"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	route, err := h.fleet.CreateRoute(r.Context(), req.SrcCity, req.DstCity)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       route.ID,
		"src_city": route.SrcCity,
		"dst_city": route.DstCity,
	})
}

func (h *Handlers) AdminCreateBus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RouteID      string  `json:"route_id"`
		Name         string  `json:"name"`
		DepartureAt  string  `json:"departure_at"`
		PricePerSeat float64 `json:"price_per_seat"`
		SalesOpenAt  string  `json:"sales_open_at"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	routeID, err := parseUUIDField(req.RouteID, "route_id")
	if err != nil {
		writeError(w, err)
		return
	}
	departureAt, err := time.Parse(time.RFC3339, req.DepartureAt)
	if err != nil {
		writeError(w, domain.Validationf("invalid departure_at"))
		return
	}
	var salesOpenAt *time.Time
	if req.SalesOpenAt != "" {
		t, err := time.Parse(time.RFC3339, req.SalesOpenAt)
		if err != nil {
			writeError(w, domain.Validationf("invalid sales_open_at"))
			return
		}
		salesOpenAt = &t
	}

	bus, err := h.fleet.CreateBus(r.Context(), routeID, req.Name, departureAt, req.PricePerSeat, salesOpenAt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, busResponse(bus))
}

func (h *Handlers) AdminListBuses(w http.ResponseWriter, r *http.Request) {
	buses, err := h.fleet.ListBuses(r.Context(), true)
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

func (h *Handlers) AdminGetBus(w http.ResponseWriter, r *http.Request) {
	busID, err := pathID(r, "busId")
	if err != nil {
		writeError(w, err)
		return
	}
	bus, seats, err := h.fleet.GetBusWithSeats(r.Context(), busID, true)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := busResponse(bus)
	seatOut := make([]map[string]interface{}, 0, len(seats))
	for _, s := range seats {
		seatOut = append(seatOut, map[string]interface{}{
			"seat_number":    s.SeatNo,
			"status":         s.Status,
			"row":            s.Row,
			"side":           s.Side,
			"reservation_id": s.ReservationID,
			"booking_id":     s.BookingID,
		})
	}
	resp["seats"] = seatOut
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handlers) AdminPublishBus(w http.ResponseWriter, r *http.Request) {
	busID, err := pathID(r, "busId")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.fleet.Publish(r.Context(), busID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "published"})
}

func (h *Handlers) AdminSetSalesOpen(w http.ResponseWriter, r *http.Request) {
	busID, err := pathID(r, "busId")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		SalesOpenAt string `json:"sales_open_at"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var at *time.Time
	if req.SalesOpenAt != "" {
		t, err := time.Parse(time.RFC3339, req.SalesOpenAt)
		if err != nil {
			writeError(w, domain.Validationf("invalid sales_open_at"))
			return
		}
		at = &t
	}
	if err := h.fleet.SetSalesOpen(r.Context(), busID, at); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handlers) AdminListTopups(w http.ResponseWriter, r *http.Request) {
	status := domain.TopupStatus(r.URL.Query().Get("status"))
	switch status {
	case "", domain.TopupPending, domain.TopupApproved, domain.TopupRejected:
	default:
		writeError(w, domain.Validationf("invalid status filter %q", status))
		return
	}
	requests, err := h.topups.List(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]interface{}, 0, len(requests))
	for _, req := range requests {
		out = append(out, topupResponse(req))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) AdminApproveTopup(w http.ResponseWriter, r *http.Request) {
	adminID, _ := userIDFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	amount, balance, err := h.topups.Approve(r.Context(), id, adminID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"amount":      amount,
		"new_balance": balance,
	})
}

func (h *Handlers) AdminRejectTopup(w http.ResponseWriter, r *http.Request) {
	adminID, _ := userIDFrom(r.Context())
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := h.topups.Reject(r.Context(), id, adminID, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "rejected"})
}
