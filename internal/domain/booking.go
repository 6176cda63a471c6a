package domain

import (
	"net/mail"
	"time"

	"github.com/google/uuid"
)

// NewBooking finalizes a held reservation into a durable booking.
func NewBooking(res Reservation, passengers []Passenger, now time.Time) Booking {
	return Booking{
		ID:            uuid.New(),
		ReservationID: res.ID,
		UserID:        res.UserID,
		BusID:         res.BusID,
		SeatNumbers:   res.SeatNumbers,
		Passengers:    passengers,
		TotalPrice:    res.TotalPrice,
		Status:        BookingConfirmed,
		CreatedAt:     now,
	}
}

// ValidatePassengers requires exactly one complete passenger record per
// held seat, each tied to a seat the reservation actually covers.
func ValidatePassengers(res Reservation, passengers []Passenger) error {
	if len(passengers) != len(res.SeatNumbers) {
		return Validationf("expected %d passengers, got %d", len(res.SeatNumbers), len(passengers))
	}
	held := make(map[string]bool, len(res.SeatNumbers))
	for _, s := range res.SeatNumbers {
		held[s] = true
	}
	seen := make(map[string]bool, len(passengers))
	for _, p := range passengers {
		if p.Name == "" || p.Email == "" || p.Mobile == "" {
			return Validationf("passenger for seat %q missing name, email or mobile", p.SeatNo)
		}
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return Validationf("passenger for seat %q has invalid email", p.SeatNo)
		}
		if !held[p.SeatNo] {
			return Validationf("seat %q is not part of the reservation", p.SeatNo)
		}
		if seen[p.SeatNo] {
			return Validationf("duplicate passenger for seat %q", p.SeatNo)
		}
		seen[p.SeatNo] = true
	}
	return nil
}

func NewTopupRequest(userID uuid.UUID, amount float64, note string, now time.Time) (TopupRequest, error) {
	if amount <= 0 {
		return TopupRequest{}, Validationf("amount must be greater than zero")
	}
	return TopupRequest{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Note:      note,
		Status:    TopupPending,
		CreatedAt: now,
	}, nil
}

func NewTransaction(userID uuid.UUID, amount float64, kind TransactionKind, reference string, now time.Time) Transaction {
	return Transaction{
		ID:        uuid.New(),
		UserID:    userID,
		Amount:    amount,
		Kind:      kind,
		Reference: reference,
		CreatedAt: now,
	}
}
