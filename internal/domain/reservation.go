package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// NewReservation builds a held reservation over a deduplicated,
// sorted copy of the requested seat numbers.
func NewReservation(busID, userID uuid.UUID, seats []string, pricePerSeat float64, now time.Time, ttl time.Duration) Reservation {
	unique := DedupSeats(seats)
	return Reservation{
		ID:          uuid.New(),
		UserID:      userID,
		BusID:       busID,
		SeatNumbers: unique,
		TotalPrice:  float64(len(unique)) * pricePerSeat,
		Status:      ReservationHeld,
		ExpiresAt:   now.Add(ttl),
		CreatedAt:   now,
	}
}

// DedupSeats removes duplicates and returns the seat numbers sorted.
// Selection order carries no meaning, only membership does.
func DedupSeats(seats []string) []string {
	seen := make(map[string]struct{}, len(seats))
	out := make([]string, 0, len(seats))
	for _, s := range seats {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (r Reservation) Owns(userID uuid.UUID) bool {
	return r.UserID == userID
}

func (r Reservation) ExpiredAt(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
