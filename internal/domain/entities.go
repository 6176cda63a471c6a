package domain

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           uuid.UUID
	Name         string
	Email        string
	Mobile       string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

type Route struct {
	ID        uuid.UUID
	SrcCity   string
	DstCity   string
	CreatedAt time.Time
}

type BusStatus string

const (
	BusDraft     BusStatus = "draft"
	BusPublished BusStatus = "published"
)

type Bus struct {
	ID           uuid.UUID
	RouteID      uuid.UUID
	Name         string
	DepartureAt  time.Time
	SeatsCount   int
	PricePerSeat float64
	SalesOpenAt  *time.Time
	Status       BusStatus
	CreatedAt    time.Time
}

type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatReserved  SeatStatus = "reserved"
	SeatBooked    SeatStatus = "booked"
)

// Seat status is mutated only through the inventory service; everything
// else treats seats as read-only.
type Seat struct {
	BusID         uuid.UUID
	SeatNo        string
	Status        SeatStatus
	ReservationID *uuid.UUID
	BookingID     *uuid.UUID
	Row           int
	Side          string
}

type ReservationStatus string

const (
	ReservationHeld      ReservationStatus = "held"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationExpired   ReservationStatus = "expired"
)

type Reservation struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	BusID       uuid.UUID
	SeatNumbers []string
	TotalPrice  float64
	Status      ReservationStatus
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

type Passenger struct {
	SeatNo string
	Name   string
	Email  string
	Mobile string
}

type BookingStatus string

const (
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

type Booking struct {
	ID            uuid.UUID
	ReservationID uuid.UUID
	UserID        uuid.UUID
	BusID         uuid.UUID
	SeatNumbers   []string
	Passengers    []Passenger
	TotalPrice    float64
	Status        BookingStatus
	CreatedAt     time.Time
	CancelledAt   *time.Time
}

type TopupStatus string

const (
	TopupPending  TopupStatus = "pending"
	TopupApproved TopupStatus = "approved"
	TopupRejected TopupStatus = "rejected"
)

type TopupRequest struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Amount       float64
	Note         string
	Status       TopupStatus
	ResolvedBy   *uuid.UUID
	ResolvedAt   *time.Time
	RejectReason string
	CreatedAt    time.Time
}

type TransactionKind string

const (
	TxDebit  TransactionKind = "debit"
	TxRefund TransactionKind = "refund"
	TxTopup  TransactionKind = "topup"
)

// Transaction is the wallet movement journal. Append-only; the wallet
// balance itself stays authoritative, the journal is for audit.
type Transaction struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Amount    float64
	Kind      TransactionKind
	Reference string
	CreatedAt time.Time
}
