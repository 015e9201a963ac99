package core

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus represents the lifecycle status of a booking
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// User is the payer read model. The payment core only needs contact
// details for the gateway and the staff flag for permission checks.
type User struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	IsStaff   bool
}

// Listing is the property read model; the payment core uses the title
// for the gateway's checkout customization.
type Listing struct {
	ID     uuid.UUID
	HostID uuid.UUID
	Title  string
}

// Booking represents a stay request. The payment core reads bookings and
// cascades only the status field on payment completion.
type Booking struct {
	ID         uuid.UUID
	ListingID  uuid.UUID
	UserID     uuid.UUID
	StartDate  time.Time
	EndDate    time.Time
	TotalPrice float64
	Status     BookingStatus
	CreatedAt  time.Time

	// Preloaded associations
	User    *User
	Listing *Listing
}

// Principal is the authenticated caller of a lifecycle operation. It is
// passed explicitly instead of being pulled from ambient request state.
type Principal struct {
	UserID  uuid.UUID
	Email   string
	IsStaff bool
}

// CanAccess reports whether the principal may act on a booking owned by
// ownerID: the owner and staff may, nobody else.
func (p Principal) CanAccess(ownerID uuid.UUID) bool {
	return p.IsStaff || p.UserID == ownerID
}
