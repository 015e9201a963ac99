package db

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentStatus represents the status of a payment in the database
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCanceled  PaymentStatus = "canceled"
)

// BookingStatus represents the status of a booking in the database
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// User represents a platform user in the database
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Email     string    `gorm:"type:varchar(254);not null;uniqueIndex" json:"email"`
	FirstName string    `gorm:"type:varchar(30)" json:"first_name"`
	LastName  string    `gorm:"type:varchar(30)" json:"last_name"`
	Role      string    `gorm:"type:varchar(10);not null;default:guest" json:"role"`
	IsStaff   bool      `gorm:"not null;default:false" json:"is_staff"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// Listing represents a bookable property in the database
type Listing struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	HostID        uuid.UUID `gorm:"type:uuid;not null;index" json:"host_id"`
	Title         string    `gorm:"type:varchar(200);not null" json:"title"`
	PricePerNight float64   `gorm:"type:decimal(10,2);not null" json:"price_per_night"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName specifies the table name for GORM
func (Listing) TableName() string {
	return "listings"
}

// Booking represents a stay request in the database
type Booking struct {
	ID         uuid.UUID     `gorm:"type:uuid;primary_key" json:"id"`
	ListingID  uuid.UUID     `gorm:"type:uuid;not null;index" json:"listing_id"`
	UserID     uuid.UUID     `gorm:"type:uuid;not null;index" json:"user_id"`
	StartDate  time.Time     `gorm:"type:date;not null" json:"start_date"`
	EndDate    time.Time     `gorm:"type:date;not null" json:"end_date"`
	TotalPrice float64       `gorm:"type:decimal(10,2);not null" json:"total_price"`
	Status     BookingStatus `gorm:"type:varchar(20);not null;default:pending" json:"status"`
	CreatedAt  time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`

	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Listing *Listing `gorm:"foreignKey:ListingID" json:"listing,omitempty"`
}

// TableName specifies the table name for GORM
func (Booking) TableName() string {
	return "bookings"
}

// Payment represents a payment entity in the database. The unique
// indexes on booking_id and transaction_ref close the race window
// between concurrent create attempts; application-level pre-checks are
// advisory only.
type Payment struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primary_key" json:"id"`
	BookingID            uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"booking_id"`
	TransactionRef       string         `gorm:"type:varchar(100);not null;uniqueIndex" json:"transaction_ref"`
	Amount               float64        `gorm:"type:decimal(10,2);not null" json:"amount"`
	Currency             string         `gorm:"type:varchar(3);not null;default:ETB" json:"currency"`
	Status               PaymentStatus  `gorm:"type:varchar(20);not null;default:pending" json:"status"`
	ChapaReference       string         `gorm:"type:varchar(100)" json:"chapa_reference"`
	PaymentMethod        string         `gorm:"type:varchar(50)" json:"payment_method"`
	InitiationResponse   datatypes.JSON `gorm:"type:jsonb" json:"initiation_response,omitempty"`
	VerificationResponse datatypes.JSON `gorm:"type:jsonb" json:"verification_response,omitempty"`
	CreatedAt            time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt            time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	PaidAt               *time.Time     `json:"paid_at,omitempty"`

	Booking *Booking `gorm:"foreignKey:BookingID" json:"booking,omitempty"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}

// BeforeCreate is a GORM hook that runs before creating a record
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = now
	}
	return nil
}

// BeforeUpdate is a GORM hook that runs before updating a record
func (p *Payment) BeforeUpdate(tx *gorm.DB) error {
	p.UpdatedAt = time.Now()
	return nil
}
