package input

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stayflow/booking-payments/internal/core"
)

// PaymentService is the input port (primary port) for the payment
// lifecycle. Primary adapters (HTTP handlers) will use this.
type PaymentService interface {
	// CreatePayment initiates a payment for a booking and persists it in
	// pending state. At most one payment may exist per booking.
	CreatePayment(ctx context.Context, req CreatePaymentRequest, principal core.Principal) (*CreatePaymentResponse, error)

	// RetryPayment re-initiates a failed (or stale pending) payment with
	// a fresh transaction ref.
	RetryPayment(ctx context.Context, paymentID uuid.UUID, principal core.Principal) (*RetryPaymentResponse, error)

	// HandleVerification verifies a transaction with the gateway and
	// applies the resulting state transition. Called by the webhook.
	HandleVerification(ctx context.Context, transactionRef string) error

	// GetStatus returns the persisted payment snapshot resolved by
	// transaction ref or booking id, without calling the gateway.
	GetStatus(ctx context.Context, q StatusQuery, principal core.Principal) (*PaymentSnapshot, error)
}

// CreatePaymentRequest represents the request to create a payment
type CreatePaymentRequest struct {
	BookingID uuid.UUID
}

// CreatePaymentResponse carries the persisted payment and the gateway's
// hosted checkout page the payer must be redirected to.
type CreatePaymentResponse struct {
	Payment     PaymentSnapshot
	CheckoutURL string
}

// RetryPaymentResponse carries the rotated transaction ref and the new
// checkout page.
type RetryPaymentResponse struct {
	TransactionRef string
	CheckoutURL    string
}

// StatusQuery resolves a payment by exactly one of its two keys.
type StatusQuery struct {
	TransactionRef string
	BookingID      uuid.UUID
}

// PaymentSnapshot represents the externally visible state of a payment
type PaymentSnapshot struct {
	ID             uuid.UUID
	BookingID      uuid.UUID
	TransactionRef string
	Amount         float64
	Currency       core.Currency
	Status         core.PaymentStatus
	ChapaReference string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PaidAt         *time.Time
}
