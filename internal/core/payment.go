package core

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus represents the status of a payment
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusCanceled  PaymentStatus = "canceled"
)

// Currency represents supported currencies
type Currency string

const (
	CurrencyETB Currency = "ETB"
	CurrencyUSD Currency = "USD"
)

// VerifiedStatus is the canonical outcome vocabulary reported by the
// gateway's verify endpoint. Unknown provider values map to
// VerifiedPending so a later redelivery can still settle the payment.
type VerifiedStatus string

const (
	VerifiedSuccess   VerifiedStatus = "success"
	VerifiedFailed    VerifiedStatus = "failed"
	VerifiedCancelled VerifiedStatus = "cancelled"
	VerifiedPending   VerifiedStatus = "pending"
)

// Payment represents a payment domain entity. Exactly one payment exists
// per booking; retry rotates the transaction ref in place rather than
// creating a second record.
type Payment struct {
	ID                   uuid.UUID
	BookingID            uuid.UUID
	TransactionRef       string
	Amount               float64
	Currency             Currency
	Status               PaymentStatus
	ChapaReference       string
	PaymentMethod        string
	InitiationResponse   json.RawMessage
	VerificationResponse json.RawMessage
	CreatedAt            time.Time
	UpdatedAt            time.Time
	PaidAt               *time.Time
}

// IsPending checks if payment is in pending status
func (p *Payment) IsPending() bool {
	return p.Status == PaymentStatusPending
}

// IsTerminal checks if payment is in a terminal state
func (p *Payment) IsTerminal() bool {
	return p.Status == PaymentStatusCompleted || p.Status == PaymentStatusFailed || p.Status == PaymentStatusCanceled
}

// CanRetry reports whether a retry may re-initiate this payment.
// FAILED (or canceled) always retries; PENDING only once the attempt has
// gone stale, meaning no update for at least staleAfter. COMPLETED never
// retries.
func (p *Payment) CanRetry(now time.Time, staleAfter time.Duration) bool {
	switch p.Status {
	case PaymentStatusFailed, PaymentStatusCanceled:
		return true
	case PaymentStatusPending:
		return now.Sub(p.UpdatedAt) >= staleAfter
	default:
		return false
	}
}

// NewTransactionRef generates the correlation token sent to the gateway:
// a 96-bit random hex token joined with a fragment of the booking id.
// The ref must be unguessable and collisions across the platform
// negligible.
func NewTransactionRef(bookingID uuid.UUID) (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate transaction ref: %w", err)
	}
	fragment := strings.ReplaceAll(bookingID.String(), "-", "")[:8]
	return fmt.Sprintf("txn_%s_%s", hex.EncodeToString(buf), fragment), nil
}
