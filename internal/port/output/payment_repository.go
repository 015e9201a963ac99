package output

import (
	"context"

	"github.com/google/uuid"
	"github.com/stayflow/booking-payments/internal/core"
)

// PaymentRepository is an output port (secondary port) for payment data
// access. Secondary adapters (database implementations) will implement
// this. Uniqueness of booking_id and transaction_ref is enforced by the
// storage schema, not here; Create surfaces a constraint violation as
// core.ErrPaymentExists.
type PaymentRepository interface {
	// Create persists a new payment. Returns core.ErrPaymentExists when
	// the booking already has one.
	Create(ctx context.Context, payment *core.Payment) error

	// GetByTransactionRef retrieves a payment by its current transaction
	// ref. Returns core.ErrNotFound when absent.
	GetByTransactionRef(ctx context.Context, ref string) (*core.Payment, error)

	// GetByBookingID retrieves the payment linked to a booking.
	// Returns core.ErrNotFound when absent.
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*core.Payment, error)

	// GetByID retrieves a payment by its primary id.
	GetByID(ctx context.Context, id uuid.UUID) (*core.Payment, error)

	// Update persists in-place mutations (status, refs, timestamps).
	Update(ctx context.Context, payment *core.Payment) error

	// Complete atomically marks the payment completed and cascades the
	// linked booking to confirmed in one transaction. A payment already
	// in a completed state is left untouched. The write only applies if
	// the stored transaction ref still equals payment.TransactionRef;
	// when a retry has rotated it away, Complete returns
	// core.ErrNotFound and the live attempt is untouched.
	Complete(ctx context.Context, payment *core.Payment) error

	// Fail marks the payment failed and stores the verification payload,
	// under the same ref guard as Complete: a rotated transaction ref
	// makes it return core.ErrNotFound without writing. A payment that
	// has already completed is never demoted; the call is a no-op.
	Fail(ctx context.Context, payment *core.Payment) error
}

// BookingRepository is an output port for the booking subsystem the
// payment core collaborates with.
type BookingRepository interface {
	// GetByID retrieves a booking with its user and listing preloaded.
	// Returns core.ErrNotFound when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*core.Booking, error)
}
