package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/stayflow/booking-payments/internal/core"
	"github.com/stayflow/booking-payments/internal/port/input"
	"github.com/stayflow/booking-payments/internal/port/output"
)

// retryPendingAfter is how long a pending attempt must sit without an
// update before retry may re-initiate it. Retry from failed needs no
// waiting period.
const retryPendingAfter = 15 * time.Minute

// PaymentLifecycle implements the PaymentService input port: the state
// machine taking a booking from unpaid through pending to
// completed/failed, coordinating the gateway, the webhook-driven
// verification and the per-booking uniqueness guarantee.
type PaymentLifecycle struct {
	paymentRepo output.PaymentRepository
	bookingRepo output.BookingRepository
	gateway     output.PaymentGateway
	notifier    output.BookingNotifier
	returnURL   string
}

// NewPaymentLifecycle creates the payment lifecycle service
func NewPaymentLifecycle(
	paymentRepo output.PaymentRepository,
	bookingRepo output.BookingRepository,
	gateway output.PaymentGateway,
	notifier output.BookingNotifier,
	returnURL string,
) input.PaymentService {
	return &PaymentLifecycle{
		paymentRepo: paymentRepo,
		bookingRepo: bookingRepo,
		gateway:     gateway,
		notifier:    notifier,
		returnURL:   returnURL,
	}
}

// CreatePayment initiates a payment for a booking. The gateway call
// happens before anything is persisted, so a failed initiation leaves no
// orphan pending record. The storage layer's unique index on booking_id
// is the authoritative guard against concurrent duplicate creates; the
// pre-check here only produces a friendlier error for the common case.
func (s *PaymentLifecycle) CreatePayment(ctx context.Context, req input.CreatePaymentRequest, principal core.Principal) (*input.CreatePaymentResponse, error) {
	if req.BookingID == uuid.Nil {
		return nil, fmt.Errorf("booking_id is required: %w", core.ErrValidation)
	}

	booking, err := s.bookingRepo.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(booking.UserID) {
		return nil, fmt.Errorf("user %s may not pay for booking %s: %w", principal.UserID, booking.ID, core.ErrForbidden)
	}

	if _, err := s.paymentRepo.GetByBookingID(ctx, booking.ID); err == nil {
		return nil, fmt.Errorf("booking %s: %w", booking.ID, core.ErrPaymentExists)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	txRef, err := core.NewTransactionRef(booking.ID)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.Initiate(ctx, s.initiateRequest(booking, txRef))
	if err != nil {
		log.Printf("payment initiation failed booking_id=%s tx_ref=%s err=%v", booking.ID, txRef, err)
		return nil, err
	}

	payment := &core.Payment{
		ID:                 uuid.New(),
		BookingID:          booking.ID,
		TransactionRef:     txRef,
		Amount:             booking.TotalPrice,
		Currency:           core.CurrencyETB,
		Status:             core.PaymentStatusPending,
		ChapaReference:     txRef,
		InitiationResponse: result.RawResponse,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	log.Printf("payment created payment_id=%s booking_id=%s tx_ref=%s", payment.ID, booking.ID, txRef)

	return &input.CreatePaymentResponse{
		Payment:     snapshot(payment),
		CheckoutURL: result.CheckoutURL,
	}, nil
}

// RetryPayment re-initiates a failed (or stale pending) payment. The
// transaction ref is rotated and the same record reset to pending; on
// gateway failure the record is left untouched.
func (s *PaymentLifecycle) RetryPayment(ctx context.Context, paymentID uuid.UUID, principal core.Principal) (*input.RetryPaymentResponse, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	booking, err := s.bookingRepo.GetByID(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(booking.UserID) {
		return nil, fmt.Errorf("user %s may not retry payment %s: %w", principal.UserID, payment.ID, core.ErrForbidden)
	}
	if !payment.CanRetry(time.Now(), retryPendingAfter) {
		return nil, fmt.Errorf("payment %s in status %s is not retryable: %w", payment.ID, payment.Status, core.ErrValidation)
	}

	txRef, err := core.NewTransactionRef(booking.ID)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.Initiate(ctx, s.initiateRequest(booking, txRef))
	if err != nil {
		log.Printf("payment retry failed payment_id=%s tx_ref=%s err=%v", payment.ID, txRef, err)
		return nil, err
	}

	payment.TransactionRef = txRef
	payment.ChapaReference = txRef
	payment.Status = core.PaymentStatusPending
	payment.InitiationResponse = result.RawResponse
	payment.VerificationResponse = nil
	payment.PaidAt = nil
	if err := s.paymentRepo.Update(ctx, payment); err != nil {
		return nil, err
	}

	log.Printf("payment retry initiated payment_id=%s booking_id=%s tx_ref=%s", payment.ID, booking.ID, txRef)

	return &input.RetryPaymentResponse{
		TransactionRef: txRef,
		CheckoutURL:    result.CheckoutURL,
	}, nil
}

// HandleVerification verifies a transaction with the gateway and applies
// the resulting transition. Lookup is strictly by the webhook's tx_ref,
// so a late webhook for a ref that retry has already rotated away finds
// nothing and reports not found. The repository re-checks the ref under
// lock at write time as well: a retry that rotates the ref while the
// gateway call is in flight turns the write into not found instead of
// letting the stale snapshot overwrite the live attempt. Redelivery of a
// success event for an already completed payment is a no-op.
func (s *PaymentLifecycle) HandleVerification(ctx context.Context, transactionRef string) error {
	payment, err := s.paymentRepo.GetByTransactionRef(ctx, transactionRef)
	if err != nil {
		return err
	}

	if payment.Status == core.PaymentStatusCompleted {
		log.Printf("verification skipped, payment already completed tx_ref=%s payment_id=%s", transactionRef, payment.ID)
		return nil
	}

	result, err := s.gateway.Verify(ctx, transactionRef)
	if err != nil {
		// Leave the payment untouched; the provider will redeliver.
		return fmt.Errorf("verification of %s: %w", transactionRef, err)
	}

	switch result.Status {
	case core.VerifiedSuccess:
		payment.VerificationResponse = result.RawResponse
		if err := s.paymentRepo.Complete(ctx, payment); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				log.Printf("verification superseded by retry tx_ref=%s payment_id=%s", transactionRef, payment.ID)
			}
			return err
		}
		log.Printf("payment completed via webhook payment_id=%s booking_id=%s tx_ref=%s", payment.ID, payment.BookingID, transactionRef)
		if err := s.notifier.EnqueueConfirmation(payment.BookingID); err != nil {
			// Fire-and-forget: the confirmation mail is not worth
			// rolling back a settled payment.
			log.Printf("failed to enqueue booking confirmation booking_id=%s err=%v", payment.BookingID, err)
		}
	case core.VerifiedFailed, core.VerifiedCancelled:
		payment.VerificationResponse = result.RawResponse
		if err := s.paymentRepo.Fail(ctx, payment); err != nil {
			if errors.Is(err, core.ErrNotFound) {
				log.Printf("verification superseded by retry tx_ref=%s payment_id=%s", transactionRef, payment.ID)
			}
			return err
		}
		log.Printf("payment failed via webhook payment_id=%s tx_ref=%s provider_status=%s", payment.ID, transactionRef, result.Status)
	default:
		// Still pending at the provider; a later delivery will settle it.
		log.Printf("verification still pending tx_ref=%s payment_id=%s", transactionRef, payment.ID)
	}

	return nil
}

// GetStatus resolves the payment by transaction ref or booking id and
// returns the persisted snapshot. It never calls the gateway.
func (s *PaymentLifecycle) GetStatus(ctx context.Context, q input.StatusQuery, principal core.Principal) (*input.PaymentSnapshot, error) {
	var (
		payment *core.Payment
		err     error
	)
	switch {
	case q.TransactionRef != "":
		payment, err = s.paymentRepo.GetByTransactionRef(ctx, q.TransactionRef)
	case q.BookingID != uuid.Nil:
		payment, err = s.paymentRepo.GetByBookingID(ctx, q.BookingID)
	default:
		return nil, fmt.Errorf("either transaction_id or booking_id is required: %w", core.ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	booking, err := s.bookingRepo.GetByID(ctx, payment.BookingID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(booking.UserID) {
		return nil, fmt.Errorf("user %s may not view payment %s: %w", principal.UserID, payment.ID, core.ErrForbidden)
	}

	snap := snapshot(payment)
	return &snap, nil
}

// initiateRequest assembles the gateway call from the booking context
func (s *PaymentLifecycle) initiateRequest(booking *core.Booking, txRef string) output.InitiateRequest {
	payer := output.Payer{Email: "", FirstName: "Customer", LastName: "User"}
	if booking.User != nil {
		payer.Email = booking.User.Email
		if booking.User.FirstName != "" {
			payer.FirstName = booking.User.FirstName
		}
		if booking.User.LastName != "" {
			payer.LastName = booking.User.LastName
		}
	}
	title := "Property Booking Payment"
	if booking.Listing != nil && booking.Listing.Title != "" {
		title = fmt.Sprintf("Payment for %s", booking.Listing.Title)
	}
	return output.InitiateRequest{
		Amount:         booking.TotalPrice,
		Currency:       core.CurrencyETB,
		Payer:          payer,
		TransactionRef: txRef,
		ReturnURL:      fmt.Sprintf("%s?booking=%s", s.returnURL, booking.ID),
		Title:          title,
		Description:    fmt.Sprintf("Booking reference: %s", booking.ID),
	}
}

func snapshot(p *core.Payment) input.PaymentSnapshot {
	return input.PaymentSnapshot{
		ID:             p.ID,
		BookingID:      p.BookingID,
		TransactionRef: p.TransactionRef,
		Amount:         p.Amount,
		Currency:       p.Currency,
		Status:         p.Status,
		ChapaReference: p.ChapaReference,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		PaidAt:         p.PaidAt,
	}
}
