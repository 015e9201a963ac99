package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/stayflow/booking-payments/internal/constant/model/db"
	"github.com/stayflow/booking-payments/internal/core"
	"github.com/stayflow/booking-payments/internal/port/output"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormPaymentRepository is a secondary adapter that implements the
// PaymentRepository output port
type GormPaymentRepository struct {
	gormDB *gorm.DB
}

// NewGormPaymentRepository creates a new GORM payment repository
func NewGormPaymentRepository(gormDB *gorm.DB) output.PaymentRepository {
	return &GormPaymentRepository{gormDB: gormDB}
}

// toCore converts db.Payment to core.Payment
func toCore(p *db.Payment) *core.Payment {
	return &core.Payment{
		ID:                   p.ID,
		BookingID:            p.BookingID,
		TransactionRef:       p.TransactionRef,
		Amount:               p.Amount,
		Currency:             core.Currency(p.Currency),
		Status:               core.PaymentStatus(p.Status),
		ChapaReference:       p.ChapaReference,
		PaymentMethod:        p.PaymentMethod,
		InitiationResponse:   []byte(p.InitiationResponse),
		VerificationResponse: []byte(p.VerificationResponse),
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
		PaidAt:               p.PaidAt,
	}
}

// fromCore converts core.Payment to db.Payment
func fromCore(p *core.Payment) *db.Payment {
	return &db.Payment{
		ID:                   p.ID,
		BookingID:            p.BookingID,
		TransactionRef:       p.TransactionRef,
		Amount:               p.Amount,
		Currency:             string(p.Currency),
		Status:               db.PaymentStatus(p.Status),
		ChapaReference:       p.ChapaReference,
		PaymentMethod:        p.PaymentMethod,
		InitiationResponse:   datatypes.JSON(p.InitiationResponse),
		VerificationResponse: datatypes.JSON(p.VerificationResponse),
		CreatedAt:            p.CreatedAt,
		UpdatedAt:            p.UpdatedAt,
		PaidAt:               p.PaidAt,
	}
}

// Create persists a new payment. The unique indexes on booking_id and
// transaction_ref are the authoritative duplicate guard; a violation is
// translated to core.ErrPaymentExists.
func (r *GormPaymentRepository) Create(ctx context.Context, payment *core.Payment) error {
	dbPayment := fromCore(payment)
	if err := r.gormDB.WithContext(ctx).Create(dbPayment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("booking %s: %w", payment.BookingID, core.ErrPaymentExists)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	// Update core entity with values set by GORM hooks
	payment.ID = dbPayment.ID
	payment.CreatedAt = dbPayment.CreatedAt
	payment.UpdatedAt = dbPayment.UpdatedAt
	return nil
}

// GetByTransactionRef retrieves a payment by its current transaction ref
func (r *GormPaymentRepository) GetByTransactionRef(ctx context.Context, ref string) (*core.Payment, error) {
	return r.getOne(ctx, "transaction_ref = ?", ref)
}

// GetByBookingID retrieves the payment linked to a booking
func (r *GormPaymentRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*core.Payment, error) {
	return r.getOne(ctx, "booking_id = ?", bookingID)
}

// GetByID retrieves a payment by its primary id
func (r *GormPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*core.Payment, error) {
	return r.getOne(ctx, "id = ?", id)
}

func (r *GormPaymentRepository) getOne(ctx context.Context, query string, arg interface{}) (*core.Payment, error) {
	var dbPayment db.Payment
	if err := r.gormDB.WithContext(ctx).Where(query, arg).First(&dbPayment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return toCore(&dbPayment), nil
}

// Update persists in-place mutations of the payment record
func (r *GormPaymentRepository) Update(ctx context.Context, payment *core.Payment) error {
	dbPayment := fromCore(payment)
	if err := r.gormDB.WithContext(ctx).Save(dbPayment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("transaction ref %s: %w", payment.TransactionRef, core.ErrPaymentExists)
		}
		return fmt.Errorf("failed to update payment: %w", err)
	}
	payment.UpdatedAt = dbPayment.UpdatedAt
	return nil
}

// lockCurrent reloads the payment row FOR UPDATE and re-checks that its
// transaction ref still matches the one the verification was keyed by.
// The lookup that preceded the gateway call only held at read time; a
// retry may have rotated the ref while verification was in flight, and
// a stale snapshot must not overwrite the live attempt.
func lockCurrent(tx *gorm.DB, payment *core.Payment) (*db.Payment, error) {
	var current db.Payment
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", payment.ID).
		First(&current).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock payment: %w", err)
	}
	if current.TransactionRef != payment.TransactionRef {
		return nil, fmt.Errorf("payment %s no longer carries ref %s: %w", payment.ID, payment.TransactionRef, core.ErrNotFound)
	}
	return &current, nil
}

// Complete atomically marks the payment completed and cascades the
// linked booking to confirmed. The row lock keeps a concurrent webhook
// redelivery from applying the transition twice, and the ref re-check
// keeps a stale delivery from settling a retried attempt.
func (r *GormPaymentRepository) Complete(ctx context.Context, payment *core.Payment) error {
	return r.gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockCurrent(tx, payment)
		if err != nil {
			return err
		}

		// Already settled by a previous delivery
		if current.Status == db.PaymentStatusCompleted {
			*payment = *toCore(current)
			return nil
		}

		now := time.Now()
		current.Status = db.PaymentStatusCompleted
		current.PaidAt = &now
		current.VerificationResponse = datatypes.JSON(payment.VerificationResponse)
		current.UpdatedAt = now
		if err := tx.Save(current).Error; err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}

		if err := tx.Model(&db.Booking{}).
			Where("id = ?", current.BookingID).
			Update("status", db.BookingStatusConfirmed).Error; err != nil {
			return fmt.Errorf("failed to confirm booking: %w", err)
		}

		*payment = *toCore(current)
		return nil
	})
}

// Fail marks the payment failed and stores the verification payload,
// under the same lock and ref re-check as Complete. A completed payment
// is never demoted.
func (r *GormPaymentRepository) Fail(ctx context.Context, payment *core.Payment) error {
	return r.gormDB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := lockCurrent(tx, payment)
		if err != nil {
			return err
		}

		if current.Status == db.PaymentStatusCompleted {
			*payment = *toCore(current)
			return nil
		}

		current.Status = db.PaymentStatusFailed
		current.VerificationResponse = datatypes.JSON(payment.VerificationResponse)
		current.UpdatedAt = time.Now()
		if err := tx.Save(current).Error; err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}

		*payment = *toCore(current)
		return nil
	})
}

// GormBookingRepository is a secondary adapter that implements the
// BookingRepository output port
type GormBookingRepository struct {
	gormDB *gorm.DB
}

// NewGormBookingRepository creates a new GORM booking repository
func NewGormBookingRepository(gormDB *gorm.DB) output.BookingRepository {
	return &GormBookingRepository{gormDB: gormDB}
}

// GetByID retrieves a booking with its user and listing preloaded
func (r *GormBookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*core.Booking, error) {
	var dbBooking db.Booking
	if err := r.gormDB.WithContext(ctx).
		Preload("User").
		Preload("Listing").
		Where("id = ?", id).
		First(&dbBooking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("booking %s: %w", id, core.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return bookingToCore(&dbBooking), nil
}

func bookingToCore(b *db.Booking) *core.Booking {
	booking := &core.Booking{
		ID:         b.ID,
		ListingID:  b.ListingID,
		UserID:     b.UserID,
		StartDate:  b.StartDate,
		EndDate:    b.EndDate,
		TotalPrice: b.TotalPrice,
		Status:     core.BookingStatus(b.Status),
		CreatedAt:  b.CreatedAt,
	}
	if b.User != nil {
		booking.User = &core.User{
			ID:        b.User.ID,
			Email:     b.User.Email,
			FirstName: b.User.FirstName,
			LastName:  b.User.LastName,
			IsStaff:   b.User.IsStaff,
		}
	}
	if b.Listing != nil {
		booking.Listing = &core.Listing{
			ID:     b.Listing.ID,
			HostID: b.Listing.HostID,
			Title:  b.Listing.Title,
		}
	}
	return booking
}
