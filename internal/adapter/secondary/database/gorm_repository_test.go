package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stayflow/booking-payments/internal/core"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("gorm open error: %v", err)
	}
	return gormDB, mock
}

var paymentColumns = []string{
	"id", "booking_id", "transaction_ref", "amount", "currency", "status",
	"chapa_reference", "payment_method", "initiation_response",
	"verification_response", "created_at", "updated_at", "paid_at",
}

func TestGetByTransactionRef_Found(t *testing.T) {
	gormDB, mock := newMockDB(t)
	repo := NewGormPaymentRepository(gormDB)

	paymentID := uuid.New()
	bookingID := uuid.New()
	now := time.Now()
	mock.ExpectQuery(`SELECT (.+) FROM "payments" WHERE transaction_ref =`).
		WithArgs("txn_abc", 1).
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(
			paymentID.String(), bookingID.String(), "txn_abc", 450.0, "ETB", "pending",
			"txn_abc", "", []byte(`{"status":"success"}`), nil, now, now, nil,
		))

	payment, err := repo.GetByTransactionRef(context.Background(), "txn_abc")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if payment.ID != paymentID || payment.BookingID != bookingID {
		t.Fatalf("ids not mapped: %+v", payment)
	}
	if payment.Status != core.PaymentStatusPending {
		t.Fatalf("status not mapped: %s", payment.Status)
	}
	if payment.PaidAt != nil {
		t.Fatal("paid_at should stay nil for a pending payment")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetByTransactionRef_NotFound(t *testing.T) {
	gormDB, mock := newMockDB(t)
	repo := NewGormPaymentRepository(gormDB)

	mock.ExpectQuery(`SELECT (.+) FROM "payments" WHERE transaction_ref =`).
		WithArgs("txn_zzz", 1).
		WillReturnRows(sqlmock.NewRows(paymentColumns))

	_, err := repo.GetByTransactionRef(context.Background(), "txn_zzz")
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCreate_DuplicateBookingTranslated(t *testing.T) {
	gormDB, mock := newMockDB(t)
	repo := NewGormPaymentRepository(gormDB)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "payments"`).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &core.Payment{
		ID:             uuid.New(),
		BookingID:      uuid.New(),
		TransactionRef: "txn_abc",
		Amount:         450,
		Currency:       core.CurrencyETB,
		Status:         core.PaymentStatusPending,
	})
	if !errors.Is(err, core.ErrPaymentExists) {
		t.Fatalf("unique violation must map to ErrPaymentExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestComplete_RefRotatedNotFound(t *testing.T) {
	gormDB, mock := newMockDB(t)
	repo := NewGormPaymentRepository(gormDB)

	paymentID := uuid.New()
	bookingID := uuid.New()
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "payments" WHERE id = (.+) FOR UPDATE`).
		WithArgs(paymentID, 1).
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(
			paymentID.String(), bookingID.String(), "txn_new", 450.0, "ETB", "pending",
			"txn_new", "", []byte(`{"status":"success"}`), nil, now, now, nil,
		))
	mock.ExpectRollback()

	err := repo.Complete(context.Background(), &core.Payment{
		ID:             paymentID,
		BookingID:      bookingID,
		TransactionRef: "txn_old",
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("rotated ref must drop the completion as not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestFail_RefRotatedNotFound(t *testing.T) {
	gormDB, mock := newMockDB(t)
	repo := NewGormPaymentRepository(gormDB)

	paymentID := uuid.New()
	bookingID := uuid.New()
	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM "payments" WHERE id = (.+) FOR UPDATE`).
		WithArgs(paymentID, 1).
		WillReturnRows(sqlmock.NewRows(paymentColumns).AddRow(
			paymentID.String(), bookingID.String(), "txn_new", 450.0, "ETB", "pending",
			"txn_new", "", []byte(`{"status":"success"}`), nil, now, now, nil,
		))
	mock.ExpectRollback()

	err := repo.Fail(context.Background(), &core.Payment{
		ID:             paymentID,
		BookingID:      bookingID,
		TransactionRef: "txn_old",
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("rotated ref must drop the failure as not found, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBookingGetByID_NotFound(t *testing.T) {
	gormDB, mock := newMockDB(t)
	repo := NewGormBookingRepository(gormDB)

	bookingID := uuid.New()
	mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE id =`).
		WithArgs(bookingID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), bookingID)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
