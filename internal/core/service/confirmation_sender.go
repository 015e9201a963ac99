package service

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/stayflow/booking-payments/internal/port/output"
)

// ConfirmationSender handles booking confirmation messages on the worker
// side: it loads the booking and mails the guest. Delivery is
// at-least-once; a booking that has vanished is acknowledged and dropped.
type ConfirmationSender struct {
	bookingRepo output.BookingRepository
	mail        output.MailSender
}

// NewConfirmationSender creates a new confirmation sender
func NewConfirmationSender(bookingRepo output.BookingRepository, mail output.MailSender) *ConfirmationSender {
	return &ConfirmationSender{
		bookingRepo: bookingRepo,
		mail:        mail,
	}
}

// SendConfirmation composes and sends the booking confirmation email
func (s *ConfirmationSender) SendConfirmation(ctx context.Context, bookingID uuid.UUID) error {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("failed to load booking for confirmation: %w", err)
	}
	if booking.User == nil || booking.User.Email == "" {
		log.Printf("no recipient for booking confirmation booking_id=%s", bookingID)
		return nil
	}

	name := booking.User.FirstName
	if name == "" {
		name = "Customer"
	}
	listingTitle := ""
	if booking.Listing != nil {
		listingTitle = booking.Listing.Title
	}

	subject := fmt.Sprintf("Booking Confirmation - %s", booking.ID)
	body := fmt.Sprintf(
		"Dear %s,\n\n"+
			"Your booking has been confirmed!\n\n"+
			"Booking Reference: %s\n"+
			"Property: %s\n"+
			"Check-in: %s\n"+
			"Check-out: %s\n"+
			"Total Amount: %.2f\n\n"+
			"Thank you for choosing us!\n",
		name,
		booking.ID,
		listingTitle,
		booking.StartDate.Format("2006-01-02"),
		booking.EndDate.Format("2006-01-02"),
		booking.TotalPrice,
	)

	if err := s.mail.Send(booking.User.Email, subject, body); err != nil {
		return fmt.Errorf("failed to send confirmation email: %w", err)
	}

	log.Printf("booking confirmation sent booking_id=%s recipient=%s", bookingID, booking.User.Email)
	return nil
}
