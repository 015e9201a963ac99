package output

import (
	"github.com/google/uuid"
)

// BookingNotifier is an output port for the notification trigger:
// fire-and-forget, at-least-once dispatch of a confirmation message on
// booking confirmation. Secondary adapters (RabbitMQ implementations)
// will implement this. A failed enqueue is logged by the caller and
// never rolls back the state change that triggered it.
type BookingNotifier interface {
	// EnqueueConfirmation publishes a booking confirmation message.
	EnqueueConfirmation(bookingID uuid.UUID) error
	// Close closes the messaging connection.
	Close() error
}

// MailSender is an output port for confirmation mail delivery, consumed
// by the worker.
type MailSender interface {
	// Send delivers a plain-text message to a single recipient.
	Send(to, subject, body string) error
}
