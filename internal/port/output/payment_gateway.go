package output

import (
	"context"
	"encoding/json"

	"github.com/stayflow/booking-payments/internal/core"
)

// PaymentGateway is an output port for the external payment provider.
// Implementations own request/response mapping and translate every
// transport or HTTP failure into *core.GatewayError; nothing else
// crosses this boundary.
type PaymentGateway interface {
	// Initiate starts a hosted checkout session for the given amount and
	// payer. Network I/O only, no persistence.
	Initiate(ctx context.Context, req InitiateRequest) (*InitiateResult, error)

	// Verify looks up the outcome of a transaction and maps the
	// provider's status vocabulary onto core.VerifiedStatus. Unknown
	// provider values map to core.VerifiedPending.
	Verify(ctx context.Context, transactionRef string) (*VerifyResult, error)
}

// Payer identifies the customer the checkout session is opened for.
type Payer struct {
	Email     string
	FirstName string
	LastName  string
}

// InitiateRequest represents a checkout initialization call.
type InitiateRequest struct {
	Amount         float64
	Currency       core.Currency
	Payer          Payer
	TransactionRef string
	ReturnURL      string
	Title          string
	Description    string
}

// InitiateResult carries the hosted checkout page plus the raw provider
// response for auditing.
type InitiateResult struct {
	CheckoutURL    string
	TransactionRef string
	RawResponse    json.RawMessage
}

// VerifyResult carries the canonical verification outcome plus the raw
// provider response for auditing.
type VerifyResult struct {
	Status      core.VerifiedStatus
	RawResponse json.RawMessage
}
