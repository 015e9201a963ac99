package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stayflow/booking-payments/internal/core"
	"github.com/stayflow/booking-payments/internal/port/input"
)

// PaymentHandler is a primary adapter (HTTP handler)
type PaymentHandler struct {
	paymentService input.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService input.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// CreatePaymentRequest represents the HTTP request to create a payment
type CreatePaymentRequest struct {
	BookingID string `json:"booking_id"`
}

// PaymentResponse represents the HTTP view of a payment snapshot
type PaymentResponse struct {
	ID             string  `json:"id"`
	BookingID      string  `json:"booking_id"`
	TransactionRef string  `json:"transaction_id"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Status         string  `json:"status"`
	ChapaReference string  `json:"chapa_reference,omitempty"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	PaidAt         *string `json:"paid_at,omitempty"`
}

func toPaymentResponse(p input.PaymentSnapshot) PaymentResponse {
	resp := PaymentResponse{
		ID:             p.ID.String(),
		BookingID:      p.BookingID.String(),
		TransactionRef: p.TransactionRef,
		Amount:         p.Amount,
		Currency:       string(p.Currency),
		Status:         string(p.Status),
		ChapaReference: p.ChapaReference,
		CreatedAt:      p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      p.UpdatedAt.Format(time.RFC3339),
	}
	if p.PaidAt != nil {
		paidAt := p.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &paidAt
	}
	return resp
}

// CreatePayment handles POST /payments
func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	var req CreatePaymentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid request body",
		})
	}
	bookingID, err := uuid.Parse(req.BookingID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid booking ID format",
		})
	}

	response, err := h.paymentService.CreatePayment(c.Request().Context(), input.CreatePaymentRequest{
		BookingID: bookingID,
	}, principalFrom(c))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"success":      true,
		"payment":      toPaymentResponse(response.Payment),
		"checkout_url": response.CheckoutURL,
		"message":      "Payment initiated successfully. Redirect to checkout URL to complete payment.",
	})
}

// RetryPayment handles POST /payments/:id/retry_payment
func (h *PaymentHandler) RetryPayment(c echo.Context) error {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid payment ID",
		})
	}

	response, err := h.paymentService.RetryPayment(c.Request().Context(), paymentID, principalFrom(c))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":        true,
		"checkout_url":   response.CheckoutURL,
		"transaction_id": response.TransactionRef,
		"message":        "Payment retry initiated successfully. Redirect to checkout URL.",
	})
}

// GetStatus handles GET /payments/status?transaction_id=|booking_id=
func (h *PaymentHandler) GetStatus(c echo.Context) error {
	query := input.StatusQuery{
		TransactionRef: c.QueryParam("transaction_id"),
	}
	if rawBookingID := c.QueryParam("booking_id"); rawBookingID != "" {
		bookingID, err := uuid.Parse(rawBookingID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "Invalid booking ID format",
			})
		}
		query.BookingID = bookingID
	}

	snap, err := h.paymentService.GetStatus(c.Request().Context(), query, principalFrom(c))
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, toPaymentResponse(*snap))
}

// PaymentSuccess handles GET /payment-success, the gateway's return URL
// landing. It only echoes receipt context; the authoritative transition
// arrives on the webhook.
func (h *PaymentHandler) PaymentSuccess(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success":        true,
		"message":        "Payment completed successfully!",
		"booking_id":     c.QueryParam("booking"),
		"transaction_id": c.QueryParam("transaction_id"),
	})
}

// writeError maps the domain error taxonomy onto HTTP status codes
func writeError(c echo.Context, err error) error {
	var gatewayErr *core.GatewayError
	switch {
	case errors.Is(err, core.ErrValidation):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, core.ErrForbidden):
		return c.JSON(http.StatusForbidden, map[string]string{"error": "You do not have permission to access this payment."})
	case errors.Is(err, core.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Payment not found."})
	case errors.Is(err, core.ErrPaymentExists):
		return c.JSON(http.StatusConflict, map[string]string{"error": "Payment already exists for this booking."})
	case errors.As(err, &gatewayErr):
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "Failed to initiate payment with the gateway."})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "An unexpected error occurred."})
	}
}
