package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stayflow/booking-payments/internal/core"
	"github.com/stayflow/booking-payments/internal/port/input"
)

// WebhookHandler receives Chapa's asynchronous payment notifications.
// Unauthenticated by design: the provider cannot present platform
// credentials. The response acknowledges receipt, not business outcome.
type WebhookHandler struct {
	paymentService input.PaymentService
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(paymentService input.PaymentService) *WebhookHandler {
	return &WebhookHandler{
		paymentService: paymentService,
	}
}

// WebhookPayload is the provider-defined notification body. Fields
// beyond tx_ref and event are ignored.
type WebhookPayload struct {
	TxRef string `json:"tx_ref"`
	Event string `json:"event"`
}

// HandleChapaWebhook handles POST /chapa-webhook/
func (h *WebhookHandler) HandleChapaWebhook(c echo.Context) error {
	var payload WebhookPayload
	if err := c.Bind(&payload); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "Invalid webhook payload",
		})
	}

	log.Printf("webhook received tx_ref=%s event=%s", payload.TxRef, payload.Event)

	if payload.TxRef == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "No transaction reference",
		})
	}

	err := h.paymentService.HandleVerification(c.Request().Context(), payload.TxRef)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Unknown or rotated-away transaction ref. Logged, never
			// fatal to the provider's delivery loop.
			log.Printf("webhook for unknown transaction tx_ref=%s", payload.TxRef)
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "Payment not found",
			})
		}
		var gatewayErr *core.GatewayError
		if errors.As(err, &gatewayErr) {
			// Verification could not run; acknowledge receipt so the
			// provider redelivers later.
			log.Printf("webhook verification failed tx_ref=%s err=%v", payload.TxRef, err)
			return c.JSON(http.StatusOK, map[string]string{
				"status": "webhook received, verification pending",
			})
		}
		log.Printf("webhook processing error tx_ref=%s err=%v", payload.TxRef, err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "webhook processed",
	})
}
