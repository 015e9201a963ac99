package http

import (
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stayflow/booking-payments/internal/core"
	"github.com/stayflow/booking-payments/internal/port/input"
)

func testSnapshot() input.PaymentSnapshot {
	return input.PaymentSnapshot{
		ID:             uuid.New(),
		BookingID:      uuid.New(),
		TransactionRef: "txn_abc",
		Amount:         450,
		Currency:       core.CurrencyETB,
		Status:         core.PaymentStatusPending,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
}

func doRequest(t *testing.T, svc *stubService, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(principalKey, core.Principal{UserID: uuid.New()})

	h := NewPaymentHandler(svc)
	var err error
	switch {
	case method == nethttp.MethodPost && strings.Contains(target, "retry_payment"):
		c.SetParamNames("id")
		c.SetParamValues(strings.Split(target, "/")[2])
		err = h.RetryPayment(c)
	case method == nethttp.MethodPost:
		err = h.CreatePayment(c)
	default:
		err = h.GetStatus(c)
	}
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestCreatePayment_Created(t *testing.T) {
	snap := testSnapshot()
	svc := &stubService{createResp: &input.CreatePaymentResponse{
		Payment:     snap,
		CheckoutURL: "https://checkout.chapa.co/pay/x",
	}}

	rec := doRequest(t, svc, nethttp.MethodPost, "/payments", fmt.Sprintf(`{"booking_id":%q}`, snap.BookingID))

	if rec.Code != nethttp.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["checkout_url"] != "https://checkout.chapa.co/pay/x" {
		t.Fatalf("checkout url missing: %v", body)
	}
	payment, ok := body["payment"].(map[string]interface{})
	if !ok {
		t.Fatalf("payment missing: %v", body)
	}
	if payment["transaction_id"] != "txn_abc" {
		t.Fatalf("transaction id missing: %v", payment)
	}
	if payment["status"] != "pending" {
		t.Fatalf("status should be pending: %v", payment)
	}
}

func TestCreatePayment_InvalidBookingID(t *testing.T) {
	rec := doRequest(t, &stubService{}, nethttp.MethodPost, "/payments", `{"booking_id":"not-a-uuid"}`)
	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCreatePayment_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("booking: %w", core.ErrNotFound), nethttp.StatusNotFound},
		{"forbidden", fmt.Errorf("user: %w", core.ErrForbidden), nethttp.StatusForbidden},
		{"duplicate", fmt.Errorf("booking: %w", core.ErrPaymentExists), nethttp.StatusConflict},
		{"validation", fmt.Errorf("bad input: %w", core.ErrValidation), nethttp.StatusBadRequest},
		{"gateway", &core.GatewayError{StatusCode: 503, Body: "down"}, nethttp.StatusBadGateway},
		{"internal", fmt.Errorf("boom"), nethttp.StatusInternalServerError},
	}

	for _, tc := range cases {
		svc := &stubService{createErr: tc.err}
		rec := doRequest(t, svc, nethttp.MethodPost, "/payments", fmt.Sprintf(`{"booking_id":%q}`, uuid.New()))
		if rec.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, rec.Code)
		}
	}
}

func TestRetryPayment_OK(t *testing.T) {
	svc := &stubService{retryResp: &input.RetryPaymentResponse{
		TransactionRef: "txn_new",
		CheckoutURL:    "https://checkout.chapa.co/pay/y",
	}}
	paymentID := uuid.New()

	rec := doRequest(t, svc, nethttp.MethodPost, "/payments/"+paymentID.String()+"/retry_payment", "")

	if rec.Code != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body["transaction_id"] != "txn_new" {
		t.Fatalf("rotated transaction id missing: %v", body)
	}
}

func TestGetStatus_OK(t *testing.T) {
	snap := testSnapshot()
	svc := &stubService{statusResp: &snap}

	rec := doRequest(t, svc, nethttp.MethodGet, "/payments/status?transaction_id=txn_abc", "")

	if rec.Code != nethttp.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body PaymentResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if body.TransactionRef != "txn_abc" {
		t.Fatalf("unexpected snapshot: %+v", body)
	}
}

func TestGetStatus_MissingKeys(t *testing.T) {
	svc := &stubService{statusErr: fmt.Errorf("key required: %w", core.ErrValidation)}
	rec := doRequest(t, svc, nethttp.MethodGet, "/payments/status", "")
	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetStatus_InvalidBookingID(t *testing.T) {
	rec := doRequest(t, &stubService{}, nethttp.MethodGet, "/payments/status?booking_id=nope", "")
	if rec.Code != nethttp.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
