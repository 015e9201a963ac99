package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stayflow/booking-payments/internal/core"
	"github.com/stayflow/booking-payments/internal/port/output"
)

func TestInitiate_Success(t *testing.T) {
	var gotAuth string
	var gotBody initiateRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transaction/initialize" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"message":"Hosted Link","status":"success","data":{"checkout_url":"https://checkout.chapa.co/pay/x","tx_ref":"txn_abc","status":"created"}}`))
	}))
	defer srv.Close()

	client := NewChapaClient(srv.URL, "CHASECK_TEST-secretsecret")
	result, err := client.Initiate(context.Background(), output.InitiateRequest{
		Amount:         450,
		Currency:       core.CurrencyETB,
		Payer:          output.Payer{Email: "guest@example.com", FirstName: "Abel", LastName: "Tesfaye"},
		TransactionRef: "txn_abc",
		ReturnURL:      "http://localhost/payment-success/?booking=b1",
		Title:          "Payment for Lakeside Villa",
		Description:    "Booking reference: b1",
	})
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}

	if gotAuth != "Bearer CHASECK_TEST-secretsecret" {
		t.Fatalf("missing bearer auth, got %q", gotAuth)
	}
	if gotBody.Amount != "450.00" {
		t.Fatalf("amount should be formatted with two decimals, got %q", gotBody.Amount)
	}
	if gotBody.TxRef != "txn_abc" || gotBody.Customization.Title != "Payment for Lakeside Villa" {
		t.Fatalf("request mapping wrong: %+v", gotBody)
	}
	if result.CheckoutURL != "https://checkout.chapa.co/pay/x" {
		t.Fatalf("unexpected checkout url: %s", result.CheckoutURL)
	}
	if result.TransactionRef != "txn_abc" {
		t.Fatalf("unexpected tx ref: %s", result.TransactionRef)
	}
	if len(result.RawResponse) == 0 {
		t.Fatal("raw response must be captured")
	}
}

func TestInitiate_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"Invalid API Key","status":"failed"}`))
	}))
	defer srv.Close()

	client := NewChapaClient(srv.URL, "bad-key")
	_, err := client.Initiate(context.Background(), output.InitiateRequest{TransactionRef: "txn_abc"})

	var gatewayErr *core.GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if gatewayErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status not carried: %d", gatewayErr.StatusCode)
	}
	if gatewayErr.Body == "" {
		t.Fatal("raw body not carried")
	}
}

func TestInitiate_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := NewChapaClient(srv.URL, "key")
	_, err := client.Initiate(context.Background(), output.InitiateRequest{TransactionRef: "txn_abc"})

	var gatewayErr *core.GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
	if gatewayErr.StatusCode != 0 {
		t.Fatalf("transport failures carry no status, got %d", gatewayErr.StatusCode)
	}
}

func TestInitiate_MissingCheckoutURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"message":"ok","status":"success","data":{}}`))
	}))
	defer srv.Close()

	client := NewChapaClient(srv.URL, "key")
	_, err := client.Initiate(context.Background(), output.InitiateRequest{TransactionRef: "txn_abc"})

	var gatewayErr *core.GatewayError
	if !errors.As(err, &gatewayErr) {
		t.Fatalf("expected GatewayError, got %v", err)
	}
}

func TestVerify_StatusMapping(t *testing.T) {
	cases := []struct {
		provider string
		want     core.VerifiedStatus
	}{
		{"success", core.VerifiedSuccess},
		{"successful", core.VerifiedSuccess},
		{"failed", core.VerifiedFailed},
		{"cancelled", core.VerifiedCancelled},
		{"canceled", core.VerifiedCancelled},
		{"pending", core.VerifiedPending},
		{"something-new", core.VerifiedPending},
		{"", core.VerifiedPending},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/transaction/verify/txn_abc" {
				t.Errorf("unexpected verify path: %s", r.URL.Path)
			}
			w.Write([]byte(`{"message":"ok","status":"success","data":{"status":"` + tc.provider + `"}}`))
		}))

		client := NewChapaClient(srv.URL, "key")
		result, err := client.Verify(context.Background(), "txn_abc")
		srv.Close()
		if err != nil {
			t.Fatalf("verify(%q): %v", tc.provider, err)
		}
		if result.Status != tc.want {
			t.Fatalf("verify(%q) = %s, want %s", tc.provider, result.Status, tc.want)
		}
	}
}

func TestMaskSecret(t *testing.T) {
	if got := maskSecret(""); got != "none" {
		t.Fatalf("empty key: %q", got)
	}
	if got := maskSecret("short"); got != "***" {
		t.Fatalf("short key must be fully masked: %q", got)
	}
	got := maskSecret("CHASECK_TEST-abcdefghijkl")
	if got != "CHASECK_...ijkl" {
		t.Fatalf("unexpected mask: %q", got)
	}
}
