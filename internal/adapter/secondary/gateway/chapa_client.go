package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stayflow/booking-payments/internal/core"
	"github.com/stayflow/booking-payments/internal/port/output"
)

const requestTimeout = 30 * time.Second

// ChapaClient is a secondary adapter that implements the PaymentGateway
// output port against the Chapa HTTP API. It owns request/response
// mapping and translates every transport or HTTP failure into
// *core.GatewayError.
type ChapaClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// NewChapaClient creates a Chapa gateway client. The secret key is read
// once here and only ever logged masked.
func NewChapaClient(baseURL, secretKey string) *ChapaClient {
	log.Printf("chapa client initialized base_url=%s secret_key=%s", baseURL, maskSecret(secretKey))
	return &ChapaClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

// maskSecret keeps the first 8 and last 4 characters of the key
func maskSecret(key string) string {
	if key == "" {
		return "none"
	}
	if len(key) <= 12 {
		return "***"
	}
	return key[:8] + "..." + key[len(key)-4:]
}

type initiateRequest struct {
	Amount        string        `json:"amount"`
	Currency      string        `json:"currency"`
	Email         string        `json:"email"`
	FirstName     string        `json:"first_name"`
	LastName      string        `json:"last_name"`
	TxRef         string        `json:"tx_ref"`
	ReturnURL     string        `json:"return_url"`
	Customization customization `json:"customization"`
}

type customization struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type initiateResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Data    struct {
		CheckoutURL string `json:"checkout_url"`
		TxRef       string `json:"tx_ref"`
		Status      string `json:"status"`
	} `json:"data"`
}

type verifyResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Data    struct {
		Status string `json:"status"`
	} `json:"data"`
}

// Initiate opens a hosted checkout session for the payer
func (c *ChapaClient) Initiate(ctx context.Context, req output.InitiateRequest) (*output.InitiateResult, error) {
	payload := initiateRequest{
		Amount:    strconv.FormatFloat(req.Amount, 'f', 2, 64),
		Currency:  string(req.Currency),
		Email:     req.Payer.Email,
		FirstName: req.Payer.FirstName,
		LastName:  req.Payer.LastName,
		TxRef:     req.TransactionRef,
		ReturnURL: req.ReturnURL,
		Customization: customization{
			Title:       req.Title,
			Description: req.Description,
		},
	}

	log.Printf("initiating chapa payment tx_ref=%s amount=%s currency=%s", req.TransactionRef, payload.Amount, payload.Currency)

	raw, err := c.post(ctx, c.baseURL+"/transaction/initialize", payload)
	if err != nil {
		log.Printf("chapa initiation failed tx_ref=%s err=%v", req.TransactionRef, err)
		return nil, err
	}

	var resp initiateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &core.GatewayError{Body: string(raw), Err: fmt.Errorf("failed to decode initiation response: %w", err)}
	}
	if resp.Data.CheckoutURL == "" {
		return nil, &core.GatewayError{StatusCode: http.StatusOK, Body: string(raw), Err: fmt.Errorf("initiation response missing checkout_url")}
	}

	log.Printf("chapa payment initiated tx_ref=%s checkout_url=%s", resp.Data.TxRef, resp.Data.CheckoutURL)

	return &output.InitiateResult{
		CheckoutURL:    resp.Data.CheckoutURL,
		TransactionRef: resp.Data.TxRef,
		RawResponse:    raw,
	}, nil
}

// Verify looks up a transaction's outcome and maps Chapa's status
// vocabulary onto the canonical four values.
func (c *ChapaClient) Verify(ctx context.Context, transactionRef string) (*output.VerifyResult, error) {
	url := fmt.Sprintf("%s/transaction/verify/%s", c.baseURL, transactionRef)

	raw, err := c.get(ctx, url)
	if err != nil {
		log.Printf("chapa verification failed tx_ref=%s err=%v", transactionRef, err)
		return nil, err
	}

	var resp verifyResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &core.GatewayError{Body: string(raw), Err: fmt.Errorf("failed to decode verification response: %w", err)}
	}

	status := mapVerifiedStatus(resp.Data.Status)
	log.Printf("chapa verification result tx_ref=%s provider_status=%q status=%s", transactionRef, resp.Data.Status, status)

	return &output.VerifyResult{
		Status:      status,
		RawResponse: raw,
	}, nil
}

// mapVerifiedStatus folds provider-specific vocabulary into the four
// canonical values. Anything unrecognized is treated as pending so the
// provider's redelivery can settle it later.
func mapVerifiedStatus(providerStatus string) core.VerifiedStatus {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "success", "successful":
		return core.VerifiedSuccess
	case "failed", "failure":
		return core.VerifiedFailed
	case "cancelled", "canceled":
		return core.VerifiedCancelled
	default:
		return core.VerifiedPending
	}
}

func (c *ChapaClient) post(ctx context.Context, url string, payload interface{}) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &core.GatewayError{Err: fmt.Errorf("failed to marshal request: %w", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &core.GatewayError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *ChapaClient) get(ctx context.Context, url string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &core.GatewayError{Err: err}
	}
	return c.do(req)
}

func (c *ChapaClient) do(req *http.Request) (json.RawMessage, error) {
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &core.GatewayError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.GatewayError{StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.GatewayError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}
