package payments

import (
	"bytes"
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	config "ec-payment/configs"
)

const defaultMidtransBaseURL = "https://app.sandbox.midtrans.com"

var (
	// ErrGatewayUnavailable covers transport failures and 5xx responses that
	// survived the retry budget.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	// ErrGatewayRejected covers 4xx responses: the gateway understood the
	// request and refused it, so retrying the same attempt is pointless.
	ErrGatewayRejected = errors.New("payment gateway rejected the request")
	// ErrGatewayTimeout means the outcome is unknown: the gateway may have
	// committed the transaction even though we never saw the response.
	ErrGatewayTimeout = errors.New("payment gateway timed out, outcome unknown")
	// ErrTransactionNotFound is returned by status queries for order ids the
	// gateway has no transaction for.
	ErrTransactionNotFound = errors.New("transaction not found at gateway")
)

type snapTransactionRequest struct {
	TransactionDetails struct {
		OrderID     string `json:"order_id"`
		GrossAmount int64  `json:"gross_amount"`
	} `json:"transaction_details"`
	CustomerDetails Customer `json:"customer_details"`
}

type snapTransactionResponse struct {
	Token         string   `json:"token"`
	RedirectURL   string   `json:"redirect_url"`
	ErrorMessages []string `json:"error_messages"`
}

type transactionStatusResponse struct {
	StatusCode        string `json:"status_code"`
	StatusMessage     string `json:"status_message"`
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	PaymentType       string `json:"payment_type"`
	FraudStatus       string `json:"fraud_status"`
	GrossAmount       string `json:"gross_amount"`
	Currency          string `json:"currency"`
	SignatureKey      string `json:"signature_key"`
}

// MidtransService talks to the Midtrans Snap and Core APIs. It owns the
// retry and timeout policy for gateway calls; callers only see the sentinel
// errors above, never raw transport errors.
type MidtransService struct {
	baseURL     string
	serverKey   string
	client      *http.Client
	maxAttempts int
}

func NewMidtransService(serverKey string) *MidtransService {
	timeout := time.Duration(config.ConfigInt("MIDTRANS_TIMEOUT_MS", 10_000)) * time.Millisecond

	return &MidtransService{
		baseURL:     config.ConfigOr("MIDTRANS_BASE_URL", defaultMidtransBaseURL),
		serverKey:   serverKey,
		client:      &http.Client{Timeout: timeout},
		maxAttempts: config.ConfigInt("MIDTRANS_MAX_ATTEMPTS", 3),
	}
}

func (s *MidtransService) CreateTransaction(ctx context.Context, req CreateTransactionRequest) (*CreateTransactionResponse, error) {
	var payload snapTransactionRequest
	payload.TransactionDetails.OrderID = req.OrderID
	payload.TransactionDetails.GrossAmount = req.Amount
	payload.CustomerDetails = req.Customer

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snap payload: %w", err)
	}

	log.Printf("Creating Midtrans transaction for order_id: %s, amount: %d %s", req.OrderID, req.Amount, req.Currency)

	respBody, err := s.do(ctx, http.MethodPost, s.baseURL+"/snap/v1/transactions", body)
	if err != nil {
		return nil, err
	}

	var snapResp snapTransactionResponse
	if err := json.Unmarshal(respBody, &snapResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snap response: %w", err)
	}
	if snapResp.Token == "" {
		return nil, fmt.Errorf("%w: %s", ErrGatewayRejected, strings.Join(snapResp.ErrorMessages, "; "))
	}

	log.Printf("Midtrans transaction created successfully for order_id: %s", req.OrderID)

	return &CreateTransactionResponse{
		Token:       snapResp.Token,
		RedirectURL: snapResp.RedirectURL,
	}, nil
}

func (s *MidtransService) QueryStatus(ctx context.Context, orderID string) (*TransactionStatus, error) {
	log.Printf("Querying Midtrans transaction status for order_id: %s", orderID)

	respBody, err := s.do(ctx, http.MethodGet, fmt.Sprintf("%s/v2/%s/status", s.baseURL, orderID), nil)
	if err != nil {
		return nil, err
	}

	var statusResp transactionStatusResponse
	if err := json.Unmarshal(respBody, &statusResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal status response: %w", err)
	}

	// The Core API reports 404 inside the body as status_code.
	if statusResp.StatusCode == "404" {
		return nil, fmt.Errorf("%w: order_id %s", ErrTransactionNotFound, orderID)
	}

	return &TransactionStatus{
		OrderID:           statusResp.OrderID,
		TransactionID:     statusResp.TransactionID,
		TransactionStatus: statusResp.TransactionStatus,
		PaymentType:       statusResp.PaymentType,
		FraudStatus:       statusResp.FraudStatus,
		StatusCode:        statusResp.StatusCode,
		GrossAmount:       statusResp.GrossAmount,
	}, nil
}

// do issues the request, retrying transport errors and 5xx responses with a
// linear backoff. 4xx responses are permanent for this attempt and returned
// immediately.
func (s *MidtransService) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrGatewayTimeout, ctx.Err())
			case <-time.After(time.Duration(attempt-1) * 500 * time.Millisecond):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create gateway request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.SetBasicAuth(s.serverKey, "")

		resp, err := s.client.Do(req)
		if err != nil {
			if isTimeout(err) {
				return nil, fmt.Errorf("%w: %v", ErrGatewayTimeout, err)
			}
			lastErr = err
			log.Printf("Gateway request failed (attempt %d/%d): %v", attempt, s.maxAttempts, err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		switch {
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("gateway returned status %d", resp.StatusCode)
			log.Printf("Gateway 5xx (attempt %d/%d): %s", attempt, s.maxAttempts, string(respBody))
			continue
		case resp.StatusCode == http.StatusNotFound:
			return nil, fmt.Errorf("%w: %s", ErrTransactionNotFound, string(respBody))
		case resp.StatusCode >= 400:
			return nil, fmt.Errorf("%w: status %d: %s", ErrGatewayRejected, resp.StatusCode, string(respBody))
		}

		return respBody, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, lastErr)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// VerifySignature checks the sha512(order_id + status_code + gross_amount +
// server_key) signature Midtrans attaches to every notification.
func VerifySignature(serverKey, orderID, statusCode, grossAmount, signature string) bool {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
