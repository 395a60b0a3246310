// Package payment holds the client for the Khalti payment gateway, which
// confirms a payment token server-side before an order is marked paid.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"
)

var ErrVerificationFailed = errors.New("payment verification failed")

type VerificationResult struct {
	IDX    string `json:"idx"`
	Amount int64  `json:"amount"`
}

type Verifier interface {
	Verify(ctx context.Context, token string, amount float64) (*VerificationResult, error)
}

type KhaltiClient struct {
	gatewayURL string
	secretKey  string
	httpClient *http.Client
}

// NewKhaltiClient builds a gateway client. The timeout bounds the whole
// verification call so a slow gateway cannot hang a checkout request.
func NewKhaltiClient(gatewayURL, secretKey string, timeout time.Duration) *KhaltiClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KhaltiClient{
		gatewayURL: gatewayURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type verifyRequest struct {
	Token string `json:"token"`
	// Khalti expects the amount in paisa (1 Rs = 100 paisa).
	Amount int64 `json:"amount"`
}

type verifyErrorResponse struct {
	ErrorKey string `json:"error_key"`
}

func (c *KhaltiClient) Verify(ctx context.Context, token string, amount float64) (*VerificationResult, error) {
	body, err := json.Marshal(verifyRequest{
		Token:  token,
		Amount: int64(math.Round(amount * 100)),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode request: %v", ErrVerificationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.gatewayURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to build request: %v", ErrVerificationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Key "+c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrVerificationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var gatewayErr verifyErrorResponse
		if decodeErr := json.NewDecoder(resp.Body).Decode(&gatewayErr); decodeErr == nil && gatewayErr.ErrorKey != "" {
			return nil, fmt.Errorf("%w: %s", ErrVerificationFailed, gatewayErr.ErrorKey)
		}
		return nil, fmt.Errorf("%w: gateway returned status %d", ErrVerificationFailed, resp.StatusCode)
	}

	var result VerificationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode gateway response: %v", ErrVerificationFailed, err)
	}

	return &result, nil
}
