package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Transport delivers a batch and returns one receipt per message, in order.
type Transport interface {
	Send(ctx context.Context, batchID string, pushes []Push) ([]Receipt, error)
}

// ExpoTransport posts batches to an Expo-compatible push endpoint.
type ExpoTransport struct {
	Endpoint    string
	AccessToken string
	Client      *http.Client
}

// NewExpoTransport creates a transport with its own HTTP client.
func NewExpoTransport(endpoint, accessToken string, timeout time.Duration) *ExpoTransport {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ExpoTransport{
		Endpoint:    endpoint,
		AccessToken: accessToken,
		Client:      &http.Client{Timeout: timeout},
	}
}

type expoTicket struct {
	Status  string `json:"status"`
	ID      string `json:"id"`
	Message string `json:"message"`
	Details struct {
		Error string `json:"error"`
	} `json:"details"`
}

type expoResponse struct {
	Data   []expoTicket `json:"data"`
	Errors []struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
}

// Send implements Transport.
func (t *ExpoTransport) Send(ctx context.Context, batchID string, pushes []Push) ([]Receipt, error) {
	body, err := json.Marshal(pushes)
	if err != nil {
		return nil, fmt.Errorf("%w: encode batch %s: %v", ErrTransport, batchID, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Batch-ID", batchID)
	if t.AccessToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.AccessToken)
	}

	resp, err := t.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: post batch %s: %v", ErrTransport, batchID, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: batch %s returned status %d", ErrTransport, batchID, resp.StatusCode)
	}

	var parsed expoResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrTransport, err)
	}
	if len(parsed.Errors) > 0 {
		return nil, fmt.Errorf("%w: %s: %s", ErrTransport, parsed.Errors[0].Code, parsed.Errors[0].Message)
	}

	receipts := make([]Receipt, len(pushes))
	for i, p := range pushes {
		receipts[i] = Receipt{Token: p.To, Status: ReceiptOK}
		if i >= len(parsed.Data) {
			continue
		}
		ticket := parsed.Data[i]
		receipts[i].Status = ticket.Status
		if ticket.Status == ReceiptError {
			receipts[i].Error = ticket.Details.Error
			if receipts[i].Error == "" {
				receipts[i].Error = ticket.Message
			}
		}
	}
	return receipts, nil
}
