package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SemaphoreSender sends SMS through the Semaphore gateway.
type SemaphoreSender struct {
	apiKey     string
	senderName string
	baseURL    string
	client     *http.Client
}

// semaphoreRequest is the JSON body accepted by POST {base}/messages.
type semaphoreRequest struct {
	APIKey     string `json:"apikey"`
	Number     string `json:"number"`
	Message    string `json:"message"`
	SenderName string `json:"sendername,omitempty"`
}

func NewSemaphoreSender(apiKey, senderName, baseURL string) *SemaphoreSender {
	return &SemaphoreSender{
		apiKey:     apiKey,
		senderName: senderName,
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func (s *SemaphoreSender) WithHTTPClient(c *http.Client) *SemaphoreSender {
	s.client = c
	return s
}

func (s *SemaphoreSender) SendSMS(ctx context.Context, to, body string) error {
	if to == "" {
		return fmt.Errorf("recipient number is required")
	}
	if body == "" {
		return fmt.Errorf("message is required")
	}

	payload, err := json.Marshal(semaphoreRequest{
		APIKey:     s.apiKey,
		Number:     to,
		Message:    body,
		SenderName: s.senderName,
	})
	if err != nil {
		return fmt.Errorf("encode semaphore request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build semaphore request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("semaphore request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("semaphore returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}
