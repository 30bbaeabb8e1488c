package batcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout   = 5 * time.Second
	maxErrorBodySize = 4096
)

// ErrInvalidArgument indicates the API rejected the batch with validation errors.
var ErrInvalidArgument = errors.New("event batch invalid argument")

// ErrNotFound indicates the API could not locate the referenced session.
var ErrNotFound = errors.New("event batch session not found")

// HTTPSender delivers batches to the ingestion endpoint. Any 2xx response
// counts as full-batch success; there is no partial-ack protocol.
type HTTPSender struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSender creates a sender for the given API base URL.
func NewHTTPSender(baseURL string, client *http.Client) (*HTTPSender, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return nil, errors.New("event batch base url required")
	}
	trimmed = strings.TrimRight(trimmed, "/")
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	} else if client.Timeout == 0 {
		client.Timeout = defaultTimeout
	}
	return &HTTPSender{baseURL: trimmed, client: client}, nil
}

// Send posts one drained batch to POST /logs.
func (s *HTTPSender) Send(ctx context.Context, sessionID string, events []Event) error {
	payload := map[string]any{
		"sessionId": sessionID,
		"events":    events,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event batch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/logs", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build batch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("send event batch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return errorForStatus(resp)
	}
	return nil
}

func errorForStatus(resp *http.Response) error {
	limited := io.LimitReader(resp.Body, maxErrorBodySize)
	buf, _ := io.ReadAll(limited)
	summary := strings.TrimSpace(string(buf))
	if summary == "" {
		summary = resp.Status
	}
	switch resp.StatusCode {
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", ErrInvalidArgument, summary)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, summary)
	default:
		return fmt.Errorf("event batch request failed: %s", summary)
	}
}
