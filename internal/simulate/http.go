package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// outcome classifies one submission by the service's response.
type outcome string

const (
	outcomeAccepted      outcome = "accepted"
	outcomeSuppressed    outcome = "suppressed"
	outcomeLowConfidence outcome = "low_confidence"
	outcomeBackpressure  outcome = "backpressure"
	outcomeFailed        outcome = "failed"
)

type client struct {
	http    *http.Client
	baseURL string
}

func newClient(baseURL string, timeout time.Duration) *client {
	return &client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// submit posts one recognition and classifies the response.
func (c *client) submit(ctx context.Context, s sighting) outcome {
	body, err := json.Marshal(s)
	if err != nil {
		return outcomeFailed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/events", bytes.NewReader(body))
	if err != nil {
		return outcomeFailed
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return outcomeFailed
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return outcomeAccepted
	case http.StatusOK:
		return outcomeSuppressed
	case http.StatusUnprocessableEntity:
		return outcomeLowConfidence
	case http.StatusTooManyRequests:
		return outcomeBackpressure
	default:
		return outcomeFailed
	}
}

// todayAttendance fetches the day's attendance count for verification.
func (c *client) todayAttendance(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/attendance/today", http.NoBody)
	if err != nil {
		return 0, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("attendance query: unexpected status %d", resp.StatusCode)
	}

	var out struct {
		Count int `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}
	return out.Count, nil
}
