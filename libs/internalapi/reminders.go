// Package internalapi holds clients for service-to-service endpoints that are
// not exposed through the gateway.
package internalapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const RemindersRunPath = "/internal/reminders/run"

var ErrUnauthorized = errors.New("reminder trigger token rejected")

type ItemResult struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
	Error         string `json:"error,omitempty"`
}

// SweepResult mirrors the body booking-service returns for a reminder run.
type SweepResult struct {
	Message    string       `json:"message"`
	Total      int          `json:"total"`
	Successful int          `json:"successful"`
	Failed     int          `json:"failed"`
	Skipped    int          `json:"skipped"`
	Results    []ItemResult `json:"results,omitempty"`
}

type RemindersClient struct {
	client *resty.Client
}

// NewRemindersClient targets booking-service at baseURL. The sweep itself is
// not retried: a second run would only find the already reminded rows marked.
func NewRemindersClient(baseURL, token string, timeout time.Duration) *RemindersClient {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetAuthToken(token).
		SetTimeout(timeout)
	return &RemindersClient{client: client}
}

func (c *RemindersClient) Run(ctx context.Context) (SweepResult, error) {
	var out SweepResult
	resp, err := c.client.R().
		SetContext(ctx).
		SetResult(&out).
		Post(RemindersRunPath)
	if err != nil {
		return SweepResult{}, err
	}
	switch {
	case resp.StatusCode() == 401:
		return SweepResult{}, ErrUnauthorized
	case resp.IsError():
		return SweepResult{}, fmt.Errorf("reminder run failed: status %d: %s", resp.StatusCode(), resp.String())
	}
	return out, nil
}
