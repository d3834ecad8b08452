package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// ResendSender talks to the Resend transactional email API.
type ResendSender struct {
	client *resty.Client
	from   string
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html,omitempty"`
	Text    string   `json:"text,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

type resendError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func NewResendSender(baseURL, apiKey, from string) *ResendSender {
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() == 429 || r.StatusCode() >= 500
		})
	return &ResendSender{client: client, from: from}
}

func (s *ResendSender) Provider() string { return "resend" }

func (s *ResendSender) Send(ctx context.Context, msg Message) (string, error) {
	var ok resendResponse
	var failed resendError
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(resendRequest{
			From:    s.from,
			To:      []string{msg.To},
			Subject: msg.Subject,
			HTML:    msg.HTML,
			Text:    msg.Text,
		}).
		SetResult(&ok).
		SetError(&failed).
		Post("/emails")
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		if failed.Message != "" {
			return "", fmt.Errorf("status %d: %s", resp.StatusCode(), failed.Message)
		}
		return "", fmt.Errorf("status %d", resp.StatusCode())
	}
	return ok.ID, nil
}
