// Package brevo wraps the Brevo (ex Sendinblue) REST API for the two
// operations the backend needs: managing marketing contacts and sending
// transactional email.
package brevo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type Contact struct {
	Email      string         `json:"email"`
	Attributes map[string]any `json:"attributes,omitempty"`
	ListIDs    []int64        `json:"listIds,omitempty"`
}

type contactCreated struct {
	ID int64 `json:"id"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error is returned for any non-2xx Brevo response.
type Error struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("brevo: status %d code %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsDuplicateContact reports whether the error means the email already
// exists in Brevo.
func IsDuplicateContact(err error) bool {
	apiErr, ok := err.(*Error)
	return ok && apiErr.Code == "duplicate_parameter"
}

// CreateContact registers a contact and returns its Brevo ID. When the
// contact already exists it falls back to an update and returns no ID.
func (c *Client) CreateContact(ctx context.Context, contact Contact) (*int64, error) {
	var created contactCreated
	err := c.call(ctx, http.MethodPost, "/contacts", contact, &created)
	if err == nil {
		return &created.ID, nil
	}

	if IsDuplicateContact(err) {
		c.logger.Info("brevo contact already exists, updating instead", "email", contact.Email)
		if updateErr := c.UpdateContact(ctx, contact); updateErr != nil {
			return nil, updateErr
		}
		return nil, nil
	}
	return nil, err
}

// UpdateContact merges attributes and list memberships into an existing
// contact, addressed by email.
func (c *Client) UpdateContact(ctx context.Context, contact Contact) error {
	body := struct {
		Attributes map[string]any `json:"attributes,omitempty"`
		ListIDs    []int64        `json:"listIds,omitempty"`
	}{
		Attributes: contact.Attributes,
		ListIDs:    contact.ListIDs,
	}
	return c.call(ctx, http.MethodPut, "/contacts/"+contact.Email, body, nil)
}

type EmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type Email struct {
	Sender      EmailAddress   `json:"sender"`
	To          []EmailAddress `json:"to"`
	ReplyTo     *EmailAddress  `json:"replyTo,omitempty"`
	Subject     string         `json:"subject"`
	HTMLContent string         `json:"htmlContent"`
}

type emailSent struct {
	MessageID string `json:"messageId"`
}

// SendEmail delivers a transactional email and returns the Brevo
// message ID.
func (c *Client) SendEmail(ctx context.Context, email Email) (string, error) {
	var sent emailSent
	if err := c.call(ctx, http.MethodPost, "/smtp/email", email, &sent); err != nil {
		return "", err
	}
	return sent.MessageID, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode brevo request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build brevo request: %w", err)
	}
	req.Header.Set("api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call brevo %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read brevo response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(respBody, &apiErr)
		return &Error{
			StatusCode: resp.StatusCode,
			Code:       apiErr.Code,
			Message:    apiErr.Message,
		}
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode brevo response: %w", err)
		}
	}
	return nil
}
