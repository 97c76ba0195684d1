package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apehbe/charity-backend/internal/core/datamodel/transaction"
)

type PaystackConfig struct {
	BaseURL     string
	SecretKey   string
	FrontendURL string
	Timeout     time.Duration
}

// Paystack wants amounts in the minor unit (kobo for NGN) and
// verifies by merchant reference only.
type Paystack struct {
	baseURL     string
	secretKey   string
	frontendURL string
	client      *http.Client
	logger      *slog.Logger
}

func NewPaystack(cfg PaystackConfig, logger *slog.Logger) *Paystack {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Paystack{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:   cfg.SecretKey,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

func (p *Paystack) Name() transaction.GatewayName {
	return transaction.GatewayPaystack
}

type paystackEnvelope struct {
	Status  bool           `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

// MinorUnits converts a major-unit amount to the smallest currency
// unit, rounding to avoid float drift on amounts like 19.99.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func (p *Paystack) Initialize(ctx context.Context, reference string, req InitializeRequest) (*InitializeResult, error) {
	country := req.Donor.Country
	if country == "" {
		country = "Nigeria"
	}

	payload := map[string]any{
		"email":     req.Email,
		"amount":    MinorUnits(req.Amount),
		"currency":  strings.ToUpper(req.Currency),
		"reference": reference,
		"metadata": map[string]any{
			"project":       req.Project,
			"donor_country": country,
			"custom_fields": []map[string]any{
				{"display_name": "Project", "variable_name": "project", "value": req.Project},
				{"display_name": "Donor Name", "variable_name": "donor_name", "value": req.Donor.Name},
			},
		},
		"callback_url": fmt.Sprintf("%s/donate.html?status=paystack&ref=%s", p.frontendURL, reference),
	}

	env, err := p.call(ctx, http.MethodPost, p.baseURL+"/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}

	authorizationURL, _ := env.Data["authorization_url"].(string)
	if !env.Status || authorizationURL == "" {
		return nil, &Error{
			Gateway:    transaction.GatewayPaystack,
			StatusCode: http.StatusOK,
			Message:    nonEmpty(env.Message, "payment initialization was not accepted"),
		}
	}

	p.logger.Info("paystack payment initialized", "reference", reference, "project", req.Project)

	return &InitializeResult{
		Reference:  reference,
		PaymentURL: authorizationURL,
		Metadata: map[string]any{
			"paystack_reference": reference,
			"authorization_url":  authorizationURL,
		},
	}, nil
}

func (p *Paystack) Verify(ctx context.Context, q VerifyQuery) (*VerifyResult, error) {
	if q.Reference == "" {
		return nil, &Error{Gateway: transaction.GatewayPaystack, Message: "transaction reference is required"}
	}

	endpoint := p.baseURL + "/transaction/verify/" + url.PathEscape(q.Reference)
	env, err := p.call(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	externalStatus, _ := env.Data["status"].(string)

	outcome := OutcomeIndeterminate
	if env.Status {
		outcome = mapPaystackStatus(externalStatus)
	}

	return &VerifyResult{
		Outcome:        outcome,
		ExternalStatus: externalStatus,
		Reference:      q.Reference,
		RawPayload:     env.Data,
	}, nil
}

func MapPaystackStatus(externalStatus string) Outcome {
	return mapPaystackStatus(externalStatus)
}

func mapPaystackStatus(externalStatus string) Outcome {
	switch strings.ToLower(externalStatus) {
	case "success":
		return OutcomeSuccess
	case "pending", "ongoing", "processing", "queued", "":
		return OutcomeIndeterminate
	default:
		return OutcomeFailure
	}
}

func (p *Paystack) call(ctx context.Context, method, endpoint string, payload any) (*paystackEnvelope, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Gateway: transaction.GatewayPaystack, Message: "failed to encode request", Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, &Error{Gateway: transaction.GatewayPaystack, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, &Error{Gateway: transaction.GatewayPaystack, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Gateway: transaction.GatewayPaystack, Message: "failed to read response", Err: err}
	}

	var env paystackEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil && resp.StatusCode < http.StatusMultipleChoices {
		return nil, &Error{Gateway: transaction.GatewayPaystack, StatusCode: resp.StatusCode, Message: "failed to decode response", Err: err}
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		p.logger.Error("paystack API error", "status", resp.StatusCode, "message", env.Message)
		return nil, &Error{
			Gateway:    transaction.GatewayPaystack,
			StatusCode: resp.StatusCode,
			Message:    nonEmpty(env.Message, string(respBody)),
		}
	}

	return &env, nil
}
