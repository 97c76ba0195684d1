package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/apehbe/charity-backend/internal/core/datamodel/transaction"
)

type FlutterwaveConfig struct {
	BaseURL     string
	SecretKey   string
	FrontendURL string
	Timeout     time.Duration
}

// Flutterwave charges in major currency units and returns a hosted
// payment link. Verification accepts the merchant reference or the
// gateway-assigned transaction id.
type Flutterwave struct {
	baseURL     string
	secretKey   string
	frontendURL string
	client      *http.Client
	logger      *slog.Logger
}

func NewFlutterwave(cfg FlutterwaveConfig, logger *slog.Logger) *Flutterwave {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Flutterwave{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		secretKey:   cfg.SecretKey,
		frontendURL: strings.TrimRight(cfg.FrontendURL, "/"),
		client:      &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

func (f *Flutterwave) Name() transaction.GatewayName {
	return transaction.GatewayFlutterwave
}

type flutterwaveEnvelope struct {
	Status  string         `json:"status"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data"`
}

func (f *Flutterwave) Initialize(ctx context.Context, reference string, req InitializeRequest) (*InitializeResult, error) {
	country := req.Donor.Country
	if country == "" {
		country = "Nigeria"
	}

	payload := map[string]any{
		"tx_ref":          reference,
		"amount":          req.Amount,
		"currency":        strings.ToUpper(req.Currency),
		"payment_options": "card,account,ussd,mobilemoney,banktransfer",
		"redirect_url":    fmt.Sprintf("%s/donate.html?status=flutterwave&tx_ref=%s", f.frontendURL, reference),
		"customer": map[string]any{
			"email":        req.Email,
			"name":         req.Donor.Name,
			"phone_number": req.Donor.Phone,
		},
		"customizations": map[string]any{
			"title":       "APEH-BE-CHARITY Donation",
			"description": fmt.Sprintf("Donation for %s", req.Project),
			"logo":        f.frontendURL + "/logo.png",
		},
		"meta": map[string]any{
			"project":       req.Project,
			"donor_country": country,
		},
	}

	env, err := f.call(ctx, http.MethodPost, f.baseURL+"/payments", payload)
	if err != nil {
		return nil, err
	}

	link, _ := env.Data["link"].(string)
	if env.Status != "success" || link == "" {
		return nil, &Error{
			Gateway:    transaction.GatewayFlutterwave,
			StatusCode: http.StatusOK,
			Message:    nonEmpty(env.Message, "payment initialization was not accepted"),
		}
	}

	f.logger.Info("flutterwave payment initialized", "reference", reference, "project", req.Project)

	return &InitializeResult{
		Reference:  reference,
		PaymentURL: link,
		Metadata: map[string]any{
			"flutterwave_tx_ref": reference,
			"payment_url":        link,
		},
	}, nil
}

func (f *Flutterwave) Verify(ctx context.Context, q VerifyQuery) (*VerifyResult, error) {
	var endpoint string
	switch {
	case q.Reference != "":
		endpoint = fmt.Sprintf("%s/transactions/verify_by_reference?tx_ref=%s", f.baseURL, url.QueryEscape(q.Reference))
	case q.TransactionID != "":
		endpoint = fmt.Sprintf("%s/transactions/%s/verify", f.baseURL, url.PathEscape(q.TransactionID))
	default:
		return nil, &Error{Gateway: transaction.GatewayFlutterwave, Message: "reference or transaction id required"}
	}

	env, err := f.call(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	externalStatus, _ := env.Data["status"].(string)
	reference, _ := env.Data["tx_ref"].(string)
	if reference == "" {
		reference = q.Reference
	}

	outcome := OutcomeIndeterminate
	if env.Status == "success" {
		outcome = mapFlutterwaveStatus(externalStatus)
	}

	return &VerifyResult{
		Outcome:        outcome,
		ExternalStatus: externalStatus,
		Reference:      reference,
		RawPayload:     env.Data,
	}, nil
}

// MapWebhookStatus classifies the data.status of a charge.completed
// webhook the same way a verify response is classified.
func MapFlutterwaveStatus(externalStatus string) Outcome {
	return mapFlutterwaveStatus(externalStatus)
}

func mapFlutterwaveStatus(externalStatus string) Outcome {
	switch strings.ToLower(externalStatus) {
	case "successful":
		return OutcomeSuccess
	case "pending", "":
		return OutcomeIndeterminate
	default:
		return OutcomeFailure
	}
}

func (f *Flutterwave) call(ctx context.Context, method, endpoint string, payload any) (*flutterwaveEnvelope, error) {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, &Error{Gateway: transaction.GatewayFlutterwave, Message: "failed to encode request", Err: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, &Error{Gateway: transaction.GatewayFlutterwave, Message: "failed to create request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+f.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{Gateway: transaction.GatewayFlutterwave, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Gateway: transaction.GatewayFlutterwave, Message: "failed to read response", Err: err}
	}

	var env flutterwaveEnvelope
	if err := json.Unmarshal(respBody, &env); err != nil && resp.StatusCode < http.StatusMultipleChoices {
		return nil, &Error{Gateway: transaction.GatewayFlutterwave, StatusCode: resp.StatusCode, Message: "failed to decode response", Err: err}
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		f.logger.Error("flutterwave API error", "status", resp.StatusCode, "message", env.Message)
		return nil, &Error{
			Gateway:    transaction.GatewayFlutterwave,
			StatusCode: resp.StatusCode,
			Message:    nonEmpty(env.Message, string(respBody)),
		}
	}

	return &env, nil
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
