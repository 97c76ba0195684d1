package donation

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	errors "github.com/apehbe/charity-backend/internal"
	"github.com/apehbe/charity-backend/internal/gateway"
	"github.com/apehbe/charity-backend/internal/transport"
)

const (
	paystackSignatureHeader    = "x-paystack-signature"
	flutterwaveSignatureHeader = "verif-hash"
)

// WebhookHandler receives asynchronous payment notifications. Once a
// request is authenticated it always gets a 200 with {received:true},
// whether or not the event changed state, so gateways do not enter
// retry storms over events we chose to ignore.
type WebhookHandler struct {
	*transport.BaseHandler
	authenticator *WebhookAuthenticator
	reconciler    *Reconciler
	logger        *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, authenticator *WebhookAuthenticator, reconciler *Reconciler, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:   baseHandler,
		authenticator: authenticator,
		reconciler:    reconciler,
		logger:        logger,
	}
}

type webhookAck struct {
	Received bool `json:"received"`
}

type flutterwaveWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		TxRef  string `json:"tx_ref"`
		Status string `json:"status"`
	} `json:"data"`
}

// HandleFlutterwave processes charge.completed notifications. Other
// event types are acknowledged and ignored.
func (h *WebhookHandler) HandleFlutterwave(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	if !h.authenticator.VerifyFlutterwave(r.Header.Get(flutterwaveSignatureHeader)) {
		h.logger.Warn("rejected flutterwave webhook with invalid signature",
			"remote_addr", r.RemoteAddr)
		h.HandleError(w, errors.ErrInvalidSignature)
		return
	}

	var payload flutterwaveWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		h.logger.Warn("malformed flutterwave webhook body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if payload.Event == "charge.completed" {
		h.applyEvent(r, Event{
			Reference:      payload.Data.TxRef,
			Outcome:        gateway.MapFlutterwaveStatus(payload.Data.Status),
			ExternalStatus: payload.Data.Status,
			RawPayload:     decodeEnvelope(rawBody),
			Source:         SourceWebhook,
		})
	} else {
		h.logger.Info("ignoring flutterwave webhook event", "event", payload.Event)
	}

	h.WriteJSON(w, http.StatusOK, webhookAck{Received: true})
}

type paystackWebhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}

// HandlePaystack processes charge.success and charge.failed
// notifications. The signature is computed over the exact raw body, so
// the body is read before any decoding.
func (h *WebhookHandler) HandlePaystack(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	if !h.authenticator.VerifyPaystack(rawBody, r.Header.Get(paystackSignatureHeader)) {
		h.logger.Warn("rejected paystack webhook with invalid signature",
			"remote_addr", r.RemoteAddr)
		h.HandleError(w, errors.ErrInvalidSignature)
		return
	}

	var payload paystackWebhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		h.logger.Warn("malformed paystack webhook body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	switch payload.Event {
	case "charge.success":
		h.applyEvent(r, Event{
			Reference:      payload.Data.Reference,
			Outcome:        gateway.OutcomeSuccess,
			ExternalStatus: payload.Data.Status,
			RawPayload:     decodeEnvelope(rawBody),
			Source:         SourceWebhook,
		})
	case "charge.failed":
		h.applyEvent(r, Event{
			Reference:      payload.Data.Reference,
			Outcome:        gateway.OutcomeFailure,
			ExternalStatus: payload.Data.Status,
			RawPayload:     decodeEnvelope(rawBody),
			Source:         SourceWebhook,
		})
	default:
		h.logger.Info("ignoring paystack webhook event", "event", payload.Event)
	}

	h.WriteJSON(w, http.StatusOK, webhookAck{Received: true})
}

func (h *WebhookHandler) applyEvent(r *http.Request, ev Event) {
	if err := h.reconciler.Apply(r.Context(), ev); err != nil {
		// Still acknowledged: the gateway's truth is recorded in the
		// logs and the inconsistency is for an operator to resolve.
		h.logger.Error("CRITICAL: webhook reconciliation could not be persisted",
			"reference", ev.Reference,
			"external_status", ev.ExternalStatus,
			"error", err)
	}
}

// decodeEnvelope keeps the data object of the webhook body for the
// transaction's audit payload.
func decodeEnvelope(rawBody []byte) map[string]any {
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	if err := json.Unmarshal(rawBody, &envelope); err != nil {
		return nil
	}
	return envelope.Data
}
