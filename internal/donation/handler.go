package donation

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/apehbe/charity-backend/internal"
	"github.com/apehbe/charity-backend/internal/transport"
)

type Handler struct {
	*transport.BaseHandler
	service *Service
	logger  *slog.Logger
}

func NewHandler(baseHandler *transport.BaseHandler, service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: baseHandler,
		service:     service,
		logger:      logger,
	}
}

// Initialize starts a donation on the gateway named in the URL and
// returns a checkout URL for the donor's browser.
func (h *Handler) Initialize(w http.ResponseWriter, r *http.Request) {
	gatewayName := chi.URLParam(r, "gateway")

	var req InitializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.HandleError(w, internal.NewValidationError("invalid request body", internal.ErrCodeValidationFailed))
		return
	}

	resp, err := h.service.Initialize(r.Context(), gatewayName, &req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, resp)
}

// Verify asks the gateway for the authoritative outcome of a
// transaction and reconciles the stored record with it. The reference
// arrives as query parameters on the redirect path and as a JSON body
// when the frontend re-checks explicitly.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	gatewayName := chi.URLParam(r, "gateway")

	var req VerifyRequest
	if r.Method == http.MethodPost && r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	if req.Reference == "" {
		req.Reference = r.URL.Query().Get("reference")
	}
	if req.TxRef == "" {
		req.TxRef = r.URL.Query().Get("tx_ref")
	}
	if req.TransactionID == "" {
		req.TransactionID = r.URL.Query().Get("transaction_id")
	}

	resp, err := h.service.Verify(r.Context(), gatewayName, &req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusBadRequest
	}
	h.WriteJSON(w, status, resp)
}

// GetByReference returns the stored transaction without contacting the
// gateway.
func (h *Handler) GetByReference(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")
	if reference == "" {
		h.HandleError(w, internal.NewValidationFieldError("reference", "reference is required", internal.ErrCodeMissingReference))
		return
	}

	tx, err := h.service.GetByReference(r.Context(), reference)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tx)
}

// ListByEmail returns a donor's past transactions, newest first. The
// limit query parameter is optional and capped service-side.
func (h *Handler) ListByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	limit, _ := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64)

	txns, err := h.service.ListByEmail(r.Context(), email, limit)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, DonorHistoryResponse{
		Transactions: txns,
		Count:        len(txns),
	})
}
