package donation

import (
	"context"
	stderrors "errors"
	"log/slog"

	errors "github.com/apehbe/charity-backend/internal"
	"github.com/apehbe/charity-backend/internal/core/common/validation"
	"github.com/apehbe/charity-backend/internal/core/datamodel/transaction"
	"github.com/apehbe/charity-backend/internal/gateway"
)

const defaultCurrency = "NGN"

// Service drives the donation lifecycle: initialization against a
// gateway, and verification feeding the reconciler. Gateways are
// injected at construction; there is no ambient client state.
type Service struct {
	gateways   map[transaction.GatewayName]gateway.Gateway
	store      TransactionStore
	reconciler *Reconciler
	logger     *slog.Logger

	// newReference is swappable in tests.
	newReference func() string
}

func NewService(store TransactionStore, reconciler *Reconciler, logger *slog.Logger, gateways ...gateway.Gateway) *Service {
	byName := make(map[transaction.GatewayName]gateway.Gateway, len(gateways))
	for _, gw := range gateways {
		byName[gw.Name()] = gw
	}
	return &Service{
		gateways:     byName,
		store:        store,
		reconciler:   reconciler,
		logger:       logger,
		newReference: NewReference,
	}
}

func (s *Service) gateway(name string) (gateway.Gateway, error) {
	parsed, ok := transaction.ParseGatewayName(name)
	if !ok {
		return nil, errors.NewValidationError("unknown payment gateway: "+name, errors.ErrCodeValidationFailed)
	}
	gw, ok := s.gateways[parsed]
	if !ok {
		return nil, errors.NewValidationError("payment gateway not configured: "+name, errors.ErrCodeValidationFailed)
	}
	return gw, nil
}

// Initialize opens a hosted payment page and persists a pending
// transaction. A gateway failure or timeout prevents record creation.
// On the rare reference collision the whole initialization is retried
// once with a fresh reference.
func (s *Service) Initialize(ctx context.Context, gatewayName string, req *InitializeRequest) (*InitializeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	gw, err := s.gateway(gatewayName)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = defaultCurrency
	}

	initReq := gateway.InitializeRequest{
		Amount:   req.Amount,
		Currency: currency,
		Email:    req.Email,
		Project:  req.Project,
		Donor:    req.donor(),
	}

	const maxAttempts = 2
	for attempt := 1; ; attempt++ {
		reference := s.newReference()

		result, err := gw.Initialize(ctx, reference, initReq)
		if err != nil {
			s.logger.Error("payment initialization failed",
				"gateway", gw.Name(),
				"reference", reference,
				"error", err)
			return nil, mapGatewayError(err)
		}

		txn := transaction.New(reference, gw.Name(), req.Amount, currency, req.Project, initReq.Donor)
		txn.GatewayMetadata = result.Metadata

		if err := s.store.Create(ctx, txn); err != nil {
			if appErr, ok := errors.IsAppError(err); ok && appErr.Code == errors.ErrCodeDuplicateReference && attempt < maxAttempts {
				s.logger.Warn("reference collision on create, regenerating",
					"gateway", gw.Name(),
					"reference", reference)
				continue
			}
			s.logger.Error("failed to persist transaction after gateway accepted it",
				"gateway", gw.Name(),
				"reference", reference,
				"error", err)
			return nil, err
		}

		s.logger.Info("donation initialized",
			"gateway", gw.Name(),
			"reference", reference,
			"amount", req.Amount,
			"currency", txn.Currency,
			"project", req.Project)

		return &InitializeResponse{
			Success:    true,
			PaymentURL: result.PaymentURL,
			Reference:  reference,
			Message:    "Payment initialized successfully",
		}, nil
	}
}

// Verify asks the gateway for the live payment state and runs one
// reconciliation cycle. The donor-facing outcome is decided by the
// gateway alone: a persistence failure after a confirmed result is
// logged as a critical inconsistency but never reported as a payment
// failure.
func (s *Service) Verify(ctx context.Context, gatewayName string, req *VerifyRequest) (*VerifyResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	gw, err := s.gateway(gatewayName)
	if err != nil {
		return nil, err
	}

	result, err := gw.Verify(ctx, req.Query())
	if err != nil {
		s.logger.Error("payment verification failed",
			"gateway", gw.Name(),
			"reference", req.Query().Reference,
			"transaction_id", req.Query().TransactionID,
			"error", err)
		return nil, mapGatewayError(err)
	}

	applyErr := s.reconciler.Apply(ctx, Event{
		Reference:      result.Reference,
		Outcome:        result.Outcome,
		ExternalStatus: result.ExternalStatus,
		RawPayload:     result.RawPayload,
		Source:         SourceVerify,
	})
	if applyErr != nil {
		// The gateway's answer stands; local state needs manual
		// reconciliation.
		s.logger.Error("CRITICAL: could not persist reconciliation result, local state is stale",
			"gateway", gw.Name(),
			"reference", result.Reference,
			"external_status", result.ExternalStatus,
			"error", applyErr)
	}

	resp := &VerifyResponse{Success: result.Outcome == gateway.OutcomeSuccess}
	if resp.Success {
		resp.Message = "Payment verified successfully"
	} else {
		resp.Message = "Payment verification failed or payment not completed"
	}

	if txn, getErr := s.store.GetByReference(ctx, result.Reference); getErr == nil {
		resp.Transaction = txn
	}

	return resp, nil
}

// GetByReference exposes lookups for status pages.
func (s *Service) GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	return s.store.GetByReference(ctx, reference)
}

const donorHistoryLimit = 50

// ListByEmail returns a donor's giving history, newest first.
func (s *Service) ListByEmail(ctx context.Context, email string, limit int64) ([]transaction.Transaction, error) {
	validator := validation.NewValidator()
	validator.Field("email", email).Required().Email()
	if appErr := validator.Validate(); appErr != nil {
		return nil, appErr
	}

	if limit <= 0 || limit > donorHistoryLimit {
		limit = donorHistoryLimit
	}
	return s.store.ListByEmail(ctx, email, limit)
}

func mapGatewayError(err error) error {
	var gerr *gateway.Error
	if stderrors.As(err, &gerr) {
		code := errors.ErrCodeGatewayRejected
		if gerr.StatusCode == 0 {
			code = errors.ErrCodeGatewayUnavailable
		}
		return errors.NewGatewayError(gerr.Message, gerr.StatusCode, code).WithCause(err)
	}
	return err
}
