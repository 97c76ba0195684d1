// Package gateway talks to the third-party payment providers and
// normalizes their response shapes so the reconciliation logic only
// ever sees one result type.
package gateway

import (
	"context"
	"fmt"

	"github.com/apehbe/charity-backend/internal/core/datamodel/transaction"
)

// InitializeRequest carries everything a provider needs to open a
// hosted payment page. Amount is in major currency units; adapters
// convert where the provider wants minor units.
type InitializeRequest struct {
	Amount   float64
	Currency string
	Email    string
	Project  string
	Donor    transaction.Donor
}

type InitializeResult struct {
	Reference  string
	PaymentURL string
	Metadata   map[string]any
}

// VerifyQuery addresses a transaction at the provider. Paystack only
// accepts the merchant reference; Flutterwave accepts either the
// reference or its own transaction id.
type VerifyQuery struct {
	Reference     string
	TransactionID string
}

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	// OutcomeIndeterminate means the provider has not reached a
	// terminal state yet; the transaction must not be written.
	OutcomeIndeterminate Outcome = "indeterminate"
)

type VerifyResult struct {
	Outcome        Outcome
	ExternalStatus string
	Reference      string
	RawPayload     map[string]any
}

type Gateway interface {
	Name() transaction.GatewayName
	Initialize(ctx context.Context, reference string, req InitializeRequest) (*InitializeResult, error)
	Verify(ctx context.Context, q VerifyQuery) (*VerifyResult, error)
}

// Error is returned for network failures, non-2xx provider responses
// and responses missing the expected success indicator. StatusCode is
// the upstream HTTP status, zero when the request never completed.
type Error struct {
	Gateway    transaction.GatewayName
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s gateway error (status %d): %s", e.Gateway, e.StatusCode, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s gateway error: %s: %v", e.Gateway, e.Message, e.Err)
	}
	return fmt.Sprintf("%s gateway error: %s", e.Gateway, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }
