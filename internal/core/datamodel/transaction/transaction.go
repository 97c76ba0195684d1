package transaction

import (
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transition is expected, except
// the documented success-override of a failed transaction.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type GatewayName string

const (
	GatewayFlutterwave GatewayName = "flutterwave"
	GatewayPaystack    GatewayName = "paystack"
)

func ParseGatewayName(s string) (GatewayName, bool) {
	switch GatewayName(strings.ToLower(s)) {
	case GatewayFlutterwave:
		return GatewayFlutterwave, true
	case GatewayPaystack:
		return GatewayPaystack, true
	}
	return "", false
}

// Donor is captured at initialization and never mutated afterwards.
type Donor struct {
	Email   string `bson:"email" json:"email"`
	Name    string `bson:"name,omitempty" json:"name,omitempty"`
	Address string `bson:"address,omitempty" json:"address,omitempty"`
	Country string `bson:"country,omitempty" json:"country,omitempty"`
	ZipCode string `bson:"zip_code,omitempty" json:"zip_code,omitempty"`
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
}

// Transaction is one donation attempt. The merchant reference is the
// only key the gateway redirect and the webhook use to address it.
type Transaction struct {
	Reference         string         `bson:"reference" json:"reference"`
	Gateway           GatewayName    `bson:"gateway" json:"gateway"`
	Amount            float64        `bson:"amount" json:"amount"`
	Currency          string         `bson:"currency" json:"currency"`
	Status            Status         `bson:"status" json:"status"`
	Project           string         `bson:"project" json:"project"`
	Donor             Donor          `bson:"donor" json:"donor"`
	GatewayMetadata   map[string]any `bson:"gateway_metadata,omitempty" json:"gateway_metadata,omitempty"`
	RawGatewayPayload map[string]any `bson:"raw_gateway_payload,omitempty" json:"raw_gateway_payload,omitempty"`
	VerifiedAt        *time.Time     `bson:"verified_at,omitempty" json:"verified_at,omitempty"`
	FailedAt          *time.Time     `bson:"failed_at,omitempty" json:"failed_at,omitempty"`
	CreatedAt         time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `bson:"updated_at" json:"updated_at"`
}

// New builds a pending transaction with the currency normalized to an
// uppercase ISO code. Donor name falls back to the email local part
// when the form left it blank.
func New(reference string, gateway GatewayName, amount float64, currency, project string, donor Donor) *Transaction {
	if donor.Name == "" {
		if at := strings.Index(donor.Email, "@"); at > 0 {
			donor.Name = donor.Email[:at]
		}
	}
	now := time.Now().UTC()
	return &Transaction{
		Reference: reference,
		Gateway:   gateway,
		Amount:    amount,
		Currency:  strings.ToUpper(currency),
		Status:    StatusPending,
		Project:   project,
		Donor:     donor,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
