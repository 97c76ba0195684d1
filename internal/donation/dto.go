package donation

import (
	errors "github.com/apehbe/charity-backend/internal"
	"github.com/apehbe/charity-backend/internal/core/common/validation"
	"github.com/apehbe/charity-backend/internal/core/datamodel/transaction"
	"github.com/apehbe/charity-backend/internal/gateway"
)

type DonorInfo struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	Country string `json:"country,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

type InitializeRequest struct {
	Amount    float64   `json:"amount"`
	Currency  string    `json:"currency"`
	Email     string    `json:"email"`
	Project   string    `json:"project"`
	DonorInfo DonorInfo `json:"donorInfo"`
}

func (r *InitializeRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("amount", r.Amount).Required().Positive(errors.ErrCodeInvalidAmount)
	validator.Field("email", r.Email).Required().Email()
	validator.Field("project", r.Project).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

func (r *InitializeRequest) donor() transaction.Donor {
	return transaction.Donor{
		Email:   r.Email,
		Name:    r.DonorInfo.Name,
		Address: r.DonorInfo.Address,
		Country: r.DonorInfo.Country,
		ZipCode: r.DonorInfo.ZipCode,
		Phone:   r.DonorInfo.Phone,
	}
}

type InitializeResponse struct {
	Success    bool   `json:"success"`
	PaymentURL string `json:"payment_url"`
	Reference  string `json:"reference"`
	Message    string `json:"message"`
}

// VerifyRequest accepts the reference under either name the frontend
// sends (Paystack redirects carry "reference", Flutterwave "tx_ref"),
// or a Flutterwave transaction id.
type VerifyRequest struct {
	Reference     string `json:"reference,omitempty"`
	TxRef         string `json:"tx_ref,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

func (r *VerifyRequest) Validate() error {
	if r.Reference == "" && r.TxRef == "" && r.TransactionID == "" {
		return errors.NewValidationFieldError("reference",
			"transaction reference or transaction id is required",
			errors.ErrCodeMissingReference)
	}
	return nil
}

func (r *VerifyRequest) Query() gateway.VerifyQuery {
	reference := r.Reference
	if reference == "" {
		reference = r.TxRef
	}
	return gateway.VerifyQuery{
		Reference:     reference,
		TransactionID: r.TransactionID,
	}
}

type VerifyResponse struct {
	Success     bool                     `json:"success"`
	Transaction *transaction.Transaction `json:"transaction,omitempty"`
	Message     string                   `json:"message"`
}

type DonorHistoryResponse struct {
	Transactions []transaction.Transaction `json:"transactions"`
	Count        int                       `json:"count"`
}
