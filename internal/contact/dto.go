package contact

import (
	"github.com/apehbe/charity-backend/internal/core/common/validation"
	"github.com/apehbe/charity-backend/internal/core/datamodel/contact"
)

type ContactFormRequest struct {
	FullName    string         `json:"full_name"`
	Email       string         `json:"email"`
	Phone       string         `json:"phone,omitempty"`
	Address     string         `json:"address,omitempty"`
	Country     string         `json:"country,omitempty"`
	FormType    string         `json:"form_type,omitempty"`
	InquiryType string         `json:"inquiry_type,omitempty"`
	Message     string         `json:"message"`
	FormData    map[string]any `json:"form_data,omitempty"`
}

func (r *ContactFormRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("full_name", r.FullName).Required().MaxLength(200)
	v.Field("email", r.Email).Required().Email()
	v.Field("message", r.Message).Required().MaxLength(5000)

	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

func (r *ContactFormRequest) formType() contact.FormType {
	switch contact.FormType(r.FormType) {
	case contact.FormTypeVolunteer:
		return contact.FormTypeVolunteer
	case contact.FormTypeGeneral:
		return contact.FormTypeGeneral
	default:
		return contact.FormTypeContact
	}
}

type ContactFormResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type NewsletterSubscribeRequest struct {
	Email      string         `json:"email"`
	Source     string         `json:"source,omitempty"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

func (r *NewsletterSubscribeRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("email", r.Email).Required().Email()

	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type NewsletterSubscribeResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type AddContactRequest struct {
	Email      string         `json:"email"`
	Attributes map[string]any `json:"attributes,omitempty"`
	ListIDs    []int64        `json:"list_ids,omitempty"`
}

func (r *AddContactRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("email", r.Email).Required().Email()

	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type AddContactResponse struct {
	Success        bool   `json:"success"`
	BrevoContactID *int64 `json:"brevo_contact_id,omitempty"`
	Message        string `json:"message"`
}

type SendEmailRequest struct {
	ToEmail     string `json:"to_email"`
	ToName      string `json:"to_name,omitempty"`
	Subject     string `json:"subject"`
	HTMLContent string `json:"html_content"`
}

func (r *SendEmailRequest) Validate() error {
	v := validation.NewValidator()
	v.Field("to_email", r.ToEmail).Required().Email()
	v.Field("subject", r.Subject).Required().MaxLength(500)
	v.Field("html_content", r.HTMLContent).Required()

	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type SendEmailResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Message   string `json:"message"`
}
