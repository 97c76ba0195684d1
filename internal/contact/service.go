package contact

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	errors "github.com/apehbe/charity-backend/internal"
	"github.com/apehbe/charity-backend/internal/brevo"
	"github.com/apehbe/charity-backend/internal/core/datamodel/contact"
	"github.com/apehbe/charity-backend/internal/core/events"
)

// Mailer is the slice of the Brevo client the contact service uses.
type Mailer interface {
	CreateContact(ctx context.Context, c brevo.Contact) (*int64, error)
	UpdateContact(ctx context.Context, c brevo.Contact) error
	SendEmail(ctx context.Context, email brevo.Email) (string, error)
}

type FormSubmissionStore interface {
	Create(ctx context.Context, submission *contact.FormSubmission) error
	MarkEmailSent(ctx context.Context, submission *contact.FormSubmission) error
}

type NewsletterStore interface {
	GetByEmail(ctx context.Context, email string) (*contact.NewsletterSubscription, error)
	Upsert(ctx context.Context, subscription *contact.NewsletterSubscription) error
}

type EmailConfig struct {
	AdminEmail       string
	SenderName       string
	SenderEmail      string
	NewsletterListID int64
}

type Service struct {
	mailer      Mailer
	submissions FormSubmissionStore
	newsletter  NewsletterStore
	emailCfg    EmailConfig
	logger      *slog.Logger
}

func NewService(mailer Mailer, submissions FormSubmissionStore, newsletter NewsletterStore, emailCfg EmailConfig, logger *slog.Logger) *Service {
	return &Service{
		mailer:      mailer,
		submissions: submissions,
		newsletter:  newsletter,
		emailCfg:    emailCfg,
		logger:      logger,
	}
}

// SubmitContactForm stores the submission first, then notifies the
// admin inbox. Email delivery is best effort: a Brevo outage must not
// lose the submission.
func (s *Service) SubmitContactForm(ctx context.Context, req *ContactFormRequest) (*ContactFormResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	submission := &contact.FormSubmission{
		FormType: req.formType(),
		Submitter: contact.Submitter{
			FullName: req.FullName,
			Email:    req.Email,
			Phone:    req.Phone,
			Address:  req.Address,
			Country:  req.Country,
		},
		InquiryType: req.InquiryType,
		Message:     req.Message,
		FormData:    req.FormData,
		Status:      contact.SubmissionNew,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.submissions.Create(ctx, submission); err != nil {
		s.logger.Error("failed to store contact form submission",
			"email", req.Email,
			"error", err)
		return nil, errors.NewInternalError("could not save your message, please try again", err)
	}

	if err := s.notifyAdmin(ctx, submission); err != nil {
		s.logger.Error("failed to send contact form notification email",
			"email", req.Email,
			"error", err)
	} else {
		sentAt := time.Now().UTC()
		submission.EmailSent = true
		submission.EmailSentAt = &sentAt
		if err := s.submissions.MarkEmailSent(ctx, submission); err != nil {
			s.logger.Warn("failed to record notification email delivery",
				"email", req.Email,
				"error", err)
		}
	}

	return &ContactFormResponse{
		Success: true,
		Message: "Thank you for reaching out, we will get back to you soon",
	}, nil
}

func (s *Service) notifyAdmin(ctx context.Context, submission *contact.FormSubmission) error {
	subject := fmt.Sprintf("New %s form submission from %s", submission.FormType, submission.Submitter.FullName)
	body := fmt.Sprintf(
		"<h2>New %s submission</h2>"+
			"<p><strong>Name:</strong> %s</p>"+
			"<p><strong>Email:</strong> %s</p>"+
			"<p><strong>Phone:</strong> %s</p>"+
			"<p><strong>Inquiry:</strong> %s</p>"+
			"<p><strong>Message:</strong></p><p>%s</p>",
		submission.FormType,
		submission.Submitter.FullName,
		submission.Submitter.Email,
		submission.Submitter.Phone,
		submission.InquiryType,
		submission.Message,
	)

	_, err := s.mailer.SendEmail(ctx, brevo.Email{
		Sender: brevo.EmailAddress{Name: s.emailCfg.SenderName, Email: s.emailCfg.SenderEmail},
		To:     []brevo.EmailAddress{{Email: s.emailCfg.AdminEmail}},
		ReplyTo: &brevo.EmailAddress{
			Name:  submission.Submitter.FullName,
			Email: submission.Submitter.Email,
		},
		Subject:     subject,
		HTMLContent: body,
	})
	return err
}

// SubscribeNewsletter registers the email with the Brevo newsletter
// list and records the subscription locally. Subscribing an already
// active email is a success, not a conflict.
func (s *Service) SubscribeNewsletter(ctx context.Context, req *NewsletterSubscribeRequest) (*NewsletterSubscribeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.newsletter.GetByEmail(ctx, req.Email)
	if err == nil && existing != nil && existing.Status == contact.SubscriptionActive {
		return &NewsletterSubscribeResponse{
			Success: true,
			Message: "You are already subscribed",
		}, nil
	}

	brevoID, err := s.mailer.CreateContact(ctx, brevo.Contact{
		Email:      req.Email,
		Attributes: brevoAttributes(req.Attributes),
		ListIDs:    []int64{s.emailCfg.NewsletterListID},
	})
	if err != nil {
		s.logger.Error("failed to register newsletter contact with brevo",
			"email", req.Email,
			"error", err)
		return nil, errors.NewInternalError("could not subscribe right now, please try again", err)
	}

	now := time.Now().UTC()
	subscription := &contact.NewsletterSubscription{
		Email:          req.Email,
		Source:         req.Source,
		Status:         contact.SubscriptionActive,
		BrevoContactID: brevoID,
		Attributes:     req.Attributes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if existing != nil {
		subscription.CreatedAt = existing.CreatedAt
	}

	if err := s.newsletter.Upsert(ctx, subscription); err != nil {
		// Brevo already has the contact; the local record catches up on
		// the next subscribe attempt.
		s.logger.Warn("failed to record newsletter subscription locally",
			"email", req.Email,
			"error", err)
	}

	return &NewsletterSubscribeResponse{
		Success: true,
		Message: "Subscribed successfully",
	}, nil
}

// brevoAttributes uppercases attribute keys the way Brevo expects them
// (FIRSTNAME, LASTNAME, SMS).
func brevoAttributes(attrs map[string]any) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	upper := make(map[string]any, len(attrs))
	for key, value := range attrs {
		upper[strings.ToUpper(key)] = value
	}
	return upper
}

// AddContact pushes a contact straight to Brevo without touching the
// newsletter collection.
func (s *Service) AddContact(ctx context.Context, req *AddContactRequest) (*AddContactResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	brevoID, err := s.mailer.CreateContact(ctx, brevo.Contact{
		Email:      req.Email,
		Attributes: req.Attributes,
		ListIDs:    req.ListIDs,
	})
	if err != nil {
		s.logger.Error("failed to add brevo contact", "email", req.Email, "error", err)
		return nil, errors.NewInternalError("could not add contact", err)
	}

	return &AddContactResponse{
		Success:        true,
		BrevoContactID: brevoID,
		Message:        "Contact added successfully",
	}, nil
}

// SendEmail sends an arbitrary transactional email through Brevo.
func (s *Service) SendEmail(ctx context.Context, req *SendEmailRequest) (*SendEmailResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	messageID, err := s.mailer.SendEmail(ctx, brevo.Email{
		Sender:      brevo.EmailAddress{Name: s.emailCfg.SenderName, Email: s.emailCfg.SenderEmail},
		To:          []brevo.EmailAddress{{Email: req.ToEmail, Name: req.ToName}},
		Subject:     req.Subject,
		HTMLContent: req.HTMLContent,
	})
	if err != nil {
		s.logger.Error("failed to send email", "to", req.ToEmail, "error", err)
		return nil, errors.NewInternalError("could not send email", err).
			WithDetails(map[string]any{"code": errors.ErrCodeEmailDeliveryFailed})
	}

	return &SendEmailResponse{
		Success:   true,
		MessageID: messageID,
		Message:   "Email sent successfully",
	}, nil
}

// HandleDonationCompleted sends the donor a receipt email. Registered
// on the event bus for donation.completed.
func (s *Service) HandleDonationCompleted(ctx context.Context, event events.Event) error {
	completed, ok := event.(*events.DonationCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload for %s", event.EventType())
	}

	subject := "Thank you for your donation"
	body := fmt.Sprintf(
		"<h2>Thank you, %s!</h2>"+
			"<p>Your donation has been received.</p>"+
			"<p><strong>Reference:</strong> %s</p>"+
			"<p><strong>Amount:</strong> %.2f %s</p>"+
			"<p><strong>Project:</strong> %s</p>"+
			"<p>Your support makes our work possible.</p>",
		completed.DonorName,
		completed.Reference,
		completed.Amount,
		completed.Currency,
		completed.Project,
	)

	_, err := s.mailer.SendEmail(ctx, brevo.Email{
		Sender:      brevo.EmailAddress{Name: s.emailCfg.SenderName, Email: s.emailCfg.SenderEmail},
		To:          []brevo.EmailAddress{{Email: completed.DonorEmail, Name: completed.DonorName}},
		Subject:     subject,
		HTMLContent: body,
	})
	if err != nil {
		s.logger.Error("failed to send donation receipt email",
			"reference", completed.Reference,
			"donor_email", completed.DonorEmail,
			"error", err)
		return err
	}

	s.logger.Info("donation receipt email sent",
		"reference", completed.Reference,
		"donor_email", completed.DonorEmail)
	return nil
}
