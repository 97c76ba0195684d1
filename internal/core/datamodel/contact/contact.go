package contact

import "time"

type FormType string

const (
	FormTypeContact   FormType = "contact"
	FormTypeVolunteer FormType = "volunteer"
	FormTypeGeneral   FormType = "general"
)

type SubmissionStatus string

const (
	SubmissionNew      SubmissionStatus = "new"
	SubmissionRead     SubmissionStatus = "read"
	SubmissionReplied  SubmissionStatus = "replied"
	SubmissionArchived SubmissionStatus = "archived"
)

type Submitter struct {
	FullName string `bson:"full_name" json:"full_name"`
	Email    string `bson:"email" json:"email"`
	Phone    string `bson:"phone,omitempty" json:"phone,omitempty"`
	Address  string `bson:"address,omitempty" json:"address,omitempty"`
	Country  string `bson:"country,omitempty" json:"country,omitempty"`
}

type FormSubmission struct {
	FormType    FormType         `bson:"form_type" json:"form_type"`
	Submitter   Submitter        `bson:"submitter" json:"submitter"`
	InquiryType string           `bson:"inquiry_type,omitempty" json:"inquiry_type,omitempty"`
	Message     string           `bson:"message" json:"message"`
	FormData    map[string]any   `bson:"form_data,omitempty" json:"form_data,omitempty"`
	EmailSent   bool             `bson:"email_sent" json:"email_sent"`
	EmailSentAt *time.Time       `bson:"email_sent_at,omitempty" json:"email_sent_at,omitempty"`
	Status      SubmissionStatus `bson:"status" json:"status"`
	CreatedAt   time.Time        `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time        `bson:"updated_at" json:"updated_at"`
}

type SubscriptionStatus string

const (
	SubscriptionActive       SubscriptionStatus = "active"
	SubscriptionUnsubscribed SubscriptionStatus = "unsubscribed"
	SubscriptionBounced      SubscriptionStatus = "bounced"
)

type NewsletterSubscription struct {
	Email          string             `bson:"email" json:"email"`
	Source         string             `bson:"source" json:"source"`
	Status         SubscriptionStatus `bson:"status" json:"status"`
	BrevoContactID *int64             `bson:"brevo_contact_id,omitempty" json:"brevo_contact_id,omitempty"`
	Attributes     map[string]any     `bson:"attributes,omitempty" json:"attributes,omitempty"`
	UnsubscribedAt *time.Time         `bson:"unsubscribed_at,omitempty" json:"unsubscribed_at,omitempty"`
	CreatedAt      time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updated_at" json:"updated_at"`
}
