package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeDonationCompleted = "donation.completed"
	EventTypeDonationFailed    = "donation.failed"
)

type DonationCompletedEvent struct {
	BaseEvent
	Reference  string  `json:"reference"`
	Gateway    string  `json:"gateway"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	Project    string  `json:"project"`
	DonorEmail string  `json:"donor_email"`
	DonorName  string  `json:"donor_name"`
}

func NewDonationCompletedEvent(reference, gateway string, amount float64, currency, project, donorEmail, donorName string) *DonationCompletedEvent {
	return &DonationCompletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeDonationCompleted,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"reference":   reference,
				"gateway":     gateway,
				"amount":      amount,
				"currency":    currency,
				"project":     project,
				"donor_email": donorEmail,
				"donor_name":  donorName,
			},
		},
		Reference:  reference,
		Gateway:    gateway,
		Amount:     amount,
		Currency:   currency,
		Project:    project,
		DonorEmail: donorEmail,
		DonorName:  donorName,
	}
}

type DonationFailedEvent struct {
	BaseEvent
	Reference      string `json:"reference"`
	Gateway        string `json:"gateway"`
	ExternalStatus string `json:"external_status"`
}

func NewDonationFailedEvent(reference, gateway, externalStatus string) *DonationFailedEvent {
	return &DonationFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeDonationFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"reference":       reference,
				"gateway":         gateway,
				"external_status": externalStatus,
			},
		},
		Reference:      reference,
		Gateway:        gateway,
		ExternalStatus: externalStatus,
	}
}
