package mongo

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/apehbe/charity-backend/internal/core/datamodel/contact"
)

const (
	formSubmissionCollection = "form_submissions"
	newsletterCollection     = "newsletter_subscriptions"
)

type FormSubmissionRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

func NewFormSubmissionRepository(db *mongo.Database, logger *slog.Logger) *FormSubmissionRepository {
	return &FormSubmissionRepository{
		collection: db.Collection(formSubmissionCollection),
		logger:     logger,
	}
}

func (r *FormSubmissionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "submitter.email", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	return err
}

func (r *FormSubmissionRepository) Create(ctx context.Context, submission *contact.FormSubmission) error {
	_, err := r.collection.InsertOne(ctx, submission)
	return err
}

// MarkEmailSent records that the admin notification went out. Matching
// on email and creation time is enough, submissions are immutable after
// insert.
func (r *FormSubmissionRepository) MarkEmailSent(ctx context.Context, submission *contact.FormSubmission) error {
	filter := bson.M{
		"submitter.email": submission.Submitter.Email,
		"created_at":      submission.CreatedAt,
	}
	update := bson.M{
		"$set": bson.M{
			"email_sent":    true,
			"email_sent_at": submission.EmailSentAt,
			"updated_at":    time.Now().UTC(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update)
	return err
}

type NewsletterRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

func NewNewsletterRepository(db *mongo.Database, logger *slog.Logger) *NewsletterRepository {
	return &NewsletterRepository{
		collection: db.Collection(newsletterCollection),
		logger:     logger,
	}
}

func (r *NewsletterRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "brevo_contact_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	return err
}

func (r *NewsletterRepository) GetByEmail(ctx context.Context, email string) (*contact.NewsletterSubscription, error) {
	var subscription contact.NewsletterSubscription
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&subscription)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &subscription, nil
}

func (r *NewsletterRepository) Upsert(ctx context.Context, subscription *contact.NewsletterSubscription) error {
	filter := bson.M{"email": subscription.Email}
	set := bson.M{
		"source":          subscription.Source,
		"status":          subscription.Status,
		"attributes":      subscription.Attributes,
		"unsubscribed_at": subscription.UnsubscribedAt,
		"updated_at":      subscription.UpdatedAt,
	}
	// Left absent when unknown so the sparse unique index ignores it.
	if subscription.BrevoContactID != nil {
		set["brevo_contact_id"] = subscription.BrevoContactID
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"email":      subscription.Email,
			"created_at": subscription.CreatedAt,
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}
