package mongo

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/apehbe/charity-backend/internal"
	"github.com/apehbe/charity-backend/internal/core/datamodel/transaction"
)

const transactionCollection = "transactions"

type TransactionRepository struct {
	collection *mongo.Collection
	logger     *slog.Logger
}

func NewTransactionRepository(db *mongo.Database, logger *slog.Logger) *TransactionRepository {
	return &TransactionRepository{
		collection: db.Collection(transactionCollection),
		logger:     logger,
	}
}

// EnsureIndexes creates the unique reference index plus the lookup
// indexes used by reporting queries. Safe to call on every startup.
func (r *TransactionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "reference", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "donor.email", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "gateway", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	return err
}

func (r *TransactionRepository) Create(ctx context.Context, tx *transaction.Transaction) error {
	_, err := r.collection.InsertOne(ctx, tx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return internal.ErrDuplicateReference
		}
		return err
	}
	return nil
}

func (r *TransactionRepository) GetByReference(ctx context.Context, reference string) (*transaction.Transaction, error) {
	var tx transaction.Transaction
	err := r.collection.FindOne(ctx, bson.M{"reference": reference}).Decode(&tx)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, internal.ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// MarkCompleted promotes the transaction to completed, including over a
// prior failed status. The filter makes a replayed success notification
// leave verified_at untouched, so it is set exactly once; the raw
// payload is still refreshed on replay to keep the audit trail current.
func (r *TransactionRepository) MarkCompleted(ctx context.Context, reference string, rawPayload map[string]any) (bool, error) {
	now := time.Now().UTC()

	filter := bson.M{
		"reference": reference,
		"status":    bson.M{"$ne": transaction.StatusCompleted},
	}
	update := bson.M{
		"$set": bson.M{
			"status":              transaction.StatusCompleted,
			"verified_at":         now,
			"failed_at":           nil,
			"raw_gateway_payload": rawPayload,
			"updated_at":          now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	if result.ModifiedCount > 0 {
		return true, nil
	}

	_, err = r.collection.UpdateOne(ctx,
		bson.M{"reference": reference},
		bson.M{"$set": bson.M{
			"raw_gateway_payload": rawPayload,
			"updated_at":          now,
		}})
	return false, err
}

// MarkFailed records a failure only while the transaction is not
// completed. The filter keeps a late failure notification from
// downgrading a confirmed donation.
func (r *TransactionRepository) MarkFailed(ctx context.Context, reference string, rawPayload map[string]any) (bool, error) {
	now := time.Now().UTC()

	filter := bson.M{
		"reference": reference,
		"status":    bson.M{"$ne": transaction.StatusCompleted},
	}
	update := bson.M{
		"$set": bson.M{
			"status":              transaction.StatusFailed,
			"failed_at":           now,
			"raw_gateway_payload": rawPayload,
			"updated_at":          now,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return result.ModifiedCount > 0, nil
}

// ListByEmail returns the donor's transactions, newest first.
func (r *TransactionRepository) ListByEmail(ctx context.Context, email string, limit int64) ([]transaction.Transaction, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.M{"donor.email": email}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var txs []transaction.Transaction
	if err := cursor.All(ctx, &txs); err != nil {
		return nil, err
	}
	return txs, nil
}
