package repositories

import (
	"context"
	"fmt"
	"time"

	"mediconnect/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// DeliveryLogRepository is the append-only audit sink: one row per delivery
// attempt, never updated.
type DeliveryLogRepository struct {
	collection *mongo.Collection
}

func NewDeliveryLogRepository(db *mongo.Database) *DeliveryLogRepository {
	return &DeliveryLogRepository{
		collection: db.Collection("delivery_logs"),
	}
}

func (dlr *DeliveryLogRepository) Create(ctx context.Context, entry *models.DeliveryLog) error {
	entry.ID = primitive.NewObjectID()
	if entry.AttemptedAt.IsZero() {
		entry.AttemptedAt = time.Now()
	}

	_, err := dlr.collection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to create delivery log: %w", err)
	}

	return nil
}

func (dlr *DeliveryLogRepository) GetByNotification(ctx context.Context, notificationID string) ([]models.DeliveryLog, error) {
	objectID, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return nil, fmt.Errorf("invalid notification ID: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "attemptedAt", Value: 1}})

	cursor, err := dlr.collection.Find(ctx, bson.M{"notificationId": objectID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find delivery logs: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.DeliveryLog
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode delivery logs: %w", err)
	}

	return entries, nil
}

func (dlr *DeliveryLogRepository) CleanupOldLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)

	result, err := dlr.collection.DeleteMany(ctx, bson.M{"attemptedAt": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup delivery logs: %w", err)
	}

	return result.DeletedCount, nil
}
