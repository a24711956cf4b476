package repositories

import (
	"context"
	"fmt"
	"time"

	"mediconnect/models"
	"mediconnect/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

func (nr *NotificationRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipientUserId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "priority", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduledAt", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}

	_, err := nr.collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func (nr *NotificationRepository) Create(ctx context.Context, notification *models.Notification) error {
	notification.ID = primitive.NewObjectID()
	notification.CreatedAt = time.Now()
	notification.UpdatedAt = notification.CreatedAt
	if notification.Status == "" {
		notification.Status = models.StatusPending
	}
	if notification.Priority == "" {
		notification.Priority = models.PriorityNormal
	}

	_, err := nr.collection.InsertOne(ctx, notification)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

func (nr *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid notification ID: %w", err)
	}

	var notification models.Notification
	err = nr.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&notification)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("notification not found")
		}
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}

	return &notification, nil
}

func (nr *NotificationRepository) GetUserNotifications(ctx context.Context, userID string, page, pageSize int, status string) ([]models.Notification, int64, error) {
	userObjectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, 0, fmt.Errorf("invalid user ID: %w", err)
	}

	filter := bson.M{"recipientUserId": userObjectID}
	if status != "" {
		filter["status"] = status
	}

	total, err := nr.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	skip := (page - 1) * pageSize
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(pageSize))

	cursor, err := nr.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, 0, fmt.Errorf("failed to decode notifications: %w", err)
	}

	return notifications, total, nil
}

// GetPendingDue returns pending notifications whose schedule time has passed,
// oldest first, for the background worker.
func (nr *NotificationRepository) GetPendingDue(ctx context.Context, limit int) ([]models.Notification, error) {
	now := time.Now()
	filter := bson.M{
		"status": models.StatusPending,
		"$or": []bson.M{
			{"scheduledAt": bson.M{"$exists": false}},
			{"scheduledAt": nil},
			{"scheduledAt": bson.M{"$lte": now}},
		},
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := nr.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find pending notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode pending notifications: %w", err)
	}

	return notifications, nil
}

// MarkSent claims a pending notification for the calling sender. The
// status filter makes the claim atomic: when the worker poller and a
// synchronous send race over the same row, exactly one update matches
// and the loser gets ErrNotPending.
func (nr *NotificationRepository) MarkSent(ctx context.Context, id primitive.ObjectID, channel models.ChannelType, externalID string) error {
	now := time.Now()
	set := bson.M{
		"status":      models.StatusSent,
		"channelUsed": channel,
		"sentAt":      now,
		"updatedAt":   now,
	}
	if externalID != "" {
		set["externalId"] = externalID
	}

	result, err := nr.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	if result.MatchedCount == 0 {
		return utils.ErrNotPending
	}
	return nil
}

// MarkDelivered completes a transition opened by MarkSent. Only a row
// in sent state can move to delivered.
func (nr *NotificationRepository) MarkDelivered(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now()
	result, err := nr.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusSent},
		bson.M{"$set": bson.M{
			"status":      models.StatusDelivered,
			"deliveredAt": now,
			"updatedAt":   now,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification delivered: %w", err)
	}
	if result.MatchedCount == 0 {
		return utils.ErrNotPending
	}
	return nil
}

// MarkFailed records the failure reason and bumps the attempt counter
// atomically.
func (nr *NotificationRepository) MarkFailed(ctx context.Context, id primitive.ObjectID, errorMessage string) error {
	_, err := nr.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$set": bson.M{
				"status":       models.StatusFailed,
				"errorMessage": errorMessage,
				"updatedAt":    time.Now(),
			},
			"$inc": bson.M{"deliveryAttempts": 1},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

func (nr *NotificationRepository) MarkCancelled(ctx context.Context, id primitive.ObjectID) error {
	return nr.update(ctx, id, bson.M{
		"status":    models.StatusCancelled,
		"updatedAt": time.Now(),
	})
}

func (nr *NotificationRepository) MarkExpired(ctx context.Context, id primitive.ObjectID) error {
	return nr.update(ctx, id, bson.M{
		"status":    models.StatusExpired,
		"updatedAt": time.Now(),
	})
}

// IncrementAttempts counts a delivery attempt without changing status, used
// while walking the fallback chain.
func (nr *NotificationRepository) IncrementAttempts(ctx context.Context, id primitive.ObjectID) error {
	_, err := nr.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": bson.M{"deliveryAttempts": 1},
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to increment delivery attempts: %w", err)
	}
	return nil
}

// ExpireOverdue marks pending notifications past their expiry as expired and
// returns how many were swept.
func (nr *NotificationRepository) ExpireOverdue(ctx context.Context) (int64, error) {
	result, err := nr.collection.UpdateMany(ctx,
		bson.M{
			"status":    models.StatusPending,
			"expiresAt": bson.M{"$lt": time.Now()},
		},
		bson.M{"$set": bson.M{
			"status":    models.StatusExpired,
			"updatedAt": time.Now(),
		}},
	)
	if err != nil {
		return 0, fmt.Errorf("failed to expire notifications: %w", err)
	}
	return result.ModifiedCount, nil
}

func (nr *NotificationRepository) update(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	_, err := nr.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	return nil
}
