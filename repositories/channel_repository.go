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

type ChannelRepository struct {
	collection *mongo.Collection
}

func NewChannelRepository(db *mongo.Database) *ChannelRepository {
	return &ChannelRepository{
		collection: db.Collection("notification_channels"),
	}
}

func (cr *ChannelRepository) Create(ctx context.Context, channel *models.NotificationChannel) error {
	channel.ID = primitive.NewObjectID()
	channel.CreatedAt = time.Now()
	channel.UpdatedAt = channel.CreatedAt
	if channel.Status == "" {
		channel.Status = models.ChannelStatusActive
	}

	_, err := cr.collection.InsertOne(ctx, channel)
	if err != nil {
		return fmt.Errorf("failed to create channel: %w", err)
	}

	return nil
}

func (cr *ChannelRepository) GetByID(ctx context.Context, id string) (*models.NotificationChannel, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid channel ID: %w", err)
	}

	var channel models.NotificationChannel
	err = cr.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&channel)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("channel not found")
		}
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	return &channel, nil
}

// GetByType returns the highest-priority channel of the given type, or nil
// when none is configured.
func (cr *ChannelRepository) GetByType(ctx context.Context, channelType models.ChannelType) (*models.NotificationChannel, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "priorityOrder", Value: 1}})

	var channel models.NotificationChannel
	err := cr.collection.FindOne(ctx, bson.M{"channelType": channelType}, opts).Decode(&channel)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get channel by type: %w", err)
	}

	return &channel, nil
}

func (cr *ChannelRepository) List(ctx context.Context) ([]models.NotificationChannel, error) {
	opts := options.Find().SetSort(bson.D{{Key: "priorityOrder", Value: 1}, {Key: "name", Value: 1}})

	cursor, err := cr.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer cursor.Close(ctx)

	var channels []models.NotificationChannel
	if err = cursor.All(ctx, &channels); err != nil {
		return nil, fmt.Errorf("failed to decode channels: %w", err)
	}

	return channels, nil
}

// UpdateStatus soft-activates or deactivates a channel; channels are never
// deleted.
func (cr *ChannelRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid channel ID: %w", err)
	}

	result, err := cr.collection.UpdateOne(ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update channel status: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("channel not found")
	}

	return nil
}

// RecordAttempt increments totalSent plus exactly one of totalDelivered or
// totalFailed in a single server-side update, so concurrent senders never
// lose counts.
func (cr *ChannelRepository) RecordAttempt(ctx context.Context, id primitive.ObjectID, delivered bool) error {
	inc := bson.M{"totalSent": 1}
	if delivered {
		inc["totalDelivered"] = 1
	} else {
		inc["totalFailed"] = 1
	}

	_, err := cr.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{
			"$inc": inc,
			"$set": bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to record channel attempt: %w", err)
	}

	return nil
}

func (cr *ChannelRepository) CountByType(ctx context.Context, channelType models.ChannelType) (int64, error) {
	count, err := cr.collection.CountDocuments(ctx, bson.M{"channelType": channelType})
	if err != nil {
		return 0, fmt.Errorf("failed to count channels: %w", err)
	}
	return count, nil
}
