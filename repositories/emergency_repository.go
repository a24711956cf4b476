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

type EmergencyRepository struct {
	collection *mongo.Collection
}

func NewEmergencyRepository(db *mongo.Database) *EmergencyRepository {
	return &EmergencyRepository{
		collection: db.Collection("emergency_alerts"),
	}
}

func (er *EmergencyRepository) Create(ctx context.Context, alert *models.EmergencyAlert) error {
	alert.ID = primitive.NewObjectID()
	alert.CreatedAt = time.Now()
	alert.UpdatedAt = alert.CreatedAt
	if alert.Status == "" {
		alert.Status = models.AlertStatusDraft
	}
	if alert.AlertStart.IsZero() {
		alert.AlertStart = alert.CreatedAt
	}

	_, err := er.collection.InsertOne(ctx, alert)
	if err != nil {
		return fmt.Errorf("failed to create emergency alert: %w", err)
	}

	return nil
}

func (er *EmergencyRepository) GetByID(ctx context.Context, id string) (*models.EmergencyAlert, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid alert ID: %w", err)
	}

	var alert models.EmergencyAlert
	err = er.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&alert)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("alert not found")
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	return &alert, nil
}

func (er *EmergencyRepository) List(ctx context.Context, status string, limit int) ([]models.EmergencyAlert, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "alertStart", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := er.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer cursor.Close(ctx)

	var alerts []models.EmergencyAlert
	if err = cursor.All(ctx, &alerts); err != nil {
		return nil, fmt.Errorf("failed to decode alerts: %w", err)
	}

	return alerts, nil
}

// Activate transitions a draft alert to active. Returns ErrNoDocuments-like
// failure when the alert is not in draft.
func (er *EmergencyRepository) Activate(ctx context.Context, id primitive.ObjectID) error {
	result, err := er.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.AlertStatusDraft},
		bson.M{"$set": bson.M{
			"status":     models.AlertStatusActive,
			"alertStart": time.Now(),
			"updatedAt":  time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to activate alert: %w", err)
	}
	if result.MatchedCount == 0 {
		return utils.ErrAlertNotDraft
	}

	return nil
}

func (er *EmergencyRepository) SetDeliveryStats(ctx context.Context, id primitive.ObjectID, totalRecipients, totalDelivered int) error {
	_, err := er.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"totalRecipients": totalRecipients,
			"totalDelivered":  totalDelivered,
			"updatedAt":       time.Now(),
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to set alert delivery stats: %w", err)
	}
	return nil
}

// Acknowledge records a user's acknowledgment exactly once. The filter
// excludes users already in acknowledgedBy, so the $inc can never
// double-count; a repeat call matches nothing and is a no-op.
func (er *EmergencyRepository) Acknowledge(ctx context.Context, alertID, userID primitive.ObjectID) (bool, error) {
	result, err := er.collection.UpdateOne(ctx,
		bson.M{
			"_id":            alertID,
			"status":         models.AlertStatusActive,
			"acknowledgedBy": bson.M{"$ne": userID},
		},
		bson.M{
			"$addToSet": bson.M{"acknowledgedBy": userID},
			"$inc":      bson.M{"totalAcknowledged": 1},
			"$set":      bson.M{"updatedAt": time.Now()},
		},
	)
	if err != nil {
		return false, fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	return result.ModifiedCount > 0, nil
}

// Close transitions an active alert to resolved, cancelled or expired.
func (er *EmergencyRepository) Close(ctx context.Context, id primitive.ObjectID, status string) error {
	now := time.Now()
	result, err := er.collection.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.AlertStatusActive},
		bson.M{"$set": bson.M{
			"status":    status,
			"alertEnd":  now,
			"updatedAt": now,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to close alert: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("alert is not active")
	}

	return nil
}

// GetAutoResolvable returns active alerts whose auto-resolve deadline passed.
func (er *EmergencyRepository) GetAutoResolvable(ctx context.Context) ([]models.EmergencyAlert, error) {
	cursor, err := er.collection.Find(ctx, bson.M{
		"status":        models.AlertStatusActive,
		"autoResolveAt": bson.M{"$lt": time.Now()},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find auto-resolvable alerts: %w", err)
	}
	defer cursor.Close(ctx)

	var alerts []models.EmergencyAlert
	if err = cursor.All(ctx, &alerts); err != nil {
		return nil, fmt.Errorf("failed to decode alerts: %w", err)
	}

	return alerts, nil
}
