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

type PreferenceRepository struct {
	collection *mongo.Collection
}

func NewPreferenceRepository(db *mongo.Database) *PreferenceRepository {
	return &PreferenceRepository{
		collection: db.Collection("notification_preferences"),
	}
}

// GetByUserID returns the user's stored preferences, falling back to the
// opt-out defaults when no record exists.
func (pr *PreferenceRepository) GetByUserID(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	userObjectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID: %w", err)
	}

	var prefs models.NotificationPreference
	err = pr.collection.FindOne(ctx, bson.M{"userId": userObjectID}).Decode(&prefs)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			defaults := models.DefaultPreferences()
			defaults.UserID = userObjectID
			return defaults, nil
		}
		return nil, fmt.Errorf("failed to get preferences: %w", err)
	}

	return &prefs, nil
}

func (pr *PreferenceRepository) Upsert(ctx context.Context, prefs *models.NotificationPreference) error {
	prefs.UpdatedAt = time.Now()

	opts := options.Replace().SetUpsert(true)
	_, err := pr.collection.ReplaceOne(ctx, bson.M{"userId": prefs.UserID}, prefs, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert preferences: %w", err)
	}

	return nil
}
