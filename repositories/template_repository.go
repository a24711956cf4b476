package repositories

import (
	"context"
	"fmt"
	"time"

	"mediconnect/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type TemplateRepository struct {
	collection *mongo.Collection
}

func NewTemplateRepository(db *mongo.Database) *TemplateRepository {
	return &TemplateRepository{
		collection: db.Collection("notification_templates"),
	}
}

func (tr *TemplateRepository) Create(ctx context.Context, template *models.NotificationTemplate) error {
	template.ID = primitive.NewObjectID()
	template.CreatedAt = time.Now()
	template.UpdatedAt = template.CreatedAt

	_, err := tr.collection.InsertOne(ctx, template)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}

	return nil
}

// GetActiveByName returns the active template with the given name, or nil
// when there is none.
func (tr *TemplateRepository) GetActiveByName(ctx context.Context, name string) (*models.NotificationTemplate, error) {
	var template models.NotificationTemplate
	err := tr.collection.FindOne(ctx, bson.M{"name": name, "isActive": true}).Decode(&template)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get template: %w", err)
	}

	return &template, nil
}

func (tr *TemplateRepository) List(ctx context.Context) ([]models.NotificationTemplate, error) {
	cursor, err := tr.collection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer cursor.Close(ctx)

	var templates []models.NotificationTemplate
	if err = cursor.All(ctx, &templates); err != nil {
		return nil, fmt.Errorf("failed to decode templates: %w", err)
	}

	return templates, nil
}
