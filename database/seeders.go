package database

import (
	"context"
	"time"

	"mediconnect/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Seeder represents a database seeder
type Seeder struct {
	Name        string
	Description string
	Seed        func(*mongo.Database) error
}

// seeders contains all database seeders
var seeders = []Seeder{
	{
		Name:        "notification_channels",
		Description: "Create the default delivery channel records",
		Seed:        seedNotificationChannels,
	},
	{
		Name:        "notification_templates",
		Description: "Create baseline notification templates",
		Seed:        seedNotificationTemplates,
	},
}

// RunSeeders executes all database seeders
func RunSeeders(db *mongo.Database) error {
	logrus.Info("Running database seeders...")

	for _, seeder := range seeders {
		logrus.Infof("Running seeder: %s", seeder.Name)

		if err := seeder.Seed(db); err != nil {
			logrus.Errorf("Seeder %s failed: %v", seeder.Name, err)
			return err
		}
	}

	logrus.Info("Database seeders completed")
	return nil
}

// seedNotificationChannels inserts one channel record per supported
// channel type. Existing records are left untouched so operators can
// tune rate limits and priorities without the seeder reverting them.
func seedNotificationChannels(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collection := db.Collection("notification_channels")
	now := time.Now()

	defaults := []models.NotificationChannel{
		{Name: "Primary Push", ChannelType: models.ChannelPush, Status: "active", PriorityOrder: 1, RateLimitPerHour: 100, ReliabilityScore: 0.97},
		{Name: "Primary SMS", ChannelType: models.ChannelSMS, Status: "active", PriorityOrder: 2, RateLimitPerHour: 10, ReliabilityScore: 0.99},
		{Name: "Primary Voice", ChannelType: models.ChannelVoice, Status: "active", PriorityOrder: 3, RateLimitPerHour: 10, ReliabilityScore: 0.95},
		{Name: "Primary Email", ChannelType: models.ChannelEmail, Status: "active", PriorityOrder: 4, RateLimitPerHour: 50, ReliabilityScore: 0.98},
		{Name: "In-App", ChannelType: models.ChannelInApp, Status: "active", PriorityOrder: 5, RateLimitPerHour: 0, ReliabilityScore: 0.90},
		{Name: "Integration Webhook", ChannelType: models.ChannelWebhook, Status: "inactive", PriorityOrder: 6, RateLimitPerHour: 0, ReliabilityScore: 0.90},
	}

	for _, channel := range defaults {
		count, err := collection.CountDocuments(ctx, bson.M{"channelType": channel.ChannelType})
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		channel.CreatedAt = now
		channel.UpdatedAt = now
		if _, err := collection.InsertOne(ctx, channel); err != nil {
			return err
		}
		logrus.Infof("Seeded channel record: %s", channel.ChannelType)
	}

	return nil
}

// seedNotificationTemplates inserts the baseline templates used by the
// bulk send helpers.
func seedNotificationTemplates(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	collection := db.Collection("notification_templates")
	now := time.Now()

	defaults := []models.NotificationTemplate{
		{
			Name:            "referral_update",
			TemplateType:    "referral_update",
			SubjectTemplate: "Referral {{.referralId}} status update",
			BodyTemplate:    "Referral {{.referralId}} is now {{.status}}. {{.details}}",
			Priority:        models.PriorityHigh,
			IsActive:        true,
		},
		{
			Name:            "dispatch_assigned",
			TemplateType:    "dispatch",
			SubjectTemplate: "Dispatch assignment: {{.dispatchId}}",
			BodyTemplate:    "You have been assigned to dispatch {{.dispatchId}}. Destination: {{.destination}}.",
			Priority:        models.PriorityUrgent,
			IsActive:        true,
		},
		{
			Name:            "hospital_status_change",
			TemplateType:    "hospital_status",
			SubjectTemplate: "{{.hospitalName}} status: {{.status}}",
			BodyTemplate:    "{{.hospitalName}} changed status to {{.status}}. Available beds: {{.availableBeds}}.",
			Priority:        models.PriorityNormal,
			IsActive:        true,
		},
	}

	for _, template := range defaults {
		count, err := collection.CountDocuments(ctx, bson.M{"name": template.Name})
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}

		template.CreatedAt = now
		template.UpdatedAt = now
		if _, err := collection.InsertOne(ctx, template); err != nil {
			return err
		}
		logrus.Infof("Seeded template: %s", template.Name)
	}

	return nil
}
