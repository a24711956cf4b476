// config/notification_config.go - Delivery stack wiring
package config

import (
	"context"

	"mediconnect/repositories"
	"mediconnect/services"
	"mediconnect/utils"
	"mediconnect/websocket"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/api/option"
)

// NotificationStack bundles the delivery pipeline built by
// InitializeNotificationServices so main and routes share one wiring.
type NotificationStack struct {
	NotificationRepo *repositories.NotificationRepository
	DeliveryLogRepo  *repositories.DeliveryLogRepository
	ChannelRepo      *repositories.ChannelRepository
	PreferenceRepo   *repositories.PreferenceRepository
	TemplateRepo     *repositories.TemplateRepository
	UserRepo         *repositories.UserRepository
	EmergencyRepo    *repositories.EmergencyRepository

	Registry    services.SenderRegistry
	Selector    *services.ChannelSelector
	RateLimiter *utils.DeliveryRateLimiter

	PreferenceService   *services.PreferenceService
	NotificationService *services.NotificationService
	EmergencyService    *services.EmergencyService
}

// InitializeNotificationServices wires repositories, channel senders and
// the delivery services together. Unconfigured providers still register
// their senders; those channels report a configuration failure at send
// time and the fallback chain moves on.
func InitializeNotificationServices(cfg *Config, db *mongo.Database, redisClient *redis.Client, hub *websocket.Hub) (*NotificationStack, error) {
	// Repositories
	notificationRepo := repositories.NewNotificationRepository(db)
	deliveryLogRepo := repositories.NewDeliveryLogRepository(db)
	channelRepo := repositories.NewChannelRepository(db)
	preferenceRepo := repositories.NewPreferenceRepository(db)
	templateRepo := repositories.NewTemplateRepository(db)
	userRepo := repositories.NewUserRepository(db)
	emergencyRepo := repositories.NewEmergencyRepository(db)

	if err := notificationRepo.CreateIndexes(context.Background()); err != nil {
		logrus.Warnf("Failed to create notification indexes: %v", err)
	}

	// Initialize Firebase/FCM client
	var fcmClient *messaging.Client
	if cfg.FirebaseCredentialsPath != "" {
		app, err := initializeFirebase(cfg)
		if err != nil {
			logrus.Errorf("Failed to initialize Firebase: %v", err)
		} else {
			fcmClient, err = app.Messaging(context.Background())
			if err != nil {
				logrus.Errorf("Failed to get FCM client: %v", err)
			}
		}
	}

	// Channel senders
	emailService := services.NewEmailService(
		cfg.SMTPHost,
		cfg.SMTPPort,
		cfg.SMTPUsername,
		cfg.SMTPPassword,
		cfg.SMTPFrom,
	)

	smsService := services.NewSMSService(nil, cfg.TwilioFromNumber, cfg.DefaultCountryCode)
	voiceService := services.NewVoiceService(nil, cfg.TwilioVoiceNumber, cfg.DefaultCountryCode)
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		twilioClient := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.TwilioAccountSID,
			Password: cfg.TwilioAuthToken,
		})
		smsService = services.NewSMSService(twilioClient.Api, cfg.TwilioFromNumber, cfg.DefaultCountryCode)
		voiceNumber := cfg.TwilioVoiceNumber
		if voiceNumber == "" {
			voiceNumber = cfg.TwilioFromNumber
		}
		voiceService = services.NewVoiceService(twilioClient.Api, voiceNumber, cfg.DefaultCountryCode)
	}

	// A typed nil *messaging.Client would defeat the sender's
	// configured check, so only hand over a live client.
	pushService := services.NewPushService(nil)
	if fcmClient != nil {
		pushService = services.NewPushService(fcmClient)
	}

	webhookService := services.NewWebhookService(channelRepo)
	inAppService := services.NewInAppService(hub)

	registry := services.NewSenderRegistry(
		emailService,
		smsService,
		voiceService,
		pushService,
		webhookService,
		inAppService,
	)

	// Selection and throttling
	selector := services.NewChannelSelector(channelRepo, registry)
	rateLimiter := utils.NewDeliveryRateLimiter(
		utils.NewRedisWindowStore(redisClient),
		utils.DefaultChannelLimits(),
	)

	// Delivery services
	preferenceService := services.NewPreferenceService(preferenceRepo)
	notificationService := services.NewNotificationService(
		notificationRepo,
		deliveryLogRepo,
		channelRepo,
		userRepo,
		templateRepo,
		preferenceService,
		selector,
		rateLimiter,
		registry,
	)
	emergencyService := services.NewEmergencyService(
		emergencyRepo,
		notificationRepo,
		userRepo,
		notificationService,
		selector,
		hub,
	)

	return &NotificationStack{
		NotificationRepo:    notificationRepo,
		DeliveryLogRepo:     deliveryLogRepo,
		ChannelRepo:         channelRepo,
		PreferenceRepo:      preferenceRepo,
		TemplateRepo:        templateRepo,
		UserRepo:            userRepo,
		EmergencyRepo:       emergencyRepo,
		Registry:            registry,
		Selector:            selector,
		RateLimiter:         rateLimiter,
		PreferenceService:   preferenceService,
		NotificationService: notificationService,
		EmergencyService:    emergencyService,
	}, nil
}

// initializeFirebase initializes the Firebase app used for FCM pushes.
func initializeFirebase(cfg *Config) (*firebase.App, error) {
	ctx := context.Background()

	if cfg.FirebaseCredentialsPath != "" {
		opt := option.WithCredentialsFile(cfg.FirebaseCredentialsPath)
		return firebase.NewApp(ctx, nil, opt)
	}

	// Default credentials (for cloud environments)
	return firebase.NewApp(ctx, nil)
}
