package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"

	"mediconnect/models"
	"mediconnect/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Upper bound for one provider call. A hung provider must not stall
// the fallback chain.
const sendTimeout = 30 * time.Second

type notificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	GetUserNotifications(ctx context.Context, userID string, page, pageSize int, status string) ([]models.Notification, int64, error)
	GetPendingDue(ctx context.Context, limit int) ([]models.Notification, error)
	MarkSent(ctx context.Context, id primitive.ObjectID, channel models.ChannelType, externalID string) error
	MarkDelivered(ctx context.Context, id primitive.ObjectID) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, errorMessage string) error
	MarkCancelled(ctx context.Context, id primitive.ObjectID) error
	MarkExpired(ctx context.Context, id primitive.ObjectID) error
	IncrementAttempts(ctx context.Context, id primitive.ObjectID) error
	ExpireOverdue(ctx context.Context) (int64, error)
}

type deliveryLogStore interface {
	Create(ctx context.Context, entry *models.DeliveryLog) error
	GetByNotification(ctx context.Context, notificationID string) ([]models.DeliveryLog, error)
}

type channelStatsStore interface {
	GetByType(ctx context.Context, channelType models.ChannelType) (*models.NotificationChannel, error)
	RecordAttempt(ctx context.Context, id primitive.ObjectID, delivered bool) error
}

type userDirectory interface {
	GetByID(ctx context.Context, userID string) (*models.User, error)
	GetByIDs(ctx context.Context, userIDs []primitive.ObjectID) ([]models.User, error)
}

type templateStore interface {
	GetActiveByName(ctx context.Context, name string) (*models.NotificationTemplate, error)
}

// deliveryGate is the per-recipient per-channel throttle.
// *utils.DeliveryRateLimiter satisfies it.
type deliveryGate interface {
	TryConsume(ctx context.Context, recipientID string, channel models.ChannelType) bool
}

// NotificationService owns the delivery state machine: it resolves the
// recipient, walks the channel fallback chain, and records every
// attempt in the delivery log and channel statistics.
type NotificationService struct {
	notificationRepo notificationStore
	deliveryLogRepo  deliveryLogStore
	channelRepo      channelStatsStore
	userRepo         userDirectory
	templateRepo     templateStore

	preferenceService *PreferenceService
	selector          *ChannelSelector
	rateLimiter       deliveryGate
	registry          SenderRegistry
}

func NewNotificationService(
	notificationRepo notificationStore,
	deliveryLogRepo deliveryLogStore,
	channelRepo channelStatsStore,
	userRepo userDirectory,
	templateRepo templateStore,
	preferenceService *PreferenceService,
	selector *ChannelSelector,
	rateLimiter deliveryGate,
	registry SenderRegistry,
) *NotificationService {
	return &NotificationService{
		notificationRepo:  notificationRepo,
		deliveryLogRepo:   deliveryLogRepo,
		channelRepo:       channelRepo,
		userRepo:          userRepo,
		templateRepo:      templateRepo,
		preferenceService: preferenceService,
		selector:          selector,
		rateLimiter:       rateLimiter,
		registry:          registry,
	}
}

// CreateNotification persists a new notification. Critical and
// emergency traffic that is due goes out synchronously; everything else
// is picked up by the delivery worker.
func (ns *NotificationService) CreateNotification(ctx context.Context, req models.CreateNotificationRequest) (*models.Notification, error) {
	recipientID, err := primitive.ObjectIDFromHex(req.RecipientUserID)
	if err != nil {
		return nil, utils.NewServiceErrorWithStatus("VALIDATION_ERROR", "invalid recipient user ID", 400)
	}

	user, err := ns.userRepo.GetByID(ctx, req.RecipientUserID)
	if err != nil {
		return nil, utils.ErrUserNotFound
	}

	notification := &models.Notification{
		RecipientUserID: recipientID,
		RecipientEmail:  user.Email,
		RecipientPhone:  user.Phone,
		Subject:         req.Subject,
		Message:         req.Message,
		HTMLContent:     req.HTMLContent,
		ContextData:     req.ContextData,
		Type:            req.Type,
		Priority:        req.Priority,
		Status:          models.StatusPending,
		ChannelOverride: req.Channels,
		ScheduledAt:     req.ScheduledAt,
		ExpiresAt:       req.ExpiresAt,
	}

	if err := ns.notificationRepo.Create(ctx, notification); err != nil {
		return nil, err
	}

	if notification.IsDue(time.Now()) && isPriorityAtLeast(notification.Priority, models.PriorityCritical) {
		if err := ns.SendNotification(ctx, notification); err != nil {
			logrus.Errorf("Immediate delivery failed for notification %s: %v", notification.ID.Hex(), err)
		}
	}

	return notification, nil
}

// SendNotification drives one pending notification through the fallback
// chain. The first delivered channel wins; a preference veto on every
// channel cancels, anything else fails.
func (ns *NotificationService) SendNotification(ctx context.Context, notification *models.Notification) error {
	if notification.Status != models.StatusPending {
		return utils.ErrNotPending
	}

	now := time.Now()
	if notification.IsExpired(now) {
		logrus.Infof("Notification %s expired before delivery", notification.ID.Hex())
		notification.Status = models.StatusExpired
		return ns.notificationRepo.MarkExpired(ctx, notification.ID)
	}

	user, err := ns.userRepo.GetByID(ctx, notification.RecipientUserID.Hex())
	if err != nil {
		ns.notificationRepo.MarkFailed(ctx, notification.ID, "recipient not found")
		notification.Status = models.StatusFailed
		return utils.ErrUserNotFound
	}

	prefs, err := ns.preferenceService.GetPreferences(ctx, notification.RecipientUserID.Hex())
	if err != nil {
		logrus.Warnf("Failed to load preferences for %s, using defaults: %v", notification.RecipientUserID.Hex(), err)
		prefs = models.DefaultPreferences()
	}
	recipient := user.ToRecipient(prefs)

	candidates := ns.selector.SelectChannels(ctx, notification, recipient)
	if len(candidates) == 0 {
		notification.Status = models.StatusFailed
		return ns.notificationRepo.MarkFailed(ctx, notification.ID, "no deliverable channels")
	}

	attempted := 0
	vetoed := 0
	var lastError string

	for _, channel := range candidates {
		allowed, reason := ns.preferenceService.ShouldDeliver(prefs, notification, channel, now)
		if !allowed {
			logrus.Infof("Channel %s vetoed for notification %s: %s", channel, notification.ID.Hex(), reason)
			vetoed++
			continue
		}

		if !ns.rateAllowed(ctx, notification, recipient, channel) {
			attempted++
			lastError = fmt.Sprintf("rate limit exceeded on %s", channel)
			ns.logAttempt(ctx, notification, recipient, channel, failure("rate limit exceeded"))
			ns.notificationRepo.IncrementAttempts(ctx, notification.ID)
			continue
		}

		result := ns.attemptChannel(ctx, notification, recipient, channel)
		attempted++

		if result.Success {
			notification.Status = models.StatusDelivered
			notification.ChannelUsed = channel
			if err := ns.notificationRepo.MarkSent(ctx, notification.ID, channel, result.ProviderID); err != nil {
				// A concurrent sender claimed the row first; its
				// transitions stand and ours are dropped.
				if errors.Is(err, utils.ErrNotPending) {
					logrus.Warnf("Notification %s was claimed by another sender", notification.ID.Hex())
					return nil
				}
				return err
			}
			return ns.notificationRepo.MarkDelivered(ctx, notification.ID)
		}

		lastError = result.Error
		logrus.Warnf("Channel %s failed for notification %s: %s", channel, notification.ID.Hex(), result.Error)
	}

	if attempted == 0 && vetoed > 0 {
		logrus.Infof("Notification %s cancelled: all channels vetoed by preferences", notification.ID.Hex())
		notification.Status = models.StatusCancelled
		return ns.notificationRepo.MarkCancelled(ctx, notification.ID)
	}

	notification.Status = models.StatusFailed
	return ns.notificationRepo.MarkFailed(ctx, notification.ID, lastError)
}

// SendToAllChannels is the emergency path: every channel in the list is
// attempted regardless of outcome on earlier ones, and preferences and
// rate limits do not apply. Reports whether any channel delivered.
func (ns *NotificationService) SendToAllChannels(ctx context.Context, notification *models.Notification, recipient *models.Recipient, channels []models.ChannelType) (bool, int) {
	attempts := 0
	var deliveredOn models.ChannelType
	var firstProviderID string

	for _, channel := range channels {
		result := ns.attemptChannel(ctx, notification, recipient, channel)
		attempts++

		if result.Success && deliveredOn == "" {
			deliveredOn = channel
			firstProviderID = result.ProviderID
		}
	}

	if deliveredOn != "" {
		notification.Status = models.StatusDelivered
		notification.ChannelUsed = deliveredOn
		ns.notificationRepo.MarkSent(ctx, notification.ID, deliveredOn, firstProviderID)
		ns.notificationRepo.MarkDelivered(ctx, notification.ID)
		return true, attempts
	}

	notification.Status = models.StatusFailed
	ns.notificationRepo.MarkFailed(ctx, notification.ID, "all channels failed")
	return false, attempts
}

// rateAllowed consults the throttle. Critical and emergency traffic is
// never throttled.
func (ns *NotificationService) rateAllowed(ctx context.Context, notification *models.Notification, recipient *models.Recipient, channel models.ChannelType) bool {
	if isPriorityAtLeast(notification.Priority, models.PriorityCritical) {
		return true
	}
	if ns.rateLimiter == nil {
		return true
	}
	return ns.rateLimiter.TryConsume(ctx, recipient.UserID, channel)
}

// attemptChannel performs one provider call under the send timeout and
// records the outcome in the delivery log and channel statistics.
func (ns *NotificationService) attemptChannel(ctx context.Context, notification *models.Notification, recipient *models.Recipient, channel models.ChannelType) DeliveryResult {
	sender, ok := ns.registry[channel]
	if !ok {
		return failure(fmt.Sprintf("no sender registered for channel %s", channel))
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	result := sender.Send(sendCtx, recipient, notification)

	ns.notificationRepo.IncrementAttempts(ctx, notification.ID)
	ns.logAttempt(ctx, notification, recipient, channel, result)
	ns.recordChannelStats(ctx, channel, result.Success)

	return result
}

func (ns *NotificationService) logAttempt(ctx context.Context, notification *models.Notification, recipient *models.Recipient, channel models.ChannelType, result DeliveryResult) {
	entry := &models.DeliveryLog{
		NotificationID: notification.ID,
		RecipientID:    recipient.UserID,
		ChannelType:    channel,
		Success:        result.Success,
		ProviderID:     result.ProviderID,
		ErrorMessage:   result.Error,
		AttemptedAt:    time.Now(),
	}
	if err := ns.deliveryLogRepo.Create(ctx, entry); err != nil {
		logrus.Errorf("Failed to write delivery log for notification %s: %v", notification.ID.Hex(), err)
	}
}

func (ns *NotificationService) recordChannelStats(ctx context.Context, channel models.ChannelType, delivered bool) {
	record, err := ns.channelRepo.GetByType(ctx, channel)
	if err != nil || record == nil {
		return
	}
	if err := ns.channelRepo.RecordAttempt(ctx, record.ID, delivered); err != nil {
		logrus.Errorf("Failed to record channel stats for %s: %v", channel, err)
	}
}

// BulkResult summarizes a template fan-out.
type BulkResult struct {
	Created   int `json:"created"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

// SendBulk renders a named template for each user and creates one
// notification per recipient. Critical and above go out sequentially
// so the caller knows the outcome before returning; lower priorities
// stay pending for the delivery worker.
func (ns *NotificationService) SendBulk(ctx context.Context, req models.BulkNotificationRequest) (*BulkResult, error) {
	tmpl, err := ns.templateRepo.GetActiveByName(ctx, req.TemplateName)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, utils.ErrTemplateNotFound
	}

	priority := req.Priority
	if priority == "" {
		priority = tmpl.Priority
	}

	subject, body, html, err := renderTemplate(tmpl, req.ContextData)
	if err != nil {
		return nil, utils.NewServiceErrorWithCause("TEMPLATE_RENDER_FAILED", "failed to render template", err)
	}

	userIDs := make([]primitive.ObjectID, 0, len(req.UserIDs))
	for _, raw := range req.UserIDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			return nil, utils.NewServiceErrorWithStatus("VALIDATION_ERROR", fmt.Sprintf("invalid user ID %q", raw), 400)
		}
		userIDs = append(userIDs, id)
	}

	users, err := ns.userRepo.GetByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	result := &BulkResult{}
	notifications := make([]*models.Notification, 0, len(users))

	for i := range users {
		user := &users[i]
		notification := &models.Notification{
			RecipientUserID: user.ID,
			RecipientEmail:  user.Email,
			RecipientPhone:  user.Phone,
			Subject:         subject,
			Message:         body,
			HTMLContent:     html,
			ContextData:     req.ContextData,
			Type:            tmpl.TemplateType,
			Priority:        priority,
			Status:          models.StatusPending,
			TemplateID:      tmpl.ID,
		}

		if err := ns.notificationRepo.Create(ctx, notification); err != nil {
			logrus.Errorf("Failed to create bulk notification for user %s: %v", user.ID.Hex(), err)
			result.Failed++
			continue
		}
		result.Created++
		notifications = append(notifications, notification)
	}

	if isPriorityAtLeast(priority, models.PriorityCritical) {
		for _, notification := range notifications {
			if err := ns.SendNotification(ctx, notification); err != nil || notification.Status != models.StatusDelivered {
				result.Failed++
				continue
			}
			result.Delivered++
		}
	}

	return result, nil
}

// PendingDue returns pending notifications whose schedule has arrived.
// The delivery worker polls this and enqueues the results.
func (ns *NotificationService) PendingDue(ctx context.Context, limit int) ([]models.Notification, error) {
	return ns.notificationRepo.GetPendingDue(ctx, limit)
}

// ExpireOverdue sweeps pending notifications past their expiry.
func (ns *NotificationService) ExpireOverdue(ctx context.Context) (int64, error) {
	return ns.notificationRepo.ExpireOverdue(ctx)
}

// CancelNotification cancels a notification that has not gone out yet.
func (ns *NotificationService) CancelNotification(ctx context.Context, id string) error {
	notification, err := ns.notificationRepo.GetByID(ctx, id)
	if err != nil {
		return utils.ErrNotificationNotFound
	}
	if notification.Status != models.StatusPending {
		return utils.ErrNotPending
	}
	return ns.notificationRepo.MarkCancelled(ctx, notification.ID)
}

func (ns *NotificationService) GetNotification(ctx context.Context, id string) (*models.Notification, error) {
	notification, err := ns.notificationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, utils.ErrNotificationNotFound
	}
	return notification, nil
}

func (ns *NotificationService) ListUserNotifications(ctx context.Context, userID string, page, pageSize int, status string) ([]models.Notification, int64, error) {
	return ns.notificationRepo.GetUserNotifications(ctx, userID, page, pageSize, status)
}

// GetDeliveryHistory returns the attempt rows for one notification,
// oldest first.
func (ns *NotificationService) GetDeliveryHistory(ctx context.Context, notificationID string) ([]models.DeliveryLog, error) {
	return ns.deliveryLogRepo.GetByNotification(ctx, notificationID)
}

// Domain convenience wrappers used by the referral and dispatch flows.

func (ns *NotificationService) SendReferralUpdate(ctx context.Context, userID, patientRef, status string) (*models.Notification, error) {
	notificationType := models.NotificationStatusUpdate
	switch status {
	case "accepted":
		notificationType = models.NotificationReferralAccepted
	case "rejected":
		notificationType = models.NotificationReferralRejected
	}

	return ns.CreateNotification(ctx, models.CreateNotificationRequest{
		RecipientUserID: userID,
		Subject:         fmt.Sprintf("Referral %s", status),
		Message:         fmt.Sprintf("Referral for patient %s is now %s.", patientRef, status),
		Type:            notificationType,
		Priority:        models.PriorityHigh,
		ContextData: map[string]interface{}{
			"patientRef": patientRef,
			"status":     status,
		},
	})
}

func (ns *NotificationService) SendDispatchNotification(ctx context.Context, userID, unit, destination string) (*models.Notification, error) {
	return ns.CreateNotification(ctx, models.CreateNotificationRequest{
		RecipientUserID: userID,
		Subject:         fmt.Sprintf("Dispatch: %s", unit),
		Message:         fmt.Sprintf("Unit %s dispatched to %s.", unit, destination),
		Type:            models.NotificationDispatch,
		Priority:        models.PriorityUrgent,
		ContextData: map[string]interface{}{
			"unit":        unit,
			"destination": destination,
		},
	})
}

func (ns *NotificationService) SendHospitalStatusAlert(ctx context.Context, userID, hospital, status string) (*models.Notification, error) {
	return ns.CreateNotification(ctx, models.CreateNotificationRequest{
		RecipientUserID: userID,
		Subject:         fmt.Sprintf("Hospital status: %s", hospital),
		Message:         fmt.Sprintf("%s is now %s.", hospital, status),
		Type:            models.NotificationHospitalStatus,
		Priority:        models.PriorityHigh,
		ContextData: map[string]interface{}{
			"hospital": hospital,
			"status":   status,
		},
	})
}

// renderTemplate executes the subject and body as text templates and
// the HTML part as an html template so context values get escaped.
func renderTemplate(tmpl *models.NotificationTemplate, data map[string]interface{}) (subject, body, html string, err error) {
	subject, err = renderText("subject", tmpl.SubjectTemplate, data)
	if err != nil {
		return "", "", "", err
	}

	body, err = renderText("body", tmpl.BodyTemplate, data)
	if err != nil {
		return "", "", "", err
	}

	if tmpl.HTMLTemplate != "" {
		parsed, perr := htmltemplate.New("html").Parse(tmpl.HTMLTemplate)
		if perr != nil {
			return "", "", "", perr
		}
		var buf bytes.Buffer
		if perr := parsed.Execute(&buf, data); perr != nil {
			return "", "", "", perr
		}
		html = buf.String()
	}

	return strings.TrimSpace(subject), body, html, nil
}

func renderText(name, text string, data map[string]interface{}) (string, error) {
	parsed, err := texttemplate.New(name).Parse(text)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := parsed.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
