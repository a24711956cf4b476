package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"mediconnect/models"
	"mediconnect/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/errgroup"
)

// Concurrent per-recipient deliveries during alert fan-out.
const fanOutConcurrency = 16

type emergencyStore interface {
	Create(ctx context.Context, alert *models.EmergencyAlert) error
	GetByID(ctx context.Context, id string) (*models.EmergencyAlert, error)
	List(ctx context.Context, status string, limit int) ([]models.EmergencyAlert, error)
	Activate(ctx context.Context, id primitive.ObjectID) error
	SetDeliveryStats(ctx context.Context, id primitive.ObjectID, totalRecipients, totalDelivered int) error
	Acknowledge(ctx context.Context, alertID, userID primitive.ObjectID) (bool, error)
	Close(ctx context.Context, id primitive.ObjectID, status string) error
	GetAutoResolvable(ctx context.Context) ([]models.EmergencyAlert, error)
}

type alertUserDirectory interface {
	GetByIDs(ctx context.Context, userIDs []primitive.ObjectID) ([]models.User, error)
	GetByRoles(ctx context.Context, roles []string) ([]models.User, error)
	GetActive(ctx context.Context) ([]models.User, error)
}

// emergencyDeliverer is the slice of the orchestrator the fan-out
// needs: persist one notification and push it over every channel.
type emergencyDeliverer interface {
	SendToAllChannels(ctx context.Context, notification *models.Notification, recipient *models.Recipient, channels []models.ChannelType) (bool, int)
}

type alertNotificationStore interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// alertBroadcaster pushes the alert to every live websocket connection.
type alertBroadcaster interface {
	BroadcastEmergencyAlert(alert models.WSEmergencyAlert)
}

// EmergencyService owns the alert lifecycle: draft, activation with
// fan-out to the computed target set, idempotent acknowledgment, and
// resolution.
type EmergencyService struct {
	emergencyRepo    emergencyStore
	notificationRepo alertNotificationStore
	userRepo         alertUserDirectory
	deliverer        emergencyDeliverer
	selector         *ChannelSelector
	broadcaster      alertBroadcaster
}

func NewEmergencyService(
	emergencyRepo emergencyStore,
	notificationRepo alertNotificationStore,
	userRepo alertUserDirectory,
	deliverer emergencyDeliverer,
	selector *ChannelSelector,
	broadcaster alertBroadcaster,
) *EmergencyService {
	return &EmergencyService{
		emergencyRepo:    emergencyRepo,
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		deliverer:        deliverer,
		selector:         selector,
		broadcaster:      broadcaster,
	}
}

// CreateAlert stores a draft alert. Nothing is delivered until
// activation.
func (es *EmergencyService) CreateAlert(ctx context.Context, createdBy string, req models.CreateAlertRequest) (*models.EmergencyAlert, error) {
	creatorID, err := primitive.ObjectIDFromHex(createdBy)
	if err != nil {
		return nil, utils.NewServiceErrorWithStatus("VALIDATION_ERROR", "invalid creator user ID", 400)
	}

	targetIDs, err := parseObjectIDs(req.TargetUserIDs)
	if err != nil {
		return nil, utils.NewServiceErrorWithStatus("VALIDATION_ERROR", "invalid target user ID", 400)
	}
	excludeIDs, err := parseObjectIDs(req.ExcludeUserIDs)
	if err != nil {
		return nil, utils.NewServiceErrorWithStatus("VALIDATION_ERROR", "invalid excluded user ID", 400)
	}

	alert := &models.EmergencyAlert{
		Title:                  req.Title,
		Message:                req.Message,
		AlertType:              req.AlertType,
		Severity:               req.Severity,
		Status:                 models.AlertStatusDraft,
		TargetRoles:            req.TargetRoles,
		TargetAreas:            req.TargetAreas,
		TargetUserIDs:          targetIDs,
		ExcludeUserIDs:         excludeIDs,
		RequiresAcknowledgment: req.RequiresAcknowledgment,
		AutoResolveAt:          req.AutoResolveAt,
		CreatedBy:              creatorID,
	}

	if err := es.emergencyRepo.Create(ctx, alert); err != nil {
		return nil, err
	}

	return alert, nil
}

// ActivateAlert transitions a draft alert to active and fans it out to
// the target set on every reachable channel, bypassing preferences.
func (es *EmergencyService) ActivateAlert(ctx context.Context, alertID string) (*models.FanOutResult, error) {
	alert, err := es.emergencyRepo.GetByID(ctx, alertID)
	if err != nil {
		return nil, utils.ErrAlertNotFound
	}

	// ErrAlertNotDraft passes through as a conflict; a store failure
	// must not masquerade as one.
	if err := es.emergencyRepo.Activate(ctx, alert.ID); err != nil {
		return nil, err
	}
	alert.Status = models.AlertStatusActive

	return es.fanOut(ctx, alert)
}

// SendEmergencyAlert creates and immediately activates a system-wide
// alert, the one-shot path used by dispatch.
func (es *EmergencyService) SendEmergencyAlert(ctx context.Context, createdBy string, req models.SendEmergencyAlertRequest) (*models.EmergencyAlert, *models.FanOutResult, error) {
	alert, err := es.CreateAlert(ctx, createdBy, models.CreateAlertRequest{
		Title:                  alertTitle(req.AlertType),
		Message:                req.Message,
		AlertType:              req.AlertType,
		Severity:               models.SeverityEmergency,
		TargetAreas:            req.AffectedAreas,
		ExcludeUserIDs:         req.ExcludeUsers,
		RequiresAcknowledgment: true,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := es.emergencyRepo.Activate(ctx, alert.ID); err != nil {
		return nil, nil, err
	}
	alert.Status = models.AlertStatusActive

	result, err := es.fanOut(ctx, alert)
	if err != nil {
		return nil, nil, err
	}

	return alert, result, nil
}

// fanOut delivers the alert to every resolved recipient. Recipients are
// processed concurrently under a bounded group; partial failure is
// reported in the result, never as an error.
func (es *EmergencyService) fanOut(ctx context.Context, alert *models.EmergencyAlert) (*models.FanOutResult, error) {
	targets, err := es.resolveTargets(ctx, alert)
	if err != nil {
		return nil, err
	}

	logrus.Infof("Fanning out emergency alert %s to %d recipients", alert.ID.Hex(), len(targets))

	es.broadcastAlert(alert)

	result := &models.FanOutResult{TotalRecipients: len(targets)}
	var mu sync.Mutex

	var group errgroup.Group
	group.SetLimit(fanOutConcurrency)

	for i := range targets {
		user := &targets[i]
		group.Go(func() error {
			notification := &models.Notification{
				RecipientUserID: user.ID,
				RecipientEmail:  user.Email,
				RecipientPhone:  user.Phone,
				Subject:         alert.Title,
				Message:         alert.Message,
				Type:            models.NotificationEmergencyAlert,
				Priority:        models.PriorityEmergency,
				Status:          models.StatusPending,
				ContextData: map[string]interface{}{
					"alertId":   alert.ID.Hex(),
					"alertType": alert.AlertType,
					"severity":  alert.Severity,
				},
			}

			if err := es.notificationRepo.Create(ctx, notification); err != nil {
				logrus.Errorf("Failed to create alert notification for user %s: %v", user.ID.Hex(), err)
				mu.Lock()
				result.TotalFailed++
				mu.Unlock()
				return nil
			}

			recipient := user.ToRecipient(nil)
			channels := es.selector.AllChannelsFor(recipient)

			delivered, attempts := es.deliverer.SendToAllChannels(ctx, notification, recipient, channels)

			mu.Lock()
			result.TotalAttempts += attempts
			if delivered {
				result.TotalDelivered++
			} else {
				result.TotalFailed++
			}
			mu.Unlock()
			return nil
		})
	}
	group.Wait()

	if err := es.emergencyRepo.SetDeliveryStats(ctx, alert.ID, result.TotalRecipients, result.TotalDelivered); err != nil {
		logrus.Errorf("Failed to record alert delivery stats: %v", err)
	}

	return result, nil
}

// resolveTargets computes the deduplicated recipient set: explicit
// targets plus role matches, minus exclusions. An alert with no
// targeting goes to every active user.
func (es *EmergencyService) resolveTargets(ctx context.Context, alert *models.EmergencyAlert) ([]models.User, error) {
	seen := make(map[primitive.ObjectID]bool)
	excluded := make(map[primitive.ObjectID]bool, len(alert.ExcludeUserIDs))
	for _, id := range alert.ExcludeUserIDs {
		excluded[id] = true
	}

	var targets []models.User
	add := func(users []models.User) {
		for _, user := range users {
			if seen[user.ID] || excluded[user.ID] {
				continue
			}
			seen[user.ID] = true
			targets = append(targets, user)
		}
	}

	if len(alert.TargetUserIDs) == 0 && len(alert.TargetRoles) == 0 {
		users, err := es.userRepo.GetActive(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve alert recipients: %w", err)
		}
		add(users)
		return targets, nil
	}

	if len(alert.TargetUserIDs) > 0 {
		users, err := es.userRepo.GetByIDs(ctx, alert.TargetUserIDs)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve explicit alert targets: %w", err)
		}
		add(users)
	}

	if len(alert.TargetRoles) > 0 {
		users, err := es.userRepo.GetByRoles(ctx, alert.TargetRoles)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve alert targets by role: %w", err)
		}
		add(users)
	}

	return targets, nil
}

func (es *EmergencyService) broadcastAlert(alert *models.EmergencyAlert) {
	if es.broadcaster == nil {
		return
	}

	es.broadcaster.BroadcastEmergencyAlert(models.WSEmergencyAlert{
		AlertID:                alert.ID.Hex(),
		AlertType:              alert.AlertType,
		Severity:               alert.Severity,
		Title:                  alert.Title,
		Message:                alert.Message,
		RequiresAcknowledgment: alert.RequiresAcknowledgment,
		Timestamp:              time.Now(),
	})
}

// AcknowledgeAlert records a user's acknowledgment. Repeat calls are
// no-ops: the counter moves at most once per user.
func (es *EmergencyService) AcknowledgeAlert(ctx context.Context, alertID, userID string) (*models.EmergencyAlert, error) {
	userObjectID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, utils.NewServiceErrorWithStatus("VALIDATION_ERROR", "invalid user ID", 400)
	}

	alert, err := es.emergencyRepo.GetByID(ctx, alertID)
	if err != nil {
		return nil, utils.ErrAlertNotFound
	}
	if alert.Status != models.AlertStatusActive {
		return nil, utils.ErrAlertNotActive
	}

	recorded, err := es.emergencyRepo.Acknowledge(ctx, alert.ID, userObjectID)
	if err != nil {
		return nil, err
	}
	if !recorded {
		logrus.Debugf("User %s already acknowledged alert %s", userID, alertID)
	}

	return es.emergencyRepo.GetByID(ctx, alertID)
}

// ResolveAlert closes an active alert as resolved.
func (es *EmergencyService) ResolveAlert(ctx context.Context, alertID string) error {
	return es.closeAlert(ctx, alertID, models.AlertStatusResolved)
}

// CancelAlert closes an active alert as cancelled.
func (es *EmergencyService) CancelAlert(ctx context.Context, alertID string) error {
	return es.closeAlert(ctx, alertID, models.AlertStatusCancelled)
}

func (es *EmergencyService) closeAlert(ctx context.Context, alertID, status string) error {
	alert, err := es.emergencyRepo.GetByID(ctx, alertID)
	if err != nil {
		return utils.ErrAlertNotFound
	}
	if err := es.emergencyRepo.Close(ctx, alert.ID, status); err != nil {
		return utils.ErrAlertNotActive
	}
	return nil
}

func (es *EmergencyService) GetAlert(ctx context.Context, alertID string) (*models.EmergencyAlert, error) {
	alert, err := es.emergencyRepo.GetByID(ctx, alertID)
	if err != nil {
		return nil, utils.ErrAlertNotFound
	}
	return alert, nil
}

func (es *EmergencyService) ListAlerts(ctx context.Context, status string, limit int) ([]models.EmergencyAlert, error) {
	return es.emergencyRepo.List(ctx, status, limit)
}

// AutoResolveSweep resolves active alerts past their auto-resolve
// deadline. Used by the background worker.
func (es *EmergencyService) AutoResolveSweep(ctx context.Context) (int, error) {
	alerts, err := es.emergencyRepo.GetAutoResolvable(ctx)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for i := range alerts {
		if err := es.emergencyRepo.Close(ctx, alerts[i].ID, models.AlertStatusResolved); err != nil {
			logrus.Warnf("Failed to auto-resolve alert %s: %v", alerts[i].ID.Hex(), err)
			continue
		}
		resolved++
	}

	return resolved, nil
}

func parseObjectIDs(raw []string) ([]primitive.ObjectID, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	ids := make([]primitive.ObjectID, 0, len(raw))
	for _, value := range raw {
		id, err := primitive.ObjectIDFromHex(value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func alertTitle(alertType string) string {
	title := strings.ReplaceAll(alertType, "_", " ")
	if title == "" {
		return "Emergency Alert"
	}
	return "EMERGENCY: " + strings.ToUpper(title[:1]) + title[1:]
}
