package services

import (
	"context"
	"time"

	"mediconnect/models"
	"mediconnect/repositories"

	"github.com/sirupsen/logrus"
)

// preferenceStore is what the resolver needs from persistence.
// *repositories.PreferenceRepository satisfies it.
type preferenceStore interface {
	GetByUserID(ctx context.Context, userID string) (*models.NotificationPreference, error)
	Upsert(ctx context.Context, pref *models.NotificationPreference) error
}

// PreferenceService resolves whether a notification may reach a user on
// a given channel, and manages the stored preference records.
type PreferenceService struct {
	preferenceRepo preferenceStore
}

func NewPreferenceService(preferenceRepo *repositories.PreferenceRepository) *PreferenceService {
	return &PreferenceService{preferenceRepo: preferenceRepo}
}

func newPreferenceServiceWithStore(store preferenceStore) *PreferenceService {
	return &PreferenceService{preferenceRepo: store}
}

// GetPreferences returns the stored preferences for a user, or the
// all-on defaults when none exist.
func (ps *PreferenceService) GetPreferences(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	return ps.preferenceRepo.GetByUserID(ctx, userID)
}

// UpdatePreferences merges the partial update into the user's stored
// record. Absent fields keep their current value.
func (ps *PreferenceService) UpdatePreferences(ctx context.Context, userID string, req models.UpdatePreferencesRequest) (*models.NotificationPreference, error) {
	prefs, err := ps.preferenceRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	applyBool := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}

	applyBool(&prefs.EmailEnabled, req.EmailEnabled)
	applyBool(&prefs.SMSEnabled, req.SMSEnabled)
	applyBool(&prefs.PushEnabled, req.PushEnabled)
	applyBool(&prefs.VoiceEnabled, req.VoiceEnabled)
	applyBool(&prefs.InAppEnabled, req.InAppEnabled)
	applyBool(&prefs.EmergencyAlerts, req.EmergencyAlerts)
	applyBool(&prefs.DispatchNotifications, req.DispatchNotifications)
	applyBool(&prefs.StatusUpdates, req.StatusUpdates)
	applyBool(&prefs.SystemAlerts, req.SystemAlerts)
	applyBool(&prefs.WeekendNotifications, req.WeekendNotifications)

	if req.QuietHoursStart != "" {
		prefs.QuietHoursStart = req.QuietHoursStart
	}
	if req.QuietHoursEnd != "" {
		prefs.QuietHoursEnd = req.QuietHoursEnd
	}
	if req.PreferredEmail != "" {
		prefs.PreferredEmail = req.PreferredEmail
	}
	if req.PreferredPhone != "" {
		prefs.PreferredPhone = req.PreferredPhone
	}

	prefs.UpdatedAt = time.Now()

	if err := ps.preferenceRepo.Upsert(ctx, prefs); err != nil {
		return nil, err
	}

	return prefs, nil
}

// ShouldDeliver applies the preference rules in order: critical and
// emergency traffic always goes out; then category opt-out, channel
// opt-out, quiet hours (urgent and above pass through), and the
// weekend flag.
func (ps *PreferenceService) ShouldDeliver(prefs *models.NotificationPreference, notification *models.Notification, channel models.ChannelType, now time.Time) (bool, string) {
	if isPriorityAtLeast(notification.Priority, models.PriorityCritical) {
		return true, ""
	}

	if !prefs.CategoryEnabled(notification.Type) {
		return false, "category disabled by user preference"
	}

	if !prefs.ChannelEnabled(channel) {
		return false, "channel disabled by user preference"
	}

	bypassTiming := isPriorityAtLeast(notification.Priority, models.PriorityUrgent)

	if !bypassTiming && prefs.IsInQuietHours(now) {
		return false, "inside quiet hours"
	}

	if !bypassTiming && !prefs.WeekendNotifications && isWeekend(now) {
		return false, "weekend notifications disabled"
	}

	return true, ""
}

// ResolveForUser loads the user's preferences and applies ShouldDeliver.
// Preference lookup failures fail open so a preference outage never
// blocks delivery.
func (ps *PreferenceService) ResolveForUser(ctx context.Context, userID string, notification *models.Notification, channel models.ChannelType) (bool, string) {
	prefs, err := ps.preferenceRepo.GetByUserID(ctx, userID)
	if err != nil {
		logrus.Warnf("Failed to load preferences for user %s, allowing delivery: %v", userID, err)
		return true, ""
	}

	return ps.ShouldDeliver(prefs, notification, channel, time.Now())
}

var priorityRank = map[models.Priority]int{
	models.PriorityLow:       0,
	models.PriorityNormal:    1,
	models.PriorityHigh:      2,
	models.PriorityUrgent:    3,
	models.PriorityCritical:  4,
	models.PriorityEmergency: 5,
}

func isPriorityAtLeast(p, threshold models.Priority) bool {
	return priorityRank[p] >= priorityRank[threshold]
}

func isWeekend(t time.Time) bool {
	weekday := t.Weekday()
	return weekday == time.Saturday || weekday == time.Sunday
}
