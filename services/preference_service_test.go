package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"mediconnect/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tuesday 14:30 and Tuesday 02:00, plus a Saturday afternoon.
var (
	tuesdayAfternoon = time.Date(2025, time.March, 4, 14, 30, 0, 0, time.UTC)
	tuesdayNight     = time.Date(2025, time.March, 4, 2, 0, 0, 0, time.UTC)
	saturdayNoon     = time.Date(2025, time.March, 8, 12, 0, 0, 0, time.UTC)
)

func TestShouldDeliver(t *testing.T) {
	t.Parallel()

	quietPrefs := models.DefaultPreferences()
	quietPrefs.QuietHoursStart = "22:00"
	quietPrefs.QuietHoursEnd = "07:00"

	noSMS := models.DefaultPreferences()
	noSMS.SMSEnabled = false

	noDispatch := models.DefaultPreferences()
	noDispatch.DispatchNotifications = false

	noWeekends := models.DefaultPreferences()
	noWeekends.WeekendNotifications = false

	tests := []struct {
		name       string
		prefs      *models.NotificationPreference
		priority   models.Priority
		notifType  string
		channel    models.ChannelType
		now        time.Time
		want       bool
		wantReason string
	}{
		{
			name:     "defaults allow normal email",
			prefs:    models.DefaultPreferences(),
			priority: models.PriorityNormal,
			channel:  models.ChannelEmail,
			now:      tuesdayAfternoon,
			want:     true,
		},
		{
			name:       "disabled channel vetoes",
			prefs:      noSMS,
			priority:   models.PriorityHigh,
			channel:    models.ChannelSMS,
			now:        tuesdayAfternoon,
			want:       false,
			wantReason: "channel disabled by user preference",
		},
		{
			name:       "disabled category vetoes before channel",
			prefs:      noDispatch,
			priority:   models.PriorityHigh,
			notifType:  models.NotificationDispatch,
			channel:    models.ChannelPush,
			now:        tuesdayAfternoon,
			want:       false,
			wantReason: "category disabled by user preference",
		},
		{
			name:       "quiet hours block normal overnight",
			prefs:      quietPrefs,
			priority:   models.PriorityNormal,
			channel:    models.ChannelEmail,
			now:        tuesdayNight,
			want:       false,
			wantReason: "inside quiet hours",
		},
		{
			name:     "quiet hours window does not cover afternoon",
			prefs:    quietPrefs,
			priority: models.PriorityNormal,
			channel:  models.ChannelEmail,
			now:      tuesdayAfternoon,
			want:     true,
		},
		{
			name:     "urgent passes quiet hours",
			prefs:    quietPrefs,
			priority: models.PriorityUrgent,
			channel:  models.ChannelPush,
			now:      tuesdayNight,
			want:     true,
		},
		{
			name:     "critical bypasses every preference",
			prefs:    noSMS,
			priority: models.PriorityCritical,
			channel:  models.ChannelSMS,
			now:      tuesdayNight,
			want:     true,
		},
		{
			name:      "emergency bypasses disabled category",
			prefs:     noDispatch,
			priority:  models.PriorityEmergency,
			notifType: models.NotificationDispatch,
			channel:   models.ChannelVoice,
			now:       saturdayNoon,
			want:      true,
		},
		{
			name:       "weekend opt-out blocks normal on saturday",
			prefs:      noWeekends,
			priority:   models.PriorityNormal,
			channel:    models.ChannelEmail,
			now:        saturdayNoon,
			want:       false,
			wantReason: "weekend notifications disabled",
		},
		{
			name:     "weekend opt-out does not apply to urgent",
			prefs:    noWeekends,
			priority: models.PriorityUrgent,
			channel:  models.ChannelEmail,
			now:      saturdayNoon,
			want:     true,
		},
	}

	ps := newPreferenceServiceWithStore(&fakePreferenceStore{})

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			notifType := tt.notifType
			if notifType == "" {
				notifType = models.NotificationStatusUpdate
			}
			notification := &models.Notification{
				Type:     notifType,
				Priority: tt.priority,
			}

			got, reason := ps.ShouldDeliver(tt.prefs, notification, tt.channel, tt.now)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestQuietHoursOvernightWindow(t *testing.T) {
	t.Parallel()

	prefs := models.DefaultPreferences()
	prefs.QuietHoursStart = "22:00"
	prefs.QuietHoursEnd = "07:00"

	assert.True(t, prefs.IsInQuietHours(time.Date(2025, time.March, 4, 23, 15, 0, 0, time.UTC)))
	assert.True(t, prefs.IsInQuietHours(time.Date(2025, time.March, 4, 6, 59, 0, 0, time.UTC)))
	assert.False(t, prefs.IsInQuietHours(time.Date(2025, time.March, 4, 7, 1, 0, 0, time.UTC)))
	assert.False(t, prefs.IsInQuietHours(time.Date(2025, time.March, 4, 21, 59, 0, 0, time.UTC)))
}

func TestResolveForUserFailsOpen(t *testing.T) {
	t.Parallel()

	ps := newPreferenceServiceWithStore(&fakePreferenceStore{err: errors.New("mongo down")})

	notification := &models.Notification{
		Type:     models.NotificationStatusUpdate,
		Priority: models.PriorityNormal,
	}

	allowed, reason := ps.ResolveForUser(context.Background(), "user-1", notification, models.ChannelEmail)
	assert.True(t, allowed)
	assert.Empty(t, reason)
}

func TestUpdatePreferencesMergesPartialUpdate(t *testing.T) {
	t.Parallel()

	store := &fakePreferenceStore{prefs: models.DefaultPreferences()}
	ps := newPreferenceServiceWithStore(store)

	off := false
	updated, err := ps.UpdatePreferences(context.Background(), "user-1", models.UpdatePreferencesRequest{
		SMSEnabled:      &off,
		QuietHoursStart: "22:00",
		QuietHoursEnd:   "06:00",
	})
	require.NoError(t, err)

	assert.False(t, updated.SMSEnabled)
	assert.True(t, updated.EmailEnabled, "untouched channels keep their value")
	assert.Equal(t, "22:00", updated.QuietHoursStart)
	assert.Equal(t, "06:00", updated.QuietHoursEnd)
	require.NotNil(t, store.upserted)
}
