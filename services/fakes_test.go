package services

import (
	"context"
	"sync"

	"mediconnect/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeSender scripts one channel's outcome and counts calls.
type fakeSender struct {
	channel models.ChannelType
	result  DeliveryResult

	mu    sync.Mutex
	calls int
}

func (f *fakeSender) ChannelType() models.ChannelType { return f.channel }

func (f *fakeSender) Send(ctx context.Context, recipient *models.Recipient, notification *models.Notification) DeliveryResult {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.result
}

func (f *fakeSender) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeNotificationStore records the state transitions the orchestrator
// drives instead of hitting Mongo.
type fakeNotificationStore struct {
	mu sync.Mutex

	created     []*models.Notification
	createErr   error
	markSentErr error
	transitions []string
	sentChannel models.ChannelType
	sentID      string
	failMessage string
	attempts    int
	pending     []models.Notification
}

func (f *fakeNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	f.created = append(f.created, n)
	return nil
}

func (f *fakeNotificationStore) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, n := range f.created {
		if n.ID.Hex() == id {
			return n, nil
		}
	}
	return nil, nil
}

func (f *fakeNotificationStore) GetUserNotifications(ctx context.Context, userID string, page, pageSize int, status string) ([]models.Notification, int64, error) {
	return nil, 0, nil
}

func (f *fakeNotificationStore) GetPendingDue(ctx context.Context, limit int) ([]models.Notification, error) {
	return f.pending, nil
}

func (f *fakeNotificationStore) record(transition string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transitions = append(f.transitions, transition)
}

func (f *fakeNotificationStore) MarkSent(ctx context.Context, id primitive.ObjectID, channel models.ChannelType, externalID string) error {
	f.mu.Lock()
	if f.markSentErr != nil {
		err := f.markSentErr
		f.mu.Unlock()
		return err
	}
	f.sentChannel = channel
	f.sentID = externalID
	f.mu.Unlock()
	f.record("sent")
	return nil
}

func (f *fakeNotificationStore) MarkDelivered(ctx context.Context, id primitive.ObjectID) error {
	f.record("delivered")
	return nil
}

func (f *fakeNotificationStore) MarkFailed(ctx context.Context, id primitive.ObjectID, errorMessage string) error {
	f.mu.Lock()
	f.failMessage = errorMessage
	f.mu.Unlock()
	f.record("failed")
	return nil
}

func (f *fakeNotificationStore) MarkCancelled(ctx context.Context, id primitive.ObjectID) error {
	f.record("cancelled")
	return nil
}

func (f *fakeNotificationStore) MarkExpired(ctx context.Context, id primitive.ObjectID) error {
	f.record("expired")
	return nil
}

func (f *fakeNotificationStore) IncrementAttempts(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	return nil
}

func (f *fakeNotificationStore) ExpireOverdue(ctx context.Context) (int64, error) {
	return 0, nil
}

func (f *fakeNotificationStore) lastTransition() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.transitions) == 0 {
		return ""
	}
	return f.transitions[len(f.transitions)-1]
}

// fakeDeliveryLogStore keeps log rows in memory.
type fakeDeliveryLogStore struct {
	mu      sync.Mutex
	entries []models.DeliveryLog
}

func (f *fakeDeliveryLogStore) Create(ctx context.Context, entry *models.DeliveryLog) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeDeliveryLogStore) GetByNotification(ctx context.Context, notificationID string) ([]models.DeliveryLog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.DeliveryLog(nil), f.entries...), nil
}

// fakeChannelStats serves channel records and counts stat updates.
type fakeChannelStats struct {
	mu       sync.Mutex
	records  map[models.ChannelType]*models.NotificationChannel
	attempts map[primitive.ObjectID]int
}

func (f *fakeChannelStats) GetByType(ctx context.Context, channelType models.ChannelType) (*models.NotificationChannel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.records == nil {
		return nil, nil
	}
	return f.records[channelType], nil
}

func (f *fakeChannelStats) RecordAttempt(ctx context.Context, id primitive.ObjectID, delivered bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attempts == nil {
		f.attempts = make(map[primitive.ObjectID]int)
	}
	f.attempts[id]++
	return nil
}

// fakeUserDirectory serves users by id, role and active flag.
type fakeUserDirectory struct {
	users []models.User
}

func (f *fakeUserDirectory) GetByID(ctx context.Context, userID string) (*models.User, error) {
	for i := range f.users {
		if f.users[i].ID.Hex() == userID {
			return &f.users[i], nil
		}
	}
	return nil, nil
}

func (f *fakeUserDirectory) GetByIDs(ctx context.Context, userIDs []primitive.ObjectID) ([]models.User, error) {
	wanted := make(map[primitive.ObjectID]bool, len(userIDs))
	for _, id := range userIDs {
		wanted[id] = true
	}
	var out []models.User
	for _, u := range f.users {
		if wanted[u.ID] {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserDirectory) GetByRoles(ctx context.Context, roles []string) ([]models.User, error) {
	wanted := make(map[string]bool, len(roles))
	for _, r := range roles {
		wanted[r] = true
	}
	var out []models.User
	for _, u := range f.users {
		if wanted[u.Role] {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserDirectory) GetActive(ctx context.Context) ([]models.User, error) {
	var out []models.User
	for _, u := range f.users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	return out, nil
}

// fakePreferenceStore serves one preference record, or an error.
type fakePreferenceStore struct {
	prefs    *models.NotificationPreference
	err      error
	upserted *models.NotificationPreference
}

func (f *fakePreferenceStore) GetByUserID(ctx context.Context, userID string) (*models.NotificationPreference, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.prefs != nil {
		return f.prefs, nil
	}
	return models.DefaultPreferences(), nil
}

func (f *fakePreferenceStore) Upsert(ctx context.Context, pref *models.NotificationPreference) error {
	f.upserted = pref
	return nil
}

// fakeTemplateStore serves templates by name.
type fakeTemplateStore struct {
	templates map[string]*models.NotificationTemplate
}

func (f *fakeTemplateStore) GetActiveByName(ctx context.Context, name string) (*models.NotificationTemplate, error) {
	if f.templates == nil {
		return nil, nil
	}
	return f.templates[name], nil
}

// stubChannelLookup reports every channel record as absent, which the
// selector treats as available.
type stubChannelLookup struct{}

func (stubChannelLookup) GetByType(ctx context.Context, channelType models.ChannelType) (*models.NotificationChannel, error) {
	return nil, nil
}

// gateFunc adapts a closure to the delivery gate.
type gateFunc func(recipientID string, channel models.ChannelType) bool

func (g gateFunc) TryConsume(ctx context.Context, recipientID string, channel models.ChannelType) bool {
	return g(recipientID, channel)
}

func allowAll() gateFunc {
	return func(string, models.ChannelType) bool { return true }
}
