package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"mediconnect/models"
	"mediconnect/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeEmergencyStore mimics the guarded alert updates in memory.
type fakeEmergencyStore struct {
	mu          sync.Mutex
	alerts      map[primitive.ObjectID]*models.EmergencyAlert
	activateErr error
}

func newFakeEmergencyStore() *fakeEmergencyStore {
	return &fakeEmergencyStore{alerts: make(map[primitive.ObjectID]*models.EmergencyAlert)}
}

func (f *fakeEmergencyStore) Create(ctx context.Context, alert *models.EmergencyAlert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if alert.ID.IsZero() {
		alert.ID = primitive.NewObjectID()
	}
	if alert.Status == "" {
		alert.Status = models.AlertStatusDraft
	}
	copied := *alert
	f.alerts[alert.ID] = &copied
	return nil
}

func (f *fakeEmergencyStore) GetByID(ctx context.Context, id string) (*models.EmergencyAlert, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, ok := f.alerts[objectID]
	if !ok {
		return nil, errors.New("alert not found")
	}
	copied := *alert
	return &copied, nil
}

func (f *fakeEmergencyStore) List(ctx context.Context, status string, limit int) ([]models.EmergencyAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.EmergencyAlert
	for _, alert := range f.alerts {
		if status == "" || alert.Status == status {
			out = append(out, *alert)
		}
	}
	return out, nil
}

func (f *fakeEmergencyStore) Activate(ctx context.Context, id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activateErr != nil {
		return f.activateErr
	}
	alert, ok := f.alerts[id]
	if !ok || alert.Status != models.AlertStatusDraft {
		return utils.ErrAlertNotDraft
	}
	alert.Status = models.AlertStatusActive
	alert.AlertStart = time.Now()
	return nil
}

func (f *fakeEmergencyStore) SetDeliveryStats(ctx context.Context, id primitive.ObjectID, totalRecipients, totalDelivered int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if alert, ok := f.alerts[id]; ok {
		alert.TotalRecipients = totalRecipients
		alert.TotalDelivered = totalDelivered
	}
	return nil
}

func (f *fakeEmergencyStore) Acknowledge(ctx context.Context, alertID, userID primitive.ObjectID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, ok := f.alerts[alertID]
	if !ok || alert.Status != models.AlertStatusActive {
		return false, nil
	}
	for _, existing := range alert.AcknowledgedBy {
		if existing == userID {
			return false, nil
		}
	}
	alert.AcknowledgedBy = append(alert.AcknowledgedBy, userID)
	alert.TotalAcknowledged++
	return true, nil
}

func (f *fakeEmergencyStore) Close(ctx context.Context, id primitive.ObjectID, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	alert, ok := f.alerts[id]
	if !ok || alert.Status != models.AlertStatusActive {
		return errors.New("alert is not active")
	}
	alert.Status = status
	now := time.Now()
	alert.AlertEnd = &now
	return nil
}

func (f *fakeEmergencyStore) GetAutoResolvable(ctx context.Context) ([]models.EmergencyAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	var out []models.EmergencyAlert
	for _, alert := range f.alerts {
		if alert.Status == models.AlertStatusActive && alert.AutoResolveAt != nil && alert.AutoResolveAt.Before(now) {
			out = append(out, *alert)
		}
	}
	return out, nil
}

// fakeDeliverer records which recipients the fan-out reached.
type fakeDeliverer struct {
	mu         sync.Mutex
	recipients []string
	delivered  bool
}

func (f *fakeDeliverer) SendToAllChannels(ctx context.Context, notification *models.Notification, recipient *models.Recipient, channels []models.ChannelType) (bool, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recipients = append(f.recipients, recipient.UserID)
	return f.delivered, len(channels)
}

func (f *fakeDeliverer) reached() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.recipients...)
	sort.Strings(out)
	return out
}

// fakeBroadcaster captures websocket broadcasts.
type fakeBroadcaster struct {
	mu     sync.Mutex
	alerts []models.WSEmergencyAlert
}

func (f *fakeBroadcaster) BroadcastEmergencyAlert(alert models.WSEmergencyAlert) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alert)
}

type emergencyHarness struct {
	service     *EmergencyService
	store       *fakeEmergencyStore
	deliverer   *fakeDeliverer
	broadcaster *fakeBroadcaster
	users       []models.User
}

func nurse(active bool) models.User {
	return models.User{
		ID:       primitive.NewObjectID(),
		Email:    "nurse@hospital.example",
		Role:     models.RoleNurse,
		IsActive: active,
	}
}

func newEmergencyHarness(t *testing.T, users []models.User) *emergencyHarness {
	t.Helper()

	store := newFakeEmergencyStore()
	deliverer := &fakeDeliverer{delivered: true}
	broadcaster := &fakeBroadcaster{}

	registry := NewSenderRegistry(
		&fakeSender{channel: models.ChannelEmail, result: success("x")},
		&fakeSender{channel: models.ChannelInApp, result: success("x")},
	)
	selector := NewChannelSelector(stubChannelLookup{}, registry)

	service := NewEmergencyService(
		store,
		&fakeNotificationStore{},
		&fakeUserDirectory{users: users},
		deliverer,
		selector,
		broadcaster,
	)

	return &emergencyHarness{
		service:     service,
		store:       store,
		deliverer:   deliverer,
		broadcaster: broadcaster,
		users:       users,
	}
}

func TestActivateAlertDeduplicatesTargets(t *testing.T) {
	t.Parallel()

	explicitA := nurse(true)
	explicitA.Role = models.RoleDoctor
	overlap := nurse(true) // explicitly targeted AND matches the role filter
	roleOnly := nurse(true)
	excluded := nurse(true)
	unrelated := models.User{ID: primitive.NewObjectID(), Role: models.RoleParamedic, IsActive: true, Email: "medic@hospital.example"}

	h := newEmergencyHarness(t, []models.User{explicitA, overlap, roleOnly, excluded, unrelated})
	creator := primitive.NewObjectID().Hex()

	alert, err := h.service.CreateAlert(context.Background(), creator, models.CreateAlertRequest{
		Title:          "Mass casualty incident",
		Message:        "All hands to the emergency department",
		AlertType:      "mass_casualty",
		Severity:       models.SeverityEmergency,
		TargetUserIDs:  []string{explicitA.ID.Hex(), overlap.ID.Hex()},
		TargetRoles:    []string{models.RoleNurse},
		ExcludeUserIDs: []string{excluded.ID.Hex()},
	})
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusDraft, alert.Status)
	assert.Empty(t, h.deliverer.reached(), "draft alerts deliver nothing")

	result, err := h.service.ActivateAlert(context.Background(), alert.ID.Hex())
	require.NoError(t, err)

	// explicitA + overlap + roleOnly; overlap counted once, excluded
	// nurse and the unrelated paramedic are skipped.
	assert.Equal(t, 3, result.TotalRecipients)
	assert.Equal(t, 3, result.TotalDelivered)

	want := []string{explicitA.ID.Hex(), overlap.ID.Hex(), roleOnly.ID.Hex()}
	sort.Strings(want)
	assert.Equal(t, want, h.deliverer.reached())

	require.Len(t, h.broadcaster.alerts, 1)
	assert.Equal(t, alert.ID.Hex(), h.broadcaster.alerts[0].AlertID)
}

func TestActivateAlertWithoutTargetingReachesAllActiveUsers(t *testing.T) {
	t.Parallel()

	active1 := nurse(true)
	active2 := nurse(true)
	inactive := nurse(false)

	h := newEmergencyHarness(t, []models.User{active1, active2, inactive})
	creator := primitive.NewObjectID().Hex()

	alert, err := h.service.CreateAlert(context.Background(), creator, models.CreateAlertRequest{
		Title:     "Facility evacuation",
		Message:   "Evacuate wing B immediately",
		AlertType: "evacuation",
		Severity:  models.SeverityEmergency,
	})
	require.NoError(t, err)

	result, err := h.service.ActivateAlert(context.Background(), alert.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalRecipients)

	stored, err := h.store.GetByID(context.Background(), alert.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusActive, stored.Status)
	assert.Equal(t, 2, stored.TotalRecipients)
	assert.Equal(t, 2, stored.TotalDelivered)
}

func TestActivateAlertTwiceConflicts(t *testing.T) {
	t.Parallel()

	h := newEmergencyHarness(t, []models.User{nurse(true)})
	creator := primitive.NewObjectID().Hex()

	alert, err := h.service.CreateAlert(context.Background(), creator, models.CreateAlertRequest{
		Title:     "Code red",
		Message:   "Fire reported in the east wing",
		AlertType: "fire",
		Severity:  models.SeverityCritical,
	})
	require.NoError(t, err)

	_, err = h.service.ActivateAlert(context.Background(), alert.ID.Hex())
	require.NoError(t, err)

	_, err = h.service.ActivateAlert(context.Background(), alert.ID.Hex())
	require.Error(t, err)
	serviceErr, ok := utils.GetServiceError(err)
	require.True(t, ok)
	assert.Equal(t, "ALERT_NOT_DRAFT", serviceErr.Code)
}

func TestActivateAlertStoreFailureIsNotAConflict(t *testing.T) {
	t.Parallel()

	h := newEmergencyHarness(t, []models.User{nurse(true)})
	creator := primitive.NewObjectID().Hex()

	alert, err := h.service.CreateAlert(context.Background(), creator, models.CreateAlertRequest{
		Title:     "Code red",
		Message:   "Fire reported in the east wing",
		AlertType: "fire",
		Severity:  models.SeverityCritical,
	})
	require.NoError(t, err)

	storeErr := errors.New("connection reset")
	h.store.activateErr = storeErr

	_, err = h.service.ActivateAlert(context.Background(), alert.ID.Hex())
	require.Error(t, err)
	assert.ErrorIs(t, err, storeErr)
	assert.NotErrorIs(t, err, utils.ErrAlertNotDraft)
}

func TestAcknowledgeAlertIsIdempotent(t *testing.T) {
	t.Parallel()

	user := nurse(true)
	h := newEmergencyHarness(t, []models.User{user})
	creator := primitive.NewObjectID().Hex()

	alert, err := h.service.CreateAlert(context.Background(), creator, models.CreateAlertRequest{
		Title:                  "Code blue",
		Message:                "Cardiac arrest, room 214",
		AlertType:              "code_blue",
		Severity:               models.SeverityEmergency,
		RequiresAcknowledgment: true,
	})
	require.NoError(t, err)
	_, err = h.service.ActivateAlert(context.Background(), alert.ID.Hex())
	require.NoError(t, err)

	first, err := h.service.AcknowledgeAlert(context.Background(), alert.ID.Hex(), user.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalAcknowledged)

	// A repeat acknowledgment from the same user must not move the counter.
	second, err := h.service.AcknowledgeAlert(context.Background(), alert.ID.Hex(), user.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, 1, second.TotalAcknowledged)
	assert.Len(t, second.AcknowledgedBy, 1)
}

func TestAcknowledgeAlertRequiresActiveAlert(t *testing.T) {
	t.Parallel()

	user := nurse(true)
	h := newEmergencyHarness(t, []models.User{user})
	creator := primitive.NewObjectID().Hex()

	alert, err := h.service.CreateAlert(context.Background(), creator, models.CreateAlertRequest{
		Title:     "Draft alert",
		Message:   "Not yet live",
		AlertType: "drill",
		Severity:  models.SeverityCritical,
	})
	require.NoError(t, err)

	_, err = h.service.AcknowledgeAlert(context.Background(), alert.ID.Hex(), user.ID.Hex())
	assert.ErrorIs(t, err, utils.ErrAlertNotActive)

	_, err = h.service.AcknowledgeAlert(context.Background(), primitive.NewObjectID().Hex(), user.ID.Hex())
	assert.ErrorIs(t, err, utils.ErrAlertNotFound)
}

func TestSendEmergencyAlertOneShot(t *testing.T) {
	t.Parallel()

	h := newEmergencyHarness(t, []models.User{nurse(true), nurse(true)})
	creator := primitive.NewObjectID().Hex()

	alert, result, err := h.service.SendEmergencyAlert(context.Background(), creator, models.SendEmergencyAlertRequest{
		AlertType: "mass_casualty",
		Message:   "Multi-vehicle accident inbound, ETA 10 minutes",
	})
	require.NoError(t, err)

	assert.Equal(t, models.AlertStatusActive, alert.Status)
	assert.Equal(t, "EMERGENCY: Mass casualty", alert.Title)
	assert.Equal(t, models.SeverityEmergency, alert.Severity)
	assert.True(t, alert.RequiresAcknowledgment)
	assert.Equal(t, 2, result.TotalRecipients)
}

func TestResolveAlertLifecycle(t *testing.T) {
	t.Parallel()

	h := newEmergencyHarness(t, []models.User{nurse(true)})
	creator := primitive.NewObjectID().Hex()

	alert, err := h.service.CreateAlert(context.Background(), creator, models.CreateAlertRequest{
		Title:     "Chemical spill",
		Message:   "Hazmat response required",
		AlertType: "hazmat",
		Severity:  models.SeverityCritical,
	})
	require.NoError(t, err)

	// Closing a draft alert conflicts.
	err = h.service.ResolveAlert(context.Background(), alert.ID.Hex())
	assert.ErrorIs(t, err, utils.ErrAlertNotActive)

	_, err = h.service.ActivateAlert(context.Background(), alert.ID.Hex())
	require.NoError(t, err)
	require.NoError(t, h.service.ResolveAlert(context.Background(), alert.ID.Hex()))

	stored, err := h.store.GetByID(context.Background(), alert.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusResolved, stored.Status)
	require.NotNil(t, stored.AlertEnd)
}

func TestAutoResolveSweep(t *testing.T) {
	t.Parallel()

	h := newEmergencyHarness(t, []models.User{nurse(true)})
	creator := primitive.NewObjectID().Hex()

	past := time.Now().Add(-time.Hour)
	alert, err := h.service.CreateAlert(context.Background(), creator, models.CreateAlertRequest{
		Title:         "Severe weather",
		Message:       "Tornado warning in effect",
		AlertType:     "weather",
		Severity:      models.SeverityCritical,
		AutoResolveAt: &past,
	})
	require.NoError(t, err)
	_, err = h.service.ActivateAlert(context.Background(), alert.ID.Hex())
	require.NoError(t, err)

	resolved, err := h.service.AutoResolveSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, resolved)

	stored, err := h.store.GetByID(context.Background(), alert.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.AlertStatusResolved, stored.Status)
}
