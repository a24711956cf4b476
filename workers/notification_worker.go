package workers

import (
	"context"
	"sync"
	"time"

	"mediconnect/models"
	"mediconnect/services"
	"mediconnect/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationWorker drains the pending notification backlog: a pool of
// workers delivers queued notifications while background sweeps expire
// overdue ones, auto-resolve stale alerts, and trim old delivery logs.
type NotificationWorker struct {
	notificationService *services.NotificationService
	emergencyService    *services.EmergencyService

	config NotificationWorkerConfig

	notificationQueue chan NotificationJob

	// Notifications queued but not yet processed, so the poller does
	// not enqueue the same one twice.
	inFlight      map[primitive.ObjectID]bool
	inFlightMutex sync.Mutex

	isRunning bool
	mutex     sync.RWMutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	stats      NotificationWorkerStats
	statsMutex sync.RWMutex
}

type NotificationWorkerConfig struct {
	WorkerCount       int           `json:"workerCount"`
	QueueSize         int           `json:"queueSize"`
	ProcessingTimeout time.Duration `json:"processingTimeout"`
	BatchSize         int           `json:"batchSize"`
	PollInterval      time.Duration `json:"pollInterval"`
	SweepInterval     time.Duration `json:"sweepInterval"`
	LogRetention      time.Duration `json:"logRetention"`
}

func DefaultWorkerConfig() NotificationWorkerConfig {
	return NotificationWorkerConfig{
		WorkerCount:       3,
		QueueSize:         500,
		ProcessingTimeout: 45 * time.Second,
		BatchSize:         50,
		PollInterval:      10 * time.Second,
		SweepInterval:     time.Minute,
	}
}

type NotificationJob struct {
	Notification models.Notification
	EnqueuedAt   time.Time
}

type NotificationWorkerStats struct {
	JobsProcessed      int64     `json:"jobsProcessed"`
	JobsFailed         int64     `json:"jobsFailed"`
	NotificationsSent  int64     `json:"notificationsSent"`
	Expired            int64     `json:"expired"`
	AlertsAutoResolved int64     `json:"alertsAutoResolved"`
	AverageProcessTime float64   `json:"averageProcessTime"` // ms
	LastProcessedAt    time.Time `json:"lastProcessedAt"`
	QueueLength        int       `json:"queueLength"`
	StartTime          time.Time `json:"startTime"`
}

func NewNotificationWorker(
	notificationService *services.NotificationService,
	emergencyService *services.EmergencyService,
	config NotificationWorkerConfig,
) *NotificationWorker {
	ctx, cancel := context.WithCancel(context.Background())

	if config.WorkerCount <= 0 {
		config = DefaultWorkerConfig()
	}

	return &NotificationWorker{
		notificationService: notificationService,
		emergencyService:    emergencyService,
		config:              config,
		notificationQueue:   make(chan NotificationJob, config.QueueSize),
		inFlight:            make(map[primitive.ObjectID]bool),
		ctx:                 ctx,
		cancel:              cancel,
		stats: NotificationWorkerStats{
			StartTime: time.Now(),
		},
	}
}

func (nw *NotificationWorker) Start() error {
	nw.mutex.Lock()
	defer nw.mutex.Unlock()

	if nw.isRunning {
		return nil
	}
	nw.isRunning = true

	logrus.Infof("Starting Notification Worker with %d workers", nw.config.WorkerCount)

	for i := 0; i < nw.config.WorkerCount; i++ {
		nw.wg.Add(1)
		go nw.worker(i)
	}

	nw.wg.Add(1)
	go nw.pendingNotificationPoller()

	nw.wg.Add(1)
	go nw.maintenanceSweeper()

	logrus.Info("Notification Worker started successfully")
	return nil
}

func (nw *NotificationWorker) Stop() error {
	nw.mutex.Lock()
	defer nw.mutex.Unlock()

	if !nw.isRunning {
		return nil
	}

	logrus.Info("Stopping Notification Worker...")

	nw.cancel()
	nw.isRunning = false

	// The queue is left open: closing it would race a Submit that
	// passed the running check. Jobs still queued remain pending in
	// the store and are re-polled on the next start.
	nw.wg.Wait()

	logrus.Info("Notification Worker stopped successfully")
	return nil
}

// Submit enqueues a notification for delivery. Duplicate submissions of
// an already-queued notification are dropped.
func (nw *NotificationWorker) Submit(notification models.Notification) error {
	nw.mutex.RLock()
	running := nw.isRunning
	nw.mutex.RUnlock()
	if !running {
		return utils.NewServiceError("WORKER_STOPPED", "notification worker is not running")
	}

	nw.inFlightMutex.Lock()
	if nw.inFlight[notification.ID] {
		nw.inFlightMutex.Unlock()
		return nil
	}
	nw.inFlight[notification.ID] = true
	nw.inFlightMutex.Unlock()

	job := NotificationJob{
		Notification: notification,
		EnqueuedAt:   time.Now(),
	}

	select {
	case <-nw.ctx.Done():
		nw.clearInFlight(notification.ID)
		return utils.NewServiceError("WORKER_STOPPED", "notification worker is not running")
	case nw.notificationQueue <- job:
		return nil
	default:
		nw.clearInFlight(notification.ID)
		return utils.NewServiceError("QUEUE_FULL", "notification queue is full")
	}
}

func (nw *NotificationWorker) worker(workerID int) {
	defer nw.wg.Done()

	logrus.Infof("Notification worker %d started", workerID)

	for {
		select {
		case job := <-nw.notificationQueue:
			nw.processJob(job, workerID)

		case <-nw.ctx.Done():
			logrus.Infof("Notification worker %d stopping due to context cancellation", workerID)
			return
		}
	}
}

func (nw *NotificationWorker) processJob(job NotificationJob, workerID int) {
	startTime := time.Now()
	defer nw.clearInFlight(job.Notification.ID)

	ctx, cancel := context.WithTimeout(nw.ctx, nw.config.ProcessingTimeout)
	defer cancel()

	logrus.Debugf("Worker %d delivering notification %s", workerID, job.Notification.ID.Hex())

	err := nw.notificationService.SendNotification(ctx, &job.Notification)

	nw.statsMutex.Lock()
	nw.stats.JobsProcessed++
	nw.stats.LastProcessedAt = time.Now()
	duration := float64(time.Since(startTime).Milliseconds())
	if nw.stats.JobsProcessed == 1 {
		nw.stats.AverageProcessTime = duration
	} else {
		nw.stats.AverageProcessTime = (nw.stats.AverageProcessTime + duration) / 2
	}
	if err != nil || job.Notification.Status != models.StatusDelivered {
		nw.stats.JobsFailed++
	} else {
		nw.stats.NotificationsSent++
	}
	nw.statsMutex.Unlock()

	if err != nil {
		logrus.Warnf("Worker %d delivery failed for %s: %v", workerID, job.Notification.ID.Hex(), err)
	}
}

func (nw *NotificationWorker) clearInFlight(id primitive.ObjectID) {
	nw.inFlightMutex.Lock()
	delete(nw.inFlight, id)
	nw.inFlightMutex.Unlock()
}

func (nw *NotificationWorker) pendingNotificationPoller() {
	defer nw.wg.Done()

	ticker := time.NewTicker(nw.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			nw.enqueuePending()
		case <-nw.ctx.Done():
			return
		}
	}
}

func (nw *NotificationWorker) enqueuePending() {
	ctx, cancel := context.WithTimeout(nw.ctx, nw.config.ProcessingTimeout)
	defer cancel()

	due, err := nw.notificationService.PendingDue(ctx, nw.config.BatchSize)
	if err != nil {
		logrus.Errorf("Failed to fetch pending notifications: %v", err)
		return
	}
	if len(due) == 0 {
		return
	}

	logrus.Debugf("Enqueueing %d pending notifications", len(due))

	for _, notification := range due {
		if err := nw.Submit(notification); err != nil {
			logrus.Warnf("Failed to enqueue notification %s: %v", notification.ID.Hex(), err)
		}
	}
}

// maintenanceSweeper expires overdue notifications and auto-resolves
// stale emergency alerts.
func (nw *NotificationWorker) maintenanceSweeper() {
	defer nw.wg.Done()

	ticker := time.NewTicker(nw.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			nw.sweep()
		case <-nw.ctx.Done():
			return
		}
	}
}

func (nw *NotificationWorker) sweep() {
	ctx, cancel := context.WithTimeout(nw.ctx, nw.config.ProcessingTimeout)
	defer cancel()

	expired, err := nw.notificationService.ExpireOverdue(ctx)
	if err != nil {
		logrus.Errorf("Expiry sweep failed: %v", err)
	} else if expired > 0 {
		logrus.Infof("Expired %d overdue notifications", expired)
		nw.statsMutex.Lock()
		nw.stats.Expired += expired
		nw.statsMutex.Unlock()
	}

	if nw.emergencyService == nil {
		return
	}

	resolved, err := nw.emergencyService.AutoResolveSweep(ctx)
	if err != nil {
		logrus.Errorf("Auto-resolve sweep failed: %v", err)
	} else if resolved > 0 {
		logrus.Infof("Auto-resolved %d emergency alerts", resolved)
		nw.statsMutex.Lock()
		nw.stats.AlertsAutoResolved += int64(resolved)
		nw.statsMutex.Unlock()
	}
}

func (nw *NotificationWorker) GetStats() NotificationWorkerStats {
	nw.statsMutex.RLock()
	defer nw.statsMutex.RUnlock()

	stats := nw.stats
	stats.QueueLength = len(nw.notificationQueue)
	return stats
}

func (nw *NotificationWorker) IsRunning() bool {
	nw.mutex.RLock()
	defer nw.mutex.RUnlock()
	return nw.isRunning
}
