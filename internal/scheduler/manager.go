package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/Pokatocz/quest-and-check/internal/logging"
	"github.com/Pokatocz/quest-and-check/internal/services"
)

const (
	JobReleaseStaleReservations = "release-stale-reservations"
	JobPurgeExpiredTokens       = "purge-expired-tokens"
)

// Manager owns the background jobs of the API process.
type Manager struct {
	scheduler      gocron.Scheduler
	taskService    *services.TaskService
	tokenService   *services.TokenService
	reservationTTL time.Duration
}

func NewManager(taskService *services.TaskService, tokenService *services.TokenService, reservationTTL time.Duration) (*Manager, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &Manager{
		scheduler:      s,
		taskService:    taskService,
		tokenService:   tokenService,
		reservationTTL: reservationTTL,
	}, nil
}

// RegisterJobs adds every job. Reservation expiry is only scheduled when a
// TTL is configured.
func (m *Manager) RegisterJobs() error {
	if m.reservationTTL > 0 {
		if err := m.register(JobReleaseStaleReservations, time.Minute, m.releaseStaleReservations); err != nil {
			return err
		}
	}
	return m.register(JobPurgeExpiredTokens, time.Hour, m.purgeExpiredTokens)
}

func (m *Manager) register(name string, every time.Duration, fn func() error) error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(fn),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithEventListeners(
			gocron.AfterJobRunsWithError(func(_ uuid.UUID, jobName string, err error) {
				logging.CaptureError("scheduled_job", err, logrus.Fields{"job": jobName})
			}),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to register job %s: %w", name, err)
	}
	return nil
}

func (m *Manager) JobNames() []string {
	var names []string
	for _, job := range m.scheduler.Jobs() {
		names = append(names, job.Name())
	}
	return names
}

func (m *Manager) Start() {
	m.scheduler.Start()
	logging.Logger.WithField("jobs", m.JobNames()).Info("scheduler started")
}

func (m *Manager) Stop() {
	if err := m.scheduler.Shutdown(); err != nil {
		logging.Logger.WithError(err).Warn("failed to shut down scheduler")
	}
	logging.Logger.Info("scheduler stopped")
}

func (m *Manager) releaseStaleReservations() error {
	n, err := m.taskService.ReleaseStaleReservations(m.reservationTTL)
	if n > 0 {
		logging.Logger.WithField("released", n).Info("released stale reservations")
	}
	return err
}

func (m *Manager) purgeExpiredTokens() error {
	n, err := m.tokenService.PurgeExpired()
	if n > 0 {
		logging.Logger.WithField("purged", n).Info("purged expired tokens")
	}
	return err
}
