package services

import (
	"fmt"
	"time"

	"github.com/railbook/train-booking-backend/internal/database"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs
type CronService struct {
	cron          *cron.Cron
	seatRepo      *database.SeatRepository
	sweepSchedule string
	logger        *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(seatRepo *database.SeatRepository, sweepSchedule string, logger *logrus.Logger) *CronService {
	// Cron with seconds precision so the sweep can run sub-minute
	c := cron.New(cron.WithSeconds())

	return &CronService{
		cron:          c,
		seatRepo:      seatRepo,
		sweepSchedule: sweepSchedule,
		logger:        logger,
	}
}

// Start schedules all background jobs and starts the scheduler
func (s *CronService) Start() error {
	// Sweep expired seat holds back to free. Held seats already stop
	// blocking bookings the moment they expire; the sweep just reclaims
	// the rows so layout queries stay cheap.
	_, err := s.cron.AddFunc(s.sweepSchedule, s.releaseExpiredHoldsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule hold expiry sweep: %w", err)
	}
	s.logger.WithField("schedule", s.sweepSchedule).Info("Scheduled: release expired seat holds")

	s.cron.Start()
	s.logger.Info("Cron service started")

	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) releaseExpiredHoldsJob() {
	startTime := time.Now()

	released, err := s.seatRepo.ReleaseExpiredHolds()
	if err != nil {
		s.logger.WithError(err).Error("Failed to release expired seat holds")
		return
	}

	if released > 0 {
		s.logger.WithFields(logrus.Fields{
			"released": released,
			"duration": time.Since(startTime).String(),
		}).Info("Released expired seat holds")
	}
}
