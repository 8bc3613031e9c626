package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/jaewoo-dev/upbit-trading-bot/internal/config"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// JobFunc adapts a plain function to the Job interface.
type JobFunc struct {
	JobName string
	Fn      func() error
}

func (j JobFunc) Run() error   { return j.Fn() }
func (j JobFunc) Name() string { return j.JobName }

// Scheduler manages background jobs, skipping runs outside the configured
// trading hours window.
type Scheduler struct {
	cron  *cron.Cron
	hours config.ScheduleConfig
	now   func() time.Time
	log   zerolog.Logger
}

// New creates a new scheduler
func New(hours config.ScheduleConfig, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:  cron.New(cron.WithSeconds()),
		hours: hours,
		now:   time.Now,
		log:   log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().
		Int("start_hour", s.hours.StartHour).
		Int("end_hour", s.hours.EndHour).
		Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// WithinTradingHours reports whether the current local hour falls inside
// the [StartHour, EndHour) window.
func (s *Scheduler) WithinTradingHours() bool {
	hour := s.now().Hour()
	return hour >= s.hours.StartHour && hour < s.hours.EndHour
}

// AddJob registers a new job with a cron schedule. Runs that land outside
// trading hours are skipped.
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if !s.WithinTradingHours() {
			s.log.Debug().Str("job", job.Name()).Msg("Outside trading hours, skipping job")
			return
		}

		s.log.Debug().Str("job", job.Name()).Msg("Running job")

		if err := job.Run(); err != nil {
			s.log.Error().
				Err(err).
				Str("job", job.Name()).
				Msg("Job failed")
		} else {
			s.log.Debug().Str("job", job.Name()).Msg("Job completed")
		}
	})

	if err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// RunNow executes a job immediately regardless of schedule or hours.
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run()
}
