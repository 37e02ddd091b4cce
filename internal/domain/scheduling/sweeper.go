package scheduling

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/schedula/schedula/internal/domain/identity"
)

const sweepTimeout = 30 * time.Second

// Sweeper marks scheduled appointments whose slot has passed as completed on
// a cron schedule.
type Sweeper struct {
	repo     Repository
	schedule string
	log      zerolog.Logger
	cron     *cron.Cron
}

func NewSweeper(repo Repository, schedule string, log zerolog.Logger) *Sweeper {
	return &Sweeper{repo: repo, schedule: schedule, log: log}
}

// Start runs one catch-up sweep, then sweeps on the configured schedule.
func (s *Sweeper) Start() error {
	c := cron.New()
	if _, err := c.AddFunc(s.schedule, s.sweep); err != nil {
		return err
	}
	s.sweep()
	s.cron = c
	c.Start()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	now := time.Now()
	n, err := s.repo.CompletePastAppointments(ctx,
		now.Format(identity.DateLayout), now.Format(identity.TimeLayout))
	if err != nil {
		s.log.Error().Err(err).Msg("completion sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("appointments", n).Msg("swept past appointments to completed")
	}
}
