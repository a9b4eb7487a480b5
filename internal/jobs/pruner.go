package jobs

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/cotalabs/cotiza/internal/common"
)

// Pruner periodically drops old terminal jobs from the manager so the
// in-memory job table does not grow without bound.
type Pruner struct {
	manager *Manager
	cron    *cron.Cron
	config  common.JobsConfig
	logger  arbor.ILogger
}

func NewPruner(manager *Manager, config common.JobsConfig, logger arbor.ILogger) *Pruner {
	return &Pruner{
		manager: manager,
		cron:    cron.New(),
		config:  config,
		logger:  logger,
	}
}

// Start schedules the retention cleanup. An empty schedule disables pruning.
func (p *Pruner) Start() error {
	if p.config.PruneSchedule == "" || p.config.RetentionDays <= 0 {
		p.logger.Info().Msg("Job pruning disabled")
		return nil
	}
	_, err := p.cron.AddFunc(p.config.PruneSchedule, func() {
		removed := p.manager.Prune(p.config.RetentionDays)
		p.logger.Debug().Int("removed", removed).Msg("Job prune run finished")
	})
	if err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.config.PruneSchedule, err)
	}
	p.cron.Start()
	p.logger.Info().
		Str("schedule", p.config.PruneSchedule).
		Int("retention_days", p.config.RetentionDays).
		Msg("Job pruning scheduled")
	return nil
}

// Stop halts the schedule. Running prune invocations finish on their own.
func (p *Pruner) Stop() {
	p.cron.Stop()
}
