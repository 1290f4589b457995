package cronrunner

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

// New returns a seconds-enabled runner. A job whose previous run is still in
// flight is skipped rather than stacked.
func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

// Add registers job under name. Panics are recovered and logged so one bad
// tick never stops the schedule.
func (r *Runner) Add(name, spec string, job func(context.Context)) (cron.EntryID, error) {
	id, err := r.cron.AddFunc(spec, func() {
		r.run(name, job)
	})
	if err != nil {
		return 0, fmt.Errorf("cron %s: invalid spec %q: %w", name, spec, err)
	}
	return id, nil
}

func (r *Runner) run(name string, job func(context.Context)) {
	started := time.Now()
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("cron job panicked", zap.String("job", name), zap.Any("panic", p))
		}
	}()
	if r.baseCtx.Err() != nil {
		return
	}
	job(r.baseCtx)
	r.logger.Debug("cron job finished", zap.String("job", name), zap.Duration("elapsed", time.Since(started)))
}

func (r *Runner) Start() {
	r.logger.Info("cron started", zap.Int("jobs", len(r.cron.Entries())))
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("cron stopped")
}
