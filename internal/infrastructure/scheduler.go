package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"cobrazap/internal/usecases"
)

// Scheduler triggers notification passes on a fixed cron cadence. Each pass
// is independent and self-contained; the dedup ledger is the only state
// shared between runs.
type Scheduler struct {
	cronEngine *cron.Cron
	notifier   *usecases.Notifier
	log        *logrus.Logger
	spec       string

	// Alert, when set, receives a one-line summary after each pass.
	Alert func(text string)
}

func NewScheduler(notifier *usecases.Notifier, log *logrus.Logger, spec string) *Scheduler {
	return &Scheduler{
		cronEngine: cron.New(cron.WithLocation(time.Local)), // server-local calendar dates
		notifier:   notifier,
		log:        log,
		spec:       spec,
	}
}

func (s *Scheduler) Start() error {
	_, err := s.cronEngine.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		report, err := s.notifier.Run(ctx)
		if err != nil {
			s.log.Errorf("notification pass failed: %v", err)
			if s.Alert != nil {
				s.Alert(fmt.Sprintf("cobrazap: notification pass failed: %v", err))
			}
			return
		}

		s.log.WithFields(logrus.Fields{
			"tenants":       report.Tenants,
			"selected":      report.Selected,
			"skipped_dedup": report.SkippedDedup,
			"skipped_blank": report.SkippedBlank,
			"sent":          report.Sent,
			"failed":        report.Failed,
		}).Info("notification pass complete")

		if s.Alert != nil && report.Selected > 0 {
			s.Alert(fmt.Sprintf(
				"cobrazap: pass complete: %d tenants, %d selected, %d sent, %d failed, %d deduped",
				report.Tenants, report.Selected, report.Sent, report.Failed, report.SkippedDedup,
			))
		}
	})
	if err != nil {
		return fmt.Errorf("add cron job (%q): %w", s.spec, err)
	}

	s.cronEngine.Start()
	s.log.Infof("scheduler started (spec %q)", s.spec)
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}
