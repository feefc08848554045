// Package scheduler fires batch runs at configured wall-clock times.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"autocheckin/models"
	"autocheckin/service"
)

// Scheduler wraps a cron runner that triggers scheduled batch runs
type Scheduler struct {
	cron    *cron.Cron
	runs    service.RunService
	baseCtx context.Context
}

// New creates a scheduler bound to the given run service
func New(baseCtx context.Context, runs service.RunService) *Scheduler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Scheduler{
		cron:    cron.New(),
		runs:    runs,
		baseCtx: baseCtx,
	}
}

// AddTimes registers one daily trigger per "HH:MM" entry
func (s *Scheduler) AddTimes(times []string) error {
	for _, t := range times {
		spec, err := cronSpec(t)
		if err != nil {
			return err
		}
		if _, err := s.cron.AddFunc(spec, s.trigger); err != nil {
			return fmt.Errorf("failed to schedule %q: %w", t, err)
		}
		log.Infof("Scheduled daily run at %s", t)
	}
	return nil
}

// Start begins firing scheduled runs
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info("Scheduler stopped")
}

func (s *Scheduler) trigger() {
	_, err := s.runs.TriggerRun(s.baseCtx, models.TriggerScheduled, "scheduler")
	if errors.Is(err, service.ErrRunInProgress) {
		log.Warn("Skipping scheduled run: another run is in progress")
		return
	}
	if err != nil {
		log.Errorf("Scheduled run failed: %v", err)
	}
}

// cronSpec converts a "HH:MM" wall-clock time into a daily cron expression
func cronSpec(hhmm string) (string, error) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid schedule time %q, want HH:MM", hhmm)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in schedule time %q", hhmm)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in schedule time %q", hhmm)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
