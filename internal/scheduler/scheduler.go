package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"AuctionBot/internal/notifier"
)

// Scheduler drives the agent and the periodic status report from cron.
type Scheduler struct {
	Cron     *cron.Cron
	Agent    *Agent
	Notifier notifier.Sender
	Ctx      context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, agent *Agent, n notifier.Sender) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		Agent:    agent,
		Notifier: n,
		Ctx:      ctx,
	}
}

// RegisterAll registers the agent tick and, when reportCron is set, the
// status report.
func (s *Scheduler) RegisterAll(tick time.Duration, reportCron string) error {
	if tick <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", tick)
	}
	if _, err := s.Cron.AddFunc(fmt.Sprintf("@every %s", tick), s.tickTask); err != nil {
		return fmt.Errorf("register tick task: %w", err)
	}
	if reportCron != "" && s.Notifier != nil {
		if _, err := s.Cron.AddFunc(reportCron, s.reportTask); err != nil {
			return fmt.Errorf("register report task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running tick to finish.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes one tick immediately (RUN_ON_START).
func (s *Scheduler) RunNow() {
	s.tickTask()
}

func (s *Scheduler) tickTask() {
	start := time.Now()
	s.Agent.Tick(s.Ctx, start)
	log.Printf("[INFO] tick finished in %s", time.Since(start).Round(time.Millisecond))
}

func (s *Scheduler) reportTask() {
	log.Println("[INFO] sending status report")
	s.trySend(notifier.FormatStatusReport(s.Agent.Status()))
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
