package serve

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// MaintenanceJob is a housekeeping task run on a cron schedule.
type MaintenanceJob struct {
	Name string `json:"name"`
	Cron string `json:"cron"`
	Run  func() `json:"-"`
}

// Scheduler runs maintenance jobs such as session expiry and history pruning.
type Scheduler struct {
	c *cron.Cron

	mu      sync.Mutex
	jobs    []MaintenanceJob
	entries map[string]cron.EntryID // job name → cron entry ID
}

// NewScheduler creates an empty Scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{
		c:       cron.New(),
		entries: make(map[string]cron.EntryID),
	}
}

// Start begins the cron runner and blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.c.Start()
	slog.Info("scheduler started", "jobs", len(s.ListJobs()))
	<-ctx.Done()
	<-s.c.Stop().Done()
	slog.Info("scheduler stopped")
}

// AddJob adds a job to the cron runner.
// If a job with the same name already exists it is replaced.
func (s *Scheduler) AddJob(job MaintenanceJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.Run == nil {
		return fmt.Errorf("schedule %q has no function", job.Name)
	}
	entryID, err := s.c.AddFunc(job.Cron, s.makeFunc(job))
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", job.Cron, err)
	}

	if id, ok := s.entries[job.Name]; ok {
		s.c.Remove(id)
		s.jobs = removeJobByName(s.jobs, job.Name)
	}
	s.entries[job.Name] = entryID
	s.jobs = append(s.jobs, job)

	slog.Debug("scheduler: job added", "name", job.Name, "cron", job.Cron)
	return nil
}

// ListJobs returns a snapshot of all current jobs.
func (s *Scheduler) ListJobs() []MaintenanceJob {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]MaintenanceJob, len(s.jobs))
	copy(out, s.jobs)
	return out
}

// makeFunc wraps a job so a panic in one run does not stop the runner.
func (s *Scheduler) makeFunc(job MaintenanceJob) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("scheduler: job panicked", "name", job.Name, "panic", r)
			}
		}()
		slog.Debug("scheduler: firing job", "name", job.Name)
		job.Run()
	}
}

func removeJobByName(jobs []MaintenanceJob, name string) []MaintenanceJob {
	out := jobs[:0]
	for _, j := range jobs {
		if j.Name != name {
			out = append(out, j)
		}
	}
	return out
}
