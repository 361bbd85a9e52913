package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/fanpulse/fanpulse/internal/application"
)

// Job is one scheduled recomputation job.
type Job struct {
	Name        string        `yaml:"name"`
	Type        string        `yaml:"type"` // "fvs.daily", "momentum.refresh"
	Interval    time.Duration `yaml:"interval"`
	Description string        `yaml:"description"`
	Enabled     bool          `yaml:"enabled"`
}

// Config holds the scheduler job list.
type Config struct {
	Jobs []Job `yaml:"jobs"`
}

// DefaultConfig returns the production schedule: FVS once a day, momentum
// every six hours so the dashboard status reacts within a workday.
func DefaultConfig() Config {
	return Config{
		Jobs: []Job{
			{
				Name:        "fvs-daily",
				Type:        "fvs.daily",
				Interval:    24 * time.Hour,
				Description: "Daily Fan Value Score recomputation for all artists",
				Enabled:     true,
			},
			{
				Name:        "momentum-refresh",
				Type:        "momentum.refresh",
				Interval:    6 * time.Hour,
				Description: "Momentum Index refresh for all artists",
				Enabled:     true,
			},
		},
	}
}

// LoadConfig reads the scheduler yaml config, falling back to defaults when
// the file defines no jobs.
func LoadConfig(path string) (Config, error) {
	var config Config

	data, err := os.ReadFile(path)
	if err != nil {
		return config, fmt.Errorf("failed to read scheduler config: %w", err)
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("failed to parse scheduler config: %w", err)
	}
	if len(config.Jobs) == 0 {
		config = DefaultConfig()
	}

	for _, job := range config.Jobs {
		if job.Enabled && job.Interval <= 0 {
			return config, fmt.Errorf("job %s has no interval", job.Name)
		}
	}
	return config, nil
}

// JobResult records one job execution.
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	Scored    int           `json:"scored"`
	Failed    int           `json:"failed"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// Scheduler runs the batch recomputation jobs on their intervals.
type Scheduler struct {
	config Config
	runner *application.BatchRunner

	mu      sync.Mutex
	lastRun map[string]JobResult
}

// New creates a scheduler over the batch runner.
func New(config Config, runner *application.BatchRunner) *Scheduler {
	return &Scheduler{
		config:  config,
		runner:  runner,
		lastRun: make(map[string]JobResult),
	}
}

// Start runs every enabled job on its interval until the context is
// cancelled. Each job fires once immediately so a fresh deploy does not wait
// a full day for scores.
func (s *Scheduler) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	enabled := 0

	for _, job := range s.config.Jobs {
		if !job.Enabled {
			log.Info().Str("job", job.Name).Msg("job disabled, skipping")
			continue
		}
		enabled++

		wg.Add(1)
		go func(job Job) {
			defer wg.Done()
			s.runLoop(ctx, job)
		}(job)
	}

	if enabled == 0 {
		return fmt.Errorf("no enabled jobs")
	}

	log.Info().Int("jobs", enabled).Msg("scheduler started")
	wg.Wait()
	log.Info().Msg("scheduler stopped")
	return ctx.Err()
}

// runLoop executes one job immediately and then on every interval tick.
func (s *Scheduler) runLoop(ctx context.Context, job Job) {
	s.RunJob(ctx, job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunJob(ctx, job)
		}
	}
}

// RunJob executes a single job once and records its result.
func (s *Scheduler) RunJob(ctx context.Context, job Job) JobResult {
	start := time.Now()
	result := JobResult{
		JobName:   job.Name,
		StartTime: start,
	}

	log.Info().Str("job", job.Name).Str("type", job.Type).Msg("job starting")

	summary, err := s.execute(ctx, job)
	result.Duration = time.Since(start)
	if summary != nil {
		result.Scored = summary.Scored
		result.Failed = summary.Failed
	}
	if err != nil {
		result.Error = err.Error()
		log.Error().Str("job", job.Name).Err(err).Msg("job failed")
	} else {
		result.Success = true
		log.Info().
			Str("job", job.Name).
			Int("scored", result.Scored).
			Int("failed", result.Failed).
			Dur("duration", result.Duration).
			Msg("job finished")
	}

	s.mu.Lock()
	s.lastRun[job.Name] = result
	s.mu.Unlock()
	return result
}

// jobAsOf aligns the scoring timestamp to the job cadence. Each tick of a
// sub-daily job gets its own as-of, so the append-only history receives a new
// row per run instead of colliding with the previous tick's result.
func jobAsOf(job Job, now time.Time) time.Time {
	interval := job.Interval
	if interval <= 0 || interval > 24*time.Hour {
		interval = 24 * time.Hour
	}
	return now.UTC().Truncate(interval)
}

// execute dispatches on the job type.
func (s *Scheduler) execute(ctx context.Context, job Job) (*application.BatchSummary, error) {
	asOf := jobAsOf(job, time.Now())

	switch job.Type {
	case "fvs.daily":
		return s.runner.Run(ctx, application.BatchFVS, asOf)
	case "momentum.refresh":
		return s.runner.Run(ctx, application.BatchMomentum, asOf)
	default:
		return nil, fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// LastRun returns the most recent result for a job, if it has run.
func (s *Scheduler) LastRun(jobName string) (JobResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result, ok := s.lastRun[jobName]
	return result, ok
}
