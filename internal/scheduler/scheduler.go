// Package scheduler runs the periodic jobs that reverse expired state: mute
// expiry, birthday announcements and birthday role removal.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// Platform is the subset of the chat gateway used by the jobs.
type Platform interface {
	BotID() string
	Guild(guildID string) (*discordgo.Guild, error)
	Member(guildID, userID string) (*discordgo.Member, error)
	Role(guildID, roleID string) (*discordgo.Role, error)
	AddRole(guildID, userID, roleID string) error
	RemoveRole(guildID, userID, roleID string) error
	Send(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
}

// ReadyWaiter blocks until the gateway connection is established.
type ReadyWaiter interface {
	WaitReady(ctx context.Context) error
}

// Job is a periodic scan.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context, now time.Time)
}

// Options configures a Scheduler.
type Options struct {
	// Warmup is waited after the connection is ready so the guild and
	// member caches are populated before the first scan.
	Warmup time.Duration
	Now    func() time.Time
}

// Scheduler runs each job on its own ticker.
type Scheduler struct {
	ready  ReadyWaiter
	warmup time.Duration
	now    func() time.Time

	mu     sync.Mutex
	jobs   []Job
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a scheduler that starts ticking once ready reports the
// connection is up.
func New(ready ReadyWaiter, opts Options) *Scheduler {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{ready: ready, warmup: opts.Warmup, now: now}
}

// Add registers a job. Jobs added after Start are not run.
func (s *Scheduler) Add(job Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
}

// Jobs returns the registered job names.
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.jobs))
	for i, j := range s.jobs {
		names[i] = j.Name()
	}
	return names
}

// Start launches every job in the background.
func (s *Scheduler) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel

	s.wg.Add(len(s.jobs))
	for _, job := range s.jobs {
		go s.loop(ctx, job)
	}
	logger.System(fmt.Sprintf("Scheduler iniciado con %d tareas", len(s.jobs)), "Scheduler")
}

// Stop cancels all jobs and waits for running scans to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}

	logger.System("Deteniendo scheduler...", "Scheduler")
	cancel()
	s.wg.Wait()
	logger.System("Scheduler detenido.", "Scheduler")
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	defer s.wg.Done()

	if err := s.ready.WaitReady(ctx); err != nil {
		return
	}
	if s.warmup > 0 {
		select {
		case <-time.After(s.warmup):
		case <-ctx.Done():
			return
		}
	}

	s.tick(ctx, job)

	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.tick(ctx, job)
		case <-ctx.Done():
			return
		}
	}
}

// tick runs one scan; a panic is reported and the loop continues.
func (s *Scheduler) tick(ctx context.Context, job Job) {
	defer errors.RecoverMiddleware()()
	job.Run(ctx, s.now())
}

// RunOnce runs every job a single time, synchronously.
func (s *Scheduler) RunOnce(ctx context.Context) {
	s.mu.Lock()
	jobs := append([]Job(nil), s.jobs...)
	s.mu.Unlock()

	for _, job := range jobs {
		s.tick(ctx, job)
	}
}
