// Package dev holds maintenance commands registered only in the dev guild.
package dev

import (
	"context"
	"time"

	"github.com/PancyStudios/PancyModGo/internal/appeal"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
)

// JobRunner runs the scheduler jobs on demand.
type JobRunner interface {
	Jobs() []string
	RunOnce(ctx context.Context)
}

// Appeals lists the running appeal relays.
type Appeals interface {
	Sessions() []appeal.Session
}

// Cache is a reloadable lookup cache.
type Cache interface {
	Refresh(ctx context.Context) error
	Size() int
}

type handlers struct {
	jobs      JobRunner
	appeals   Appeals
	logCache  Cache
	adminRole string
	now       func() time.Time
}

// Register registers /dev jobs|apelaciones|cache in the dev guild.
func Register(client *discord.ExtendedClient, jobs JobRunner, appeals Appeals, logCache Cache, adminRoleID string) {
	h := &handlers{jobs: jobs, appeals: appeals, logCache: logCache, adminRole: adminRoleID, now: time.Now}

	client.CommandHandler.AddDevCommand(client.CommandHandler.BuildCommandGroup(
		"dev",
		"Comandos de desarrollo",
		h.createJobsCommand(),
		h.createAppealsCommand(),
		h.createCacheCommand(),
	))
}
