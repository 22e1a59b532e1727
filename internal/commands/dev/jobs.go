package dev

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
)

func (h *handlers) createJobsCommand() *discord.Command {
	return discord.NewCommand(
		"jobs",
		"Ejecuta ahora todas las tareas programadas",
		"dev",
		h.jobsHandler,
	).AsDev()
}

func (h *handlers) jobsHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()
		h.runJobs(context.Background(), ctx.Responder())
	}()
	return nil
}

func (h *handlers) runJobs(ctx context.Context, r discord.Responder) {
	if !discord.RequireRole(r, h.adminRole) {
		return
	}
	start := h.now()
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	h.jobs.RunOnce(ctx)

	took := h.now().Sub(start).Round(time.Millisecond)
	logger.Info(fmt.Sprintf("Tareas ejecutadas manualmente por %s en %s", r.ActorID(), took), "CMD-Dev")
	_ = r.Respond(fmt.Sprintf("⚙️ | Tareas ejecutadas (%s) en %s.", strings.Join(h.jobs.Jobs(), ", "), took), true)
}
