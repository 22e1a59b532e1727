package dev

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
)

func (h *handlers) createCacheCommand() *discord.Command {
	return discord.NewCommand(
		"cache",
		"Recarga la caché de canales de logs",
		"dev",
		h.cacheHandler,
	).AsDev()
}

func (h *handlers) cacheHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()
		h.reloadCache(context.Background(), ctx.Responder())
	}()
	return nil
}

func (h *handlers) reloadCache(ctx context.Context, r discord.Responder) {
	if !discord.RequireRole(r, h.adminRole) {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := h.logCache.Refresh(ctx); err != nil {
		errors.Capture(fmt.Errorf("recargar caché de logs: %w", err), "CMD-Dev")
		_ = r.Respond("❌ | No se pudo recargar la caché.", true)
		return
	}
	_ = r.Respond(fmt.Sprintf("🔄 | Caché recargada: %d canales de logs.", h.logCache.Size()), true)
}
