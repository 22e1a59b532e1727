package utils

import (
	"fmt"

	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
)

func (h *handlers) createStatusCommand() *discord.Command {
	return discord.NewCommand(
		"status",
		"Muestra el estado del bot",
		"utils",
		h.statusHandler,
	)
}

func (h *handlers) statusHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()
		_ = ctx.Reply(statusText(h.store, ctx.Client.IsReady(), ctx.Client.GuildCount()))
	}()
	return nil
}

func statusText(store StatusReporter, ready bool, guilds int) string {
	bot := "🔴 Offline"
	if ready {
		bot = "🟢 Online"
	}
	dbStatus, _ := store.Status()
	return fmt.Sprintf(
		"📊 **Estado del Bot**\n"+
			"• Bot: %s\n"+
			"• Base de datos: %s\n"+
			"• Servidores: %d",
		bot,
		dbStatus,
		guilds,
	)
}
