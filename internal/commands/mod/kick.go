// Package mod - /mod kick command
package mod

import (
	"context"
	"fmt"

	"github.com/PancyStudios/PancyModGo/internal/moderation"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// createKickCommand creates the /mod kick subcommand
func (h *handlers) createKickCommand() *discord.Command {
	return discord.NewCommand(
		"kick",
		"Expulsa a un usuario del servidor",
		"mod",
		h.kickHandler,
	).WithOptions(
		userOption("Usuario a expulsar"),
		reasonOption("Razón de la expulsión"),
	).WithUserPermissions(discordgo.PermissionKickMembers).
		WithBotPermissions(discordgo.PermissionKickMembers).
		InGuild()
}

func (h *handlers) kickHandler(ctx *discord.CommandContext) error {
	user := ctx.GetUserOption("usuario")
	if user == nil {
		return ctx.ReplyEphemeral("❌ Debes especificar un usuario.")
	}
	req := request(ctx, user)

	return h.spawn(ctx, "kick", h.kickAction(req), func(res *moderation.Result) string {
		return fmt.Sprintf("👢 **%s** ha sido expulsado.\n**Razón:** %s%s", user.Username, reasonOr(req.Reason), dmNote(res))
	})
}

func (h *handlers) kickAction(req moderation.Request) action {
	return func(ctx context.Context, c moderation.Confirmer) (*moderation.Result, error) {
		return h.engine.Kick(ctx, c, req)
	}
}
