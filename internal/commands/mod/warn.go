// Package mod - /mod warn command
package mod

import (
	"context"
	"fmt"

	"github.com/PancyStudios/PancyModGo/internal/moderation"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// createWarnCommand creates the /mod warn subcommand
func (h *handlers) createWarnCommand() *discord.Command {
	return discord.NewCommand(
		"warn",
		"Advierte a un usuario",
		"mod",
		h.warnHandler,
	).WithOptions(
		userOption("Usuario a advertir"),
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "razon",
			Description: "Razón de la advertencia",
			Required:    true,
		},
	).WithUserPermissions(discordgo.PermissionModerateMembers).
		InGuild()
}

func (h *handlers) warnHandler(ctx *discord.CommandContext) error {
	user := ctx.GetUserOption("usuario")
	if user == nil {
		return ctx.ReplyEphemeral("❌ Debes especificar un usuario.")
	}
	req := request(ctx, user)

	return h.spawn(ctx, "warn", h.warnAction(req), func(res *moderation.Result) string {
		return fmt.Sprintf("⚠️ **%s** ha sido advertido (caso #%d).\n**Razón:** %s%s",
			user.Username, res.Infraction.ID, reasonOr(req.Reason), dmNote(res))
	})
}

func (h *handlers) warnAction(req moderation.Request) action {
	return func(ctx context.Context, _ moderation.Confirmer) (*moderation.Result, error) {
		return h.engine.Warn(ctx, req)
	}
}
