// Package mod - /mod mute and /mod unmute commands
package mod

import (
	"context"
	"fmt"

	"github.com/PancyStudios/PancyModGo/internal/moderation"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// createMuteCommand creates the /mod mute subcommand
func (h *handlers) createMuteCommand() *discord.Command {
	return discord.NewCommand(
		"mute",
		"Silencia a un usuario temporalmente",
		"mod",
		h.muteHandler,
	).WithOptions(
		userOption("Usuario a silenciar"),
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "duracion",
			Description: "Duración: 10m, 2h, 3d o 1w",
			Required:    true,
		},
		reasonOption("Razón del silencio"),
	).WithUserPermissions(discordgo.PermissionModerateMembers).
		WithBotPermissions(discordgo.PermissionManageRoles).
		InGuild()
}

func (h *handlers) muteHandler(ctx *discord.CommandContext) error {
	user := ctx.GetUserOption("usuario")
	if user == nil {
		return ctx.ReplyEphemeral("❌ Debes especificar un usuario.")
	}
	req := request(ctx, user)
	duration := ctx.GetStringOption("duracion")

	return h.spawn(ctx, "mute", h.muteAction(req, duration), muteSuccess(user.Username, duration, req.Reason))
}

func (h *handlers) muteAction(req moderation.Request, duration string) action {
	return func(ctx context.Context, c moderation.Confirmer) (*moderation.Result, error) {
		return h.engine.Mute(ctx, c, req, duration)
	}
}

func muteSuccess(username, duration, reason string) func(*moderation.Result) string {
	return func(res *moderation.Result) string {
		return fmt.Sprintf("🔇 **%s** ha sido silenciado durante **%s** (hasta <t:%d:f>).\n**Razón:** %s%s",
			username, duration, res.Until.Unix(), reasonOr(reason), dmNote(res))
	}
}

// createUnmuteCommand creates the /mod unmute subcommand
func (h *handlers) createUnmuteCommand() *discord.Command {
	return discord.NewCommand(
		"unmute",
		"Quita el silencio a un usuario",
		"mod",
		h.unmuteHandler,
	).WithOptions(
		userOption("Usuario a desilenciar"),
		reasonOption("Razón"),
	).WithUserPermissions(discordgo.PermissionModerateMembers).
		WithBotPermissions(discordgo.PermissionManageRoles).
		InGuild()
}

func (h *handlers) unmuteHandler(ctx *discord.CommandContext) error {
	user := ctx.GetUserOption("usuario")
	if user == nil {
		return ctx.ReplyEphemeral("❌ Debes especificar un usuario.")
	}
	req := request(ctx, user)

	return h.spawn(ctx, "unmute", h.unmuteAction(req), unmuteSuccess(user.Username))
}

func (h *handlers) unmuteAction(req moderation.Request) action {
	return func(ctx context.Context, c moderation.Confirmer) (*moderation.Result, error) {
		return h.engine.Unmute(ctx, c, req)
	}
}

func unmuteSuccess(username string) func(*moderation.Result) string {
	return func(res *moderation.Result) string {
		return fmt.Sprintf("🔊 **%s** ya no está silenciado.%s", username, dmNote(res))
	}
}
