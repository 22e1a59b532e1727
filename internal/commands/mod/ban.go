// Package mod - /mod ban, /mod cleanban and /mod unban commands
package mod

import (
	"context"
	"fmt"

	"github.com/PancyStudios/PancyModGo/internal/moderation"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// createBanCommand creates the /mod ban subcommand
func (h *handlers) createBanCommand() *discord.Command {
	return discord.NewCommand(
		"ban",
		"Banea a un usuario del servidor",
		"mod",
		h.banHandler,
	).WithOptions(
		userOption("Usuario a banear"),
		reasonOption("Razón del ban"),
	).WithUserPermissions(discordgo.PermissionBanMembers).
		WithBotPermissions(discordgo.PermissionBanMembers).
		InGuild()
}

func (h *handlers) banHandler(ctx *discord.CommandContext) error {
	user := ctx.GetUserOption("usuario")
	if user == nil {
		return ctx.ReplyEphemeral("❌ Debes especificar un usuario.")
	}
	req := request(ctx, user)

	return h.spawn(ctx, "ban", h.banAction(req, 0), banSuccess(user.Username, req.Reason, 0))
}

// createCleanBanCommand creates the /mod cleanban subcommand
func (h *handlers) createCleanBanCommand() *discord.Command {
	minDays := 1.0
	return discord.NewCommand(
		"cleanban",
		"Banea a un usuario y borra sus mensajes recientes",
		"mod",
		h.cleanBanHandler,
	).WithOptions(
		userOption("Usuario a banear"),
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "dias",
			Description: "Días de mensajes a borrar (1-7)",
			Required:    true,
			MinValue:    &minDays,
			MaxValue:    7,
		},
		reasonOption("Razón del ban"),
	).WithUserPermissions(discordgo.PermissionBanMembers).
		WithBotPermissions(discordgo.PermissionBanMembers).
		InGuild()
}

func (h *handlers) cleanBanHandler(ctx *discord.CommandContext) error {
	user := ctx.GetUserOption("usuario")
	if user == nil {
		return ctx.ReplyEphemeral("❌ Debes especificar un usuario.")
	}
	req := request(ctx, user)
	days := int(ctx.GetIntOption("dias"))

	return h.spawn(ctx, "cleanban", h.banAction(req, days), banSuccess(user.Username, req.Reason, days))
}

// banAction bans without purging messages when days is 0.
func (h *handlers) banAction(req moderation.Request, days int) action {
	return func(ctx context.Context, c moderation.Confirmer) (*moderation.Result, error) {
		if days == 0 {
			return h.engine.Ban(ctx, c, req)
		}
		return h.engine.CleanBan(ctx, c, req, days)
	}
}

func banSuccess(username, reason string, days int) func(*moderation.Result) string {
	return func(res *moderation.Result) string {
		msg := fmt.Sprintf("🔨 **%s** ha sido baneado.\n**Razón:** %s", username, reasonOr(reason))
		if days > 0 {
			msg += fmt.Sprintf("\nSe borraron sus mensajes de los últimos %d día(s).", days)
		}
		return msg + dmNote(res)
	}
}

// createUnbanCommand creates the /mod unban subcommand
func (h *handlers) createUnbanCommand() *discord.Command {
	return discord.NewCommand(
		"unban",
		"Desbanea a un usuario",
		"mod",
		h.unbanHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "usuario_id",
			Description: "ID del usuario a desbanear",
			Required:    true,
		},
		reasonOption("Razón del desbaneo"),
	).WithUserPermissions(discordgo.PermissionBanMembers).
		WithBotPermissions(discordgo.PermissionBanMembers).
		InGuild()
}

func (h *handlers) unbanHandler(ctx *discord.CommandContext) error {
	userID := ctx.GetStringOption("usuario_id")
	if userID == "" {
		return ctx.ReplyEphemeral("❌ Debes especificar el ID del usuario.")
	}
	req := request(ctx, &discordgo.User{ID: userID})

	return h.spawn(ctx, "unban", h.unbanAction(req), func(*moderation.Result) string {
		return fmt.Sprintf("✅ <@%s> ha sido desbaneado.", userID)
	})
}

func (h *handlers) unbanAction(req moderation.Request) action {
	return func(ctx context.Context, _ moderation.Confirmer) (*moderation.Result, error) {
		return h.engine.Unban(ctx, req)
	}
}
