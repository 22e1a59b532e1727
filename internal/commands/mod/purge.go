// Package mod - /mod purge command
package mod

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/PancyStudios/PancyModGo/internal/moderation"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/bwmarrin/discordgo"
)

var errPurgeFilter = stderrors.New("filtro incompleto")

func (h *handlers) createPurgeCommand() *discord.Command {
	minLimit := 1.0
	return discord.NewCommand(
		"purge",
		"Borra mensajes desde un mensaje dado, incluido",
		"mod",
		h.purgeHandler,
	).WithOptions(
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "mensaje",
			Description: "ID del primer mensaje a borrar",
			Required:    true,
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "filtro",
			Description: "Qué mensajes borrar",
			Choices: []*discordgo.ApplicationCommandOptionChoice{
				{Name: "Todos", Value: "todos"},
				{Name: "De un usuario", Value: "usuario"},
				{Name: "De bots", Value: "bots"},
				{Name: "Que contienen un texto", Value: "texto"},
				{Name: "Con embeds", Value: "embeds"},
			},
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "usuario",
			Description: "Autor de los mensajes (filtro usuario)",
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "texto",
			Description: "Texto a buscar (filtro texto)",
		},
		&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "limite",
			Description: fmt.Sprintf("Mensajes a revisar tras el indicado (por defecto %d)", moderation.DefaultPurgeLimit),
			MinValue:    &minLimit,
			MaxValue:    moderation.MaxPurgeLimit,
		},
	).WithUserPermissions(discordgo.PermissionManageMessages).
		WithBotPermissions(discordgo.PermissionManageMessages).
		InGuild()
}

// purgeFilter builds the filter named kind.
func purgeFilter(kind, userID, text string) (moderation.PurgeFilter, error) {
	switch kind {
	case "", "todos":
		return nil, nil
	case "usuario":
		if userID == "" {
			return nil, fmt.Errorf("%w: indica el usuario", errPurgeFilter)
		}
		return moderation.ByAuthor(userID), nil
	case "bots":
		return moderation.FromBots(), nil
	case "texto":
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: indica el texto", errPurgeFilter)
		}
		return moderation.Containing(text), nil
	case "embeds":
		return moderation.WithEmbeds(), nil
	}
	return nil, fmt.Errorf("%w: %q no existe", errPurgeFilter, kind)
}

func (h *handlers) purgeHandler(ctx *discord.CommandContext) error {
	userID := ""
	if u := ctx.GetUserOption("usuario"); u != nil {
		userID = u.ID
	}
	filter, err := purgeFilter(ctx.GetStringOption("filtro"), userID, ctx.GetStringOption("texto"))
	if err != nil {
		return ctx.ReplyEphemeral("❌ | " + err.Error())
	}
	req := moderation.PurgeRequest{
		ChannelID: ctx.Interaction.ChannelID,
		AnchorID:  strings.TrimSpace(ctx.GetStringOption("mensaje")),
		Limit:     int(ctx.GetIntOption("limite")),
		Filter:    filter,
	}

	// The reply must not land in the history being purged.
	if err := ctx.DeferEphemeral(); err != nil {
		return err
	}
	go func() {
		defer errors.RecoverMiddleware()()
		c, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		h.purge(c, ctx.Responder(), req)
	}()
	return nil
}

func (h *handlers) purge(ctx context.Context, r discord.Responder, req moderation.PurgeRequest) {
	if !discord.RequireRole(r, h.adminRole) {
		return
	}

	res, err := moderation.Purge(ctx, h.messages, req)
	if err != nil {
		msg, known := errorMessage(err)
		if !known {
			errors.Capture(fmt.Errorf("/mod purge: %w", err), "CMD-Mod")
		}
		if res.Deleted > 0 {
			msg += fmt.Sprintf("\nSe llegaron a borrar %d mensaje(s).", res.Deleted)
		}
		_ = r.Respond(msg, true)
		return
	}
	_ = r.Respond(fmt.Sprintf("🗑️ | Purga completa: **%d** mensaje(s) borrados de %d revisados.", res.Deleted, res.Scanned+1), true)
}
