package dev

import (
	"fmt"
	"strings"

	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/bwmarrin/discordgo"
)

func (h *handlers) createAppealsCommand() *discord.Command {
	return discord.NewCommand(
		"apelaciones",
		"Lista las apelaciones activas",
		"dev",
		h.appealsHandler,
	).AsDev()
}

func (h *handlers) appealsHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()
		h.listAppeals(ctx.Responder())
	}()
	return nil
}

func (h *handlers) listAppeals(r discord.Responder) {
	if !discord.RequireRole(r, h.adminRole) {
		return
	}
	sessions := h.appeals.Sessions()
	if len(sessions) == 0 {
		_ = r.Respond("ℹ️ | No hay apelaciones activas.", true)
		return
	}

	lines := make([]string, 0, len(sessions))
	for _, s := range sessions {
		channel := "*esperando razón*"
		if s.Attached() {
			channel = "<#" + s.ChannelID + ">"
		}
		lines = append(lines, fmt.Sprintf("<@%s> - %s - <t:%d:R>", s.UserID, channel, s.StartedAt.Unix()))
	}
	_ = r.RespondEmbed(&discordgo.MessageEmbed{
		Title:       fmt.Sprintf("📨 Apelaciones activas (%d)", len(sessions)),
		Description: strings.Join(lines, "\n"),
		Color:       0xF1C40F,
	}, true)
}
