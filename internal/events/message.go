package events

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyModGo/internal/appeal"
	"github.com/PancyStudios/PancyModGo/internal/modlog"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

const closeTimeout = time.Minute

func (h *handlers) registerMessageEvents(client *discord.ExtendedClient) {
	client.EventHandler.OnMessageCreate(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Author == nil || m.Author.Bot {
			return
		}
		if !isPrefixCommand(m.Content) {
			return
		}
		// !appeal blocks while the reason is asked, so it never runs on the
		// gateway goroutine.
		go func() {
			defer errors.RecoverMiddleware()()
			h.prefixCommand(context.Background(), m.Message, discord.NewMessageResponder(s, m.Message, h.confirm))
		}()
	})
	client.EventHandler.OnMessageUpdate(func(s *discordgo.Session, m *discordgo.MessageUpdate) {
		h.messageEdited(m)
	})
	client.EventHandler.OnMessageDelete(func(s *discordgo.Session, m *discordgo.MessageDelete) {
		h.messageDeleted(m)
	})
	client.EventHandler.OnMessageDeleteBulk(func(s *discordgo.Session, m *discordgo.MessageDeleteBulk) {
		h.messagesPurged(m)
	})
}

func isPrefixCommand(content string) bool {
	return appeal.IsCommand(content)
}

// prefixCommand runs !appeal (in DMs) and !close (in appeal channels).
func (h *handlers) prefixCommand(ctx context.Context, m *discordgo.Message, r discord.Responder) {
	if h.appeals == nil {
		return
	}
	switch appeal.CommandName(m.Content) {
	case appeal.CommandAppeal:
		err := h.appeals.Start(ctx, r, m.Author)
		switch {
		case err == nil,
			stderrors.Is(err, appeal.ErrNotDM),
			stderrors.Is(err, appeal.ErrAppealActive),
			stderrors.Is(err, appeal.ErrReasonTimeout):
		default:
			logger.Warn(fmt.Sprintf("La apelación de %s no se pudo abrir: %v", m.Author.ID, err), "Appeals")
		}

	case appeal.CommandClose:
		if m.GuildID == "" {
			return
		}
		closeCtx, cancel := context.WithTimeout(ctx, closeTimeout)
		defer cancel()
		err := h.appeals.Close(closeCtx, r, m.ChannelID, m.Author)
		if err != nil && !stderrors.Is(err, appeal.ErrNotAppealChannel) {
			logger.Warn(fmt.Sprintf("No se pudo cerrar la apelación %s: %v", m.ChannelID, err), "Appeals")
		}
	}
}

func (h *handlers) messageEdited(m *discordgo.MessageUpdate) {
	if m.Message == nil || m.GuildID == "" || m.BeforeUpdate == nil || m.BeforeUpdate.Author == nil || m.BeforeUpdate.Author.Bot {
		return
	}
	if embed := modlog.MessageEditEmbed(m.BeforeUpdate, m.Message); embed != nil {
		h.logs.Send(m.GuildID, "message_edit", embed)
	}
}

// messageDeleted needs the cached copy of the message; deletions of
// uncached messages are not logged.
func (h *handlers) messageDeleted(m *discordgo.MessageDelete) {
	before := m.BeforeDelete
	if m.GuildID == "" || before == nil || before.Author == nil || before.Author.Bot {
		return
	}
	h.logs.Send(m.GuildID, "message_delete", modlog.MessageDeleteEmbed(before))
}

func (h *handlers) messagesPurged(m *discordgo.MessageDeleteBulk) {
	if m.GuildID == "" || len(m.Messages) == 0 {
		return
	}
	h.logs.Send(m.GuildID, "message_bulk_delete", &discordgo.MessageEmbed{
		Title:       "Mensajes eliminados en masa",
		Description: fmt.Sprintf("Se eliminaron **%d** mensajes en <#%s>.", len(m.Messages), m.ChannelID),
		Color:       0xE74C3C,
	})
}
