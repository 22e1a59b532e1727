package appeal

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

const (
	colorUser   = 0x5865F2
	colorStaff  = 0x57F287
	colorClosed = 0xED4245
)

func staffMessages(channelID string) discord.MessageFilter {
	return func(msg *discordgo.Message) bool {
		return msg.ChannelID == channelID && msg.Author != nil && !msg.Author.Bot
	}
}

// relay forwards messages both ways until ctx is cancelled or the staff
// channel disappears.
func (m *Manager) relay(ctx context.Context, user *discordgo.User, channelID string) {
	logger.Info(fmt.Sprintf("Relay iniciado: %s (%s) <-> %s", user.Username, user.ID, channelID), "Appeals")

	fromUser, stopUser := m.waiter.Subscribe(userDMs(user.ID))
	defer stopUser()
	fromStaff, stopStaff := m.waiter.Subscribe(staffMessages(channelID))
	defer stopStaff()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Relay cancelado para "+user.ID, "Appeals")
			return

		case msg := <-fromUser:
			if IsCommand(msg.Content) {
				continue
			}
			if !m.toStaff(user, channelID, msg) {
				return
			}

		case msg := <-fromStaff:
			if strings.HasPrefix(msg.Content, noteMarker) || IsCommand(msg.Content) {
				continue
			}
			m.toUser(user, channelID, msg)
		}
	}
}

// Prefix commands handled outside the relay.
const (
	CommandAppeal = "!appeal"
	CommandClose  = "!close"
)

// CommandName returns the lower-cased first word of content.
func CommandName(content string) string {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(fields[0])
}

// IsCommand reports whether content invokes !appeal or !close. Such messages
// are never relayed.
func IsCommand(content string) bool {
	switch CommandName(content) {
	case CommandAppeal, CommandClose:
		return true
	}
	return false
}

func relayEmbed(msg *discordgo.Message, author, iconURL string, color int) *discordgo.MessageEmbed {
	desc := msg.Content
	if desc == "" {
		desc = "*[Sin texto]*"
	}
	embed := &discordgo.MessageEmbed{
		Description: desc,
		Color:       color,
		Author:      &discordgo.MessageEmbedAuthor{Name: author, IconURL: iconURL},
	}
	if len(msg.Attachments) == 0 {
		return embed
	}

	if first := msg.Attachments[0]; strings.Contains(strings.ToLower(first.ContentType), "image") {
		embed.Image = &discordgo.MessageEmbedImage{URL: first.URL}
	}
	links := lo.Map(msg.Attachments, func(a *discordgo.MessageAttachment, _ int) string {
		return fmt.Sprintf("[%s](%s)", a.Filename, a.URL)
	})
	embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
		Name:  "Adjuntos",
		Value: strings.Join(links, "\n"),
	})
	return embed
}

// toStaff returns false when the staff channel no longer exists.
func (m *Manager) toStaff(user *discordgo.User, channelID string, msg *discordgo.Message) bool {
	embed := relayEmbed(msg, user.Username, user.AvatarURL(""), colorUser)
	_, err := m.platform.Send(channelID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
	if err == nil {
		return true
	}
	if stderrors.Is(err, discord.ErrChannelNotFound) {
		logger.Warn("Canal de apelación "+channelID+" borrado, relay detenido", "Appeals")
		return false
	}
	logger.Warn("No se pudo enviar el mensaje al staff: "+err.Error(), "Appeals")
	return true
}

func (m *Manager) toUser(user *discordgo.User, channelID string, msg *discordgo.Message) {
	embed := relayEmbed(msg, "Staff - "+msg.Author.Username, msg.Author.AvatarURL(""), colorStaff)
	err := m.platform.SendDM(user.ID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
	if err == nil {
		return
	}

	notice := "⚠️ No se pudo enviar el mensaje al usuario: " + err.Error()
	if stderrors.Is(err, discord.ErrDMClosed) {
		notice = "⚠️ No se pudo enviar el mensaje al usuario (tiene los mensajes directos desactivados)."
	}
	logger.Warn(notice, "Appeals")
	if _, err := m.platform.Send(channelID, &discordgo.MessageSend{Content: notice}); err != nil {
		logger.Warn("No se pudo avisar al staff: "+err.Error(), "Appeals")
	}
}
