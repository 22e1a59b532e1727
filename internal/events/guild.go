package events

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyModGo/internal/modlog"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

func (h *handlers) registerGuildEvents(client *discord.ExtendedClient) {
	client.EventHandler.OnGuildCreate(onGuildCreate)
	client.EventHandler.OnGuildDelete(onGuildDelete)
	client.EventHandler.OnGuildBanAdd(func(s *discordgo.Session, b *discordgo.GuildBanAdd) {
		h.banChanged(b.GuildID, b.User, true)
	})
	client.EventHandler.OnGuildBanRemove(func(s *discordgo.Session, b *discordgo.GuildBanRemove) {
		h.banChanged(b.GuildID, b.User, false)
	})
}

// onGuildCreate is called when the bot joins a server
func onGuildCreate(s *discordgo.Session, g *discordgo.GuildCreate) {
	// GuildCreate also fires for every guild on connect.
	if g.JoinedAt.Before(time.Now().Add(-10 * time.Second)) {
		return
	}

	logger.Info(fmt.Sprintf("➕ Bot agregado a servidor: %s (ID: %s)", g.Name, g.ID), "Guild")
	logger.Debug(fmt.Sprintf("   Miembros: %d | Canales: %d", g.MemberCount, len(g.Channels)), "Guild")

	if g.SystemChannelID == "" {
		return
	}
	welcomeEmbed := &discordgo.MessageEmbed{
		Title:       "¡Gracias por agregarme! 🎉",
		Description: "Hola, soy **PancyMod**. Usa `/utils help` para ver todos mis comandos.",
		Color:       0x00ff00,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🔧 Moderación", Value: "Usa `/mod` para moderar", Inline: true},
			{Name: "📋 Logs", Value: "Configura los canales con `/logs set`", Inline: true},
			{Name: "🎂 Cumpleaños", Value: "Elige el canal con `/cumpleanos canal`", Inline: true},
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
	if _, err := s.ChannelMessageSendEmbed(g.SystemChannelID, welcomeEmbed); err != nil {
		logger.Error(fmt.Sprintf("Error enviando mensaje de bienvenida: %v", err), "Guild")
	}
}

// onGuildDelete is called when the bot is removed from a server
func onGuildDelete(s *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Unavailable {
		logger.Warn(fmt.Sprintf("Servidor %s no disponible temporalmente", g.ID), "Guild")
		return
	}
	logger.Info(fmt.Sprintf("➖ Bot removido del servidor ID: %s", g.ID), "Guild")
}

func (h *handlers) banChanged(guildID string, user *discordgo.User, banned bool) {
	if user == nil {
		return
	}
	logType := "member_ban"
	if !banned {
		logType = "member_unban"
	}
	h.logs.Send(guildID, logType, modlog.BanEmbed(user, banned))
}
