// Package events provides a registry for organizing bot events.
// Events are organized by category (guild, member, message, voice, etc.)
// and feed the moderation log channels and the appeal prefix commands.
package events

import (
	"context"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// LogSender posts an embed to the channel a guild configured for logType.
type LogSender interface {
	Send(guildID, logType string, embed *discordgo.MessageEmbed) bool
}

// Appeals starts and closes ban appeals from prefix commands.
type Appeals interface {
	Start(ctx context.Context, r discord.Responder, user *discordgo.User) error
	Close(ctx context.Context, r discord.Responder, channelID string, closer *discordgo.User) error
}

type handlers struct {
	logs    LogSender
	appeals Appeals
	confirm *discord.ConfirmRegistry
	now     func() time.Time
}

// RegisterAll registers all events with the Discord client
func RegisterAll(client *discord.ExtendedClient, logs LogSender, appeals Appeals) {
	logger.System("📋 Registrando eventos del bot...", "Events")

	h := &handlers{logs: logs, appeals: appeals, confirm: client.Confirm, now: time.Now}

	// Ready and connection events
	h.registerReadyEvents(client)

	// Guild events (server join/leave, bans)
	h.registerGuildEvents(client)

	// Member events (join/leave/update)
	h.registerMemberEvents(client)

	// Message events (prefix commands, edits, deletions)
	h.registerMessageEvents(client)

	// Voice events (join/leave/move)
	h.registerVoiceEvents(client)

	logger.Success("✅ Todos los eventos registrados correctamente", "Events")
}
