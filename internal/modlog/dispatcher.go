// Package modlog delivers guild activity and moderation events to the log
// channels each guild configured per log type.
package modlog

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/PancyStudios/PancyModGo/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

// LogTypes lists every log type a guild can route to a channel.
var LogTypes = []string{
	"message_delete",
	"message_edit",
	"message_bulk_delete",
	"member_join",
	"member_leave",
	"member_ban",
	"member_unban",
	"member_kick",
	"warn",
	"mute",
	"unmute",
	"kick",
	"ban",
	"unban",
	"role_add",
	"role_remove",
	"nickname_change",
	"username_change",
	"timeout",
	"timeout_remove",
	"voice_join",
	"voice_leave",
	"voice_move",
	"channel_create",
	"channel_delete",
	"channel_update",
	"role_create",
	"role_delete",
	"role_update",
	"server_update",
}

// Valid reports whether logType is known.
func Valid(logType string) bool {
	return lo.Contains(LogTypes, logType)
}

// Resolver finds the channel configured for a log type.
type Resolver interface {
	Channel(guildID, logType string) (string, bool)
}

// Sender posts a message to a channel.
type Sender interface {
	Send(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
}

// Dispatcher routes embeds to log channels. Guilds without a channel for a
// type simply get nothing.
type Dispatcher struct {
	channels Resolver
	sender   Sender
	now      func() time.Time
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(channels Resolver, sender Sender) *Dispatcher {
	return &Dispatcher{channels: channels, sender: sender, now: time.Now}
}

// Send delivers embed to the channel configured for logType in guildID. It
// reports whether a message was posted.
func (d *Dispatcher) Send(guildID, logType string, embed *discordgo.MessageEmbed) bool {
	if guildID == "" || embed == nil {
		return false
	}
	channelID, ok := d.channels.Channel(guildID, logType)
	if !ok || channelID == "" {
		return false
	}
	if embed.Timestamp == "" {
		embed.Timestamp = d.now().UTC().Format(time.RFC3339)
	}

	_, err := d.sender.Send(channelID, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{embed}})
	if err != nil {
		logger.Warn(fmt.Sprintf("No se pudo enviar el log %s al canal %s: %v", logType, channelID, err), "ModLog")
		return false
	}
	return true
}

// LogTypeFor maps an infraction kind to its log type. Clean bans share the
// ban channel.
func LogTypeFor(kind models.InfractionKind) string {
	if kind == models.KindCleanBan {
		return string(models.KindBan)
	}
	return string(kind)
}

// OnInfraction posts every recorded infraction to its log channel.
func (d *Dispatcher) OnInfraction(_ context.Context, inf models.Infraction) {
	d.Send(inf.GuildID, LogTypeFor(inf.Kind), InfractionEmbed(inf))
}
