package events

import (
	"github.com/PancyStudios/PancyModGo/internal/modlog"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

func (h *handlers) registerVoiceEvents(client *discord.ExtendedClient) {
	client.EventHandler.OnVoiceStateUpdate(func(s *discordgo.Session, v *discordgo.VoiceStateUpdate) {
		h.voiceChanged(v)
	})
}

// voiceChanged logs channel joins, leaves and moves. Mute and deafen
// changes are ignored.
func (h *handlers) voiceChanged(v *discordgo.VoiceStateUpdate) {
	if v.VoiceState == nil {
		return
	}
	before := ""
	if v.BeforeUpdate != nil {
		before = v.BeforeUpdate.ChannelID
	}
	logType, embed := modlog.VoiceEmbed(v.UserID, before, v.ChannelID)
	if logType == "" {
		return
	}
	h.logs.Send(v.GuildID, logType, embed)
}
