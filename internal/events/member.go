package events

import (
	"fmt"

	"github.com/PancyStudios/PancyModGo/internal/modlog"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

func (h *handlers) registerMemberEvents(client *discord.ExtendedClient) {
	client.EventHandler.OnGuildMemberAdd(func(s *discordgo.Session, m *discordgo.GuildMemberAdd) {
		h.memberJoined(m, memberCount(s, m.GuildID))
	})
	client.EventHandler.OnGuildMemberRemove(func(s *discordgo.Session, m *discordgo.GuildMemberRemove) {
		h.memberLeft(m, memberCount(s, m.GuildID))
	})
	client.EventHandler.OnGuildMemberUpdate(func(s *discordgo.Session, m *discordgo.GuildMemberUpdate) {
		h.memberUpdated(m)
	})
}

// memberCount reads the cached member count, 0 when the guild is unknown.
func memberCount(s *discordgo.Session, guildID string) int {
	if s.State == nil {
		return 0
	}
	g, err := s.State.Guild(guildID)
	if err != nil {
		return 0
	}
	return g.MemberCount
}

func (h *handlers) memberJoined(m *discordgo.GuildMemberAdd, count int) {
	if m.Member == nil || m.User == nil {
		return
	}
	logger.Debug(fmt.Sprintf("👋 Nuevo miembro: %s en servidor %s", m.User.Username, m.GuildID), "Member")
	h.logs.Send(m.GuildID, "member_join", modlog.MemberJoinEmbed(m.User, count, h.now()))
}

func (h *handlers) memberLeft(m *discordgo.GuildMemberRemove, count int) {
	if m.Member == nil || m.User == nil {
		return
	}
	logger.Debug(fmt.Sprintf("👋 Adiós: %s salió del servidor %s", m.User.Username, m.GuildID), "Member")
	h.logs.Send(m.GuildID, "member_leave", modlog.MemberLeaveEmbed(m.Member, count))
}

func (h *handlers) memberUpdated(m *discordgo.GuildMemberUpdate) {
	if m.Member == nil {
		return
	}
	for _, e := range modlog.MemberUpdateEntries(m.BeforeUpdate, m.Member) {
		h.logs.Send(m.GuildID, e.Type, e.Embed)
	}
}
