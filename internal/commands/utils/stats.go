package utils

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/config"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/PancyStudios/PancyModGo/pkg/sysinfo"
	"github.com/bwmarrin/discordgo"
)

func (h *handlers) createStatsCommand() *discord.Command {
	return discord.NewCommand(
		"stats",
		"Muestra estadísticas del bot",
		"utils",
		h.statsHandler,
	)
}

func (h *handlers) statsHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()

		probeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		snap := sysinfo.Collect(probeCtx)

		memberCount := 0
		ctx.Session.State.RLock()
		for _, guild := range ctx.Session.State.Guilds {
			memberCount += guild.MemberCount
		}
		ctx.Session.State.RUnlock()

		embed := statsEmbed(snap, ctx.Client.GuildCount(), memberCount, time.Since(ctx.Client.StartTime))
		if u := ctx.Session.State.User; u != nil {
			embed.Footer.IconURL = u.AvatarURL("")
		}
		_ = ctx.ReplyEmbed(embed)
	}()
	return nil
}

func statsEmbed(snap sysinfo.Snapshot, guilds, members int, uptime time.Duration) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "📊 Estadísticas del Bot",
		Color: 0x5865F2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "🤖 Versión del Bot", Value: config.Version, Inline: true},
			{Name: "🐹 Versión de Go", Value: snap.GoVersion, Inline: true},
			{Name: "📚 Versión de DiscordGo", Value: discordgo.VERSION, Inline: true},
			{Name: "🖥 Uso de RAM", Value: fmt.Sprintf("%.2f MB (heap %.2f MB)", sysinfo.MB(snap.ProcessRSS), sysinfo.MB(snap.HeapAlloc)), Inline: true},
			{Name: "⚙️ Uso de CPU", Value: fmt.Sprintf("%.1f%% / %d CPUs", snap.ProcessCPU, snap.CPUs), Inline: true},
			{Name: "🧵 Goroutines", Value: fmt.Sprintf("%d", snap.Goroutines), Inline: true},
			{Name: "🧠 Memoria del sistema", Value: fmt.Sprintf("%.1f%% (%.0f MB / %.0f MB)", snap.MemPercent, sysinfo.MB(snap.MemUsed), sysinfo.MB(snap.MemTotal)), Inline: true},
			{Name: "⏱ Uptime", Value: formatDuration(uptime), Inline: true},
			{Name: "🏠 Servidores", Value: fmt.Sprintf("%d", guilds), Inline: true},
			{Name: "👥 Miembros", Value: fmt.Sprintf("%d", members), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: "💫 - Developed by PancyStudios",
		},
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// formatDuration formats a time.Duration into a human-readable string
func formatDuration(dur time.Duration) string {
	days := int(dur.Hours() / 24)
	hours := int(dur.Hours()) % 24
	minutes := int(dur.Minutes()) % 60
	seconds := int(dur.Seconds()) % 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d días", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%d horas", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%d minutos", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%d segundos", seconds))
	}

	return strings.Join(parts, ", ")
}
