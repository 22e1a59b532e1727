package utils

import (
	"fmt"
	"sort"
	"strings"

	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/bwmarrin/discordgo"
)

func (h *handlers) createHelpCommand() *discord.Command {
	return discord.NewCommand(
		"help",
		"Muestra información de ayuda",
		"utils",
		h.helpHandler,
	)
}

func (h *handlers) helpHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()
		_ = ctx.ReplyEphemeralEmbed(helpEmbed(h.client.Commands.All()))
	}()
	return nil
}

// helpEmbed lists every registered command, one field per group. Keys use
// the "group.sub" form the command handler registers.
func helpEmbed(commands map[string]*discord.Command) *discordgo.MessageEmbed {
	groups := make(map[string][]string)
	for key, cmd := range commands {
		if cmd.IsDev {
			continue
		}
		group := key
		if idx := strings.IndexByte(key, '.'); idx >= 0 {
			group = key[:idx]
		}
		line := fmt.Sprintf("• `/%s` - %s", strings.ReplaceAll(key, ".", " "), cmd.Description)
		groups[group] = append(groups[group], line)
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	sort.Strings(names)

	embed := &discordgo.MessageEmbed{
		Title:       "📖 Ayuda de PancyMod",
		Description: "**Comandos disponibles.** Las apelaciones de baneo se abren enviando `!appeal` por mensaje directo al bot.",
		Color:       0x5865F2,
	}
	for _, name := range names {
		lines := groups[name]
		sort.Strings(lines)
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  "/" + name,
			Value: strings.Join(lines, "\n"),
		})
	}
	return embed
}
