// Package mod provides moderation commands organized as subcommands under /mod
// Each command is in its own file for better organization
package mod

import (
	"github.com/PancyStudios/PancyModGo/internal/moderation"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
)

// handlers carries what every /mod subcommand needs.
type handlers struct {
	engine    *moderation.Engine
	messages  moderation.MessagePlatform
	adminRole string
}

// RegisterModCommands registers all moderation commands as /mod subcommands.
// Only members holding adminRoleID may run them.
func RegisterModCommands(client *discord.ExtendedClient, engine *moderation.Engine, messages moderation.MessagePlatform, adminRoleID string) {
	h := &handlers{engine: engine, messages: messages, adminRole: adminRoleID}

	modGroup := client.CommandHandler.BuildCommandGroup(
		"mod",
		"Comandos de moderación",
		h.createMuteCommand(),
		h.createUnmuteCommand(),
		h.createKickCommand(),
		h.createBanCommand(),
		h.createCleanBanCommand(),
		h.createUnbanCommand(),
		h.createWarnCommand(),
		h.createPurgeCommand(),
	)

	client.CommandHandler.AddGlobalCommand(modGroup)
}
