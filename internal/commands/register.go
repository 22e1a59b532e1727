// Package commands wires every slash command group into the client.
// Commands are organized in subdirectories by category (mod, logs, utils...).
package commands

import (
	"github.com/PancyStudios/PancyModGo/internal/appeal"
	"github.com/PancyStudios/PancyModGo/internal/commands/birthday"
	"github.com/PancyStudios/PancyModGo/internal/commands/dev"
	"github.com/PancyStudios/PancyModGo/internal/commands/infractions"
	"github.com/PancyStudios/PancyModGo/internal/commands/logs"
	"github.com/PancyStudios/PancyModGo/internal/commands/mod"
	"github.com/PancyStudios/PancyModGo/internal/commands/suggestions"
	"github.com/PancyStudios/PancyModGo/internal/commands/utils"
	"github.com/PancyStudios/PancyModGo/internal/moderation"
	"github.com/PancyStudios/PancyModGo/internal/scheduler"
	"github.com/PancyStudios/PancyModGo/pkg/config"
	"github.com/PancyStudios/PancyModGo/pkg/database"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
)

// Deps are the services commands act on.
type Deps struct {
	Store     database.Store
	Engine    *moderation.Engine
	LogCache  *database.LogChannelCache
	Appeals   *appeal.Manager
	Scheduler *scheduler.Scheduler
}

// RegisterAll registers all commands with the Discord client
func RegisterAll(client *discord.ExtendedClient, cfg *config.Config, deps Deps) {
	// /utils ping, status, help, stats
	utils.RegisterUtilsCommands(client, deps.Store)

	// /mod mute, unmute, kick, ban, cleanban, unban, warn, purge
	mod.RegisterModCommands(client, deps.Engine, client.Gateway, cfg.AdminRoleID)

	// /infracciones buscar, eliminar
	infractions.RegisterInfractionCommands(client, deps.Engine, cfg.AdminRoleID)

	// /cumpleanos set, remove, canal, lista
	birthday.RegisterBirthdayCommands(client, deps.Store, cfg.AdminRoleID)

	// /logs set, remove, lista, tipos
	logs.RegisterLogCommands(client, deps.LogCache, deps.Store, cfg.AdminRoleID)

	// /sugerencia enviar, completar, lista
	suggestions.RegisterSuggestionCommands(client, deps.Store, client.Gateway, cfg.SuggestionAdminID)

	// /dev, only in the dev guild
	dev.Register(client, deps.Scheduler, deps.Appeals, deps.LogCache, cfg.AdminRoleID)
}
