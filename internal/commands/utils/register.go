// Package utils provides /utils: latency, status, help and runtime stats.
package utils

import (
	"github.com/PancyStudios/PancyModGo/pkg/discord"
)

// StatusReporter reports whether the store is usable.
type StatusReporter interface {
	Status() (string, bool)
}

type handlers struct {
	client *discord.ExtendedClient
	store  StatusReporter
}

// RegisterUtilsCommands registers /utils ping|status|help|stats.
func RegisterUtilsCommands(client *discord.ExtendedClient, store StatusReporter) {
	h := &handlers{client: client, store: store}

	client.CommandHandler.AddGlobalCommand(client.CommandHandler.BuildCommandGroup(
		"utils",
		"Comandos de utilidad",
		h.createPingCommand(),
		h.createStatusCommand(),
		h.createHelpCommand(),
		h.createStatsCommand(),
	))
}
