// Package main provides a utility to sync Discord slash commands.
// It compares the locally defined command tree with what Discord has
// registered, removes stale commands and registers the current ones.
//
// Usage:
//
//	go run ./cmd/sync-commands [options]
//
// Options:
//
//	-list           List the registered commands and how they differ from the local set
//	-clean          Remove all commands without registering new ones
//	-dev            Target the dev guild (devGuildId) with the /dev commands
//	-guild <id>     Target a specific guild with the /dev commands
//	-dry-run        Show what a sync would change without touching Discord
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/PancyStudios/PancyModGo/internal/commands"
	"github.com/PancyStudios/PancyModGo/pkg/config"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

const prefix = "SyncCommands"

func main() {
	listCmd := flag.Bool("list", false, "List registered commands and the differences with the local set")
	cleanCmd := flag.Bool("clean", false, "Remove all commands without registering new ones")
	devCmd := flag.Bool("dev", false, "Target the configured dev guild")
	guildID := flag.String("guild", "", "Target a specific guild (leave empty for global)")
	dryRun := flag.Bool("dry-run", false, "Only report what a sync would change")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	target := *guildID
	if *devCmd {
		if cfg.DevGuildID == "" {
			logger.Critical("-dev requiere devGuildId en la configuración", prefix)
			os.Exit(1)
		}
		target = cfg.DevGuildID
	}

	logger.System("Iniciando utilidad de sincronización de comandos...", prefix)

	client, err := discord.NewClient(cfg.BotToken)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating Discord client: %v", err), prefix)
		os.Exit(1)
	}
	if err := client.Session.Open(); err != nil {
		logger.Critical(fmt.Sprintf("Error connecting to Discord: %v", err), prefix)
		os.Exit(1)
	}
	defer client.Session.Close()

	logger.Success("Conectado a Discord", prefix)

	// Handlers never run here, so no services are needed.
	commands.RegisterAll(client, cfg, commands.Deps{})

	local := client.CommandHandler.GlobalCommands()
	if target != "" {
		local = client.CommandHandler.DevCommands()
	}

	switch {
	case *listCmd:
		listCommands(client, target, local)
	case *cleanCmd:
		cleanCommands(client, target)
	default:
		syncCommands(client, target, local, *dryRun)
	}

	logger.Success("Operación completada exitosamente", prefix)
}

func scope(guildID string) string {
	if guildID == "" {
		return "globales"
	}
	return "del servidor " + guildID
}

func remoteCommands(client *discord.ExtendedClient, guildID string) ([]*discordgo.ApplicationCommand, error) {
	if guildID != "" {
		return client.CommandHandler.ListGuildCommands(guildID)
	}
	return client.CommandHandler.ListGlobalCommands()
}

// commandDiff is the difference between the local and the registered sets.
type commandDiff struct {
	Added []string
	Stale []string
	Kept  []string
}

func (d commandDiff) empty() bool {
	return len(d.Added) == 0 && len(d.Stale) == 0
}

// diffCommands compares commands by name.
func diffCommands(local, remote []*discordgo.ApplicationCommand) commandDiff {
	name := func(c *discordgo.ApplicationCommand, _ int) string { return c.Name }
	localNames := lo.Map(local, name)
	remoteNames := lo.Map(remote, name)

	added, stale := lo.Difference(localNames, remoteNames)
	kept := lo.Intersect(localNames, remoteNames)
	sort.Strings(added)
	sort.Strings(stale)
	sort.Strings(kept)
	return commandDiff{Added: added, Stale: stale, Kept: kept}
}

func reportDiff(d commandDiff) {
	for _, n := range d.Added {
		logger.Info("  + /"+n+" (nuevo)", prefix)
	}
	for _, n := range d.Stale {
		logger.Info("  - /"+n+" (obsoleto)", prefix)
	}
	logger.Info(fmt.Sprintf("%d nuevos, %d obsoletos, %d sin cambios", len(d.Added), len(d.Stale), len(d.Kept)), prefix)
}

// listCommands lists the registered commands and the pending differences.
func listCommands(client *discord.ExtendedClient, guildID string, local []*discordgo.ApplicationCommand) {
	logger.Info("📋 Listando comandos "+scope(guildID)+"...", prefix)

	cmds, err := remoteCommands(client, guildID)
	if err != nil {
		logger.Error(fmt.Sprintf("Error obteniendo comandos: %v", err), prefix)
		return
	}

	if len(cmds) == 0 {
		logger.Info("No hay comandos registrados", prefix)
	}
	for i, cmd := range cmds {
		logger.Info(fmt.Sprintf("  %d. /%s - %s (ID: %s)", i+1, cmd.Name, cmd.Description, cmd.ID), prefix)
	}
	reportDiff(diffCommands(local, cmds))
}

// cleanCommands removes all commands of the scope.
func cleanCommands(client *discord.ExtendedClient, guildID string) {
	logger.Info("🧹 Eliminando comandos "+scope(guildID)+"...", prefix)

	var err error
	if guildID != "" {
		err = client.CommandHandler.UnregisterGuildCommands(guildID)
	} else {
		err = client.CommandHandler.UnregisterCommands()
	}
	if err != nil {
		logger.Error(fmt.Sprintf("Error eliminando comandos: %v", err), prefix)
		return
	}

	logger.Success("✅ Todos los comandos han sido eliminados", prefix)
}

// syncCommands overwrites the scope with the local set. Discord drops the
// stale commands as part of the overwrite.
func syncCommands(client *discord.ExtendedClient, guildID string, local []*discordgo.ApplicationCommand, dryRun bool) {
	logger.Info("🔄 Sincronizando comandos "+scope(guildID)+"...", prefix)

	remote, err := remoteCommands(client, guildID)
	if err != nil {
		logger.Error(fmt.Sprintf("Error obteniendo comandos: %v", err), prefix)
		return
	}
	diff := diffCommands(local, remote)
	reportDiff(diff)

	if dryRun {
		logger.Info("Modo -dry-run: no se modificó nada", prefix)
		return
	}
	if diff.empty() {
		logger.Info("Los nombres coinciden; se reescriben igualmente para actualizar opciones", prefix)
	}

	if guildID != "" {
		err = client.CommandHandler.SyncDevCommands(guildID)
	} else {
		err = client.CommandHandler.SyncCommands()
	}
	if err != nil {
		logger.Error(fmt.Sprintf("Error sincronizando comandos: %v", err), prefix)
		return
	}
	logger.Success("✅ Comandos sincronizados correctamente", prefix)
}
