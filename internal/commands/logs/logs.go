// Package logs provides /logs, which routes each guild log type to a channel.
package logs

import (
	"context"
	"fmt"
	"strings"

	"github.com/PancyStudios/PancyModGo/internal/modlog"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/PancyStudios/PancyModGo/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/samber/lo"
)

// Channels writes log routes. *database.LogChannelCache satisfies it.
type Channels interface {
	Set(ctx context.Context, cfg models.LogConfig) error
	Remove(ctx context.Context, guildID, logType string) (bool, error)
}

// Lister reads the routes of one guild.
type Lister interface {
	ListLogChannels(ctx context.Context, guildID string) ([]models.LogConfig, error)
}

type handlers struct {
	channels  Channels
	lister    Lister
	adminRole string
}

// RegisterLogCommands registers /logs set|remove|lista|tipos.
func RegisterLogCommands(client *discord.ExtendedClient, channels Channels, lister Lister, adminRoleID string) {
	h := &handlers{channels: channels, lister: lister, adminRole: adminRoleID}

	typeOption := func() *discordgo.ApplicationCommandOption {
		return &discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionString,
			Name:         "tipo",
			Description:  "Tipo de log",
			Required:     true,
			Autocomplete: true,
		}
	}

	set := discord.NewCommand("set", "Envía un tipo de log a un canal", "logs", h.setHandler).
		WithOptions(
			typeOption(),
			&discordgo.ApplicationCommandOption{
				Type:         discordgo.ApplicationCommandOptionChannel,
				Name:         "canal",
				Description:  "Canal que recibirá los logs",
				Required:     true,
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
			},
		).
		WithUserPermissions(discordgo.PermissionManageGuild).
		WithAutoComplete(typeAutoComplete).
		InGuild()

	remove := discord.NewCommand("remove", "Deja de enviar un tipo de log", "logs", h.removeHandler).
		WithOptions(typeOption()).
		WithUserPermissions(discordgo.PermissionManageGuild).
		WithAutoComplete(typeAutoComplete).
		InGuild()

	list := discord.NewCommand("lista", "Muestra los canales de logs configurados", "logs", h.listHandler).
		WithUserPermissions(discordgo.PermissionManageGuild).
		InGuild()

	types := discord.NewCommand("tipos", "Muestra los tipos de log disponibles", "logs", func(ctx *discord.CommandContext) error {
		return ctx.ReplyEphemeralEmbed(typesEmbed())
	})

	client.CommandHandler.AddGlobalCommand(client.CommandHandler.BuildCommandGroup(
		"logs",
		"Configuración de logs del servidor",
		set,
		remove,
		list,
		types,
	))
}

func typeAutoComplete(ctx *discord.CommandContext) {
	typed := ""
	if opt := ctx.FocusedOption(); opt != nil {
		typed = opt.StringValue()
	}
	if err := ctx.SendAutoCompleteChoices(typeChoices(typed)); err != nil {
		logger.Debug("Autocompletado de tipos fallido: "+err.Error(), "CMD-Logs")
	}
}

func typeChoices(typed string) []*discordgo.ApplicationCommandOptionChoice {
	typed = strings.ToLower(strings.TrimSpace(typed))
	matches := lo.Filter(modlog.LogTypes, func(t string, _ int) bool {
		return strings.Contains(t, typed)
	})
	if len(matches) > 25 {
		matches = matches[:25]
	}
	return lo.Map(matches, func(t string, _ int) *discordgo.ApplicationCommandOptionChoice {
		return &discordgo.ApplicationCommandOptionChoice{Name: t, Value: t}
	})
}

func typesEmbed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       "📋 Tipos de log",
		Description: "`" + strings.Join(modlog.LogTypes, "`, `") + "`",
		Color:       0x3498DB,
	}
}

func (h *handlers) setHandler(ctx *discord.CommandContext) error {
	ch := ctx.GetChannelOption("canal")
	if ch == nil {
		return ctx.ReplyEphemeral("❌ Debes especificar un canal.")
	}
	h.set(context.Background(), ctx.Responder(), ctx.GetStringOption("tipo"), ch.ID)
	return nil
}

func (h *handlers) set(ctx context.Context, r discord.Responder, logType, channelID string) {
	if !discord.RequireRole(r, h.adminRole) {
		return
	}
	logType = strings.ToLower(strings.TrimSpace(logType))
	if !modlog.Valid(logType) {
		_ = r.Respond(fmt.Sprintf("❌ | Tipo de log desconocido `%s`. Usa `/logs tipos` para ver la lista.", logType), true)
		return
	}

	cfg := models.LogConfig{GuildID: r.GuildID(), LogType: logType, ChannelID: channelID}
	if err := h.channels.Set(ctx, cfg); err != nil {
		errors.Capture(fmt.Errorf("guardar log %s en %s: %w", logType, cfg.GuildID, err), "CMD-Logs")
		_ = r.Respond("❌ | No se pudo guardar la configuración.", true)
		return
	}
	_ = r.Respond(fmt.Sprintf("✅ | Los logs `%s` se enviarán a <#%s>.", logType, channelID), true)
}

func (h *handlers) removeHandler(ctx *discord.CommandContext) error {
	h.remove(context.Background(), ctx.Responder(), ctx.GetStringOption("tipo"))
	return nil
}

func (h *handlers) remove(ctx context.Context, r discord.Responder, logType string) {
	if !discord.RequireRole(r, h.adminRole) {
		return
	}
	logType = strings.ToLower(strings.TrimSpace(logType))
	removed, err := h.channels.Remove(ctx, r.GuildID(), logType)
	if err != nil {
		errors.Capture(fmt.Errorf("borrar log %s en %s: %w", logType, r.GuildID(), err), "CMD-Logs")
		_ = r.Respond("❌ | No se pudo borrar la configuración.", true)
		return
	}
	if !removed {
		_ = r.Respond(fmt.Sprintf("ℹ️ | El tipo `%s` no tenía canal asignado.", logType), true)
		return
	}
	_ = r.Respond(fmt.Sprintf("🗑️ | Los logs `%s` ya no se enviarán.", logType), true)
}

func (h *handlers) listHandler(ctx *discord.CommandContext) error {
	h.list(context.Background(), ctx.Responder())
	return nil
}

func (h *handlers) list(ctx context.Context, r discord.Responder) {
	if !discord.RequireRole(r, h.adminRole) {
		return
	}
	configs, err := h.lister.ListLogChannels(ctx, r.GuildID())
	if err != nil {
		errors.Capture(fmt.Errorf("listar logs de %s: %w", r.GuildID(), err), "CMD-Logs")
		_ = r.Respond("❌ | Error al consultar la base de datos.", true)
		return
	}
	if len(configs) == 0 {
		_ = r.Respond("ℹ️ | No hay canales de logs configurados.", true)
		return
	}

	lines := lo.Map(configs, func(c models.LogConfig, _ int) string {
		return fmt.Sprintf("`%s` → <#%s>", c.LogType, c.ChannelID)
	})
	_ = r.RespondEmbed(&discordgo.MessageEmbed{
		Title:       "📋 Canales de logs",
		Description: strings.Join(lines, "\n"),
		Color:       0x3498DB,
	}, true)
}
