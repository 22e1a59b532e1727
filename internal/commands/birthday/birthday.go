// Package birthday provides /cumpleanos: users register their birthday and
// time zone, admins pick the announcement channel.
package birthday

import (
	"context"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/PancyStudios/PancyModGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

var monthNames = [...]string{"", "enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre"}

// Store is the birthday part of the persistent store.
type Store interface {
	SetBirthday(ctx context.Context, b models.Birthday) error
	DeleteBirthday(ctx context.Context, userID string) (bool, error)
	ListBirthdaysByMonth(ctx context.Context, month time.Month) ([]models.Birthday, error)
	SetBirthdayChannel(ctx context.Context, guildID, channelID string) error
}

type handlers struct {
	store     Store
	adminRole string
}

// RegisterBirthdayCommands registers /cumpleanos set|remove|canal|lista.
func RegisterBirthdayCommands(client *discord.ExtendedClient, store Store, adminRoleID string) {
	h := &handlers{store: store, adminRole: adminRoleID}

	set := discord.NewCommand("set", "Guarda tu cumpleaños", "cumpleanos", h.setHandler).
		WithOptions(
			&discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "fecha",
				Description: "Tu cumpleaños (MM-DD)",
				Required:    true,
			},
			&discordgo.ApplicationCommandOption{
				Type:         discordgo.ApplicationCommandOptionString,
				Name:         "zona",
				Description:  "Tu zona horaria, busca tu ciudad o país",
				Required:     true,
				Autocomplete: true,
			},
		).
		WithAutoComplete(func(ctx *discord.CommandContext) {
			typed := ""
			if opt := ctx.FocusedOption(); opt != nil {
				typed = opt.StringValue()
			}
			if err := ctx.SendAutoCompleteChoices(zoneChoices(typed)); err != nil {
				logger.Debug("Autocompletado de zonas fallido: "+err.Error(), "CMD-Birthday")
			}
		})

	remove := discord.NewCommand("remove", "Borra tu cumpleaños", "cumpleanos", h.removeHandler)

	channel := discord.NewCommand("canal", "Elige el canal de anuncios de cumpleaños", "cumpleanos", h.channelHandler).
		WithOptions(&discordgo.ApplicationCommandOption{
			Type:         discordgo.ApplicationCommandOptionChannel,
			Name:         "canal",
			Description:  "Canal donde se anunciarán los cumpleaños",
			Required:     true,
			ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildText},
		}).
		WithUserPermissions(discordgo.PermissionManageGuild).
		InGuild()

	minMonth := 1.0
	list := discord.NewCommand("lista", "Lista los cumpleaños de un mes", "cumpleanos", h.listHandler).
		WithOptions(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "mes",
			Description: "Mes (1-12)",
			Required:    true,
			MinValue:    &minMonth,
			MaxValue:    12,
		})

	client.CommandHandler.AddGlobalCommand(client.CommandHandler.BuildCommandGroup(
		"cumpleanos",
		"Cumpleaños",
		set,
		remove,
		channel,
		list,
	))
}

func (h *handlers) setHandler(ctx *discord.CommandContext) error {
	h.set(context.Background(), ctx.Responder(), ctx.GetStringOption("fecha"), ctx.GetStringOption("zona"))
	return nil
}

func (h *handlers) set(ctx context.Context, r discord.Responder, date, zoneName string) {
	month, day, err := models.ParseMonthDay(date)
	if err != nil {
		_ = r.Respond("❌ | Fecha inválida. Usa el formato MM-DD, por ejemplo `03-14`.", true)
		return
	}
	zoneName = strings.TrimSpace(zoneName)
	if _, err := time.LoadLocation(zoneName); err != nil || zoneName == "" || zoneName == "Local" {
		_ = r.Respond("❌ | Zona horaria desconocida. Elige una de la lista o usa un nombre como `Europe/Madrid`.", true)
		return
	}

	b := models.Birthday{UserID: r.ActorID(), Date: fmt.Sprintf("%02d-%02d", int(month), day), Timezone: zoneName}
	if err := h.store.SetBirthday(ctx, b); err != nil {
		errors.Capture(fmt.Errorf("guardar cumpleaños de %s: %w", b.UserID, err), "CMD-Birthday")
		_ = r.Respond("❌ | No se pudo guardar tu cumpleaños.", true)
		return
	}
	_ = r.Respond(fmt.Sprintf("🎂 | Cumpleaños guardado: **%d de %s** (%s).", day, monthNames[month], zoneName), true)
}

func (h *handlers) removeHandler(ctx *discord.CommandContext) error {
	h.remove(context.Background(), ctx.Responder())
	return nil
}

func (h *handlers) remove(ctx context.Context, r discord.Responder) {
	removed, err := h.store.DeleteBirthday(ctx, r.ActorID())
	if err != nil {
		errors.Capture(fmt.Errorf("borrar cumpleaños de %s: %w", r.ActorID(), err), "CMD-Birthday")
		_ = r.Respond("❌ | No se pudo borrar tu cumpleaños.", true)
		return
	}
	if !removed {
		_ = r.Respond("ℹ️ | No tienes un cumpleaños guardado.", true)
		return
	}
	_ = r.Respond("🗑️ | Tu cumpleaños fue borrado.", true)
}

func (h *handlers) channelHandler(ctx *discord.CommandContext) error {
	ch := ctx.GetChannelOption("canal")
	if ch == nil {
		return ctx.ReplyEphemeral("❌ Debes especificar un canal.")
	}
	h.setChannel(context.Background(), ctx.Responder(), ch.ID)
	return nil
}

func (h *handlers) setChannel(ctx context.Context, r discord.Responder, channelID string) {
	if !discord.RequireRole(r, h.adminRole) {
		return
	}
	if err := h.store.SetBirthdayChannel(ctx, r.GuildID(), channelID); err != nil {
		errors.Capture(fmt.Errorf("canal de cumpleaños de %s: %w", r.GuildID(), err), "CMD-Birthday")
		_ = r.Respond("❌ | No se pudo guardar el canal.", true)
		return
	}
	_ = r.Respond(fmt.Sprintf("✅ | Los cumpleaños se anunciarán en <#%s>.", channelID), false)
}

func (h *handlers) listHandler(ctx *discord.CommandContext) error {
	h.list(context.Background(), ctx.Responder(), int(ctx.GetIntOption("mes")))
	return nil
}

func (h *handlers) list(ctx context.Context, r discord.Responder, month int) {
	if month < 1 || month > 12 {
		_ = r.Respond("❌ | Mes inválido, usa un número entre 1 y 12.", true)
		return
	}
	birthdays, err := h.store.ListBirthdaysByMonth(ctx, time.Month(month))
	if err != nil {
		errors.Capture(fmt.Errorf("listar cumpleaños: %w", err), "CMD-Birthday")
		_ = r.Respond("❌ | Error al consultar la base de datos.", true)
		return
	}
	if len(birthdays) == 0 {
		_ = r.Respond(fmt.Sprintf("ℹ️ | No hay cumpleaños en %s.", monthNames[month]), true)
		return
	}

	lines := make([]string, 0, len(birthdays))
	for _, b := range birthdays {
		_, day, err := b.MonthDay()
		if err != nil {
			continue
		}
		lines = append(lines, fmt.Sprintf("**%d de %s** - <@%s>", day, monthNames[month], b.UserID))
	}
	_ = r.RespondEmbed(&discordgo.MessageEmbed{
		Title:       "🎂 Cumpleaños de " + monthNames[month],
		Description: strings.Join(lines, "\n"),
		Color:       0xE91E63,
	}, false)
}
