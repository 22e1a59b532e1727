// Package infractions provides /infracciones, the infraction history of a
// guild member.
package infractions

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/PancyStudios/PancyModGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

// maxListed caps the entries rendered in one embed.
const maxListed = 15

// Searcher reads and deletes infractions.
type Searcher interface {
	SearchInfractions(ctx context.Context, guildID, userID string) ([]models.Infraction, error)
	DeleteInfraction(ctx context.Context, guildID string, id int64) (bool, error)
}

type handlers struct {
	infractions Searcher
	adminRole   string
}

// RegisterInfractionCommands registers /infracciones buscar|eliminar.
func RegisterInfractionCommands(client *discord.ExtendedClient, s Searcher, adminRoleID string) {
	h := &handlers{infractions: s, adminRole: adminRoleID}

	search := discord.NewCommand("buscar", "Muestra las infracciones de un usuario", "mod", h.searchHandler).
		WithOptions(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionUser,
			Name:        "usuario",
			Description: "Usuario a consultar",
			Required:    true,
		}).
		WithUserPermissions(discordgo.PermissionModerateMembers).
		InGuild()

	remove := discord.NewCommand("eliminar", "Elimina una infracción por su número de caso", "mod", h.deleteHandler).
		WithOptions(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "caso",
			Description: "Número de caso",
			Required:    true,
		}).
		WithUserPermissions(discordgo.PermissionModerateMembers).
		InGuild()

	client.CommandHandler.AddGlobalCommand(client.CommandHandler.BuildCommandGroup(
		"infracciones",
		"Historial de infracciones",
		search,
		remove,
	))
}

func (h *handlers) searchHandler(ctx *discord.CommandContext) error {
	user := ctx.GetUserOption("usuario")
	if user == nil {
		return ctx.ReplyEphemeral("❌ Debes especificar un usuario.")
	}
	h.search(context.Background(), ctx.Responder(), user)
	return nil
}

func (h *handlers) search(ctx context.Context, r discord.Responder, user *discordgo.User) {
	if !discord.RequireRole(r, h.adminRole) {
		return
	}
	list, err := h.infractions.SearchInfractions(ctx, r.GuildID(), user.ID)
	if err != nil {
		errors.Capture(fmt.Errorf("buscar infracciones de %s: %w", user.ID, err), "CMD-Infractions")
		_ = r.Respond("❌ | Error al consultar la base de datos.", true)
		return
	}
	_ = r.RespondEmbed(listEmbed(user, list, time.Now()), true)
}

func (h *handlers) deleteHandler(ctx *discord.CommandContext) error {
	h.remove(context.Background(), ctx.Responder(), ctx.GetIntOption("caso"))
	return nil
}

func (h *handlers) remove(ctx context.Context, r discord.Responder, id int64) {
	if !discord.RequireRole(r, h.adminRole) {
		return
	}
	removed, err := h.infractions.DeleteInfraction(ctx, r.GuildID(), id)
	if err != nil {
		errors.Capture(fmt.Errorf("eliminar infracción %d: %w", id, err), "CMD-Infractions")
		_ = r.Respond("❌ | Error al eliminar la infracción.", true)
		return
	}
	if !removed {
		_ = r.Respond(fmt.Sprintf("❌ | No existe el caso #%d en este servidor.", id), true)
		return
	}
	logger.Info(fmt.Sprintf("Infracción #%d eliminada por %s", id, r.ActorID()), "CMD-Infractions")
	_ = r.Respond(fmt.Sprintf("🗑️ | Caso #%d eliminado.", id), true)
}

func listEmbed(user *discordgo.User, list []models.Infraction, now time.Time) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🔖 - Infracciones de %s (%s)", user.Username, user.ID),
		Color: 0xFFA500,
		Footer: &discordgo.MessageEmbedFooter{
			Text: "💫 - Developed by PancyStudios",
		},
	}
	if len(list) == 0 {
		embed.Color = 0x00FF00
		embed.Description = fmt.Sprintf("No se encontraron infracciones de este usuario.\n\n> 🕒 - **Fecha de consulta:** <t:%d>", now.Unix())
		return embed
	}

	var b strings.Builder
	for i, inf := range list {
		if i == maxListed {
			fmt.Fprintf(&b, "*... y %d más*\n\n", len(list)-maxListed)
			break
		}
		reason := inf.Reason
		if reason == "" {
			reason = "Sin razón especificada"
		}
		fmt.Fprintf(&b, "> **#%d** `%s` <t:%d:d>\n> **Razón:** %s\n> **Moderador:** <@%s>\n\n",
			inf.ID, inf.Kind, inf.Timestamp.Unix(), reason, inf.ModeratorID)
	}
	fmt.Fprintf(&b, "> 💫 - **Cantidad de infracciones:** %d\n> 🕒 - **Fecha de consulta:** <t:%d>", len(list), now.Unix())
	embed.Description = b.String()
	return embed
}
