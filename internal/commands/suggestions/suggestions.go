// Package suggestions provides /sugerencia. New ideas are DM'd to the
// suggestion admin with Approve/Deny buttons; approved ones can later be
// marked as completed.
package suggestions

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/PancyStudios/PancyModGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

const (
	buttonPrefix = "suggestion"
	maxFields    = 25
	previewLen   = 100
)

// Store is the suggestion part of the persistent store.
type Store interface {
	AddSuggestion(ctx context.Context, s *models.Suggestion) error
	GetSuggestion(ctx context.Context, id int64) (*models.Suggestion, error)
	UpdateSuggestionStatus(ctx context.Context, id int64, from, to models.SuggestionStatus) (bool, error)
	ListSuggestions(ctx context.Context) ([]models.Suggestion, error)
}

// Notifier delivers DMs and channel messages.
type Notifier interface {
	SendDM(userID string, msg *discordgo.MessageSend) error
	Send(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
}

type handlers struct {
	store   Store
	notify  Notifier
	adminID string
	now     func() time.Time
}

// RegisterSuggestionCommands registers /sugerencia enviar|completar|lista and
// the review buttons.
func RegisterSuggestionCommands(client *discord.ExtendedClient, store Store, notify Notifier, adminID string) {
	h := &handlers{store: store, notify: notify, adminID: adminID, now: time.Now}

	submit := discord.NewCommand("enviar", "Envía una sugerencia", "sugerencia", h.submitHandler).
		WithOptions(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "idea",
			Description: "Tu sugerencia",
			Required:    true,
			MaxLength:   1000,
		})

	minID := 1.0
	complete := discord.NewCommand("completar", "Marca una sugerencia aprobada como completada", "sugerencia", h.completeHandler).
		WithOptions(&discordgo.ApplicationCommandOption{
			Type:        discordgo.ApplicationCommandOptionInteger,
			Name:        "id",
			Description: "ID de la sugerencia",
			Required:    true,
			MinValue:    &minID,
		})

	list := discord.NewCommand("lista", "Lista todas las sugerencias", "sugerencia", h.listHandler)

	client.CommandHandler.AddGlobalCommand(client.CommandHandler.BuildCommandGroup(
		"sugerencia",
		"Sugerencias",
		submit,
		complete,
		list,
	))

	client.Components.Handle(buttonPrefix, h.handleButton)
}

func reviewButtons(id int64, disabled bool) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Aprobar ✅",
					Style:    discordgo.SuccessButton,
					CustomID: fmt.Sprintf("%s:%d:approve", buttonPrefix, id),
					Disabled: disabled,
				},
				discordgo.Button{
					Label:    "Rechazar ❌",
					Style:    discordgo.DangerButton,
					CustomID: fmt.Sprintf("%s:%d:deny", buttonPrefix, id),
					Disabled: disabled,
				},
			},
		},
	}
}

// parseButtonID splits "suggestion:<id>:approve|deny".
func parseButtonID(customID string) (int64, models.SuggestionStatus, bool) {
	parts := strings.Split(customID, ":")
	if len(parts) != 3 || parts[0] != buttonPrefix {
		return 0, "", false
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return 0, "", false
	}
	switch parts[2] {
	case "approve":
		return id, models.SuggestionApproved, true
	case "deny":
		return id, models.SuggestionDenied, true
	}
	return 0, "", false
}

func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLen {
		return text
	}
	return string([]rune(text)[:previewLen]) + "..."
}

func (h *handlers) submitHandler(ctx *discord.CommandContext) error {
	h.submit(context.Background(), ctx.Responder(), ctx.GetStringOption("idea"))
	return nil
}

func (h *handlers) submit(ctx context.Context, r discord.Responder, idea string) {
	idea = strings.TrimSpace(idea)
	if idea == "" {
		_ = r.Respond("❌ | La sugerencia no puede estar vacía.", true)
		return
	}

	sug := &models.Suggestion{
		UserID:    r.ActorID(),
		Text:      idea,
		Status:    models.SuggestionPending,
		ChannelID: r.ChannelID(),
		CreatedAt: h.now(),
	}
	if err := h.store.AddSuggestion(ctx, sug); err != nil {
		errors.Capture(fmt.Errorf("guardar sugerencia de %s: %w", sug.UserID, err), "CMD-Suggestion")
		_ = r.Respond("❌ | No se pudo guardar tu sugerencia.", true)
		return
	}
	_ = r.Respond(fmt.Sprintf("✅ | ¡Sugerencia enviada! (ID: **%d**)\n> %s", sug.ID, idea), false)

	if h.adminID == "" {
		return
	}
	err := h.notify.SendDM(h.adminID, &discordgo.MessageSend{
		Embeds: []*discordgo.MessageEmbed{{
			Title:       fmt.Sprintf("Nueva sugerencia (ID: %d)", sug.ID),
			Description: idea,
			Color:       0x5865F2,
			Timestamp:   sug.CreatedAt.Format(time.RFC3339),
			Fields: []*discordgo.MessageEmbedField{
				{Name: "Sugerida por", Value: fmt.Sprintf("<@%s> (%s)", sug.UserID, sug.UserID), Inline: true},
				{Name: "Canal", Value: fmt.Sprintf("<#%s>", sug.ChannelID), Inline: true},
			},
		}},
		Components: reviewButtons(sug.ID, false),
	})
	if err != nil {
		logger.Warn(fmt.Sprintf("No se pudo enviar la sugerencia %d al administrador: %v", sug.ID, err), "CMD-Suggestion")
	}
}

// review applies an Approve/Deny decision from presser and returns the
// reply for the button press. done is false when nothing changed.
func (h *handlers) review(ctx context.Context, presser string, id int64, to models.SuggestionStatus) (reply string, done bool) {
	if presser != h.adminID {
		return "❌ | No puedes revisar sugerencias.", false
	}
	sug, err := h.store.GetSuggestion(ctx, id)
	if err != nil {
		errors.Capture(fmt.Errorf("leer sugerencia %d: %w", id, err), "CMD-Suggestion")
		return "❌ | Error al consultar la base de datos.", false
	}
	if sug == nil {
		return fmt.Sprintf("❌ | La sugerencia #%d ya no existe.", id), false
	}

	ok, err := h.store.UpdateSuggestionStatus(ctx, id, models.SuggestionPending, to)
	if err != nil {
		errors.Capture(fmt.Errorf("actualizar sugerencia %d: %w", id, err), "CMD-Suggestion")
		return "❌ | Error al actualizar la sugerencia.", false
	}
	if !ok {
		return fmt.Sprintf("⚠️ | La sugerencia #%d ya fue revisada (%s).", id, statusLabel(sug.Status)), false
	}

	sug.Status = to
	h.announce(sug)
	if to == models.SuggestionApproved {
		return fmt.Sprintf("✅ | Sugerencia #%d aprobada.", id), true
	}
	return fmt.Sprintf("❌ | Sugerencia #%d rechazada.", id), true
}

func (h *handlers) handleButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer errors.RecoverMiddleware()()

	id, to, ok := parseButtonID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}
	presser := ""
	if i.Member != nil && i.Member.User != nil {
		presser = i.Member.User.ID
	} else if i.User != nil {
		presser = i.User.ID
	}

	reply, done := h.review(context.Background(), presser, id, to)
	if !done {
		_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{Content: reply, Flags: discordgo.MessageFlagsEphemeral},
		})
		return
	}

	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    reply,
			Embeds:     i.Message.Embeds,
			Components: reviewButtons(id, true),
		},
	})
	if err != nil {
		logger.Warn("No se pudo actualizar el mensaje de revisión: "+err.Error(), "CMD-Suggestion")
	}
}

func (h *handlers) completeHandler(ctx *discord.CommandContext) error {
	h.complete(context.Background(), ctx.Responder(), ctx.GetIntOption("id"))
	return nil
}

func (h *handlers) complete(ctx context.Context, r discord.Responder, id int64) {
	if r.ActorID() != h.adminID {
		_ = r.Respond("❌ | No tienes permiso para hacer eso.", true)
		return
	}
	sug, err := h.store.GetSuggestion(ctx, id)
	if err != nil {
		errors.Capture(fmt.Errorf("leer sugerencia %d: %w", id, err), "CMD-Suggestion")
		_ = r.Respond("❌ | Error al consultar la base de datos.", true)
		return
	}
	if sug == nil {
		_ = r.Respond("❌ | Sugerencia no encontrada.", true)
		return
	}
	if !sug.Status.CanTransition(models.SuggestionCompleted) {
		_ = r.Respond("⚠️ | La sugerencia debe estar aprobada antes de marcarla como completada.", true)
		return
	}

	ok, err := h.store.UpdateSuggestionStatus(ctx, id, models.SuggestionApproved, models.SuggestionCompleted)
	if err != nil {
		errors.Capture(fmt.Errorf("completar sugerencia %d: %w", id, err), "CMD-Suggestion")
		_ = r.Respond("❌ | Error al actualizar la sugerencia.", true)
		return
	}
	if !ok {
		_ = r.Respond("⚠️ | La sugerencia cambió de estado, inténtalo de nuevo.", true)
		return
	}

	sug.Status = models.SuggestionCompleted
	_ = r.Respond(fmt.Sprintf("✅ | ¡Sugerencia #%d marcada como completada!", id), false)
	h.announce(sug)
}

// announce tells the author by DM and the origin channel about a status
// change. Both deliveries are best effort.
func (h *handlers) announce(sug *models.Suggestion) {
	var dm, public string
	switch sug.Status {
	case models.SuggestionApproved:
		dm = fmt.Sprintf("✅ Tu sugerencia (ID: %d) `%s` ha sido **aprobada**.", sug.ID, sug.Text)
		public = fmt.Sprintf("✅ ¡La sugerencia **#%d** (`%s`) ha sido **aprobada**!", sug.ID, sug.Text)
	case models.SuggestionDenied:
		dm = fmt.Sprintf("❌ Tu sugerencia (ID: %d) `%s` ha sido **rechazada**.", sug.ID, sug.Text)
		public = fmt.Sprintf("❌ La sugerencia **#%d** (`%s`) ha sido **rechazada**.", sug.ID, sug.Text)
	case models.SuggestionCompleted:
		dm = fmt.Sprintf("🎉 ¡Tu sugerencia (ID: %d) `%s` ha sido **implementada**!", sug.ID, sug.Text)
		public = fmt.Sprintf("🎉 ¡La sugerencia **#%d** (`%s`) ha sido **completada**!", sug.ID, sug.Text)
	default:
		return
	}

	if err := h.notify.SendDM(sug.UserID, &discordgo.MessageSend{Content: dm}); err != nil {
		logger.Debug(fmt.Sprintf("No se pudo avisar a %s de la sugerencia %d: %v", sug.UserID, sug.ID, err), "CMD-Suggestion")
	}
	if sug.ChannelID == "" {
		return
	}
	if _, err := h.notify.Send(sug.ChannelID, &discordgo.MessageSend{Content: public}); err != nil {
		logger.Debug(fmt.Sprintf("No se pudo anunciar la sugerencia %d en %s: %v", sug.ID, sug.ChannelID, err), "CMD-Suggestion")
	}
}

func statusLabel(s models.SuggestionStatus) string {
	switch s {
	case models.SuggestionPending:
		return "pendiente"
	case models.SuggestionApproved:
		return "aprobada"
	case models.SuggestionDenied:
		return "rechazada"
	case models.SuggestionCompleted:
		return "completada"
	}
	return string(s)
}

func (h *handlers) listHandler(ctx *discord.CommandContext) error {
	h.list(context.Background(), ctx.Responder())
	return nil
}

func (h *handlers) list(ctx context.Context, r discord.Responder) {
	if r.ActorID() != h.adminID {
		_ = r.Respond("❌ | No tienes permiso para ver esto.", true)
		return
	}
	all, err := h.store.ListSuggestions(ctx)
	if err != nil {
		errors.Capture(fmt.Errorf("listar sugerencias: %w", err), "CMD-Suggestion")
		_ = r.Respond("❌ | Error al consultar la base de datos.", true)
		return
	}
	if len(all) == 0 {
		_ = r.Respond("No hay sugerencias.", true)
		return
	}

	embed := &discordgo.MessageEmbed{Title: "📋 Sugerencias", Color: 0x2ECC71}
	for _, s := range all {
		if len(embed.Fields) == maxFields {
			embed.Footer = &discordgo.MessageEmbedFooter{Text: fmt.Sprintf("Mostrando %d de %d", maxFields, len(all))}
			break
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:  fmt.Sprintf("ID: %d | Estado: %s", s.ID, statusLabel(s.Status)),
			Value: fmt.Sprintf("<@%s> - %s", s.UserID, preview(s.Text)),
		})
	}
	_ = r.RespondEmbed(embed, true)
}
