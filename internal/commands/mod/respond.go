package mod

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyModGo/internal/moderation"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// actionTimeout bounds a whole action, confirmation included.
const actionTimeout = 2 * time.Minute

// actor is the invoker of a moderation command.
type actor interface {
	discord.Responder
	moderation.Confirmer
}

type action func(ctx context.Context, c moderation.Confirmer) (*moderation.Result, error)

var errorMessages = []struct {
	err error
	msg string
}{
	{moderation.ErrInvalidDuration, "❌ | Duración inválida. Usa `<número><w|d|h|m>`, por ejemplo `10m`, `2h` o `7d`."},
	{moderation.ErrInvalidDays, "❌ | Los días deben estar entre 1 y 7."},
	{moderation.ErrSelfTarget, "❌ | No puedes usar esta acción sobre ese usuario."},
	{moderation.ErrNoMuteRole, "❌ | El rol de silencio no está configurado."},
	{moderation.ErrNotMuted, "ℹ️ | Ese usuario no está silenciado."},
	{discord.ErrMemberNotFound, "❌ | El usuario no está en el servidor."},
	{discord.ErrUserNotFound, "❌ | No se encontró al usuario."},
	{discord.ErrRoleNotFound, "❌ | No se encontró el rol de silencio en el servidor."},
	{discord.ErrBanNotFound, "❌ | Ese usuario no está baneado."},
	{discord.ErrMessageNotFound, "❌ | No se encontró ese mensaje en este canal."},
	{discord.ErrGuildNotFound, "❌ | No se encontró el servidor."},
	{discord.ErrForbidden, "❌ | No tengo permisos suficientes para hacer eso."},
	{context.DeadlineExceeded, "⌛ | La acción tardó demasiado y se canceló."},
}

// errorMessage turns an engine error into a reply for the moderator. known
// is false for unexpected errors.
func errorMessage(err error) (msg string, known bool) {
	for _, m := range errorMessages {
		if stderrors.Is(err, m.err) {
			return m.msg, true
		}
	}
	return "❌ | Ocurrió un error inesperado al aplicar la acción.", false
}

func dmNote(res *moderation.Result) string {
	if res.DMSent {
		return ""
	}
	return "\n⚠️ No se pudo enviar el mensaje directo al usuario."
}

// execute runs fn for r and replies with success(res) or the error. A
// cancelled confirmation has already been answered by the prompt itself.
func (h *handlers) execute(ctx context.Context, r actor, name string, fn action, success func(*moderation.Result) string) {
	if !discord.RequireRole(r, h.adminRole) {
		return
	}

	res, err := fn(ctx, r)
	switch {
	case err == nil:
	case stderrors.Is(err, moderation.ErrCancelled):
		logger.Debug(fmt.Sprintf("%s cancelado por %s", name, r.ActorID()), "CMD-Mod")
		return
	case stderrors.Is(err, moderation.ErrNotRecorded):
		errors.Capture(err, "CMD-Mod")
	default:
		if stderrors.Is(err, context.Canceled) {
			return
		}
		msg, known := errorMessage(err)
		if !known {
			errors.Capture(fmt.Errorf("/mod %s: %w", name, err), "CMD-Mod")
		}
		_ = r.Respond(msg, true)
		return
	}

	reply := success(res)
	if err != nil {
		reply += "\n⚠️ La sanción se aplicó, pero no se pudo registrar la infracción."
	}
	if rerr := r.Respond(reply, false); rerr != nil {
		logger.Warn("No se pudo responder a /mod "+name+": "+rerr.Error(), "CMD-Mod")
	}
}

// spawn runs an action off the event goroutine, as confirmations block.
func (h *handlers) spawn(ctx *discord.CommandContext, name string, fn action, success func(*moderation.Result) string) error {
	go func() {
		defer errors.RecoverMiddleware()()
		c, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		h.execute(c, ctx.Responder(), name, fn, success)
	}()
	return nil
}

func request(ctx *discord.CommandContext, target *discordgo.User) moderation.Request {
	return moderation.Request{
		GuildID:     ctx.Interaction.GuildID,
		TargetID:    target.ID,
		ModeratorID: ctx.User().ID,
		ChannelID:   ctx.Interaction.ChannelID,
		Reason:      ctx.GetStringOption("razon"),
	}
}

func reasonOr(reason string) string {
	if reason == "" {
		return "Sin razón especificada"
	}
	return reason
}

func userOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionUser,
		Name:        "usuario",
		Description: description,
		Required:    true,
	}
}

func reasonOption(description string) *discordgo.ApplicationCommandOption {
	return &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "razon",
		Description: description,
		Required:    false,
	}
}
