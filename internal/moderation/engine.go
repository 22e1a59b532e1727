// Package moderation applies sanctions to guild members. Every action is
// confirmed by the invoking moderator, applied on the platform and only then
// recorded as an infraction.
package moderation

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/database"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/PancyStudios/PancyModGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

var (
	ErrInvalidDuration = stderrors.New("duración inválida")
	ErrInvalidDays     = stderrors.New("los días deben estar entre 1 y 7")
	ErrCancelled       = stderrors.New("acción cancelada")
	ErrNotMuted        = stderrors.New("el usuario no está silenciado")
	ErrSelfTarget      = stderrors.New("objetivo no permitido")
	ErrNoMuteRole      = stderrors.New("rol de silencio no configurado")
	// ErrNotRecorded means the sanction took effect but its infraction row
	// could not be written.
	ErrNotRecorded = stderrors.New("sanción aplicada sin registrar")
)

const noReason = "Sin razón especificada"

// Platform is the subset of the chat gateway the engine needs.
type Platform interface {
	BotID() string
	Guild(guildID string) (*discordgo.Guild, error)
	Member(guildID, userID string) (*discordgo.Member, error)
	User(userID string) (*discordgo.User, error)
	Role(guildID, roleID string) (*discordgo.Role, error)
	AddRole(guildID, userID, roleID string) error
	RemoveRole(guildID, userID, roleID string) error
	Ban(guildID, userID, reason string, deleteDays int) error
	Unban(guildID, userID string) error
	Kick(guildID, userID, reason string) error
	SendDM(userID string, msg *discordgo.MessageSend) error
}

var _ Platform = (*discord.Gateway)(nil)

// Confirmer asks the invoking moderator to approve an action.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) (bool, error)
}

// Request identifies the target and the context of an action.
type Request struct {
	GuildID     string
	TargetID    string
	ModeratorID string
	// ChannelID is where the action was issued; mute expiry notices go there.
	ChannelID string
	Reason    string
}

func (r Request) reason() string {
	if r.Reason == "" {
		return noReason
	}
	return r.Reason
}

// Result describes an applied action.
type Result struct {
	Infraction models.Infraction
	// DMSent is false when the target could not be notified.
	DMSent bool
	// Until is the expiry of a mute.
	Until time.Time
}

// Options configures an Engine.
type Options struct {
	MuteRoleID string
	Now        func() time.Time
}

// Engine applies moderation actions.
type Engine struct {
	store    database.Store
	platform Platform
	recorder *Recorder
	muteRole string
	now      func() time.Time
}

// NewEngine creates an engine.
func NewEngine(store database.Store, platform Platform, recorder *Recorder, opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:    store,
		platform: platform,
		recorder: recorder,
		muteRole: opts.MuteRoleID,
		now:      now,
	}
}

func (e *Engine) checkTarget(req Request) error {
	if req.TargetID == "" || req.TargetID == req.ModeratorID || req.TargetID == e.platform.BotID() {
		return ErrSelfTarget
	}
	return nil
}

func (e *Engine) confirm(ctx context.Context, c Confirmer, prompt string) error {
	ok, err := c.Confirm(ctx, prompt)
	if err != nil {
		return err
	}
	if !ok {
		return ErrCancelled
	}
	return nil
}

func (e *Engine) guildName(guildID string) string {
	if g, err := e.platform.Guild(guildID); err == nil && g.Name != "" {
		return g.Name
	}
	return "el servidor"
}

// notify sends a best-effort DM to the target.
func (e *Engine) notify(userID, content string) bool {
	if err := e.platform.SendDM(userID, &discordgo.MessageSend{Content: content}); err != nil {
		logger.Warn("No se pudo enviar DM a "+userID+": "+err.Error(), "Moderation")
		return false
	}
	return true
}

func (e *Engine) record(ctx context.Context, req Request, kind models.InfractionKind, reason string, res *Result) (*Result, error) {
	inf := models.Infraction{
		UserID:      req.TargetID,
		GuildID:     req.GuildID,
		Kind:        kind,
		Reason:      reason,
		ModeratorID: req.ModeratorID,
		Timestamp:   e.now().UTC(),
	}
	if err := e.recorder.Record(ctx, &inf); err != nil {
		logger.Error(fmt.Sprintf("Infracción %s de %s sin registrar: %v", kind, req.TargetID, err), "Moderation")
		res.Infraction = inf
		return res, fmt.Errorf("%w: %v", ErrNotRecorded, err)
	}
	res.Infraction = inf
	return res, nil
}

// Mute grants the mute role for the given duration token and stores the
// expiry. Re-muting a muted user replaces the previous expiry.
func (e *Engine) Mute(ctx context.Context, c Confirmer, req Request, duration string) (*Result, error) {
	d, err := ParseDuration(duration)
	if err != nil {
		return nil, err
	}
	if err := e.checkTarget(req); err != nil {
		return nil, err
	}
	if e.muteRole == "" {
		return nil, ErrNoMuteRole
	}
	if _, err := e.platform.Member(req.GuildID, req.TargetID); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("¿Seguro que quieres silenciar a <@%s> durante **%s**? Razón: %s", req.TargetID, duration, req.reason())
	if err := e.confirm(ctx, c, prompt); err != nil {
		return nil, err
	}

	if _, err := e.platform.Role(req.GuildID, e.muteRole); err != nil {
		return nil, err
	}
	if err := e.platform.AddRole(req.GuildID, req.TargetID, e.muteRole); err != nil {
		return nil, err
	}

	until := e.now().Add(d).UTC()
	mute := models.ActiveMute{
		UserID:    req.TargetID,
		GuildID:   req.GuildID,
		UnmuteAt:  until,
		ChannelID: req.ChannelID,
	}
	if err := e.store.UpsertActiveMute(ctx, mute); err != nil {
		// Without an expiry row nobody would lift the mute.
		if rerr := e.platform.RemoveRole(req.GuildID, req.TargetID, e.muteRole); rerr != nil {
			logger.Error("No se pudo revertir el silencio de "+req.TargetID+": "+rerr.Error(), "Moderation")
		}
		return nil, fmt.Errorf("guardar silencio: %w", err)
	}

	res := &Result{Until: until}
	res.DMSent = e.notify(req.TargetID, fmt.Sprintf(
		"🔇 Has sido silenciado en **%s** durante **%s**.\nRazón: %s",
		e.guildName(req.GuildID), duration, req.reason()))

	return e.record(ctx, req, models.KindMute, req.Reason, res)
}

// Unmute lifts a mute before it expires. It returns ErrNotMuted when the
// member does not hold the mute role.
func (e *Engine) Unmute(ctx context.Context, c Confirmer, req Request) (*Result, error) {
	if err := e.checkTarget(req); err != nil {
		return nil, err
	}
	if e.muteRole == "" {
		return nil, ErrNoMuteRole
	}
	member, err := e.platform.Member(req.GuildID, req.TargetID)
	if err != nil {
		return nil, err
	}
	if !discord.HasRole(member.Roles, e.muteRole) {
		if err := e.store.DeleteActiveMute(ctx, req.GuildID, req.TargetID); err != nil {
			logger.Warn("No se pudo limpiar el silencio de "+req.TargetID+": "+err.Error(), "Moderation")
		}
		return nil, ErrNotMuted
	}

	if err := e.confirm(ctx, c, fmt.Sprintf("¿Seguro que quieres quitar el silencio a <@%s>?", req.TargetID)); err != nil {
		return nil, err
	}

	if err := e.platform.RemoveRole(req.GuildID, req.TargetID, e.muteRole); err != nil {
		return nil, err
	}
	if err := e.store.DeleteActiveMute(ctx, req.GuildID, req.TargetID); err != nil {
		logger.Error("No se pudo borrar el silencio de "+req.TargetID+": "+err.Error(), "Moderation")
	}

	res := &Result{}
	res.DMSent = e.notify(req.TargetID, fmt.Sprintf("🔊 Ya no estás silenciado en **%s**.", e.guildName(req.GuildID)))

	reason := req.Reason
	if reason == "" {
		reason = "Desilenciado manualmente"
	}
	return e.record(ctx, req, models.KindUnmute, reason, res)
}

// Kick removes a member from the guild. The DM goes out first because the
// bot loses its shared guild with the user afterwards.
func (e *Engine) Kick(ctx context.Context, c Confirmer, req Request) (*Result, error) {
	if err := e.checkTarget(req); err != nil {
		return nil, err
	}
	if _, err := e.platform.Member(req.GuildID, req.TargetID); err != nil {
		return nil, err
	}

	if err := e.confirm(ctx, c, fmt.Sprintf("¿Seguro que quieres expulsar a <@%s>? Razón: %s", req.TargetID, req.reason())); err != nil {
		return nil, err
	}

	res := &Result{}
	res.DMSent = e.notify(req.TargetID, fmt.Sprintf(
		"👢 Has sido **expulsado** de **%s**.\nRazón: %s", e.guildName(req.GuildID), req.reason()))

	if err := e.platform.Kick(req.GuildID, req.TargetID, req.reason()); err != nil {
		return nil, err
	}
	return e.record(ctx, req, models.KindKick, req.Reason, res)
}

// Ban bans a user, who does not need to be a member of the guild.
func (e *Engine) Ban(ctx context.Context, c Confirmer, req Request) (*Result, error) {
	return e.ban(ctx, c, req, 0)
}

// CleanBan bans a user and deletes their messages from the past days (1 to 7).
func (e *Engine) CleanBan(ctx context.Context, c Confirmer, req Request, days int) (*Result, error) {
	if days < 1 || days > 7 {
		return nil, ErrInvalidDays
	}
	return e.ban(ctx, c, req, days)
}

func (e *Engine) ban(ctx context.Context, c Confirmer, req Request, days int) (*Result, error) {
	if err := e.checkTarget(req); err != nil {
		return nil, err
	}
	if _, err := e.platform.User(req.TargetID); err != nil {
		return nil, err
	}

	kind := models.KindBan
	prompt := fmt.Sprintf("¿Seguro que quieres banear a <@%s>? Razón: %s", req.TargetID, req.reason())
	dm := fmt.Sprintf("🔨 Has sido **baneado** de **%s**.\nRazón: %s", e.guildName(req.GuildID), req.reason())
	if days > 0 {
		kind = models.KindCleanBan
		prompt = fmt.Sprintf("¿Seguro que quieres banear a <@%s>?\n**Se borrarán sus mensajes de los últimos %d día(s).**\nRazón: %s",
			req.TargetID, days, req.reason())
		dm += fmt.Sprintf("\nSe borraron tus mensajes de los últimos %d día(s).", days)
	}
	dm += "\n\nSi crees que el baneo fue injusto, puedes apelar escribiéndome `!appeal` por mensaje directo."

	if err := e.confirm(ctx, c, prompt); err != nil {
		return nil, err
	}

	res := &Result{}
	res.DMSent = e.notify(req.TargetID, dm)

	if err := e.platform.Ban(req.GuildID, req.TargetID, req.reason(), days); err != nil {
		return nil, err
	}
	return e.record(ctx, req, kind, req.Reason, res)
}

// Unban lifts a ban. Discord reports ErrBanNotFound when the user is not
// banned.
func (e *Engine) Unban(ctx context.Context, req Request) (*Result, error) {
	if err := e.checkTarget(req); err != nil {
		return nil, err
	}
	if err := e.platform.Unban(req.GuildID, req.TargetID); err != nil {
		return nil, err
	}
	return e.record(ctx, req, models.KindUnban, req.Reason, &Result{})
}

// Warn records a warning and tells the member about it.
func (e *Engine) Warn(ctx context.Context, req Request) (*Result, error) {
	if err := e.checkTarget(req); err != nil {
		return nil, err
	}
	if _, err := e.platform.Member(req.GuildID, req.TargetID); err != nil {
		return nil, err
	}

	res := &Result{}
	res.DMSent = e.notify(req.TargetID, fmt.Sprintf(
		"⚠️ Has recibido una advertencia en **%s**.\nRazón: %s", e.guildName(req.GuildID), req.reason()))
	return e.record(ctx, req, models.KindWarn, req.Reason, res)
}

// SearchInfractions lists a user's infractions in a guild, newest first.
func (e *Engine) SearchInfractions(ctx context.Context, guildID, userID string) ([]models.Infraction, error) {
	return e.store.ListInfractions(ctx, guildID, userID)
}

// DeleteInfraction removes an infraction of the guild. It reports false when
// no such infraction exists.
func (e *Engine) DeleteInfraction(ctx context.Context, guildID string, id int64) (bool, error) {
	return e.store.DeleteInfraction(ctx, guildID, id)
}
