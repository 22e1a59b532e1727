package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyModGo/internal/moderation"
	"github.com/PancyStudios/PancyModGo/pkg/database"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/PancyStudios/PancyModGo/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

const expiredMuteReason = "Silencio expirado"

// MuteExpiryJob lifts mutes whose expiry has passed.
type MuteExpiryJob struct {
	store    database.Store
	platform Platform
	recorder *moderation.Recorder
	muteRole string
	interval time.Duration

	// unrecorded holds unmutes whose role was removed but whose infraction
	// could not be written. Their rows stay until the write succeeds.
	mu         sync.Mutex
	unrecorded map[string]models.Infraction
}

// NewMuteExpiryJob creates the job.
func NewMuteExpiryJob(store database.Store, platform Platform, recorder *moderation.Recorder, muteRoleID string, interval time.Duration) *MuteExpiryJob {
	return &MuteExpiryJob{
		store:    store,
		platform: platform,
		recorder: recorder,
		muteRole:   muteRoleID,
		interval:   interval,
		unrecorded: make(map[string]models.Infraction),
	}
}

func (j *MuteExpiryJob) Name() string            { return "mute-expiry" }
func (j *MuteExpiryJob) Interval() time.Duration { return j.interval }

func (j *MuteExpiryJob) Run(ctx context.Context, now time.Time) {
	mutes, err := j.store.ListActiveMutes(ctx)
	if err != nil {
		logger.Error("No se pudieron leer los silencios activos: "+err.Error(), "Scheduler")
		return
	}

	for _, m := range mutes {
		if !m.Due(now) {
			continue
		}
		j.expireSafe(ctx, m, now)
	}
}

func (j *MuteExpiryJob) expireSafe(ctx context.Context, m models.ActiveMute, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("Panic al expirar el silencio de %s en %s: %v", m.UserID, m.GuildID, r), "Scheduler")
		}
	}()
	j.expire(ctx, m, now)
}

func muteFields(m models.ActiveMute) logrus.Fields {
	return logrus.Fields{"guild": m.GuildID, "user": m.UserID}
}

func (j *MuteExpiryJob) drop(ctx context.Context, m models.ActiveMute, why string) {
	if err := j.store.DeleteActiveMute(ctx, m.GuildID, m.UserID); err != nil {
		logger.Error("No se pudo borrar el silencio: "+err.Error(), "Scheduler")
		return
	}
	logger.Fields(logger.LevelInfo, "Silencio descartado: "+why, "Scheduler", muteFields(m))
}

func (j *MuteExpiryJob) expire(ctx context.Context, m models.ActiveMute, now time.Time) {
	// A command may have lifted or renewed the mute since the list was read.
	current, err := j.store.GetActiveMute(ctx, m.GuildID, m.UserID)
	if err != nil {
		logger.Error("No se pudo releer el silencio: "+err.Error(), "Scheduler")
		return
	}
	if current == nil || !current.Due(now) {
		j.takeUnrecorded(m)
		return
	}
	m = *current

	if inf, ok := j.takeUnrecorded(m); ok {
		j.finish(ctx, m, inf)
		return
	}

	if _, err := j.platform.Guild(m.GuildID); err != nil {
		if stderrors.Is(err, discord.ErrGuildNotFound) {
			j.drop(ctx, m, "servidor inaccesible")
			return
		}
		logger.Fields(logger.LevelWarn, "No se pudo resolver el servidor: "+err.Error(), "Scheduler", muteFields(m))
		return
	}

	member, err := j.platform.Member(m.GuildID, m.UserID)
	if err != nil {
		if stderrors.Is(err, discord.ErrMemberNotFound) {
			j.drop(ctx, m, "el miembro ya no está en el servidor")
			return
		}
		logger.Fields(logger.LevelWarn, "No se pudo resolver el miembro: "+err.Error(), "Scheduler", muteFields(m))
		return
	}

	if _, err := j.platform.Role(m.GuildID, j.muteRole); err != nil {
		logger.Fields(logger.LevelWarn, "Rol de silencio no encontrado, se reintentará: "+err.Error(), "Scheduler", muteFields(m))
		return
	}

	if !discord.HasRole(member.Roles, j.muteRole) {
		j.drop(ctx, m, "el miembro ya no tiene el rol")
		return
	}

	if err := j.platform.RemoveRole(m.GuildID, m.UserID, j.muteRole); err != nil {
		level := logger.LevelError
		if stderrors.Is(err, discord.ErrForbidden) {
			level = logger.LevelWarn
		}
		logger.Fields(level, "No se pudo quitar el rol de silencio, se reintentará: "+err.Error(), "Scheduler", muteFields(m))
		return
	}

	inf := models.Infraction{
		UserID:      m.UserID,
		GuildID:     m.GuildID,
		Kind:        models.KindUnmute,
		Reason:      expiredMuteReason,
		ModeratorID: j.platform.BotID(),
		Timestamp:   now.UTC(),
	}
	j.finish(ctx, m, inf)
}

// finish records the unmute, tells the origin channel and deletes the row.
// The row is kept when the infraction cannot be written.
func (j *MuteExpiryJob) finish(ctx context.Context, m models.ActiveMute, inf models.Infraction) {
	if err := j.recorder.Record(ctx, &inf); err != nil {
		j.mu.Lock()
		j.unrecorded[muteKey(m)] = inf
		j.mu.Unlock()
		errors.Capture(fmt.Errorf("registrar fin del silencio de %s en %s: %w", m.UserID, m.GuildID, err), "Scheduler")
		return
	}

	if m.ChannelID != "" {
		_, err := j.platform.Send(m.ChannelID, &discordgo.MessageSend{
			Content: fmt.Sprintf("🔊 <@%s> ya no está silenciado (duración expirada).", m.UserID),
		})
		if err != nil {
			logger.Warn("No se pudo avisar del fin del silencio: "+err.Error(), "Scheduler")
		}
	}

	if err := j.store.DeleteActiveMute(ctx, m.GuildID, m.UserID); err != nil {
		logger.Error("No se pudo borrar el silencio expirado: "+err.Error(), "Scheduler")
		return
	}
	logger.Fields(logger.LevelSuccess, "Silencio expirado", "Scheduler", muteFields(m))
}

func muteKey(m models.ActiveMute) string { return m.GuildID + "/" + m.UserID }

// takeUnrecorded removes and returns the pending infraction of m, if any.
func (j *MuteExpiryJob) takeUnrecorded(m models.ActiveMute) (models.Infraction, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	inf, ok := j.unrecorded[muteKey(m)]
	delete(j.unrecorded, muteKey(m))
	return inf, ok
}
