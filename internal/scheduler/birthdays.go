package scheduler

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/PancyStudios/PancyModGo/pkg/database"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/PancyStudios/PancyModGo/pkg/models"
	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"
)

// BirthdayJob announces birthdays at the user's local midnight and grants
// the birthday role. A birthday fires at most once per local date; ticks
// missed shortly after midnight are caught up within the catch-up window.
type BirthdayJob struct {
	store    database.Store
	platform Platform
	roleID   string
	catchUp  time.Duration
	interval time.Duration

	// settled holds, per user, the "date/guild" keys already handled on a day
	// that is still being retried, so a retry does not announce twice.
	mu      sync.Mutex
	settled map[string]map[string]struct{}
}

// NewBirthdayJob creates the job. roleID may be empty to only announce.
func NewBirthdayJob(store database.Store, platform Platform, roleID string, catchUp, interval time.Duration) *BirthdayJob {
	if catchUp <= 0 {
		catchUp = time.Minute
	}
	return &BirthdayJob{
		store:    store,
		platform: platform,
		roleID:   roleID,
		catchUp:  catchUp,
		interval: interval,
		settled:  make(map[string]map[string]struct{}),
	}
}

func (j *BirthdayJob) Name() string            { return "birthdays" }
func (j *BirthdayJob) Interval() time.Duration { return j.interval }

// celebratesOn reports whether month/day falls on date. 02-29 is celebrated
// on 02-28 in common years.
func celebratesOn(month time.Month, day int, date time.Time) bool {
	if month == time.February && day == 29 && !isLeap(date.Year()) {
		day = 28
	}
	return date.Month() == month && date.Day() == day
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// due returns the local date key when b should fire at now.
func (j *BirthdayJob) due(b models.Birthday, now time.Time) (string, bool) {
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		logger.Warn(fmt.Sprintf("Zona horaria inválida %q para %s", b.Timezone, b.UserID), "Birthdays")
		return "", false
	}
	month, day, err := b.MonthDay()
	if err != nil {
		logger.Warn(fmt.Sprintf("Fecha inválida %q para %s", b.Date, b.UserID), "Birthdays")
		return "", false
	}

	local := now.In(loc)
	date := local.Format("2006-01-02")
	if b.LastTriggered == date || !celebratesOn(month, day, local) {
		return "", false
	}
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	if local.Sub(midnight) >= j.catchUp {
		return "", false
	}
	return date, true
}

func (j *BirthdayJob) Run(ctx context.Context, now time.Time) {
	birthdays, err := j.store.ListBirthdays(ctx)
	if err != nil {
		logger.Error("No se pudieron leer los cumpleaños: "+err.Error(), "Birthdays")
		return
	}

	var (
		guilds []models.GuildSettings
		loaded bool
	)
	for _, b := range birthdays {
		date, ok := j.due(b, now)
		if !ok {
			j.forget(b.UserID)
			continue
		}
		if !loaded {
			if guilds, err = j.store.ListBirthdayChannels(ctx); err != nil {
				logger.Error("No se pudieron leer los canales de cumpleaños: "+err.Error(), "Birthdays")
				return
			}
			loaded = true
		}

		if !j.celebrateAll(ctx, b.UserID, date, guilds, now) {
			logger.Warn("Cumpleaños de "+b.UserID+" pendiente, se reintentará", "Birthdays")
			continue
		}
		if err := j.store.MarkBirthdayTriggered(ctx, b.UserID, date); err != nil {
			logger.Error("No se pudo marcar el cumpleaños de "+b.UserID+": "+err.Error(), "Birthdays")
			continue
		}
		j.forget(b.UserID)
	}
}

// celebrateAll runs celebrate in every guild not settled yet and reports
// whether all of them are settled now.
func (j *BirthdayJob) celebrateAll(ctx context.Context, userID, date string, guilds []models.GuildSettings, now time.Time) bool {
	j.mu.Lock()
	defer j.mu.Unlock()

	done := j.settled[userID]
	if done == nil {
		done = make(map[string]struct{})
		j.settled[userID] = done
	}
	all := true
	for _, g := range guilds {
		k := date + "/" + g.GuildID
		if _, ok := done[k]; ok {
			continue
		}
		if !j.celebrate(ctx, userID, g, now) {
			all = false
			continue
		}
		done[k] = struct{}{}
	}
	return all
}

func (j *BirthdayJob) forget(userID string) {
	j.mu.Lock()
	delete(j.settled, userID)
	j.mu.Unlock()
}

// stale reports errors that will not go away by retrying.
func stale(err error) bool {
	return stderrors.Is(err, discord.ErrGuildNotFound) ||
		stderrors.Is(err, discord.ErrMemberNotFound) ||
		stderrors.Is(err, discord.ErrChannelNotFound)
}

// celebrate announces the birthday in one guild and grants the role. It
// returns false when the guild should be retried on the next tick. Stale
// references count as settled; once the announcement is out the guild is
// settled even if the role grant fails.
func (j *BirthdayJob) celebrate(ctx context.Context, userID string, g models.GuildSettings, now time.Time) (settled bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("Panic al celebrar a %s en %s: %v", userID, g.GuildID, r), "Birthdays")
			settled = false
		}
	}()

	fields := logrus.Fields{"guild": g.GuildID, "user": userID}
	if _, err := j.platform.Guild(g.GuildID); err != nil {
		if !stale(err) {
			logger.Fields(logger.LevelWarn, "No se pudo obtener el servidor: "+err.Error(), "Birthdays", fields)
		}
		return stale(err)
	}
	member, err := j.platform.Member(g.GuildID, userID)
	if err != nil {
		if !stale(err) {
			logger.Fields(logger.LevelWarn, "No se pudo obtener el miembro: "+err.Error(), "Birthdays", fields)
		}
		return stale(err)
	}

	_, err = j.platform.Send(g.BirthdayChannelID, &discordgo.MessageSend{
		Content: fmt.Sprintf("🎉 ¡Feliz cumpleaños, <@%s>! 🎂", userID),
		AllowedMentions: &discordgo.MessageAllowedMentions{
			Users: []string{userID},
		},
	})
	if err != nil {
		logger.Fields(logger.LevelWarn, "No se pudo anunciar el cumpleaños: "+err.Error(), "Birthdays", fields)
		return stale(err)
	}

	if j.roleID == "" || discord.HasRole(member.Roles, j.roleID) {
		return true
	}
	if err := j.platform.AddRole(g.GuildID, userID, j.roleID); err != nil {
		logger.Fields(logger.LevelWarn, "No se pudo dar el rol de cumpleaños: "+err.Error(), "Birthdays", fields)
		return true
	}
	grant := models.ActiveBirthdayRole{UserID: userID, GuildID: g.GuildID, GrantedAt: now.UTC()}
	if err := j.store.UpsertBirthdayRole(ctx, grant); err != nil {
		logger.Fields(logger.LevelError, "No se pudo guardar el rol de cumpleaños: "+err.Error(), "Birthdays", fields)
		return true
	}
	logger.Fields(logger.LevelSuccess, "Cumpleaños celebrado", "Birthdays", fields)
	return true
}

// BirthdayRoleExpiryJob removes the birthday role 24 hours after it was
// granted.
type BirthdayRoleExpiryJob struct {
	store    database.Store
	platform Platform
	roleID   string
	interval time.Duration
}

// NewBirthdayRoleExpiryJob creates the job.
func NewBirthdayRoleExpiryJob(store database.Store, platform Platform, roleID string, interval time.Duration) *BirthdayRoleExpiryJob {
	return &BirthdayRoleExpiryJob{store: store, platform: platform, roleID: roleID, interval: interval}
}

func (j *BirthdayRoleExpiryJob) Name() string            { return "birthday-roles" }
func (j *BirthdayRoleExpiryJob) Interval() time.Duration { return j.interval }

func (j *BirthdayRoleExpiryJob) Run(ctx context.Context, now time.Time) {
	grants, err := j.store.ListBirthdayRoles(ctx)
	if err != nil {
		logger.Error("No se pudieron leer los roles de cumpleaños: "+err.Error(), "Birthdays")
		return
	}
	for _, g := range grants {
		if !g.Expired(now) {
			continue
		}
		j.expire(ctx, g)
	}
}

func (j *BirthdayRoleExpiryJob) expire(ctx context.Context, g models.ActiveBirthdayRole) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("Panic al quitar el rol de cumpleaños de %s: %v", g.UserID, r), "Birthdays")
		}
	}()

	fields := logrus.Fields{"guild": g.GuildID, "user": g.UserID}
	if j.revoke(g, fields) {
		if err := j.store.DeleteBirthdayRole(ctx, g.GuildID, g.UserID); err != nil {
			logger.Fields(logger.LevelError, "No se pudo borrar el rol de cumpleaños: "+err.Error(), "Birthdays", fields)
		}
	}
}

// revoke removes the role and reports whether the grant record can be
// deleted. Vanished guilds, members or roles leave nothing to revoke.
func (j *BirthdayRoleExpiryJob) revoke(g models.ActiveBirthdayRole, fields logrus.Fields) bool {
	if _, err := j.platform.Guild(g.GuildID); err != nil {
		return stderrors.Is(err, discord.ErrGuildNotFound)
	}
	member, err := j.platform.Member(g.GuildID, g.UserID)
	if err != nil {
		return stderrors.Is(err, discord.ErrMemberNotFound)
	}
	if j.roleID == "" {
		return true
	}
	if _, err := j.platform.Role(g.GuildID, j.roleID); err != nil {
		return stderrors.Is(err, discord.ErrRoleNotFound)
	}
	if !discord.HasRole(member.Roles, j.roleID) {
		return true
	}
	if err := j.platform.RemoveRole(g.GuildID, g.UserID, j.roleID); err != nil {
		logger.Fields(logger.LevelWarn, "No se pudo quitar el rol de cumpleaños, se reintentará: "+err.Error(), "Birthdays", fields)
		return false
	}
	return true
}
