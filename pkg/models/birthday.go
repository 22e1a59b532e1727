package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Birthday stores a user's birthday as "MM-DD" together with the IANA time
// zone used to decide when their local midnight happens.
type Birthday struct {
	UserID        string `db:"user_id" bson:"_id" json:"userId"`
	Date          string `db:"birthday" bson:"birthday" json:"birthday"`
	Timezone      string `db:"timezone" bson:"timezone" json:"timezone"`
	LastTriggered string `db:"last_triggered" bson:"lastTriggered,omitempty" json:"lastTriggered,omitempty"`
}

// MonthDay splits Date into its month and day.
func (b Birthday) MonthDay() (time.Month, int, error) {
	return ParseMonthDay(b.Date)
}

// ParseMonthDay validates an "MM-DD" string.
func ParseMonthDay(s string) (time.Month, int, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("formato inválido %q, usa MM-DD", s)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("mes inválido en %q", s)
	}
	day, err := strconv.Atoi(parts[1])
	if err != nil || day < 1 {
		return 0, 0, fmt.Errorf("día inválido en %q", s)
	}
	// 2024 is a leap year, so 02-29 is accepted.
	if day > time.Date(2024, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day() {
		return 0, 0, fmt.Errorf("el mes %02d no tiene día %d", month, day)
	}
	return time.Month(month), day, nil
}

// GuildSettings holds per-guild birthday configuration.
type GuildSettings struct {
	GuildID           string `db:"guild_id" bson:"_id" json:"guildId"`
	BirthdayChannelID string `db:"channel_id" bson:"channelId" json:"channelId"`
}

// ActiveBirthdayRole records a birthday role grant so it can be revoked 24
// hours later.
type ActiveBirthdayRole struct {
	UserID    string    `db:"user_id" bson:"userId" json:"userId"`
	GuildID   string    `db:"guild_id" bson:"guildId" json:"guildId"`
	GrantedAt time.Time `db:"granted_at" bson:"grantedAt" json:"grantedAt"`
}

// BirthdayRoleLifetime is how long the birthday role is kept.
const BirthdayRoleLifetime = 24 * time.Hour

// Expired reports whether the grant is at least BirthdayRoleLifetime old.
func (r ActiveBirthdayRole) Expired(now time.Time) bool {
	return now.Sub(r.GrantedAt) >= BirthdayRoleLifetime
}
