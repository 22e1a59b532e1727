package models

import "time"

// ActiveMute is the expiry record of a timed mute. There is at most one per
// (user, guild).
type ActiveMute struct {
	UserID    string    `db:"user_id" bson:"userId" json:"userId"`
	GuildID   string    `db:"guild_id" bson:"guildId" json:"guildId"`
	UnmuteAt  time.Time `db:"unmute_time" bson:"unmuteTime" json:"unmuteTime"`
	ChannelID string    `db:"channel_id" bson:"channelId" json:"channelId"`
}

// Due reports whether the mute has expired at now. The comparison is inclusive.
func (m ActiveMute) Due(now time.Time) bool {
	return !now.Before(m.UnmuteAt)
}
