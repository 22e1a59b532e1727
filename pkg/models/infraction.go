package models

import "time"

// InfractionKind identifies the moderation action an infraction records.
type InfractionKind string

const (
	KindWarn     InfractionKind = "warn"
	KindMute     InfractionKind = "mute"
	KindUnmute   InfractionKind = "unmute"
	KindKick     InfractionKind = "kick"
	KindBan      InfractionKind = "ban"
	KindUnban    InfractionKind = "unban"
	KindCleanBan InfractionKind = "cleanban"
)

// InfractionKinds lists every valid kind in display order.
var InfractionKinds = []InfractionKind{KindWarn, KindMute, KindUnmute, KindKick, KindBan, KindUnban, KindCleanBan}

// Valid reports whether k is one of the known kinds.
func (k InfractionKind) Valid() bool {
	for _, known := range InfractionKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Infraction is an append-only audit record of a sanction or desanction.
type Infraction struct {
	ID          int64          `db:"id" bson:"_id" json:"id"`
	UserID      string         `db:"user_id" bson:"userId" json:"userId"`
	GuildID     string         `db:"guild_id" bson:"guildId" json:"guildId"`
	Kind        InfractionKind `db:"type" bson:"type" json:"type"`
	Reason      string         `db:"reason" bson:"reason,omitempty" json:"reason,omitempty"`
	ModeratorID string         `db:"moderator_id" bson:"moderatorId" json:"moderatorId"`
	Timestamp   time.Time      `db:"timestamp" bson:"timestamp" json:"timestamp"`
}
