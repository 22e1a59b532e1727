package models

// LogConfig maps a guild log type to the channel receiving it.
type LogConfig struct {
	GuildID   string `db:"guild_id" bson:"guildId" json:"guildId"`
	LogType   string `db:"log_type" bson:"logType" json:"logType"`
	ChannelID string `db:"channel_id" bson:"channelId" json:"channelId"`
}
