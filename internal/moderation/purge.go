package moderation

import (
	"context"
	"fmt"
	"strings"

	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// Purge limits. The limit counts the messages scanned after the anchor.
const (
	DefaultPurgeLimit = 100
	MaxPurgeLimit     = 1000
	purgePage         = 100
)

// MessagePlatform reads and deletes channel messages.
type MessagePlatform interface {
	Message(channelID, messageID string) (*discordgo.Message, error)
	MessagesAfter(channelID, afterID string, limit int) ([]*discordgo.Message, error)
	DeleteMessages(channelID string, ids []string) (int, error)
}

var _ MessagePlatform = (*discord.Gateway)(nil)

// PurgeFilter selects the messages to delete. A nil filter selects all.
type PurgeFilter func(m *discordgo.Message) bool

// ByAuthor selects messages written by userID.
func ByAuthor(userID string) PurgeFilter {
	return func(m *discordgo.Message) bool {
		return m.Author != nil && m.Author.ID == userID
	}
}

// FromBots selects messages written by bots.
func FromBots() PurgeFilter {
	return func(m *discordgo.Message) bool {
		return m.Author != nil && m.Author.Bot
	}
}

// Containing selects messages whose text contains text, ignoring case.
func Containing(text string) PurgeFilter {
	needle := strings.ToLower(text)
	return func(m *discordgo.Message) bool {
		return strings.Contains(strings.ToLower(m.Content), needle)
	}
}

// WithEmbeds selects messages carrying at least one embed.
func WithEmbeds() PurgeFilter {
	return func(m *discordgo.Message) bool {
		return len(m.Embeds) > 0
	}
}

// PurgeRequest deletes the anchor message and the messages after it that
// match Filter.
type PurgeRequest struct {
	ChannelID string
	AnchorID  string
	Limit     int
	Filter    PurgeFilter
}

// PurgeResult reports what a purge did.
type PurgeResult struct {
	Scanned int
	Matched int
	Deleted int
}

func normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultPurgeLimit
	case limit > MaxPurgeLimit:
		return MaxPurgeLimit
	}
	return limit
}

// newerID compares two snowflakes.
func newerID(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	return a > b
}

// Purge deletes the anchor and every matching message after it, scanning at
// most req.Limit messages. The anchor is always deleted. No infraction is
// recorded; the bulk delete reaches the logs through the gateway event.
func Purge(ctx context.Context, p MessagePlatform, req PurgeRequest) (PurgeResult, error) {
	var res PurgeResult
	if req.AnchorID == "" {
		return res, discord.ErrMessageNotFound
	}
	limit := normalizeLimit(req.Limit)

	anchor, err := p.Message(req.ChannelID, req.AnchorID)
	if err != nil {
		return res, err
	}
	ids := []string{anchor.ID}

	after := anchor.ID
	for res.Scanned < limit {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		n := min(purgePage, limit-res.Scanned)
		page, err := p.MessagesAfter(req.ChannelID, after, n)
		if err != nil {
			return res, fmt.Errorf("leer mensajes: %w", err)
		}
		for _, m := range page {
			res.Scanned++
			if newerID(m.ID, after) {
				after = m.ID
			}
			if req.Filter == nil || req.Filter(m) {
				ids = append(ids, m.ID)
			}
		}
		if len(page) < n {
			break
		}
	}
	res.Matched = len(ids) - 1

	res.Deleted, err = p.DeleteMessages(req.ChannelID, ids)
	return res, err
}
