package discord

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Sentinel errors returned by Gateway. Callers match them with errors.Is to
// decide between purging a record (stale references) and retrying later
// (permissions).
var (
	ErrGuildNotFound   = errors.New("guild not found")
	ErrMemberNotFound  = errors.New("member not found")
	ErrRoleNotFound    = errors.New("role not found")
	ErrChannelNotFound = errors.New("channel not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrBanNotFound     = errors.New("ban not found")
	ErrMessageNotFound = errors.New("message not found")
	ErrForbidden       = errors.New("missing permissions")
	ErrDMClosed        = errors.New("cannot send messages to this user")
)

// classify maps a discordgo REST failure onto one of the sentinel errors. The
// original error stays in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return err
	}

	if restErr.Message != nil {
		switch restErr.Message.Code {
		case discordgo.ErrCodeUnknownGuild:
			return fmt.Errorf("%w: %v", ErrGuildNotFound, err)
		case discordgo.ErrCodeUnknownMember:
			return fmt.Errorf("%w: %v", ErrMemberNotFound, err)
		case discordgo.ErrCodeUnknownRole:
			return fmt.Errorf("%w: %v", ErrRoleNotFound, err)
		case discordgo.ErrCodeUnknownChannel:
			return fmt.Errorf("%w: %v", ErrChannelNotFound, err)
		case discordgo.ErrCodeUnknownUser:
			return fmt.Errorf("%w: %v", ErrUserNotFound, err)
		case discordgo.ErrCodeUnknownBan:
			return fmt.Errorf("%w: %v", ErrBanNotFound, err)
		case discordgo.ErrCodeUnknownMessage:
			return fmt.Errorf("%w: %v", ErrMessageNotFound, err)
		case discordgo.ErrCodeCannotSendMessagesToThisUser:
			return fmt.Errorf("%w: %v", ErrDMClosed, err)
		case discordgo.ErrCodeMissingPermissions, discordgo.ErrCodeMissingAccess:
			return fmt.Errorf("%w: %v", ErrForbidden, err)
		}
	}
	if restErr.Response != nil && restErr.Response.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w: %v", ErrForbidden, err)
	}
	return err
}

// Gateway exposes the platform operations used by moderation, the scheduler
// and the appeal relay. Lookups read the state cache first and fall back to
// the REST API.
type Gateway struct {
	s *discordgo.Session
}

// NewGateway wraps a session.
func NewGateway(s *discordgo.Session) *Gateway {
	return &Gateway{s: s}
}

// BotID returns the bot's own user id, used as the moderator of automatic
// actions.
func (g *Gateway) BotID() string {
	if g.s.State != nil && g.s.State.User != nil {
		return g.s.State.User.ID
	}
	return ""
}

func (g *Gateway) Guild(guildID string) (*discordgo.Guild, error) {
	if guild, err := g.s.State.Guild(guildID); err == nil {
		return guild, nil
	}
	guild, err := g.s.Guild(guildID)
	if err != nil {
		err = classify(err)
		if errors.Is(err, ErrForbidden) {
			// Losing access to a guild means the bot was removed from it.
			return nil, fmt.Errorf("%w: %v", ErrGuildNotFound, err)
		}
		return nil, err
	}
	return guild, nil
}

func (g *Gateway) Member(guildID, userID string) (*discordgo.Member, error) {
	if member, err := g.s.State.Member(guildID, userID); err == nil {
		return member, nil
	}
	member, err := g.s.GuildMember(guildID, userID)
	if err != nil {
		return nil, classify(err)
	}
	return member, nil
}

func (g *Gateway) Role(guildID, roleID string) (*discordgo.Role, error) {
	if role, err := g.s.State.Role(guildID, roleID); err == nil {
		return role, nil
	}
	roles, err := g.s.GuildRoles(guildID)
	if err != nil {
		return nil, classify(err)
	}
	for _, role := range roles {
		if role.ID == roleID {
			return role, nil
		}
	}
	return nil, ErrRoleNotFound
}

func (g *Gateway) Channel(channelID string) (*discordgo.Channel, error) {
	if ch, err := g.s.State.Channel(channelID); err == nil {
		return ch, nil
	}
	ch, err := g.s.Channel(channelID)
	if err != nil {
		return nil, classify(err)
	}
	return ch, nil
}

func (g *Gateway) User(userID string) (*discordgo.User, error) {
	u, err := g.s.User(userID)
	if err != nil {
		return nil, classify(err)
	}
	return u, nil
}

func (g *Gateway) AddRole(guildID, userID, roleID string) error {
	return classify(g.s.GuildMemberRoleAdd(guildID, userID, roleID))
}

func (g *Gateway) RemoveRole(guildID, userID, roleID string) error {
	return classify(g.s.GuildMemberRoleRemove(guildID, userID, roleID))
}

// Ban bans a user and deletes their messages from the last deleteDays days.
func (g *Gateway) Ban(guildID, userID, reason string, deleteDays int) error {
	return classify(g.s.GuildBanCreateWithReason(guildID, userID, reason, deleteDays))
}

func (g *Gateway) Unban(guildID, userID string) error {
	return classify(g.s.GuildBanDelete(guildID, userID))
}

func (g *Gateway) Kick(guildID, userID, reason string) error {
	return classify(g.s.GuildMemberDeleteWithReason(guildID, userID, reason))
}

// DMChannel opens (or reuses) the direct message channel with a user.
func (g *Gateway) DMChannel(userID string) (*discordgo.Channel, error) {
	ch, err := g.s.UserChannelCreate(userID)
	if err != nil {
		return nil, classify(err)
	}
	return ch, nil
}

// SendDM delivers a direct message. ErrDMClosed means the user does not
// accept messages from the bot.
func (g *Gateway) SendDM(userID string, msg *discordgo.MessageSend) error {
	ch, err := g.DMChannel(userID)
	if err != nil {
		return err
	}
	_, err = g.s.ChannelMessageSendComplex(ch.ID, msg)
	err = classify(err)
	if errors.Is(err, ErrForbidden) {
		return fmt.Errorf("%w: %v", ErrDMClosed, err)
	}
	return err
}

func (g *Gateway) Send(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	m, err := g.s.ChannelMessageSendComplex(channelID, msg)
	if err != nil {
		return nil, classify(err)
	}
	return m, nil
}

// CreateTextChannel creates a text channel under parentID.
func (g *Gateway) CreateTextChannel(guildID, name, topic, parentID string) (*discordgo.Channel, error) {
	ch, err := g.s.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     name,
		Type:     discordgo.ChannelTypeGuildText,
		Topic:    topic,
		ParentID: parentID,
	})
	if err != nil {
		return nil, classify(err)
	}
	return ch, nil
}

func (g *Gateway) DeleteChannel(channelID string) error {
	_, err := g.s.ChannelDelete(channelID)
	return classify(err)
}

// CategoryChannels lists the text channels whose parent is categoryID.
func (g *Gateway) CategoryChannels(guildID, categoryID string) ([]*discordgo.Channel, error) {
	channels, err := g.s.GuildChannels(guildID)
	if err != nil {
		return nil, classify(err)
	}
	out := make([]*discordgo.Channel, 0)
	for _, ch := range channels {
		if ch.ParentID == categoryID && ch.Type == discordgo.ChannelTypeGuildText {
			out = append(out, ch)
		}
	}
	return out, nil
}

// Message fetches a single message.
func (g *Gateway) Message(channelID, messageID string) (*discordgo.Message, error) {
	m, err := g.s.ChannelMessage(channelID, messageID)
	if err != nil {
		return nil, classify(err)
	}
	return m, nil
}

// MessagesAfter returns up to limit (max 100) messages newer than afterID.
func (g *Gateway) MessagesAfter(channelID, afterID string, limit int) ([]*discordgo.Message, error) {
	msgs, err := g.s.ChannelMessages(channelID, limit, "", afterID, "")
	if err != nil {
		return nil, classify(err)
	}
	return msgs, nil
}

// bulkDeleteMaxAge is how old a message may be for the bulk delete
// endpoint, with a minute of margin.
const bulkDeleteMaxAge = 14*24*time.Hour - time.Minute

// splitForDelete groups ids into bulk batches of 2 to 100 recent messages
// and a list of messages that must be deleted one by one.
func splitForDelete(ids []string, now time.Time) (batches [][]string, single []string) {
	var recent []string
	for _, id := range ids {
		ts, err := discordgo.SnowflakeTimestamp(id)
		if err != nil || now.Sub(ts) >= bulkDeleteMaxAge {
			single = append(single, id)
			continue
		}
		recent = append(recent, id)
	}
	for len(recent) > 0 {
		n := min(len(recent), 100)
		if n == 1 {
			single = append(single, recent[0])
		} else {
			batches = append(batches, recent[:n])
		}
		recent = recent[n:]
	}
	return batches, single
}

// DeleteMessages deletes ids from a channel and returns how many were
// removed before the first failure.
func (g *Gateway) DeleteMessages(channelID string, ids []string) (int, error) {
	batches, single := splitForDelete(ids, time.Now())
	deleted := 0
	for _, batch := range batches {
		if err := g.s.ChannelMessagesBulkDelete(channelID, batch); err != nil {
			return deleted, classify(err)
		}
		deleted += len(batch)
	}
	for _, id := range single {
		if err := g.s.ChannelMessageDelete(channelID, id); err != nil {
			err = classify(err)
			if errors.Is(err, ErrMessageNotFound) {
				continue
			}
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}
