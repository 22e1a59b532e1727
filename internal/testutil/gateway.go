// Package testutil holds in-memory fakes shared by package tests.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

// Sent is a message delivered through the fake gateway.
type Sent struct {
	ChannelID string
	Message   *discordgo.MessageSend
}

// Gateway is an in-memory stand-in for discord.Gateway. Failures are
// injected per method name with SetError.
type Gateway struct {
	mu sync.Mutex

	Bot      string
	guilds   map[string]*discordgo.Guild
	members  map[string]*discordgo.Member
	users    map[string]*discordgo.User
	roles    map[string]*discordgo.Role
	channels map[string]*discordgo.Channel
	bans     map[string]int
	fail     map[string]error
	sendFail map[string]error
	messages map[string][]*discordgo.Message
	deleted  map[string][]string

	dms    map[string][]*discordgo.MessageSend
	sent   []Sent
	nextID int
}

// NewGateway creates an empty fake whose bot user is "bot".
func NewGateway() *Gateway {
	return &Gateway{
		Bot:      "bot",
		guilds:   make(map[string]*discordgo.Guild),
		members:  make(map[string]*discordgo.Member),
		users:    make(map[string]*discordgo.User),
		roles:    make(map[string]*discordgo.Role),
		channels: make(map[string]*discordgo.Channel),
		bans:     make(map[string]int),
		fail:     make(map[string]error),
		sendFail: make(map[string]error),
		messages: make(map[string][]*discordgo.Message),
		deleted:  make(map[string][]string),
		dms:      make(map[string][]*discordgo.MessageSend),
	}
}

func key(a, b string) string { return a + "/" + b }

// WithGuild adds a guild.
func (g *Gateway) WithGuild(id, name string) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.guilds[id] = &discordgo.Guild{ID: id, Name: name}
	return g
}

// RemoveGuild simulates the bot leaving a guild.
func (g *Gateway) RemoveGuild(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.guilds, id)
}

// WithRole adds a role to a guild.
func (g *Gateway) WithRole(guildID, roleID string) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roles[key(guildID, roleID)] = &discordgo.Role{ID: roleID, Name: roleID}
	return g
}

// RemoveRoleDefinition deletes a role from a guild.
func (g *Gateway) RemoveRoleDefinition(guildID, roleID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.roles, key(guildID, roleID))
}

// WithUser adds a user known to the platform.
func (g *Gateway) WithUser(id, name string) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.users[id] = &discordgo.User{ID: id, Username: name}
	return g
}

// WithMember adds a guild member holding roles. The user is created if
// unknown.
func (g *Gateway) WithMember(guildID, userID string, roles ...string) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, ok := g.users[userID]
	if !ok {
		u = &discordgo.User{ID: userID, Username: userID}
		g.users[userID] = u
	}
	g.members[key(guildID, userID)] = &discordgo.Member{GuildID: guildID, User: u, Roles: append([]string(nil), roles...)}
	return g
}

// RemoveMember simulates a member leaving.
func (g *Gateway) RemoveMember(guildID, userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.members, key(guildID, userID))
}

// WithChannel adds a channel.
func (g *Gateway) WithChannel(ch *discordgo.Channel) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.channels[ch.ID] = ch
	return g
}

// SetError makes every call of method fail with err until cleared with nil.
func (g *Gateway) SetError(method string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.fail, method)
		return
	}
	g.fail[method] = err
}

// SetSendError makes Send to channelID fail with err until cleared with nil.
func (g *Gateway) SetSendError(channelID string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.sendFail, channelID)
		return
	}
	g.sendFail[channelID] = err
}

func (g *Gateway) failure(method string) error {
	return g.fail[method]
}

// MemberHasRole reports whether the member currently holds roleID.
func (g *Gateway) MemberHasRole(guildID, userID, roleID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.members[key(guildID, userID)]
	return ok && discord.HasRole(m.Roles, roleID)
}

// HasMember reports whether the user is in the guild.
func (g *Gateway) HasMember(guildID, userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.members[key(guildID, userID)]
	return ok
}

// Banned returns the delete-days of a ban and whether the user is banned.
func (g *Gateway) Banned(guildID, userID string) (int, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	days, ok := g.bans[key(guildID, userID)]
	return days, ok
}

// DMs returns the direct messages sent to userID.
func (g *Gateway) DMs(userID string) []*discordgo.MessageSend {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]*discordgo.MessageSend(nil), g.dms[userID]...)
}

// SentTo returns the messages sent to channelID.
func (g *Gateway) SentTo(channelID string) []*discordgo.MessageSend {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*discordgo.MessageSend
	for _, s := range g.sent {
		if s.ChannelID == channelID {
			out = append(out, s.Message)
		}
	}
	return out
}

// HasChannel reports whether a channel exists.
func (g *Gateway) HasChannel(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.channels[id]
	return ok
}

func (g *Gateway) BotID() string { return g.Bot }

func (g *Gateway) Guild(guildID string) (*discordgo.Guild, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("Guild"); err != nil {
		return nil, err
	}
	guild, ok := g.guilds[guildID]
	if !ok {
		return nil, discord.ErrGuildNotFound
	}
	return guild, nil
}

func (g *Gateway) Member(guildID, userID string) (*discordgo.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("Member"); err != nil {
		return nil, err
	}
	m, ok := g.members[key(guildID, userID)]
	if !ok {
		return nil, discord.ErrMemberNotFound
	}
	cp := *m
	cp.Roles = append([]string(nil), m.Roles...)
	return &cp, nil
}

func (g *Gateway) Role(guildID, roleID string) (*discordgo.Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("Role"); err != nil {
		return nil, err
	}
	r, ok := g.roles[key(guildID, roleID)]
	if !ok {
		return nil, discord.ErrRoleNotFound
	}
	return r, nil
}

func (g *Gateway) Channel(channelID string) (*discordgo.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	if !ok {
		return nil, discord.ErrChannelNotFound
	}
	return ch, nil
}

func (g *Gateway) User(userID string) (*discordgo.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("User"); err != nil {
		return nil, err
	}
	u, ok := g.users[userID]
	if !ok {
		return nil, discord.ErrUserNotFound
	}
	return u, nil
}

func (g *Gateway) AddRole(guildID, userID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("AddRole"); err != nil {
		return err
	}
	m, ok := g.members[key(guildID, userID)]
	if !ok {
		return discord.ErrMemberNotFound
	}
	if _, ok := g.roles[key(guildID, roleID)]; !ok {
		return discord.ErrRoleNotFound
	}
	if !discord.HasRole(m.Roles, roleID) {
		m.Roles = append(m.Roles, roleID)
	}
	return nil
}

func (g *Gateway) RemoveRole(guildID, userID, roleID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("RemoveRole"); err != nil {
		return err
	}
	m, ok := g.members[key(guildID, userID)]
	if !ok {
		return discord.ErrMemberNotFound
	}
	kept := m.Roles[:0]
	for _, r := range m.Roles {
		if r != roleID {
			kept = append(kept, r)
		}
	}
	m.Roles = kept
	return nil
}

func (g *Gateway) Ban(guildID, userID, reason string, deleteDays int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("Ban"); err != nil {
		return err
	}
	g.bans[key(guildID, userID)] = deleteDays
	delete(g.members, key(guildID, userID))
	return nil
}

func (g *Gateway) Unban(guildID, userID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("Unban"); err != nil {
		return err
	}
	if _, ok := g.bans[key(guildID, userID)]; !ok {
		return discord.ErrBanNotFound
	}
	delete(g.bans, key(guildID, userID))
	return nil
}

func (g *Gateway) Kick(guildID, userID, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("Kick"); err != nil {
		return err
	}
	if _, ok := g.members[key(guildID, userID)]; !ok {
		return discord.ErrMemberNotFound
	}
	delete(g.members, key(guildID, userID))
	return nil
}

func (g *Gateway) DMChannel(userID string) (*discordgo.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("DMChannel"); err != nil {
		return nil, err
	}
	id := "dm-" + userID
	ch, ok := g.channels[id]
	if !ok {
		ch = &discordgo.Channel{
			ID:         id,
			Type:       discordgo.ChannelTypeDM,
			Recipients: []*discordgo.User{{ID: userID}},
		}
		g.channels[id] = ch
	}
	return ch, nil
}

func (g *Gateway) SendDM(userID string, msg *discordgo.MessageSend) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("SendDM"); err != nil {
		return err
	}
	g.dms[userID] = append(g.dms[userID], msg)
	return nil
}

func (g *Gateway) Send(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("Send"); err != nil {
		return nil, err
	}
	if err := g.sendFail[channelID]; err != nil {
		return nil, err
	}
	g.sent = append(g.sent, Sent{ChannelID: channelID, Message: msg})
	g.nextID++
	return &discordgo.Message{ID: fmt.Sprintf("m%d", g.nextID), ChannelID: channelID, Content: msg.Content}, nil
}

func (g *Gateway) CreateTextChannel(guildID, name, topic, parentID string) (*discordgo.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("CreateTextChannel"); err != nil {
		return nil, err
	}
	g.nextID++
	ch := &discordgo.Channel{
		ID:       fmt.Sprintf("c%d", g.nextID),
		GuildID:  guildID,
		Name:     name,
		Topic:    topic,
		ParentID: parentID,
		Type:     discordgo.ChannelTypeGuildText,
	}
	g.channels[ch.ID] = ch
	return ch, nil
}

func (g *Gateway) DeleteChannel(channelID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("DeleteChannel"); err != nil {
		return err
	}
	if _, ok := g.channels[channelID]; !ok {
		return discord.ErrChannelNotFound
	}
	delete(g.channels, channelID)
	return nil
}

func (g *Gateway) CategoryChannels(guildID, categoryID string) ([]*discordgo.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("CategoryChannels"); err != nil {
		return nil, err
	}
	var out []*discordgo.Channel
	for _, ch := range g.channels {
		if ch.GuildID == guildID && ch.ParentID == categoryID && ch.Type == discordgo.ChannelTypeGuildText {
			out = append(out, ch)
		}
	}
	return out, nil
}

// Confirmer answers confirmation prompts with a fixed value and records them.
type Confirmer struct {
	Answer  bool
	Err     error
	Prompts []string
}

func (c *Confirmer) Confirm(_ context.Context, prompt string) (bool, error) {
	c.Prompts = append(c.Prompts, prompt)
	return c.Answer, c.Err
}

// WithMessages stores channel history. ids must be snowflake-ordered
// numbers of equal length.
func (g *Gateway) WithMessages(channelID string, msgs ...*discordgo.Message) *Gateway {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, m := range msgs {
		m.ChannelID = channelID
		g.messages[channelID] = append(g.messages[channelID], m)
	}
	sort.Slice(g.messages[channelID], func(i, j int) bool {
		return g.messages[channelID][i].ID < g.messages[channelID][j].ID
	})
	return g
}

// Deleted returns the message ids deleted from channelID.
func (g *Gateway) Deleted(channelID string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.deleted[channelID]...)
}

func (g *Gateway) Message(channelID, messageID string) (*discordgo.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("Message"); err != nil {
		return nil, err
	}
	for _, m := range g.messages[channelID] {
		if m.ID == messageID {
			return m, nil
		}
	}
	return nil, discord.ErrMessageNotFound
}

// MessagesAfter mirrors the REST API: the oldest limit messages after
// afterID, returned newest first.
func (g *Gateway) MessagesAfter(channelID, afterID string, limit int) ([]*discordgo.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("MessagesAfter"); err != nil {
		return nil, err
	}
	var page []*discordgo.Message
	for _, m := range g.messages[channelID] {
		if m.ID > afterID && len(page) < limit {
			page = append(page, m)
		}
	}
	for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
		page[i], page[j] = page[j], page[i]
	}
	return page, nil
}

func (g *Gateway) DeleteMessages(channelID string, ids []string) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure("DeleteMessages"); err != nil {
		return 0, err
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := g.messages[channelID][:0]
	for _, m := range g.messages[channelID] {
		if !drop[m.ID] {
			kept = append(kept, m)
		}
	}
	g.messages[channelID] = kept
	g.deleted[channelID] = append(g.deleted[channelID], ids...)
	return len(ids), nil
}
