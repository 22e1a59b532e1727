package testutil

import (
	"context"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Responder records replies. It satisfies discord.Responder and, through
// Answer, the confirmation capability of moderation commands.
type Responder struct {
	Actor   string
	Roles   []string
	Guild   string
	Channel string
	Answer  bool

	mu      sync.Mutex
	replies []string
	embeds  []*discordgo.MessageEmbed
}

func (r *Responder) Respond(content string, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, content)
	return nil
}

func (r *Responder) RespondEmbed(embed *discordgo.MessageEmbed, _ bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embeds = append(r.embeds, embed)
	return nil
}

func (r *Responder) ActorID() string      { return r.Actor }
func (r *Responder) ActorRoles() []string { return r.Roles }
func (r *Responder) GuildID() string      { return r.Guild }
func (r *Responder) ChannelID() string    { return r.Channel }

func (r *Responder) Confirm(context.Context, string) (bool, error) {
	return r.Answer, nil
}

// Replies returns the text replies so far.
func (r *Responder) Replies() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.replies...)
}

// Embeds returns the embed replies so far.
func (r *Responder) Embeds() []*discordgo.MessageEmbed {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*discordgo.MessageEmbed(nil), r.embeds...)
}

// Said reports whether any reply contains substr.
func (r *Responder) Said(substr string) bool {
	for _, s := range r.Replies() {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
