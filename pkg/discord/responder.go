package discord

import (
	"context"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Responder is the capability shared by every entry point that can trigger a
// moderation action: slash commands and prefix commands.
type Responder interface {
	Respond(content string, ephemeral bool) error
	RespondEmbed(embed *discordgo.MessageEmbed, ephemeral bool) error
	ActorID() string
	ActorRoles() []string
	GuildID() string
	ChannelID() string
}

// PromptTarget can show and later clear a confirmation prompt.
type PromptTarget interface {
	ActorID() string
	SendPrompt(content string, components []discordgo.MessageComponent) error
	ClearPrompt(content string) error
}

// HasRole reports whether roleID is among roles.
func HasRole(roles []string, roleID string) bool {
	for _, r := range roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// RequireRole answers with an ephemeral refusal and returns false when the
// actor lacks roleID. An empty roleID allows everyone; Discord permissions
// on the command still apply.
func RequireRole(r Responder, roleID string) bool {
	if roleID == "" || HasRole(r.ActorRoles(), roleID) {
		return true
	}
	_ = r.Respond("❌ | No tienes permiso para usar este comando.", true)
	return false
}

// InteractionResponder answers a slash command. The first reply uses the
// interaction response and later ones become follow-up messages.
type InteractionResponder struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction
	confirm     *ConfirmRegistry

	mu             sync.Mutex
	replied        bool
	promptFollowup string
}

// NewInteractionResponder wraps an interaction.
func NewInteractionResponder(s *discordgo.Session, i *discordgo.Interaction, confirm *ConfirmRegistry) *InteractionResponder {
	return &InteractionResponder{session: s, interaction: i, confirm: confirm}
}

func (r *InteractionResponder) send(data *discordgo.InteractionResponseData) (*discordgo.Message, error) {
	r.mu.Lock()
	first := !r.replied
	r.replied = true
	r.mu.Unlock()

	if first {
		return nil, r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: data,
		})
	}
	return r.session.FollowupMessageCreate(r.interaction, true, &discordgo.WebhookParams{
		Content:    data.Content,
		Embeds:     data.Embeds,
		Components: data.Components,
		Flags:      data.Flags,
	})
}

func ephemeralFlag(ephemeral bool) discordgo.MessageFlags {
	if ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

func (r *InteractionResponder) Respond(content string, ephemeral bool) error {
	_, err := r.send(&discordgo.InteractionResponseData{Content: content, Flags: ephemeralFlag(ephemeral)})
	return err
}

func (r *InteractionResponder) RespondEmbed(embed *discordgo.MessageEmbed, ephemeral bool) error {
	_, err := r.send(&discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}, Flags: ephemeralFlag(ephemeral)})
	return err
}

func (r *InteractionResponder) markReplied() {
	r.mu.Lock()
	r.replied = true
	r.mu.Unlock()
}

// Replied reports whether an initial response was already sent.
func (r *InteractionResponder) Replied() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replied
}

func (r *InteractionResponder) ActorID() string {
	if r.interaction.Member != nil && r.interaction.Member.User != nil {
		return r.interaction.Member.User.ID
	}
	if r.interaction.User != nil {
		return r.interaction.User.ID
	}
	return ""
}

func (r *InteractionResponder) ActorRoles() []string {
	if r.interaction.Member == nil {
		return nil
	}
	return r.interaction.Member.Roles
}

func (r *InteractionResponder) GuildID() string   { return r.interaction.GuildID }
func (r *InteractionResponder) ChannelID() string { return r.interaction.ChannelID }

func (r *InteractionResponder) SendPrompt(content string, components []discordgo.MessageComponent) error {
	msg, err := r.send(&discordgo.InteractionResponseData{Content: content, Components: components})
	if err != nil {
		return err
	}
	if msg != nil {
		r.mu.Lock()
		r.promptFollowup = msg.ID
		r.mu.Unlock()
	}
	return nil
}

func (r *InteractionResponder) ClearPrompt(content string) error {
	edit := &discordgo.WebhookEdit{
		Content:    &content,
		Components: &[]discordgo.MessageComponent{},
	}
	r.mu.Lock()
	followup := r.promptFollowup
	r.mu.Unlock()

	var err error
	if followup != "" {
		_, err = r.session.FollowupMessageEdit(r.interaction, followup, edit)
	} else {
		_, err = r.session.InteractionResponseEdit(r.interaction, edit)
	}
	return err
}

// Confirm asks the invoker to approve an action with Yes/No buttons.
func (r *InteractionResponder) Confirm(ctx context.Context, prompt string) (bool, error) {
	return r.confirm.Ask(ctx, r, prompt)
}

// MessageResponder answers a prefix command typed in a channel or a DM.
// Ephemeral replies are not supported by plain messages and are sent as
// normal replies.
type MessageResponder struct {
	session *discordgo.Session
	message *discordgo.Message
	confirm *ConfirmRegistry

	mu       sync.Mutex
	promptID string
}

// NewMessageResponder wraps a received message.
func NewMessageResponder(s *discordgo.Session, m *discordgo.Message, confirm *ConfirmRegistry) *MessageResponder {
	return &MessageResponder{session: s, message: m, confirm: confirm}
}

func (r *MessageResponder) Respond(content string, _ bool) error {
	_, err := r.session.ChannelMessageSendReply(r.message.ChannelID, content, r.message.Reference())
	return err
}

func (r *MessageResponder) RespondEmbed(embed *discordgo.MessageEmbed, _ bool) error {
	_, err := r.session.ChannelMessageSendComplex(r.message.ChannelID, &discordgo.MessageSend{
		Embeds:    []*discordgo.MessageEmbed{embed},
		Reference: r.message.Reference(),
	})
	return err
}

func (r *MessageResponder) ActorID() string {
	if r.message.Author == nil {
		return ""
	}
	return r.message.Author.ID
}

func (r *MessageResponder) ActorRoles() []string {
	if r.message.Member == nil {
		return nil
	}
	return r.message.Member.Roles
}

func (r *MessageResponder) GuildID() string   { return r.message.GuildID }
func (r *MessageResponder) ChannelID() string { return r.message.ChannelID }

func (r *MessageResponder) SendPrompt(content string, components []discordgo.MessageComponent) error {
	msg, err := r.session.ChannelMessageSendComplex(r.message.ChannelID, &discordgo.MessageSend{
		Content:    content,
		Components: components,
		Reference:  r.message.Reference(),
	})
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.promptID = msg.ID
	r.mu.Unlock()
	return nil
}

func (r *MessageResponder) ClearPrompt(content string) error {
	r.mu.Lock()
	id := r.promptID
	r.mu.Unlock()
	if id == "" {
		return nil
	}
	_, err := r.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		ID:         id,
		Channel:    r.message.ChannelID,
		Content:    &content,
		Components: &[]discordgo.MessageComponent{},
	})
	return err
}

// Confirm asks the author to approve an action with Yes/No buttons.
func (r *MessageResponder) Confirm(ctx context.Context, prompt string) (bool, error) {
	return r.confirm.Ask(ctx, r, prompt)
}
