package discord

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
)

const confirmPrefix = "confirm"

type pendingConfirm struct {
	owner  string
	result chan bool
}

type resolveOutcome int

const (
	resolveUnknown resolveOutcome = iota
	resolveRejected
	resolveAccepted
)

// ConfirmRegistry tracks outstanding Yes/No prompts. Only the user who
// triggered the prompt can answer it; no answer before the timeout counts as
// a cancellation.
type ConfirmRegistry struct {
	timeout time.Duration
	mu      sync.Mutex
	pending map[string]*pendingConfirm
}

// NewConfirmRegistry creates a registry whose prompts expire after timeout.
func NewConfirmRegistry(timeout time.Duration) *ConfirmRegistry {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ConfirmRegistry{
		timeout: timeout,
		pending: make(map[string]*pendingConfirm),
	}
}

func confirmButtons(id string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Sí",
					Style:    discordgo.SuccessButton,
					CustomID: confirmPrefix + ":" + id + ":yes",
				},
				discordgo.Button{
					Label:    "No",
					Style:    discordgo.DangerButton,
					CustomID: confirmPrefix + ":" + id + ":no",
				},
			},
		},
	}
}

// Ask shows prompt with Yes/No buttons on target and blocks until the owner
// answers, the timeout elapses or ctx ends.
func (r *ConfirmRegistry) Ask(ctx context.Context, target PromptTarget, prompt string) (bool, error) {
	id := uuid.NewString()
	p := &pendingConfirm{owner: target.ActorID(), result: make(chan bool, 1)}

	r.mu.Lock()
	r.pending[id] = p
	r.mu.Unlock()
	defer r.forget(id)

	if err := target.SendPrompt(prompt, confirmButtons(id)); err != nil {
		return false, err
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case yes := <-p.result:
		return yes, nil
	case <-timer.C:
		if err := target.ClearPrompt("⌛ | Se acabó el tiempo, acción cancelada."); err != nil {
			logger.Warn("No se pudo editar la confirmación expirada: "+err.Error(), "Confirm")
		}
		return false, nil
	case <-ctx.Done():
		_ = target.ClearPrompt("❌ | Acción cancelada.")
		return false, ctx.Err()
	}
}

func (r *ConfirmRegistry) forget(id string) {
	r.mu.Lock()
	delete(r.pending, id)
	r.mu.Unlock()
}

// resolve delivers an answer from presser. Only the owner's first answer is
// accepted.
func (r *ConfirmRegistry) resolve(id, presser string, yes bool) resolveOutcome {
	r.mu.Lock()
	p, ok := r.pending[id]
	if !ok {
		r.mu.Unlock()
		return resolveUnknown
	}
	if p.owner != presser {
		r.mu.Unlock()
		return resolveRejected
	}
	delete(r.pending, id)
	r.mu.Unlock()

	p.result <- yes
	return resolveAccepted
}

// Pending returns the number of prompts waiting for an answer.
func (r *ConfirmRegistry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// parseConfirmID splits "confirm:<id>:yes|no".
func parseConfirmID(customID string) (id string, yes bool, ok bool) {
	parts := strings.Split(customID, ":")
	if len(parts) != 3 || parts[0] != confirmPrefix {
		return "", false, false
	}
	switch parts[2] {
	case "yes":
		return parts[1], true, true
	case "no":
		return parts[1], false, true
	}
	return "", false, false
}

// HandleComponent answers a button press on a confirmation prompt.
func (r *ConfirmRegistry) HandleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	id, yes, ok := parseConfirmID(i.MessageComponentData().CustomID)
	if !ok {
		return
	}

	presser := ""
	if i.Member != nil && i.Member.User != nil {
		presser = i.Member.User.ID
	} else if i.User != nil {
		presser = i.User.ID
	}

	switch r.resolve(id, presser, yes) {
	case resolveRejected:
		_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "❌ | No puedes confirmar esta acción.",
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
	case resolveUnknown:
		_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content: "⌛ | Esta confirmación ya no está activa.",
				Flags:   discordgo.MessageFlagsEphemeral,
			},
		})
	case resolveAccepted:
		content := "✅ | Confirmado, procesando..."
		if !yes {
			content = "❌ | Acción cancelada."
		}
		_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Content:    content,
				Components: []discordgo.MessageComponent{},
			},
		})
	}
}
