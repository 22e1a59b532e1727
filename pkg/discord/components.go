package discord

import (
	"strings"
	"sync"

	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// ComponentHandler handles a button or select menu interaction.
type ComponentHandler func(s *discordgo.Session, i *discordgo.InteractionCreate)

// ComponentRouter dispatches component interactions by the prefix of their
// custom ID (the text before the first ':').
type ComponentRouter struct {
	mu       sync.RWMutex
	handlers map[string]ComponentHandler
}

// NewComponentRouter creates an empty router.
func NewComponentRouter() *ComponentRouter {
	return &ComponentRouter{handlers: make(map[string]ComponentHandler)}
}

// Handle registers handler for custom IDs starting with prefix + ":".
func (r *ComponentRouter) Handle(prefix string, handler ComponentHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[prefix] = handler
	logger.Debug("Componente registrado: "+prefix, "Components")
}

func componentPrefix(customID string) string {
	if idx := strings.IndexByte(customID, ':'); idx >= 0 {
		return customID[:idx]
	}
	return customID
}

func (r *ComponentRouter) lookup(customID string) (ComponentHandler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[componentPrefix(customID)]
	return h, ok
}

// Route runs the handler registered for the interaction's custom ID.
func (r *ComponentRouter) Route(s *discordgo.Session, i *discordgo.InteractionCreate) bool {
	customID := i.MessageComponentData().CustomID
	h, ok := r.lookup(customID)
	if !ok {
		logger.Warn("Componente sin manejador: "+customID, "Components")
		return false
	}
	h(s, i)
	return true
}
