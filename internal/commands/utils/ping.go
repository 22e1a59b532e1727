package utils

import (
	"fmt"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
)

func (h *handlers) createPingCommand() *discord.Command {
	return discord.NewCommand(
		"ping",
		"Comprueba la latencia del bot y de la base de datos",
		"utils",
		h.pingHandler,
	)
}

func (h *handlers) pingHandler(ctx *discord.CommandContext) error {
	go func() {
		defer errors.RecoverMiddleware()()
		gateway := ctx.Client.Session.HeartbeatLatency()
		_ = ctx.Reply(pingText(gateway, h.timeStore()))
	}()
	return nil
}

// timeStore measures a status round trip to the store. A negative result
// means the store is down.
func (h *handlers) timeStore() time.Duration {
	start := time.Now()
	if _, ok := h.store.Status(); !ok {
		return -1
	}
	return time.Since(start)
}

func pingText(gateway, store time.Duration) string {
	db := "🔴 sin conexión"
	if store >= 0 {
		db = fmt.Sprintf("%dms", store.Milliseconds())
	}
	return fmt.Sprintf("🏓 Pong!\n• Gateway: %dms\n• Base de datos: %s", gateway.Milliseconds(), db)
}
