package mqtt

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/PancyStudios/PancyModGo/pkg/models"
)

// ActiveMutesTopic is the request topic answered with a guild's mutes.
const ActiveMutesTopic = "mutes/active"

// InfractionTopic is where infractions of guildID are published.
func InfractionTopic(guildID string) string {
	return "pancy/events/infractions/" + guildID
}

// InfractionEvent is the payload published for each infraction.
type InfractionEvent struct {
	models.Infraction
	Event string `json:"event"`
}

// OnInfraction publishes inf for other services. Failures are logged and
// never reach the moderation flow.
func (mc *MqttCommunicator) OnInfraction(_ context.Context, inf models.Infraction) {
	err := mc.Publish(InfractionTopic(inf.GuildID), InfractionEvent{Infraction: inf, Event: "infraction"})
	switch {
	case err == nil:
	case stderrors.Is(err, ErrNotConnected):
		logger.Debug(fmt.Sprintf("MQTT desconectado, infracción %d no publicada", inf.ID), "MQTT")
	default:
		logger.Warn(fmt.Sprintf("No se pudo publicar la infracción %d: %v", inf.ID, err), "MQTT")
	}
}

// MuteLister reads the active mutes of a guild.
type MuteLister interface {
	ListGuildMutes(ctx context.Context, guildID string) ([]models.ActiveMute, error)
}

// ActiveMutesHandler answers requests of the form {"guildId": "..."}.
func ActiveMutesHandler(store MuteLister, timeout time.Duration) RequestHandler {
	return func(payload map[string]interface{}) (interface{}, error) {
		guildID, _ := payload["guildId"].(string)
		if guildID == "" {
			return nil, fmt.Errorf("guildId es requerido")
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		mutes, err := store.ListGuildMutes(ctx, guildID)
		if err != nil {
			return nil, fmt.Errorf("no se pudieron leer los mutes: %w", err)
		}
		if mutes == nil {
			mutes = []models.ActiveMute{}
		}
		return mutes, nil
	}
}
