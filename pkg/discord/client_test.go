package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestGatewayIntents(t *testing.T) {
	tests := []struct {
		name   string
		intent discordgo.Intent
	}{
		{"guilds", discordgo.IntentsGuilds},
		{"guild members", discordgo.IntentsGuildMembers},
		{"bans", discordgo.IntentsGuildBans},
		{"voice states", discordgo.IntentsGuildVoiceStates},
		{"direct messages", discordgo.IntentsDirectMessages},
		{"message content", discordgo.IntentsMessageContent},
	}
	for _, tt := range tests {
		if gatewayIntents&tt.intent != tt.intent {
			t.Errorf("gatewayIntents is missing %s", tt.name)
		}
	}
	if discordgo.IntentsGuildBans != 1<<2 {
		t.Errorf("IntentsGuildBans = %d, want the ban events bit", discordgo.IntentsGuildBans)
	}
}
