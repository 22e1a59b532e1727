package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestEventHandlerRegistersOnSession(t *testing.T) {
	s, err := discordgo.New("Bot test")
	if err != nil {
		t.Fatal(err)
	}
	eh := NewEventHandler(&ExtendedClient{Session: s})

	eh.OnReady(func(*discordgo.Session, *discordgo.Ready) {})
	eh.OnGuildBanAdd(func(*discordgo.Session, *discordgo.GuildBanAdd) {})
	eh.RegisterEvent(func(*discordgo.Session, *discordgo.Resumed) {})

	if got := eh.Count(); got != 3 {
		t.Errorf("Count() = %d, want 3", got)
	}
}
