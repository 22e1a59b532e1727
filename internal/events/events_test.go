package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/PancyStudios/PancyModGo/internal/appeal"
	"github.com/PancyStudios/PancyModGo/internal/testutil"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

type sent struct {
	guild, logType string
	embed          *discordgo.MessageEmbed
}

type fakeLogs struct {
	mu   sync.Mutex
	sent []sent
}

func (f *fakeLogs) Send(guildID, logType string, embed *discordgo.MessageEmbed) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sent{guildID, logType, embed})
	return true
}

func (f *fakeLogs) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, s := range f.sent {
		out[i] = s.logType
	}
	return out
}

type fakeAppeals struct {
	startErr error
	closeErr error
	started  []string
	closed   []string
}

func (f *fakeAppeals) Start(_ context.Context, _ discord.Responder, user *discordgo.User) error {
	f.started = append(f.started, user.ID)
	return f.startErr
}

func (f *fakeAppeals) Close(_ context.Context, _ discord.Responder, channelID string, _ *discordgo.User) error {
	f.closed = append(f.closed, channelID)
	return f.closeErr
}

func newHandlers() (*handlers, *fakeLogs, *fakeAppeals) {
	logs := &fakeLogs{}
	appeals := &fakeAppeals{}
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	return &handlers{logs: logs, appeals: appeals, now: func() time.Time { return now }}, logs, appeals
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPrefixCommands(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		guildID     string
		wantStarted int
		wantClosed  int
	}{
		{"appeal in dm", "!appeal", "", 1, 0},
		{"appeal uppercase with text", "!APPEAL por favor", "", 1, 0},
		{"close in guild", "!close", "g", 0, 1},
		{"close in dm ignored", "!close", "", 0, 0},
		{"other text", "hola", "", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, appeals := newHandlers()
			msg := &discordgo.Message{ChannelID: "c", GuildID: tt.guildID, Content: tt.content, Author: &discordgo.User{ID: "u"}}

			h.prefixCommand(context.Background(), msg, &testutil.Responder{Actor: "u", Guild: tt.guildID})

			if len(appeals.started) != tt.wantStarted || len(appeals.closed) != tt.wantClosed {
				t.Errorf("started = %v, closed = %v", appeals.started, appeals.closed)
			}
		})
	}
}

func TestPrefixCommandErrorsAreHandled(t *testing.T) {
	h, _, appeals := newHandlers()
	appeals.startErr = appeal.ErrAppealActive
	appeals.closeErr = appeal.ErrNotAppealChannel

	dm := &discordgo.Message{ChannelID: "dm", Content: "!appeal", Author: &discordgo.User{ID: "u"}}
	h.prefixCommand(context.Background(), dm, &testutil.Responder{Actor: "u"})

	appeals.startErr = errors.New("gateway down")
	h.prefixCommand(context.Background(), dm, &testutil.Responder{Actor: "u"})

	inGuild := &discordgo.Message{ChannelID: "general", GuildID: "g", Content: "!close", Author: &discordgo.User{ID: "mod"}}
	h.prefixCommand(context.Background(), inGuild, &testutil.Responder{Actor: "mod", Guild: "g"})

	if len(appeals.started) != 2 || len(appeals.closed) != 1 {
		t.Errorf("started = %v, closed = %v", appeals.started, appeals.closed)
	}
}

func TestIsPrefixCommand(t *testing.T) {
	for content, want := range map[string]bool{
		"!appeal":       true,
		"  !close  ":    true,
		"!appealing":    false,
		"appeal":        false,
		"":              false,
		"!Close ahora":  true,
		"= nota !close": false,
	} {
		if got := isPrefixCommand(content); got != want {
			t.Errorf("isPrefixCommand(%q) = %v, want %v", content, got, want)
		}
	}
}

func TestMemberEvents(t *testing.T) {
	h, logs, _ := newHandlers()
	user := &discordgo.User{ID: "4194304", Username: "ana"}

	h.memberJoined(&discordgo.GuildMemberAdd{Member: &discordgo.Member{GuildID: "g", User: user}}, 10)
	h.memberLeft(&discordgo.GuildMemberRemove{Member: &discordgo.Member{GuildID: "g", User: user}}, 9)
	h.memberUpdated(&discordgo.GuildMemberUpdate{
		Member:       &discordgo.Member{GuildID: "g", User: user, Nick: "Ana", Roles: []string{"r1"}},
		BeforeUpdate: &discordgo.Member{GuildID: "g", User: user},
	})
	h.memberJoined(&discordgo.GuildMemberAdd{}, 0)

	want := []string{"member_join", "member_leave", "nickname_change", "role_add"}
	if got := logs.types(); !equal(got, want) {
		t.Errorf("log types = %v, want %v", got, want)
	}
}

func TestMessageEvents(t *testing.T) {
	h, logs, _ := newHandlers()
	author := &discordgo.User{ID: "u", Username: "ana"}
	bot := &discordgo.User{ID: "b", Bot: true}

	before := &discordgo.Message{ID: "m", GuildID: "g", ChannelID: "c", Author: author, Content: "hola"}
	h.messageEdited(&discordgo.MessageUpdate{
		Message:      &discordgo.Message{ID: "m", GuildID: "g", ChannelID: "c", Author: author, Content: "hola!"},
		BeforeUpdate: before,
	})
	// Embed resolution: same content, nothing logged.
	h.messageEdited(&discordgo.MessageUpdate{
		Message:      &discordgo.Message{ID: "m", GuildID: "g", ChannelID: "c", Author: author, Content: "hola"},
		BeforeUpdate: before,
	})
	// Not cached: nothing to compare.
	h.messageEdited(&discordgo.MessageUpdate{Message: &discordgo.Message{ID: "x", GuildID: "g"}})

	h.messageDeleted(&discordgo.MessageDelete{Message: &discordgo.Message{ID: "m", GuildID: "g"}, BeforeDelete: before})
	h.messageDeleted(&discordgo.MessageDelete{Message: &discordgo.Message{ID: "m2", GuildID: "g"}, BeforeDelete: &discordgo.Message{Author: bot}})
	h.messageDeleted(&discordgo.MessageDelete{Message: &discordgo.Message{ID: "m3", GuildID: "g"}})

	h.messagesPurged(&discordgo.MessageDeleteBulk{GuildID: "g", ChannelID: "c", Messages: []string{"1", "2", "3"}})

	want := []string{"message_edit", "message_delete", "message_bulk_delete"}
	if got := logs.types(); !equal(got, want) {
		t.Errorf("log types = %v, want %v", got, want)
	}
}

func TestVoiceAndBanEvents(t *testing.T) {
	h, logs, _ := newHandlers()

	h.voiceChanged(&discordgo.VoiceStateUpdate{VoiceState: &discordgo.VoiceState{GuildID: "g", UserID: "u", ChannelID: "v1"}})
	h.voiceChanged(&discordgo.VoiceStateUpdate{
		VoiceState:   &discordgo.VoiceState{GuildID: "g", UserID: "u", ChannelID: "v1", SelfMute: true},
		BeforeUpdate: &discordgo.VoiceState{GuildID: "g", UserID: "u", ChannelID: "v1"},
	})
	h.voiceChanged(&discordgo.VoiceStateUpdate{
		VoiceState:   &discordgo.VoiceState{GuildID: "g", UserID: "u"},
		BeforeUpdate: &discordgo.VoiceState{GuildID: "g", UserID: "u", ChannelID: "v1"},
	})
	h.banChanged("g", &discordgo.User{ID: "u"}, true)
	h.banChanged("g", &discordgo.User{ID: "u"}, false)

	want := []string{"voice_join", "voice_leave", "member_ban", "member_unban"}
	if got := logs.types(); !equal(got, want) {
		t.Errorf("log types = %v, want %v", got, want)
	}
}
