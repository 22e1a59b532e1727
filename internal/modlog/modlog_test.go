package modlog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/PancyModGo/internal/testutil"
	"github.com/PancyStudios/PancyModGo/pkg/database"
	"github.com/PancyStudios/PancyModGo/pkg/models"
	"github.com/bwmarrin/discordgo"
)

func newDispatcher(t *testing.T) (*Dispatcher, *database.LogChannelCache, *testutil.Gateway) {
	t.Helper()
	cache := database.NewLogChannelCache(testutil.NewStore(t))
	gw := testutil.NewGateway()
	return NewDispatcher(cache, gw), cache, gw
}

func TestSendRoutesToConfiguredChannel(t *testing.T) {
	d, cache, gw := newDispatcher(t)
	ctx := context.Background()
	if err := cache.Set(ctx, models.LogConfig{GuildID: "g", LogType: "member_join", ChannelID: "logs"}); err != nil {
		t.Fatal(err)
	}

	if !d.Send("g", "member_join", &discordgo.MessageEmbed{Title: "x"}) {
		t.Fatal("Send() = false for a configured type")
	}
	sent := gw.SentTo("logs")
	if len(sent) != 1 || sent[0].Embeds[0].Timestamp == "" {
		t.Errorf("sent = %+v", sent)
	}

	if d.Send("g", "member_leave", &discordgo.MessageEmbed{Title: "x"}) {
		t.Error("unconfigured type must not be sent")
	}
	if d.Send("other", "member_join", &discordgo.MessageEmbed{Title: "x"}) {
		t.Error("other guilds must not be sent")
	}
}

func TestSendFailureIsReported(t *testing.T) {
	d, cache, gw := newDispatcher(t)
	_ = cache.Set(context.Background(), models.LogConfig{GuildID: "g", LogType: "ban", ChannelID: "logs"})
	gw.SetError("Send", context.DeadlineExceeded)

	if d.Send("g", "ban", &discordgo.MessageEmbed{}) {
		t.Error("Send() = true despite the platform error")
	}
}

func TestOnInfraction(t *testing.T) {
	d, cache, gw := newDispatcher(t)
	ctx := context.Background()
	_ = cache.Set(ctx, models.LogConfig{GuildID: "g", LogType: "ban", ChannelID: "bans"})
	_ = cache.Set(ctx, models.LogConfig{GuildID: "g", LogType: "unmute", ChannelID: "mutes"})

	d.OnInfraction(ctx, models.Infraction{ID: 7, GuildID: "g", UserID: "u", ModeratorID: "m", Kind: models.KindCleanBan, Reason: "spam"})
	d.OnInfraction(ctx, models.Infraction{ID: 8, GuildID: "g", UserID: "u", ModeratorID: "bot", Kind: models.KindUnmute})
	d.OnInfraction(ctx, models.Infraction{ID: 9, GuildID: "g", UserID: "u", ModeratorID: "m", Kind: models.KindWarn})

	bans := gw.SentTo("bans")
	if len(bans) != 1 {
		t.Fatalf("ban channel got %d messages, want 1", len(bans))
	}
	embed := bans[0].Embeds[0]
	if embed.Title != "Moderación: Baneo con limpieza" || !strings.Contains(embed.Footer.Text, "Caso #7") {
		t.Errorf("embed = %+v", embed)
	}
	if got := len(gw.SentTo("mutes")); got != 1 {
		t.Errorf("unmute channel got %d messages, want 1", got)
	}
}

func TestLogTypeFor(t *testing.T) {
	tests := []struct {
		kind models.InfractionKind
		want string
	}{
		{models.KindCleanBan, "ban"},
		{models.KindBan, "ban"},
		{models.KindMute, "mute"},
		{models.KindWarn, "warn"},
	}
	for _, tt := range tests {
		if got := LogTypeFor(tt.kind); got != tt.want {
			t.Errorf("LogTypeFor(%s) = %q, want %q", tt.kind, got, tt.want)
		}
		if !Valid(LogTypeFor(tt.kind)) {
			t.Errorf("LogTypeFor(%s) is not a known log type", tt.kind)
		}
	}
	if Valid("music") {
		t.Error("Valid(music) = true")
	}
}

func TestVoiceEmbed(t *testing.T) {
	tests := []struct {
		name          string
		before, after string
		want          string
	}{
		{"join", "", "v1", "voice_join"},
		{"leave", "v1", "", "voice_leave"},
		{"move", "v1", "v2", "voice_move"},
		{"same channel", "v1", "v1", ""},
		{"nothing", "", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, embed := VoiceEmbed("u", tt.before, tt.after)
			if got != tt.want {
				t.Errorf("type = %q, want %q", got, tt.want)
			}
			if (embed == nil) != (tt.want == "") {
				t.Errorf("embed = %+v", embed)
			}
		})
	}
}

func TestMessageEditEmbedIgnoresSameContent(t *testing.T) {
	author := &discordgo.User{ID: "u", Username: "ana"}
	before := &discordgo.Message{ID: "m", ChannelID: "c", Content: "hola", Author: author}
	after := &discordgo.Message{ID: "m", ChannelID: "c", GuildID: "g", Content: "hola", Author: author}

	if MessageEditEmbed(before, after) != nil {
		t.Error("same content should not be logged")
	}
	after.Content = "adiós"
	embed := MessageEditEmbed(before, after)
	if embed == nil || embed.Fields[3].Value != "hola" || embed.Fields[4].Value != "adiós" {
		t.Errorf("embed = %+v", embed)
	}
	if MessageEditEmbed(nil, after) != nil {
		t.Error("unknown previous content should not be logged")
	}
}

func TestMessageDeleteEmbed(t *testing.T) {
	msg := &discordgo.Message{
		ID: "m", ChannelID: "c",
		Author:      &discordgo.User{ID: "u", Username: "ana"},
		Attachments: []*discordgo.MessageAttachment{{Filename: "a.png", URL: "https://cdn/a.png"}},
	}
	embed := MessageDeleteEmbed(msg)
	if embed.Fields[3].Value != "*Sin texto*" {
		t.Errorf("content field = %q", embed.Fields[3].Value)
	}
	if len(embed.Fields) != 5 || embed.Fields[4].Value != "[a.png](https://cdn/a.png)" {
		t.Errorf("fields = %+v", embed.Fields)
	}
}

func TestMemberUpdateEntries(t *testing.T) {
	user := &discordgo.User{ID: "u", Username: "ana"}
	before := &discordgo.Member{User: user, Nick: "", Roles: []string{"r1", "r2"}}
	after := &discordgo.Member{User: user, Nick: "Anita", Roles: []string{"r2", "r3"}}

	entries := MemberUpdateEntries(before, after)
	var types []string
	for _, e := range entries {
		types = append(types, e.Type)
	}
	if strings.Join(types, ",") != "nickname_change,role_add,role_remove" {
		t.Fatalf("types = %v", types)
	}
	if !strings.Contains(entries[1].Embed.Fields[1].Value, "<@&r3>") || !strings.Contains(entries[2].Embed.Fields[1].Value, "<@&r1>") {
		t.Errorf("role fields = %+v / %+v", entries[1].Embed.Fields, entries[2].Embed.Fields)
	}

	if got := MemberUpdateEntries(after, after); len(got) != 0 {
		t.Errorf("no change produced %d entries", len(got))
	}
}

func TestMemberJoinEmbedAccountAge(t *testing.T) {
	// One millisecond after the Discord epoch (2015-01-01).
	user := &discordgo.User{ID: "4194304", Username: "ana"}
	now := time.Date(2015, 1, 11, 12, 0, 0, 0, time.UTC)

	embed := MemberJoinEmbed(user, 42, now)
	if len(embed.Fields) != 2 || !strings.Contains(embed.Fields[0].Value, "hace 10 días") {
		t.Errorf("fields = %+v", embed.Fields)
	}
}
