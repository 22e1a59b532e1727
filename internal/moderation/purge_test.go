package moderation

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"

	"github.com/PancyStudios/PancyModGo/internal/testutil"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/bwmarrin/discordgo"
)

const purgeChannel = "general"

func msg(n int, author string, bot bool, content string) *discordgo.Message {
	return &discordgo.Message{
		ID:      fmt.Sprintf("%04d", n),
		Author:  &discordgo.User{ID: author, Bot: bot},
		Content: content,
	}
}

// history holds 0001..0006; 0002 is the anchor.
func history() *testutil.Gateway {
	withEmbed := msg(5, "ana", false, "")
	withEmbed.Embeds = []*discordgo.MessageEmbed{{Title: "x"}}
	return testutil.NewGateway().WithMessages(purgeChannel,
		msg(1, "ana", false, "antes del ancla"),
		msg(2, "leo", false, "ancla"),
		msg(3, "ana", false, "Compra NITRO gratis"),
		msg(4, "dyno", true, "bienvenido"),
		withEmbed,
		msg(6, "leo", false, "hola"),
	)
}

func TestPurgeFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter PurgeFilter
		want   []string
	}{
		{"all", nil, []string{"0002", "0006", "0005", "0004", "0003"}},
		{"author", ByAuthor("ana"), []string{"0002", "0005", "0003"}},
		{"bots", FromBots(), []string{"0002", "0004"}},
		{"text ignores case", Containing("nitro"), []string{"0002", "0003"}},
		{"embeds", WithEmbeds(), []string{"0002", "0005"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := history()
			res, err := Purge(context.Background(), gw, PurgeRequest{ChannelID: purgeChannel, AnchorID: "0002", Filter: tt.filter})
			if err != nil {
				t.Fatalf("Purge() error: %v", err)
			}
			got := gw.Deleted(purgeChannel)
			if !slices.Equal(got, tt.want) {
				t.Errorf("deleted = %v, want %v", got, tt.want)
			}
			if res.Scanned != 4 || res.Deleted != len(tt.want) || res.Matched != len(tt.want)-1 {
				t.Errorf("result = %+v", res)
			}
		})
	}
}

func TestPurgeRespectsLimitAcrossPages(t *testing.T) {
	msgs := make([]*discordgo.Message, 0, 251)
	for i := 1; i <= 251; i++ {
		msgs = append(msgs, msg(i, "ana", false, "spam"))
	}
	gw := testutil.NewGateway().WithMessages(purgeChannel, msgs...)

	res, err := Purge(context.Background(), gw, PurgeRequest{ChannelID: purgeChannel, AnchorID: "0001", Limit: 150})
	if err != nil {
		t.Fatalf("Purge() error: %v", err)
	}
	if res.Scanned != 150 || res.Deleted != 151 {
		t.Errorf("result = %+v, want 150 scanned and 151 deleted", res)
	}
	deleted := gw.Deleted(purgeChannel)
	if !slices.Contains(deleted, "0151") || slices.Contains(deleted, "0152") {
		t.Error("purge should stop right after the limit")
	}
}

func TestPurgeLimitIsClamped(t *testing.T) {
	tests := []struct{ in, want int }{
		{0, DefaultPurgeLimit},
		{-3, DefaultPurgeLimit},
		{50, 50},
		{5000, MaxPurgeLimit},
	}
	for _, tt := range tests {
		if got := normalizeLimit(tt.in); got != tt.want {
			t.Errorf("normalizeLimit(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPurgeUnknownAnchor(t *testing.T) {
	gw := history()
	_, err := Purge(context.Background(), gw, PurgeRequest{ChannelID: purgeChannel, AnchorID: "9999"})
	if !errors.Is(err, discord.ErrMessageNotFound) {
		t.Fatalf("err = %v, want ErrMessageNotFound", err)
	}
	if len(gw.Deleted(purgeChannel)) != 0 {
		t.Error("nothing should be deleted without an anchor")
	}
}

func TestPurgeForbidden(t *testing.T) {
	gw := history()
	gw.SetError("DeleteMessages", discord.ErrForbidden)
	_, err := Purge(context.Background(), gw, PurgeRequest{ChannelID: purgeChannel, AnchorID: "0002"})
	if !errors.Is(err, discord.ErrForbidden) {
		t.Errorf("err = %v, want ErrForbidden", err)
	}
}
