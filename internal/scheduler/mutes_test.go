package scheduler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/PancyModGo/internal/moderation"
	"github.com/PancyStudios/PancyModGo/internal/testutil"
	"github.com/PancyStudios/PancyModGo/pkg/database"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/models"
)

const (
	guildID  = "g1"
	userID   = "u1"
	muteRole = "muted"
	origin   = "origin"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type muteFixture struct {
	store database.Store
	gw    *testutil.Gateway
	job   *MuteExpiryJob
}

func newMuteFixture(t *testing.T) *muteFixture {
	t.Helper()
	store := testutil.NewStore(t)
	gw := testutil.NewGateway().
		WithGuild(guildID, "Pancy").
		WithRole(guildID, muteRole).
		WithMember(guildID, userID, muteRole)

	err := store.UpsertActiveMute(context.Background(), models.ActiveMute{
		UserID: userID, GuildID: guildID, UnmuteAt: t0.Add(time.Hour), ChannelID: origin,
	})
	if err != nil {
		t.Fatalf("UpsertActiveMute() error: %v", err)
	}

	job := NewMuteExpiryJob(store, gw, moderation.NewRecorder(store), muteRole, time.Minute)
	return &muteFixture{store: store, gw: gw, job: job}
}

func (f *muteFixture) active(t *testing.T) bool {
	t.Helper()
	m, err := f.store.GetActiveMute(context.Background(), guildID, userID)
	if err != nil {
		t.Fatalf("GetActiveMute() error: %v", err)
	}
	return m != nil
}

func (f *muteFixture) infractions(t *testing.T) []models.Infraction {
	t.Helper()
	infs, err := f.store.ListInfractions(context.Background(), guildID, userID)
	if err != nil {
		t.Fatalf("ListInfractions() error: %v", err)
	}
	return infs
}

func TestMuteExpiryLiftsDueMute(t *testing.T) {
	f := newMuteFixture(t)
	f.job.Run(context.Background(), t0.Add(time.Hour+time.Second))

	if f.gw.MemberHasRole(guildID, userID, muteRole) {
		t.Error("mute role should be removed")
	}
	if f.active(t) {
		t.Error("active mute should be deleted")
	}
	infs := f.infractions(t)
	if len(infs) != 1 {
		t.Fatalf("got %d infractions, want 1", len(infs))
	}
	if infs[0].Kind != models.KindUnmute || infs[0].ModeratorID != f.gw.BotID() {
		t.Errorf("infraction = %+v, want unmute by the bot", infs[0])
	}
	notices := f.gw.SentTo(origin)
	if len(notices) != 1 || !strings.Contains(notices[0].Content, userID) {
		t.Errorf("origin notices = %+v", notices)
	}
}

func TestMuteExpiryBoundaryIsInclusive(t *testing.T) {
	f := newMuteFixture(t)

	f.job.Run(context.Background(), t0.Add(time.Hour-time.Second))
	if !f.active(t) {
		t.Fatal("mute should not expire early")
	}

	f.job.Run(context.Background(), t0.Add(time.Hour))
	if f.active(t) {
		t.Error("mute due exactly now should expire")
	}
}

func TestMuteExpiryIsIdempotent(t *testing.T) {
	f := newMuteFixture(t)
	now := t0.Add(2 * time.Hour)

	f.job.Run(context.Background(), now)
	f.job.Run(context.Background(), now)

	if got := len(f.infractions(t)); got != 1 {
		t.Errorf("got %d infractions after two scans, want 1", got)
	}
	if got := len(f.gw.SentTo(origin)); got != 1 {
		t.Errorf("got %d notices after two scans, want 1", got)
	}
}

func TestMuteExpiryPermissionErrorRetries(t *testing.T) {
	f := newMuteFixture(t)
	f.gw.SetError("RemoveRole", discord.ErrForbidden)

	f.job.Run(context.Background(), t0.Add(2*time.Hour))
	if !f.active(t) {
		t.Fatal("row must be kept after a permission error")
	}
	if len(f.infractions(t)) != 0 {
		t.Fatal("no infraction should be written while the role is still held")
	}

	f.gw.SetError("RemoveRole", nil)
	f.job.Run(context.Background(), t0.Add(2*time.Hour+time.Minute))
	if f.active(t) {
		t.Error("row should be deleted once permissions are fixed")
	}
	if len(f.infractions(t)) != 1 {
		t.Error("unmute infraction should be written on retry")
	}
}

func TestMuteExpiryStaleReferences(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(f *muteFixture)
		wantActive bool
		wantNotice bool
	}{
		{"guild gone", func(f *muteFixture) { f.gw.RemoveGuild(guildID) }, false, false},
		{"member left", func(f *muteFixture) { f.gw.RemoveMember(guildID, userID) }, false, false},
		{"role missing", func(f *muteFixture) { f.gw.RemoveRoleDefinition(guildID, muteRole) }, true, false},
		{"role already removed", func(f *muteFixture) { f.gw.WithMember(guildID, userID) }, false, false},
		{"guild lookup forbidden", func(f *muteFixture) { f.gw.SetError("Guild", discord.ErrForbidden) }, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMuteFixture(t)
			tt.setup(f)

			f.job.Run(context.Background(), t0.Add(2*time.Hour))

			if got := f.active(t); got != tt.wantActive {
				t.Errorf("active = %v, want %v", got, tt.wantActive)
			}
			if got := len(f.infractions(t)); got != 0 {
				t.Errorf("got %d infractions, want 0", got)
			}
			if got := len(f.gw.SentTo(origin)) > 0; got != tt.wantNotice {
				t.Errorf("notice sent = %v, want %v", got, tt.wantNotice)
			}
		})
	}
}

func TestMuteExpiryNoticeFailureStillCompletes(t *testing.T) {
	f := newMuteFixture(t)
	f.gw.SetError("Send", discord.ErrChannelNotFound)

	f.job.Run(context.Background(), t0.Add(2*time.Hour))

	if f.active(t) {
		t.Error("row should be deleted even if the notice fails")
	}
	if len(f.infractions(t)) != 1 {
		t.Error("unmute infraction should be written")
	}
}

func TestMuteExpiryOneBadRecordDoesNotBlockOthers(t *testing.T) {
	f := newMuteFixture(t)
	ctx := context.Background()
	f.gw.WithGuild("g2", "Otro").WithRole("g2", muteRole).WithMember("g2", "u2", muteRole)
	if err := f.store.UpsertActiveMute(ctx, models.ActiveMute{UserID: "u2", GuildID: "g2", UnmuteAt: t0}); err != nil {
		t.Fatalf("UpsertActiveMute() error: %v", err)
	}
	f.gw.RemoveRoleDefinition(guildID, muteRole)

	f.job.Run(ctx, t0.Add(2*time.Hour))

	if !f.active(t) {
		t.Error("g1 mute should be kept for retry")
	}
	if f.gw.MemberHasRole("g2", "u2", muteRole) {
		t.Error("g2 mute should still be lifted")
	}
}

// flakyInfractions fails infraction writes while down is set.
type flakyInfractions struct {
	database.Store
	down bool
}

func (s *flakyInfractions) AddInfraction(ctx context.Context, inf *models.Infraction) error {
	if s.down {
		return errors.New("disco lleno")
	}
	return s.Store.AddInfraction(ctx, inf)
}

func TestMuteExpiryKeepsRowUntilInfractionIsRecorded(t *testing.T) {
	f := newMuteFixture(t)
	ctx := context.Background()
	flaky := &flakyInfractions{Store: f.store, down: true}
	f.job = NewMuteExpiryJob(flaky, f.gw, moderation.NewRecorder(flaky), muteRole, time.Minute)

	f.job.Run(ctx, t0.Add(2*time.Hour))
	if !f.active(t) {
		t.Fatal("mute row must be kept while the infraction cannot be written")
	}
	if f.gw.MemberHasRole(guildID, userID, muteRole) {
		t.Error("role should already be removed")
	}
	if len(f.gw.SentTo(origin)) != 0 {
		t.Error("no notice expected before the unmute is recorded")
	}

	flaky.down = false
	f.job.Run(ctx, t0.Add(2*time.Hour+time.Minute))

	if f.active(t) {
		t.Error("mute row should be deleted once recorded")
	}
	infs := f.infractions(t)
	if len(infs) != 1 || infs[0].Kind != models.KindUnmute || infs[0].ModeratorID != f.gw.BotID() {
		t.Fatalf("infractions = %+v, want one unmute by the bot", infs)
	}
	if len(f.gw.SentTo(origin)) != 1 {
		t.Error("origin channel should be told once")
	}
}
