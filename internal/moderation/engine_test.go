package moderation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PancyStudios/PancyModGo/internal/testutil"
	"github.com/PancyStudios/PancyModGo/pkg/database"
	"github.com/PancyStudios/PancyModGo/pkg/discord"
	"github.com/PancyStudios/PancyModGo/pkg/models"
)

const (
	guildID  = "g1"
	targetID = "u1"
	modID    = "mod"
	muteRole = "muted"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	store    database.Store
	gw       *testutil.Gateway
	clock    *testutil.Clock
	recorded []models.Infraction
	engine   *Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store: testutil.NewStore(t),
		gw: testutil.NewGateway().
			WithGuild(guildID, "Pancy").
			WithRole(guildID, muteRole).
			WithMember(guildID, targetID).
			WithMember(guildID, modID),
		clock: testutil.NewClock(t0),
	}
	rec := NewRecorder(f.store)
	rec.AddSink(SinkFunc(func(_ context.Context, inf models.Infraction) {
		f.recorded = append(f.recorded, inf)
	}))
	f.engine = NewEngine(f.store, f.gw, rec, Options{MuteRoleID: muteRole, Now: f.clock.Now})
	return f
}

func (f *fixture) infractions(t *testing.T) []models.Infraction {
	t.Helper()
	infs, err := f.store.ListInfractions(context.Background(), guildID, targetID)
	if err != nil {
		t.Fatalf("ListInfractions() error: %v", err)
	}
	return infs
}

func req() Request {
	return Request{GuildID: guildID, TargetID: targetID, ModeratorID: modID, ChannelID: "origin", Reason: "spam"}
}

func yes() *testutil.Confirmer { return &testutil.Confirmer{Answer: true} }

func TestMuteCreatesExpiryAndInfraction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.Mute(ctx, yes(), req(), "1h")
	if err != nil {
		t.Fatalf("Mute() error: %v", err)
	}
	if !res.Until.Equal(t0.Add(time.Hour)) {
		t.Errorf("Until = %v, want %v", res.Until, t0.Add(time.Hour))
	}
	if !f.gw.MemberHasRole(guildID, targetID, muteRole) {
		t.Error("mute role not granted")
	}

	mute, err := f.store.GetActiveMute(ctx, guildID, targetID)
	if err != nil || mute == nil {
		t.Fatalf("GetActiveMute() = %v, %v", mute, err)
	}
	if !mute.UnmuteAt.Equal(t0.Add(time.Hour)) || mute.ChannelID != "origin" {
		t.Errorf("active mute = %+v", mute)
	}

	infs := f.infractions(t)
	if len(infs) != 1 || infs[0].Kind != models.KindMute || infs[0].ModeratorID != modID {
		t.Fatalf("infractions = %+v", infs)
	}
	if len(f.recorded) != 1 {
		t.Errorf("sink received %d infractions, want 1", len(f.recorded))
	}
	if !res.DMSent || len(f.gw.DMs(targetID)) != 1 {
		t.Error("target should have been notified")
	}
}

func TestMuteAgainResetsTimer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Mute(ctx, yes(), req(), "1h"); err != nil {
		t.Fatalf("first Mute() error: %v", err)
	}
	f.clock.Advance(10 * time.Minute)
	if _, err := f.engine.Mute(ctx, yes(), req(), "2d"); err != nil {
		t.Fatalf("second Mute() error: %v", err)
	}

	mutes, err := f.store.ListGuildMutes(ctx, guildID)
	if err != nil {
		t.Fatalf("ListGuildMutes() error: %v", err)
	}
	if len(mutes) != 1 {
		t.Fatalf("got %d active mutes, want 1", len(mutes))
	}
	want := t0.Add(10*time.Minute + 48*time.Hour)
	if !mutes[0].UnmuteAt.Equal(want) {
		t.Errorf("UnmuteAt = %v, want %v", mutes[0].UnmuteAt, want)
	}
}

func TestMuteRejectsBeforeAnyChange(t *testing.T) {
	tests := []struct {
		name     string
		duration string
		confirm  *testutil.Confirmer
		setup    func(f *fixture)
		wantErr  error
	}{
		{"bad duration", "1y", yes(), nil, ErrInvalidDuration},
		{"cancelled", "1h", &testutil.Confirmer{Answer: false}, nil, ErrCancelled},
		{"member left", "1h", yes(), func(f *fixture) { f.gw.RemoveMember(guildID, targetID) }, discord.ErrMemberNotFound},
		{"role missing", "1h", yes(), func(f *fixture) { f.gw.RemoveRoleDefinition(guildID, muteRole) }, discord.ErrRoleNotFound},
		{"forbidden", "1h", yes(), func(f *fixture) { f.gw.SetError("AddRole", discord.ErrForbidden) }, discord.ErrForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.setup != nil {
				tt.setup(f)
			}

			_, err := f.engine.Mute(context.Background(), tt.confirm, req(), tt.duration)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Mute() error = %v, want %v", err, tt.wantErr)
			}

			mute, _ := f.store.GetActiveMute(context.Background(), guildID, targetID)
			if mute != nil {
				t.Error("no active mute should be stored")
			}
			if infs := f.infractions(t); len(infs) != 0 {
				t.Errorf("no infraction should be written, got %+v", infs)
			}
		})
	}
}

func TestMuteDMFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.gw.SetError("SendDM", discord.ErrDMClosed)

	res, err := f.engine.Mute(context.Background(), yes(), req(), "30m")
	if err != nil {
		t.Fatalf("Mute() error: %v", err)
	}
	if res.DMSent {
		t.Error("DMSent should be false")
	}
	if len(f.infractions(t)) != 1 {
		t.Error("infraction should still be written")
	}
}

func TestUnmute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Mute(ctx, yes(), req(), "1h"); err != nil {
		t.Fatalf("Mute() error: %v", err)
	}
	if _, err := f.engine.Unmute(ctx, yes(), req()); err != nil {
		t.Fatalf("Unmute() error: %v", err)
	}

	if f.gw.MemberHasRole(guildID, targetID, muteRole) {
		t.Error("mute role should be removed")
	}
	if mute, _ := f.store.GetActiveMute(ctx, guildID, targetID); mute != nil {
		t.Error("active mute should be deleted")
	}
	infs := f.infractions(t)
	if len(infs) != 2 || infs[0].Kind != models.KindUnmute {
		t.Errorf("infractions = %+v", infs)
	}
}

func TestUnmuteNotMutedIsNoop(t *testing.T) {
	f := newFixture(t)
	c := yes()

	_, err := f.engine.Unmute(context.Background(), c, req())
	if !errors.Is(err, ErrNotMuted) {
		t.Fatalf("Unmute() error = %v, want ErrNotMuted", err)
	}
	if len(c.Prompts) != 0 {
		t.Error("no confirmation should be requested")
	}
	if len(f.infractions(t)) != 0 {
		t.Error("no infraction should be written")
	}
}

func TestBanNotifiesWithAppealInstructions(t *testing.T) {
	f := newFixture(t)

	if _, err := f.engine.Ban(context.Background(), yes(), req()); err != nil {
		t.Fatalf("Ban() error: %v", err)
	}
	if days, ok := f.gw.Banned(guildID, targetID); !ok || days != 0 {
		t.Errorf("Banned() = %d, %v", days, ok)
	}
	dms := f.gw.DMs(targetID)
	if len(dms) != 1 || !strings.Contains(dms[0].Content, "!appeal") {
		t.Errorf("ban DM = %+v", dms)
	}
	infs := f.infractions(t)
	if len(infs) != 1 || infs[0].Kind != models.KindBan {
		t.Errorf("infractions = %+v", infs)
	}
}

func TestBanFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.gw.SetError("Ban", discord.ErrForbidden)

	if _, err := f.engine.Ban(context.Background(), yes(), req()); !errors.Is(err, discord.ErrForbidden) {
		t.Fatalf("Ban() error = %v", err)
	}
	if len(f.infractions(t)) != 0 {
		t.Error("a failed ban must not be recorded")
	}
}

func TestBanUserOutsideGuild(t *testing.T) {
	f := newFixture(t)
	f.gw.WithUser("outsider", "outsider")
	r := req()
	r.TargetID = "outsider"

	if _, err := f.engine.Ban(context.Background(), yes(), r); err != nil {
		t.Fatalf("Ban() error: %v", err)
	}
	if _, ok := f.gw.Banned(guildID, "outsider"); !ok {
		t.Error("outsider should be banned")
	}
}

func TestCleanBanDays(t *testing.T) {
	tests := []struct {
		days    int
		wantErr error
	}{
		{0, ErrInvalidDays},
		{8, ErrInvalidDays},
		{1, nil},
		{7, nil},
	}

	for _, tt := range tests {
		f := newFixture(t)
		_, err := f.engine.CleanBan(context.Background(), yes(), req(), tt.days)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("CleanBan(%d) error = %v, want %v", tt.days, err, tt.wantErr)
			continue
		}
		if tt.wantErr != nil {
			continue
		}
		if days, ok := f.gw.Banned(guildID, targetID); !ok || days != tt.days {
			t.Errorf("CleanBan(%d) banned with %d days", tt.days, days)
		}
		if infs := f.infractions(t); len(infs) != 1 || infs[0].Kind != models.KindCleanBan {
			t.Errorf("CleanBan(%d) infractions = %+v", tt.days, infs)
		}
	}
}

func TestKick(t *testing.T) {
	f := newFixture(t)

	if _, err := f.engine.Kick(context.Background(), yes(), req()); err != nil {
		t.Fatalf("Kick() error: %v", err)
	}
	if f.gw.HasMember(guildID, targetID) {
		t.Error("member should be gone")
	}
	if infs := f.infractions(t); len(infs) != 1 || infs[0].Kind != models.KindKick {
		t.Errorf("infractions = %+v", infs)
	}
}

func TestUnban(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.engine.Unban(ctx, req()); !errors.Is(err, discord.ErrBanNotFound) {
		t.Fatalf("Unban() of a user that is not banned: %v", err)
	}
	if _, err := f.engine.Ban(ctx, yes(), req()); err != nil {
		t.Fatalf("Ban() error: %v", err)
	}
	if _, err := f.engine.Unban(ctx, req()); err != nil {
		t.Fatalf("Unban() error: %v", err)
	}
	if infs := f.infractions(t); len(infs) != 2 || infs[0].Kind != models.KindUnban {
		t.Errorf("infractions = %+v", infs)
	}
}

func TestSelfTargetRejected(t *testing.T) {
	f := newFixture(t)
	r := req()
	r.TargetID = modID
	if _, err := f.engine.Warn(context.Background(), r); !errors.Is(err, ErrSelfTarget) {
		t.Errorf("Warn(self) error = %v", err)
	}
	r.TargetID = f.gw.BotID()
	if _, err := f.engine.Kick(context.Background(), yes(), r); !errors.Is(err, ErrSelfTarget) {
		t.Errorf("Kick(bot) error = %v", err)
	}
}

func TestSearchAndDeleteInfraction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.engine.Warn(ctx, req())
	if err != nil {
		t.Fatalf("Warn() error: %v", err)
	}
	found, err := f.engine.SearchInfractions(ctx, guildID, targetID)
	if err != nil || len(found) != 1 {
		t.Fatalf("SearchInfractions() = %+v, %v", found, err)
	}

	if ok, _ := f.engine.DeleteInfraction(ctx, "otra", res.Infraction.ID); ok {
		t.Error("deleting from another guild should not succeed")
	}
	if ok, err := f.engine.DeleteInfraction(ctx, guildID, res.Infraction.ID); err != nil || !ok {
		t.Errorf("DeleteInfraction() = %v, %v", ok, err)
	}
}
