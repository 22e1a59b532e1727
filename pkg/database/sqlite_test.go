package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenSQLiteIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mod.db")
	for i := 0; i < 2; i++ {
		s, err := OpenSQLite(path)
		if err != nil {
			t.Fatalf("OpenSQLite() #%d error: %v", i, err)
		}
		s.Close()
	}
}

func TestUpsertActiveMuteReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	first := models.ActiveMute{UserID: "u1", GuildID: "g1", UnmuteAt: t0.Add(time.Hour), ChannelID: "c1"}
	second := models.ActiveMute{UserID: "u1", GuildID: "g1", UnmuteAt: t0.Add(2 * time.Hour), ChannelID: "c2"}

	if err := s.UpsertActiveMute(ctx, first); err != nil {
		t.Fatalf("UpsertActiveMute() error: %v", err)
	}
	if err := s.UpsertActiveMute(ctx, second); err != nil {
		t.Fatalf("UpsertActiveMute() error: %v", err)
	}

	mutes, err := s.ListActiveMutes(ctx)
	if err != nil {
		t.Fatalf("ListActiveMutes() error: %v", err)
	}
	if len(mutes) != 1 {
		t.Fatalf("len(mutes) = %d, want 1", len(mutes))
	}
	if !mutes[0].UnmuteAt.Equal(second.UnmuteAt) {
		t.Errorf("UnmuteAt = %v, want %v", mutes[0].UnmuteAt, second.UnmuteAt)
	}
	if mutes[0].ChannelID != "c2" {
		t.Errorf("ChannelID = %q, want c2", mutes[0].ChannelID)
	}
}

func TestActiveMuteLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.GetActiveMute(ctx, "g1", "u1")
	if err != nil || got != nil {
		t.Fatalf("GetActiveMute() on empty store = %v, %v; want nil, nil", got, err)
	}

	at := time.Now().Add(time.Minute).Truncate(time.Second)
	_ = s.UpsertActiveMute(ctx, models.ActiveMute{UserID: "u1", GuildID: "g1", UnmuteAt: at})
	_ = s.UpsertActiveMute(ctx, models.ActiveMute{UserID: "u2", GuildID: "g2", UnmuteAt: at})

	got, err = s.GetActiveMute(ctx, "g1", "u1")
	if err != nil || got == nil {
		t.Fatalf("GetActiveMute() = %v, %v", got, err)
	}
	if !got.UnmuteAt.Equal(at) {
		t.Errorf("UnmuteAt = %v, want %v", got.UnmuteAt, at)
	}

	guild, _ := s.ListGuildMutes(ctx, "g2")
	if len(guild) != 1 || guild[0].UserID != "u2" {
		t.Errorf("ListGuildMutes(g2) = %+v", guild)
	}

	if err := s.DeleteActiveMute(ctx, "g1", "u1"); err != nil {
		t.Fatalf("DeleteActiveMute() error: %v", err)
	}
	// Deleting twice is a no-op.
	if err := s.DeleteActiveMute(ctx, "g1", "u1"); err != nil {
		t.Fatalf("DeleteActiveMute() second call error: %v", err)
	}
	got, _ = s.GetActiveMute(ctx, "g1", "u1")
	if got != nil {
		t.Error("mute should be gone after delete")
	}
}

func TestInfractions(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	kinds := []models.InfractionKind{models.KindWarn, models.KindMute, models.KindUnmute}
	for _, k := range kinds {
		inf := &models.Infraction{UserID: "u1", GuildID: "g1", Kind: k, ModeratorID: "m1", Reason: "spam"}
		if err := s.AddInfraction(ctx, inf); err != nil {
			t.Fatalf("AddInfraction() error: %v", err)
		}
		if inf.ID == 0 {
			t.Fatal("AddInfraction() should assign an id")
		}
	}
	_ = s.AddInfraction(ctx, &models.Infraction{UserID: "u1", GuildID: "other", Kind: models.KindBan, ModeratorID: "m1"})

	list, err := s.ListInfractions(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("ListInfractions() error: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	if list[0].Kind != models.KindUnmute {
		t.Errorf("newest infraction = %s, want unmute", list[0].Kind)
	}

	// Deleting with the wrong guild must not touch the row.
	removed, err := s.DeleteInfraction(ctx, "other", list[0].ID)
	if err != nil || removed {
		t.Fatalf("DeleteInfraction(other guild) = %v, %v; want false, nil", removed, err)
	}
	removed, err = s.DeleteInfraction(ctx, "g1", list[0].ID)
	if err != nil || !removed {
		t.Fatalf("DeleteInfraction() = %v, %v; want true, nil", removed, err)
	}
	list, _ = s.ListInfractions(ctx, "g1", "u1")
	if len(list) != 2 {
		t.Errorf("len(list) after delete = %d, want 2", len(list))
	}
}

func TestBirthdays(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.SetBirthday(ctx, models.Birthday{UserID: "u1", Date: "05-04", Timezone: "Europe/Madrid"})
	_ = s.SetBirthday(ctx, models.Birthday{UserID: "u2", Date: "05-20", Timezone: "UTC"})
	_ = s.SetBirthday(ctx, models.Birthday{UserID: "u3", Date: "11-02", Timezone: "UTC"})

	if err := s.MarkBirthdayTriggered(ctx, "u1", "2026-05-04"); err != nil {
		t.Fatalf("MarkBirthdayTriggered() error: %v", err)
	}
	b, _ := s.GetBirthday(ctx, "u1")
	if b == nil || b.LastTriggered != "2026-05-04" {
		t.Fatalf("GetBirthday() = %+v, want LastTriggered 2026-05-04", b)
	}

	// Re-submitting the same date and zone keeps the trigger guard.
	_ = s.SetBirthday(ctx, models.Birthday{UserID: "u1", Date: "05-04", Timezone: "Europe/Madrid"})
	b, _ = s.GetBirthday(ctx, "u1")
	if b.LastTriggered != "2026-05-04" {
		t.Fatalf("LastTriggered after same-date update = %q, want 2026-05-04", b.LastTriggered)
	}

	// A new zone resets it.
	_ = s.SetBirthday(ctx, models.Birthday{UserID: "u1", Date: "05-04", Timezone: "UTC"})
	b, _ = s.GetBirthday(ctx, "u1")
	if b.LastTriggered != "" {
		t.Fatalf("LastTriggered after zone change = %q, want empty", b.LastTriggered)
	}
	_ = s.MarkBirthdayTriggered(ctx, "u1", "2026-05-04")

	// Updating the birthday resets the trigger guard.
	_ = s.SetBirthday(ctx, models.Birthday{UserID: "u1", Date: "05-05", Timezone: "Europe/Madrid"})
	b, _ = s.GetBirthday(ctx, "u1")
	if b.Date != "05-05" || b.LastTriggered != "" {
		t.Errorf("after update = %+v", b)
	}

	may, err := s.ListBirthdaysByMonth(ctx, time.May)
	if err != nil {
		t.Fatalf("ListBirthdaysByMonth() error: %v", err)
	}
	if len(may) != 2 {
		t.Errorf("len(may) = %d, want 2", len(may))
	}

	removed, _ := s.DeleteBirthday(ctx, "u3")
	if !removed {
		t.Error("DeleteBirthday() should report removal")
	}
	removed, _ = s.DeleteBirthday(ctx, "u3")
	if removed {
		t.Error("DeleteBirthday() twice should report no removal")
	}
}

func TestBirthdayChannelAndRoles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ch, err := s.GetBirthdayChannel(ctx, "g1")
	if err != nil || ch != "" {
		t.Fatalf("GetBirthdayChannel() on empty = %q, %v", ch, err)
	}
	_ = s.SetBirthdayChannel(ctx, "g1", "c1")
	_ = s.SetBirthdayChannel(ctx, "g1", "c2")
	ch, _ = s.GetBirthdayChannel(ctx, "g1")
	if ch != "c2" {
		t.Errorf("GetBirthdayChannel() = %q, want c2", ch)
	}
	settings, _ := s.ListBirthdayChannels(ctx)
	if len(settings) != 1 {
		t.Errorf("len(settings) = %d, want 1", len(settings))
	}

	granted := time.Now().UTC().Truncate(time.Second)
	_ = s.UpsertBirthdayRole(ctx, models.ActiveBirthdayRole{UserID: "u1", GuildID: "g1", GrantedAt: granted})
	_ = s.UpsertBirthdayRole(ctx, models.ActiveBirthdayRole{UserID: "u1", GuildID: "g1", GrantedAt: granted.Add(time.Minute)})
	roles, _ := s.ListBirthdayRoles(ctx)
	if len(roles) != 1 {
		t.Fatalf("len(roles) = %d, want 1", len(roles))
	}
	if !roles[0].GrantedAt.Equal(granted.Add(time.Minute)) {
		t.Errorf("GrantedAt = %v", roles[0].GrantedAt)
	}
	_ = s.DeleteBirthdayRole(ctx, "g1", "u1")
	roles, _ = s.ListBirthdayRoles(ctx)
	if len(roles) != 0 {
		t.Errorf("len(roles) after delete = %d, want 0", len(roles))
	}
}

func TestLogChannels(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_ = s.SetLogChannel(ctx, models.LogConfig{GuildID: "g1", LogType: "ban", ChannelID: "c1"})
	_ = s.SetLogChannel(ctx, models.LogConfig{GuildID: "g1", LogType: "ban", ChannelID: "c2"})
	_ = s.SetLogChannel(ctx, models.LogConfig{GuildID: "g1", LogType: "mute", ChannelID: "c3"})
	_ = s.SetLogChannel(ctx, models.LogConfig{GuildID: "g2", LogType: "ban", ChannelID: "c4"})

	ch, _ := s.GetLogChannel(ctx, "g1", "ban")
	if ch != "c2" {
		t.Errorf("GetLogChannel() = %q, want c2", ch)
	}
	list, _ := s.ListLogChannels(ctx, "g1")
	if len(list) != 2 {
		t.Errorf("len(ListLogChannels) = %d, want 2", len(list))
	}
	all, _ := s.ListAllLogChannels(ctx)
	if len(all) != 3 {
		t.Errorf("len(ListAllLogChannels) = %d, want 3", len(all))
	}

	removed, _ := s.DeleteLogChannel(ctx, "g1", "ban")
	if !removed {
		t.Error("DeleteLogChannel() should report removal")
	}
	ch, _ = s.GetLogChannel(ctx, "g1", "ban")
	if ch != "" {
		t.Errorf("GetLogChannel() after delete = %q", ch)
	}
}

func TestSuggestionStatusCompareAndSet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sug := &models.Suggestion{UserID: "u1", Text: "más emojis", ChannelID: "c1"}
	if err := s.AddSuggestion(ctx, sug); err != nil {
		t.Fatalf("AddSuggestion() error: %v", err)
	}
	if sug.Status != models.SuggestionPending {
		t.Errorf("Status = %s, want Pending", sug.Status)
	}

	ok, err := s.UpdateSuggestionStatus(ctx, sug.ID, models.SuggestionApproved, models.SuggestionCompleted)
	if err != nil || ok {
		t.Fatalf("completing a pending suggestion = %v, %v; want false", ok, err)
	}
	ok, _ = s.UpdateSuggestionStatus(ctx, sug.ID, models.SuggestionPending, models.SuggestionApproved)
	if !ok {
		t.Fatal("approving a pending suggestion should succeed")
	}
	ok, _ = s.UpdateSuggestionStatus(ctx, sug.ID, models.SuggestionApproved, models.SuggestionCompleted)
	if !ok {
		t.Fatal("completing an approved suggestion should succeed")
	}

	got, _ := s.GetSuggestion(ctx, sug.ID)
	if got == nil || got.Status != models.SuggestionCompleted {
		t.Errorf("GetSuggestion() = %+v", got)
	}
	missing, err := s.GetSuggestion(ctx, 999)
	if err != nil || missing != nil {
		t.Errorf("GetSuggestion(999) = %v, %v", missing, err)
	}

	_ = s.AddSuggestion(ctx, &models.Suggestion{UserID: "u2", Text: "otra"})
	all, _ := s.ListSuggestions(ctx)
	if len(all) != 2 || all[0].UserID != "u2" {
		t.Errorf("ListSuggestions() should be newest first, got %+v", all)
	}
}

func TestSQLiteStatus(t *testing.T) {
	s := newTestStore(t)
	if _, ok := s.Status(); !ok {
		t.Error("Status() should report an open database as usable")
	}
}
