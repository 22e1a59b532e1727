package suggestions

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

type fixture struct {
	h       *handlers
	store   database.Store
	gateway *testutil.Gateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := testutil.NewStore(t)
	gw := testutil.NewGateway()
	clock := testutil.NewClock(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	return &fixture{
		h:       &handlers{store: store, notify: gw, adminID: "boss", now: clock.Now},
		store:   store,
		gateway: gw,
	}
}

func (f *fixture) submit(t *testing.T, text string) int64 {
	t.Helper()
	r := &testutil.Responder{Actor: "u1", Channel: "general"}
	f.h.submit(context.Background(), r, text)
	list, err := f.store.ListSuggestions(context.Background())
	if err != nil || len(list) == 0 {
		t.Fatalf("ListSuggestions() = %v, %v", list, err)
	}
	return list[0].ID
}

func TestSubmitNotifiesAdmin(t *testing.T) {
	f := newFixture(t)
	r := &testutil.Responder{Actor: "u1", Channel: "general"}

	f.h.submit(context.Background(), r, "  más emojis  ")

	if !r.Said("ID: **1**") || !r.Said("> más emojis") {
		t.Errorf("replies = %v", r.Replies())
	}
	dms := f.gateway.DMs("boss")
	if len(dms) != 1 {
		t.Fatalf("admin DMs = %d, want 1", len(dms))
	}
	if dms[0].Embeds[0].Description != "más emojis" {
		t.Errorf("embed = %+v", dms[0].Embeds[0])
	}
	row := dms[0].Components[0].(discordgo.ActionsRow)
	if id := row.Components[0].(discordgo.Button).CustomID; id != "suggestion:1:approve" {
		t.Errorf("approve custom id = %q", id)
	}
}

func TestSubmitRejectsEmpty(t *testing.T) {
	f := newFixture(t)
	r := &testutil.Responder{Actor: "u1"}

	f.h.submit(context.Background(), r, "   ")

	if !r.Said("no puede estar vacía") {
		t.Errorf("replies = %v", r.Replies())
	}
	if len(f.gateway.DMs("boss")) != 0 {
		t.Error("admin was notified of an empty suggestion")
	}
}

func TestReview(t *testing.T) {
	tests := []struct {
		name      string
		presser   string
		to        models.SuggestionStatus
		wantDone  bool
		wantReply string
		wantState models.SuggestionStatus
	}{
		{"approve", "boss", models.SuggestionApproved, true, "aprobada", models.SuggestionApproved},
		{"deny", "boss", models.SuggestionDenied, true, "rechazada", models.SuggestionDenied},
		{"not admin", "u2", models.SuggestionApproved, false, "No puedes revisar", models.SuggestionPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			id := f.submit(t, "idea")

			reply, done := f.h.review(context.Background(), tt.presser, id, tt.to)
			if done != tt.wantDone || !strings.Contains(reply, tt.wantReply) {
				t.Errorf("review() = %q, %v", reply, done)
			}
			sug, _ := f.store.GetSuggestion(context.Background(), id)
			if sug.Status != tt.wantState {
				t.Errorf("status = %s, want %s", sug.Status, tt.wantState)
			}
			if tt.wantDone {
				if len(f.gateway.DMs("u1")) != 1 || len(f.gateway.SentTo("general")) != 1 {
					t.Errorf("author dms = %d, channel posts = %d", len(f.gateway.DMs("u1")), len(f.gateway.SentTo("general")))
				}
			}
		})
	}
}

func TestReviewTwice(t *testing.T) {
	f := newFixture(t)
	id := f.submit(t, "idea")

	if _, done := f.h.review(context.Background(), "boss", id, models.SuggestionApproved); !done {
		t.Fatal("first review failed")
	}
	reply, done := f.h.review(context.Background(), "boss", id, models.SuggestionDenied)
	if done || !strings.Contains(reply, "ya fue revisada (aprobada)") {
		t.Errorf("second review = %q, %v", reply, done)
	}
}

func TestCompleteRequiresApproval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.submit(t, "idea")
	admin := &testutil.Responder{Actor: "boss"}

	f.h.complete(ctx, admin, id)
	if !admin.Said("debe estar aprobada") {
		t.Errorf("replies = %v", admin.Replies())
	}

	f.h.review(ctx, "boss", id, models.SuggestionApproved)
	f.h.complete(ctx, admin, id)
	if !admin.Said("marcada como completada") {
		t.Errorf("replies = %v", admin.Replies())
	}
	sug, _ := f.store.GetSuggestion(ctx, id)
	if sug.Status != models.SuggestionCompleted {
		t.Errorf("status = %s", sug.Status)
	}

	f.h.complete(ctx, admin, 99)
	if !admin.Said("no encontrada") {
		t.Errorf("replies = %v", admin.Replies())
	}

	other := &testutil.Responder{Actor: "u1"}
	f.h.complete(ctx, other, id)
	if !other.Said("No tienes permiso") {
		t.Errorf("replies = %v", other.Replies())
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "primera")
	f.submit(t, strings.Repeat("x", 150))

	r := &testutil.Responder{Actor: "boss"}
	f.h.list(context.Background(), r)

	embeds := r.Embeds()
	if len(embeds) != 1 || len(embeds[0].Fields) != 2 {
		t.Fatalf("embeds = %+v", embeds)
	}
	if !strings.HasPrefix(embeds[0].Fields[0].Name, "ID: 2") {
		t.Errorf("newest first, got %q", embeds[0].Fields[0].Name)
	}
	if !strings.HasSuffix(embeds[0].Fields[0].Value, "...") {
		t.Errorf("long text not truncated: %q", embeds[0].Fields[0].Value)
	}
}

func TestParseButtonID(t *testing.T) {
	tests := []struct {
		in     string
		id     int64
		status models.SuggestionStatus
		ok     bool
	}{
		{"suggestion:4:approve", 4, models.SuggestionApproved, true},
		{"suggestion:4:deny", 4, models.SuggestionDenied, true},
		{"suggestion:x:deny", 0, "", false},
		{"suggestion:4:complete", 0, "", false},
		{"confirm:4:approve", 0, "", false},
	}
	for _, tt := range tests {
		id, status, ok := parseButtonID(tt.in)
		if id != tt.id || status != tt.status || ok != tt.ok {
			t.Errorf("parseButtonID(%q) = %d, %q, %v", tt.in, id, status, ok)
		}
	}
}
