package logs

import (
	"context"
	"strings"
	"testing"

	"github.com/PancyStudios/PancyModGo/internal/testutil"
	"github.com/PancyStudios/PancyModGo/pkg/database"
)

func newHandlers(t *testing.T) (*handlers, *database.LogChannelCache) {
	t.Helper()
	store := testutil.NewStore(t)
	cache := database.NewLogChannelCache(store)
	return &handlers{channels: cache, lister: store, adminRole: "admin"}, cache
}

func admin() *testutil.Responder {
	return &testutil.Responder{Actor: "mod", Roles: []string{"admin"}, Guild: "g"}
}

func TestSetRoutesThroughCache(t *testing.T) {
	h, cache := newHandlers(t)
	r := admin()

	h.set(context.Background(), r, " Message_Delete ", "c1")

	if ch, ok := cache.Channel("g", "message_delete"); !ok || ch != "c1" {
		t.Errorf("Channel() = %q, %v", ch, ok)
	}
	if !r.Said("<#c1>") {
		t.Errorf("replies = %v", r.Replies())
	}
}

func TestSetRejectsUnknownType(t *testing.T) {
	h, cache := newHandlers(t)
	r := admin()

	h.set(context.Background(), r, "everything", "c1")

	if !r.Said("Tipo de log desconocido") {
		t.Errorf("replies = %v", r.Replies())
	}
	if cache.Size() != 0 {
		t.Errorf("cache size = %d", cache.Size())
	}
}

func TestRequiresAdmin(t *testing.T) {
	h, cache := newHandlers(t)
	r := &testutil.Responder{Actor: "u", Guild: "g"}

	h.set(context.Background(), r, "ban", "c1")
	h.remove(context.Background(), r, "ban")
	h.list(context.Background(), r)

	if n := len(r.Replies()); n != 3 || !r.Said("No tienes permiso") {
		t.Errorf("replies = %v", r.Replies())
	}
	if cache.Size() != 0 {
		t.Errorf("cache size = %d", cache.Size())
	}
}

func TestRemoveAndList(t *testing.T) {
	h, cache := newHandlers(t)
	ctx := context.Background()
	r := admin()

	h.set(ctx, r, "ban", "c1")
	h.set(ctx, r, "warn", "c2")

	h.list(ctx, r)
	embeds := r.Embeds()
	if len(embeds) != 1 || !strings.Contains(embeds[0].Description, "`warn` → <#c2>") {
		t.Fatalf("embeds = %+v", embeds)
	}

	h.remove(ctx, r, "ban")
	if _, ok := cache.Channel("g", "ban"); ok {
		t.Error("ban route still cached")
	}
	h.remove(ctx, r, "ban")
	if !r.Said("no tenía canal asignado") {
		t.Errorf("replies = %v", r.Replies())
	}
}

func TestTypeChoices(t *testing.T) {
	got := typeChoices("voice")
	if len(got) != 3 {
		t.Fatalf("typeChoices(voice) = %d choices, want 3", len(got))
	}
	if n := len(typeChoices("")); n != 25 {
		t.Errorf("typeChoices(\"\") = %d, want 25", n)
	}
}
