package infractions

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

// storeSearcher adapts the store the way the moderation engine does.
type storeSearcher struct{ database.Store }

func (s storeSearcher) SearchInfractions(ctx context.Context, guildID, userID string) ([]models.Infraction, error) {
	return s.ListInfractions(ctx, guildID, userID)
}

func newHandlers(t *testing.T) (*handlers, database.Store) {
	t.Helper()
	store := testutil.NewStore(t)
	return &handlers{infractions: storeSearcher{store}, adminRole: "admin"}, store
}

func admin() *testutil.Responder {
	return &testutil.Responder{Actor: "mod", Roles: []string{"admin"}, Guild: "g"}
}

func TestSearchListsNewestFirst(t *testing.T) {
	h, store := newHandlers(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, kind := range []models.InfractionKind{models.KindWarn, models.KindMute, models.KindUnmute} {
		inf := &models.Infraction{GuildID: "g", UserID: "u", ModeratorID: "mod", Kind: kind, Timestamp: base.Add(time.Duration(i) * time.Hour)}
		if err := store.AddInfraction(ctx, inf); err != nil {
			t.Fatal(err)
		}
	}

	r := admin()
	h.search(ctx, r, &discordgo.User{ID: "u", Username: "ana"})

	embeds := r.Embeds()
	if len(embeds) != 1 {
		t.Fatalf("embeds = %d", len(embeds))
	}
	desc := embeds[0].Description
	if strings.Index(desc, "`unmute`") > strings.Index(desc, "`warn`") {
		t.Errorf("newest infraction should come first:\n%s", desc)
	}
	if !strings.Contains(desc, "**Cantidad de infracciones:** 3") {
		t.Errorf("description = %s", desc)
	}
}

func TestSearchEmptyHistory(t *testing.T) {
	h, _ := newHandlers(t)
	r := admin()

	h.search(context.Background(), r, &discordgo.User{ID: "u", Username: "ana"})

	if e := r.Embeds(); len(e) != 1 || !strings.Contains(e[0].Description, "No se encontraron infracciones") {
		t.Errorf("embeds = %+v", e)
	}
}

func TestListEmbedCapsEntries(t *testing.T) {
	list := make([]models.Infraction, maxListed+5)
	for i := range list {
		list[i] = models.Infraction{ID: int64(i + 1), Kind: models.KindWarn}
	}
	embed := listEmbed(&discordgo.User{ID: "u"}, list, time.Now())
	if !strings.Contains(embed.Description, "*... y 5 más*") {
		t.Errorf("description = %s", embed.Description)
	}
}

func TestRemove(t *testing.T) {
	h, store := newHandlers(t)
	ctx := context.Background()
	inf := &models.Infraction{GuildID: "g", UserID: "u", ModeratorID: "mod", Kind: models.KindWarn}
	if err := store.AddInfraction(ctx, inf); err != nil {
		t.Fatal(err)
	}

	other := &testutil.Responder{Actor: "mod", Roles: []string{"admin"}, Guild: "other"}
	h.remove(ctx, other, inf.ID)
	if !other.Said("No existe el caso") {
		t.Errorf("deleting from another guild: %v", other.Replies())
	}

	r := admin()
	h.remove(ctx, r, inf.ID)
	if !r.Said("eliminado") {
		t.Errorf("replies = %v", r.Replies())
	}
	if list, _ := store.ListInfractions(ctx, "g", "u"); len(list) != 0 {
		t.Errorf("infraction still stored: %+v", list)
	}
}

func TestRemoveRequiresAdmin(t *testing.T) {
	h, _ := newHandlers(t)
	r := &testutil.Responder{Actor: "x", Guild: "g"}

	h.remove(context.Background(), r, 1)

	if !r.Said("No tienes permiso") {
		t.Errorf("replies = %v", r.Replies())
	}
}
