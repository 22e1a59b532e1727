package discord

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
)

type fakePrompt struct {
	owner   string
	mu      sync.Mutex
	sent    []string
	cleared []string
	ids     chan string
}

func newFakePrompt(owner string) *fakePrompt {
	return &fakePrompt{owner: owner, ids: make(chan string, 1)}
}

func (f *fakePrompt) ActorID() string { return f.owner }

func (f *fakePrompt) SendPrompt(content string, components []discordgo.MessageComponent) error {
	f.mu.Lock()
	f.sent = append(f.sent, content)
	f.mu.Unlock()

	row := components[0].(discordgo.ActionsRow)
	yes := row.Components[0].(discordgo.Button).CustomID
	id, _, _ := parseConfirmID(yes)
	f.ids <- id
	return nil
}

func (f *fakePrompt) ClearPrompt(content string) error {
	f.mu.Lock()
	f.cleared = append(f.cleared, content)
	f.mu.Unlock()
	return nil
}

func TestConfirmOwnerAnswers(t *testing.T) {
	tests := []struct {
		name string
		yes  bool
	}{
		{"yes", true},
		{"no", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewConfirmRegistry(time.Second)
			target := newFakePrompt("mod")

			result := make(chan bool, 1)
			go func() {
				ok, _ := r.Ask(context.Background(), target, "¿Banear?")
				result <- ok
			}()

			id := <-target.ids
			if got := r.resolve(id, "mod", tt.yes); got != resolveAccepted {
				t.Fatalf("resolve() = %v, want accepted", got)
			}

			select {
			case ok := <-result:
				if ok != tt.yes {
					t.Errorf("Ask() = %v, want %v", ok, tt.yes)
				}
			case <-time.After(time.Second):
				t.Fatal("Ask() did not return")
			}
			if r.Pending() != 0 {
				t.Errorf("Pending() = %d, want 0", r.Pending())
			}
		})
	}
}

func TestConfirmRejectsOtherUsers(t *testing.T) {
	r := NewConfirmRegistry(50 * time.Millisecond)
	target := newFakePrompt("mod")

	result := make(chan bool, 1)
	go func() {
		ok, _ := r.Ask(context.Background(), target, "¿Expulsar?")
		result <- ok
	}()

	id := <-target.ids
	if got := r.resolve(id, "intruso", true); got != resolveRejected {
		t.Fatalf("resolve() by another user = %v, want rejected", got)
	}

	// The intruder's press must not decide anything; the prompt times out.
	select {
	case ok := <-result:
		if ok {
			t.Error("Ask() should not confirm after a foreign press")
		}
	case <-time.After(time.Second):
		t.Fatal("Ask() did not time out")
	}

	target.mu.Lock()
	defer target.mu.Unlock()
	if len(target.cleared) != 1 || !strings.Contains(target.cleared[0], "tiempo") {
		t.Errorf("cleared = %v, want a timeout notice", target.cleared)
	}
}

func TestConfirmUnknownID(t *testing.T) {
	r := NewConfirmRegistry(time.Second)
	if got := r.resolve("missing", "mod", true); got != resolveUnknown {
		t.Errorf("resolve() = %v, want unknown", got)
	}
}

func TestConfirmContextCancel(t *testing.T) {
	r := NewConfirmRegistry(time.Minute)
	target := newFakePrompt("mod")
	ctx, cancel := context.WithCancel(context.Background())

	errc := make(chan error, 1)
	go func() {
		_, err := r.Ask(ctx, target, "¿Silenciar?")
		errc <- err
	}()
	<-target.ids
	cancel()

	select {
	case err := <-errc:
		if err == nil {
			t.Error("Ask() should return the context error")
		}
	case <-time.After(time.Second):
		t.Fatal("Ask() ignored cancellation")
	}
}

func TestParseConfirmID(t *testing.T) {
	tests := []struct {
		in     string
		id     string
		yes    bool
		wantOK bool
	}{
		{"confirm:abc:yes", "abc", true, true},
		{"confirm:abc:no", "abc", false, true},
		{"confirm:abc:maybe", "", false, false},
		{"suggestion:approve:1", "", false, false},
		{"confirm:abc", "", false, false},
	}
	for _, tt := range tests {
		id, yes, ok := parseConfirmID(tt.in)
		if id != tt.id || yes != tt.yes || ok != tt.wantOK {
			t.Errorf("parseConfirmID(%q) = %q, %v, %v", tt.in, id, yes, ok)
		}
	}
}
