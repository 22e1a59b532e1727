package appeal

import (
	"context"
	"testing"
)

func TestRegistryReserveAndAttach(t *testing.T) {
	r := NewRegistry()

	if !r.Reserve("u1") {
		t.Fatal("first Reserve() should succeed")
	}
	if r.Reserve("u1") {
		t.Fatal("second Reserve() must be rejected")
	}
	if len(r.All()) != 0 {
		t.Error("reservations are not listed as sessions")
	}

	_, cancel := context.WithCancel(context.Background())
	s := r.Attach("u1", "c1", cancel, make(chan struct{}))
	if s == nil {
		t.Fatal("Attach() over a reservation should succeed")
	}
	if r.Attach("u1", "c2", cancel, make(chan struct{})) != nil {
		t.Error("Attach() over a running relay must fail")
	}

	r.Release("u1")
	if !r.Has("u1") {
		t.Error("Release() must not drop an attached session")
	}
	if id, ok := r.ByChannel("c1"); !ok || id != "u1" {
		t.Errorf("ByChannel() = %q, %v", id, ok)
	}
}

func TestRegistryRemoveIfOnlyRemovesSameSession(t *testing.T) {
	r := NewRegistry()
	old := r.Attach("u1", "c1", func() {}, make(chan struct{}))
	r.Remove("u1")
	fresh := r.Attach("u1", "c2", func() {}, make(chan struct{}))

	r.removeIf("u1", old)
	if !r.Has("u1") {
		t.Fatal("an old relay exiting must not remove the new session")
	}
	r.removeIf("u1", fresh)
	if r.Has("u1") {
		t.Error("removeIf() should remove the matching session")
	}
}

func TestRegistryCancelAll(t *testing.T) {
	r := NewRegistry()
	cancelled := 0
	r.Attach("u1", "c1", func() { cancelled++ }, make(chan struct{}))
	r.Attach("u2", "c2", func() { cancelled++ }, make(chan struct{}))
	r.Reserve("u3")

	r.CancelAll()
	if cancelled != 2 {
		t.Errorf("cancelled = %d, want 2", cancelled)
	}
	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0", r.Len())
	}
}

func TestUserIDFromTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
		ok    bool
	}{
		{"Apelación de ban de pancy (123456)", "123456", true},
		{"Ban appeal for pancy#0001 (987)", "987", true},
		{"Apelación de ban de (raro) nombre (42)", "42", true},
		{"Canal general (123)", "", false},
		{"Apelación de ban de pancy", "", false},
		{"Apelación de ban de pancy (abc)", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := userIDFromTopic(tt.topic)
		if got != tt.want || ok != tt.ok {
			t.Errorf("userIDFromTopic(%q) = %q, %v, want %q, %v", tt.topic, got, ok, tt.want, tt.ok)
		}
	}
}

func TestChannelName(t *testing.T) {
	tests := map[string]string{
		"Pancy":      "pancy-ban-appeal",
		"juan.perez": "juan-perez-ban-appeal",
		"__x__":      "__x__-ban-appeal",
		"✨✨":         "usuario-ban-appeal",
	}
	for in, want := range tests {
		if got := channelName(in); got != want {
			t.Errorf("channelName(%q) = %q, want %q", in, got, want)
		}
	}
}
