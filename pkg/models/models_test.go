package models

import (
	"testing"
	"time"
)

func TestParseMonthDay(t *testing.T) {
	tests := []struct {
		in      string
		month   time.Month
		day     int
		wantErr bool
	}{
		{"01-15", time.January, 15, false},
		{"12-31", time.December, 31, false},
		{"02-29", time.February, 29, false},
		{"02-30", 0, 0, true},
		{"04-31", 0, 0, true},
		{"13-01", 0, 0, true},
		{"00-10", 0, 0, true},
		{"1-5", 0, 0, true},
		{"01/05", 0, 0, true},
		{"ab-cd", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			month, day, err := ParseMonthDay(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseMonthDay(%q) expected error", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMonthDay(%q) unexpected error: %v", tt.in, err)
			}
			if month != tt.month || day != tt.day {
				t.Errorf("ParseMonthDay(%q) = %v-%d, want %v-%d", tt.in, month, day, tt.month, tt.day)
			}
		})
	}
}

func TestActiveMuteDueIsInclusive(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := ActiveMute{UnmuteAt: at}

	if m.Due(at.Add(-time.Nanosecond)) {
		t.Error("mute should not be due before its unmute time")
	}
	if !m.Due(at) {
		t.Error("mute should be due exactly at its unmute time")
	}
	if !m.Due(at.Add(time.Second)) {
		t.Error("mute should be due after its unmute time")
	}
}

func TestBirthdayRoleExpired(t *testing.T) {
	granted := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	r := ActiveBirthdayRole{GrantedAt: granted}

	if r.Expired(granted.Add(23 * time.Hour)) {
		t.Error("role should not expire before 24h")
	}
	if !r.Expired(granted.Add(24 * time.Hour)) {
		t.Error("role should expire at exactly 24h")
	}
}

func TestSuggestionTransitions(t *testing.T) {
	tests := []struct {
		from, to SuggestionStatus
		want     bool
	}{
		{SuggestionPending, SuggestionApproved, true},
		{SuggestionPending, SuggestionDenied, true},
		{SuggestionPending, SuggestionCompleted, false},
		{SuggestionApproved, SuggestionCompleted, true},
		{SuggestionApproved, SuggestionDenied, false},
		{SuggestionDenied, SuggestionApproved, false},
		{SuggestionCompleted, SuggestionPending, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestInfractionKindValid(t *testing.T) {
	for _, k := range InfractionKinds {
		if !k.Valid() {
			t.Errorf("%s should be valid", k)
		}
	}
	if InfractionKind("timeout").Valid() {
		t.Error("unknown kind should be invalid")
	}
}
