package moderation

import (
	"errors"
	"testing"
	"time"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"1w", 7 * 24 * time.Hour, false},
		{"5d", 5 * 24 * time.Hour, false},
		{"48h", 48 * time.Hour, false},
		{"30m", 30 * time.Minute, false},
		{"2H", 2 * time.Hour, false},
		{" 1h ", time.Hour, false},
		{"0h", 0, true},
		{"h", 0, true},
		{"10", 0, true},
		{"1y", 0, true},
		{"1h30m", 0, true},
		{"-1h", 0, true},
		{"99999999999999999999w", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidDuration) {
					t.Errorf("ParseDuration(%q) error = %v, want ErrInvalidDuration", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDuration(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseDuration(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}
