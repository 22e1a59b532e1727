package sysinfo

import (
	"context"
	"testing"
)

func TestCollect(t *testing.T) {
	snap := Collect(context.Background())

	if snap.GoVersion == "" {
		t.Error("GoVersion is empty")
	}
	if snap.Goroutines < 1 {
		t.Errorf("Goroutines = %d", snap.Goroutines)
	}
	if snap.CPUs < 1 {
		t.Errorf("CPUs = %d", snap.CPUs)
	}
	if snap.HeapAlloc == 0 {
		t.Error("HeapAlloc is zero")
	}
}

func TestMB(t *testing.T) {
	if got := MB(3 * 1024 * 1024); got != 3 {
		t.Errorf("MB() = %v, want 3", got)
	}
}
