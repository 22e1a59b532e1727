package moderation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/PancyModGo/pkg/database"
	"github.com/PancyStudios/PancyModGo/pkg/errors"
	"github.com/PancyStudios/PancyModGo/pkg/models"
)

// Sink receives every infraction after it has been stored.
type Sink interface {
	OnInfraction(ctx context.Context, inf models.Infraction)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, inf models.Infraction)

func (f SinkFunc) OnInfraction(ctx context.Context, inf models.Infraction) { f(ctx, inf) }

// Recorder is the single writer of infraction rows. Manual actions and the
// expiry scheduler both go through it so every change of standing produces
// exactly one row.
type Recorder struct {
	store database.Store
	now   func() time.Time

	mu    sync.RWMutex
	sinks []Sink
}

// NewRecorder creates a recorder writing to store.
func NewRecorder(store database.Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

// AddSink registers a sink notified after each successful write.
func (r *Recorder) AddSink(s Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sinks = append(r.sinks, s)
}

// Record stores inf, filling the timestamp when it is zero, and fans it out
// to the sinks. Sinks are not called when the write fails.
func (r *Recorder) Record(ctx context.Context, inf *models.Infraction) error {
	if !inf.Kind.Valid() {
		return fmt.Errorf("tipo de infracción inválido: %q", inf.Kind)
	}
	if inf.Timestamp.IsZero() {
		inf.Timestamp = r.now().UTC()
	}
	if err := r.store.AddInfraction(ctx, inf); err != nil {
		return fmt.Errorf("registrar infracción: %w", err)
	}

	r.mu.RLock()
	sinks := append([]Sink(nil), r.sinks...)
	r.mu.RUnlock()

	for _, s := range sinks {
		func() {
			defer errors.RecoverMiddleware()()
			s.OnInfraction(ctx, *inf)
		}()
	}
	return nil
}
