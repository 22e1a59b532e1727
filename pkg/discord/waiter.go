package discord

import (
	"context"
	"sync"

	"github.com/PancyStudios/PancyModGo/pkg/logger"
	"github.com/bwmarrin/discordgo"
)

// MessageFilter selects the messages a waiter is interested in.
type MessageFilter func(m *discordgo.Message) bool

type subscription struct {
	filter MessageFilter
	ch     chan *discordgo.Message
}

// MessageWaiter fans incoming messages out to goroutines waiting for a reply
// (appeal reason prompts, relay loops).
type MessageWaiter struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[uint64]*subscription
	buffer int
}

// NewMessageWaiter creates a waiter whose subscriptions buffer up to 16
// messages each.
func NewMessageWaiter() *MessageWaiter {
	return &MessageWaiter{
		subs:   make(map[uint64]*subscription),
		buffer: 16,
	}
}

// Subscribe streams every message matching filter until cancel is called.
// Messages are dropped when the subscriber falls behind by more than the
// buffer size.
func (w *MessageWaiter) Subscribe(filter MessageFilter) (<-chan *discordgo.Message, func()) {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	sub := &subscription{filter: filter, ch: make(chan *discordgo.Message, w.buffer)}
	w.subs[id] = sub
	w.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Wait blocks until a message matching filter arrives or ctx ends.
func (w *MessageWaiter) Wait(ctx context.Context, filter MessageFilter) (*discordgo.Message, error) {
	ch, cancel := w.Subscribe(filter)
	defer cancel()

	select {
	case m := <-ch:
		return m, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Dispatch offers m to every matching subscription.
func (w *MessageWaiter) Dispatch(m *discordgo.Message) {
	if m == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, sub := range w.subs {
		if !sub.filter(m) {
			continue
		}
		select {
		case sub.ch <- m:
		default:
			logger.Warn("Suscriptor de mensajes saturado, mensaje descartado: "+m.ID, "Waiter")
		}
	}
}

// Pending returns the number of live subscriptions.
func (w *MessageWaiter) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.subs)
}
