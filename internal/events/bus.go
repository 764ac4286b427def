package events

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// Bus is an in-process Publisher. Handlers subscribe to exact routing keys
// or to "#" for everything and run synchronously inside Publish.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]Handler
}

// NewBus returns an empty Bus.
func NewBus() *Bus { return &Bus{subs: make(map[string][]Handler)} }

// Subscribe registers h for the given routing keys.
func (b *Bus) Subscribe(h Handler, keys ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		b.subs[k] = append(b.subs[k], h)
	}
}

// Publish implements Publisher. Handler errors are joined.
func (b *Bus) Publish(ctx context.Context, e Envelope) error {
	b.mu.RLock()
	hs := append(append([]Handler(nil), b.subs[e.Event]...), b.subs["#"]...)
	b.mu.RUnlock()

	var errs []error
	for _, h := range hs {
		if err := h(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
