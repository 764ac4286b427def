// Package locks provides short-lived mutual exclusion around a stylist's
// calendar so two concurrent booking requests cannot both pass the overlap
// check. Redis (SET NX PX) backs multi-instance deployments; Memory serves a
// single process and tests.
package locks

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLocked is returned when the lock is still held after waiting.
var ErrLocked = errors.New("lock is held")

// Release frees a lock obtained from Acquire. It is safe to call more than once.
type Release func()

// Locker acquires named locks.
type Locker interface {
	// Acquire waits until key is free or ctx is done, then holds it for at
	// most ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error)
}

// retryEvery is the polling interval while waiting for a held lock.
const retryEvery = 25 * time.Millisecond

// maxWait bounds how long Acquire waits when ctx has no deadline.
const maxWait = 2 * time.Second

// SlotKey is the lock key for a stylist's calendar.
func SlotKey(stylistID string) string { return "slot:stylist:" + stylistID }

// Memory is an in-process Locker.
type Memory struct {
	mu    sync.Mutex
	held  map[string]memEntry
	clock func() time.Time
	seq   uint64
}

type memEntry struct {
	token   uint64
	expires time.Time
}

// NewMemory returns an empty Memory locker.
func NewMemory() *Memory {
	return &Memory{held: make(map[string]memEntry), clock: time.Now}
}

func (m *Memory) tryLock(key string, ttl time.Duration) (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock()
	if e, ok := m.held[key]; ok && now.Before(e.expires) {
		return 0, false
	}
	m.seq++
	m.held[key] = memEntry{token: m.seq, expires: now.Add(ttl)}
	return m.seq, true
}

// Acquire implements Locker.
func (m *Memory) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	var token uint64
	err := wait(ctx, func() (bool, error) {
		t, ok := m.tryLock(key, ttl)
		token = t
		return ok, nil
	})
	if err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if e, ok := m.held[key]; ok && e.token == token {
				delete(m.held, key)
			}
			m.mu.Unlock()
		})
	}, nil
}

// wait polls try until it succeeds, errors, or the wait budget runs out.
func wait(ctx context.Context, try func() (bool, error)) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxWait)
		defer cancel()
	}
	t := time.NewTicker(retryEvery)
	defer t.Stop()
	for {
		ok, err := try()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrLocked
		case <-t.C:
		}
	}
}
