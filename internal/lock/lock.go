// Package lock serializes read-modify-write cycles on records that share a
// key, such as the users taking part in a match.
package lock

import (
	"context"
	"slices"
	"sync"
)

// Locker acquires exclusive access to every key at once. The returned
// function releases them.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// UserKey is the lock key for a user record.
func UserKey(id string) string { return "user:" + id }

// ChallengeKey is the lock key for a challenge record.
func ChallengeKey(id string) string { return "challenge:" + id }

// NamesKey guards user name uniqueness.
const NamesKey = "users:names"

// normalize sorts and dedupes keys so that every caller acquires them in
// the same order.
func normalize(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

type entry struct {
	mu   sync.Mutex
	refs int
}

// Local is an in-process keyed mutex. Entries are dropped once no caller
// holds or waits on them.
type Local struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewLocal() *Local {
	return &Local{entries: make(map[string]*entry)}
}

func (l *Local) acquire(key string) *entry {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++
	l.mu.Unlock()
	return e
}

func (l *Local) release(key string, e *entry) {
	e.mu.Unlock()
	l.mu.Lock()
	e.refs--
	if e.refs == 0 {
		delete(l.entries, key)
	}
	l.mu.Unlock()
}

// Lock blocks until all keys are held. ctx is only checked before waiting;
// an in-process mutex cannot be abandoned halfway.
func (l *Local) Lock(ctx context.Context, keys ...string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys = normalize(keys)
	held := make([]*entry, len(keys))
	for i, key := range keys {
		e := l.acquire(key)
		e.mu.Lock()
		held[i] = e
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			for i := len(keys) - 1; i >= 0; i-- {
				l.release(keys[i], held[i])
			}
		})
	}, nil
}

// size reports the number of live entries.
func (l *Local) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
