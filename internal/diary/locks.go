package diary

import (
	"sort"
	"sync"
)

// dateLocks is a keyed mutex over date keys. Entries are reference counted
// and dropped when the last holder releases them.
type dateLocks struct {
	mu    sync.Mutex
	locks map[string]*dateLock
}

type dateLock struct {
	mu   sync.Mutex
	refs int
}

func newDateLocks() *dateLocks {
	return &dateLocks{locks: make(map[string]*dateLock)}
}

// lock acquires every distinct key in ascending order and returns the
// function that releases them.
func (l *dateLocks) lock(keys ...string) func() {
	keys = uniqueSorted(keys)
	held := make([]*dateLock, 0, len(keys))
	for _, k := range keys {
		l.mu.Lock()
		dl, ok := l.locks[k]
		if !ok {
			dl = &dateLock{}
			l.locks[k] = dl
		}
		dl.refs++
		l.mu.Unlock()

		dl.mu.Lock()
		held = append(held, dl)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(l.locks, keys[i])
			}
			l.mu.Unlock()
		}
	}
}

func uniqueSorted(keys []string) []string {
	out := append([]string(nil), keys...)
	sort.Strings(out)
	n := 0
	for i, k := range out {
		if i > 0 && k == out[n-1] {
			continue
		}
		out[n] = k
		n++
	}
	return out[:n]
}
