package chat

import "sync"

// roomLocks hands out one mutex per room name. Entries exist only while some
// goroutine holds or waits for the lock.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{
		locks: make(map[string]*roomLock),
	}
}

// lock acquires the exclusive section for name and returns its release func.
func (l *roomLocks) lock(name string) func() {
	l.mu.Lock()
	rl, ok := l.locks[name]
	if !ok {
		rl = &roomLock{}
		l.locks[name] = rl
	}
	rl.refs++
	l.mu.Unlock()

	rl.mu.Lock()

	return func() {
		rl.mu.Unlock()

		l.mu.Lock()
		rl.refs--
		if rl.refs == 0 {
			delete(l.locks, name)
		}
		l.mu.Unlock()
	}
}

func (l *roomLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.locks)
}
