package manager

import "sync"

// fifoLocks provides per-key mutual exclusion with strict FIFO ordering.
//
// Acquisition is a chained handoff: under a small registry mutex the waiter
// installs its own gate channel as the key's tail and takes the previous
// tail, then blocks on the previous gate outside the registry mutex.
// Closing the gate on release wakes exactly the next waiter in arrival
// order. The naive "wait for free, then grab" alternative lets two waiters
// observe the same release and race; the chain cannot.
type fifoLocks struct {
	mu    sync.Mutex
	tails map[string]chan struct{}
}

func newFIFOLocks() *fifoLocks {
	return &fifoLocks{tails: make(map[string]chan struct{})}
}

// acquire blocks until the caller holds the key's lock and returns the
// release function. Release must be called exactly once.
func (l *fifoLocks) acquire(key string) (release func()) {
	gate := make(chan struct{})

	l.mu.Lock()
	prev := l.tails[key]
	l.tails[key] = gate
	l.mu.Unlock()

	if prev != nil {
		<-prev
	}

	return func() {
		close(gate)
		l.mu.Lock()
		if l.tails[key] == gate {
			delete(l.tails, key)
		}
		l.mu.Unlock()
	}
}
