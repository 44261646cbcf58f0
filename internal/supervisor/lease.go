package supervisor

import (
	"context"
	"sync"
)

// leases serializes work per sandbox ID within one process. An entry lives
// only while some caller holds or waits for it.
type leases struct {
	mu   sync.Mutex
	held map[string]*lease
}

type lease struct {
	ch   chan struct{}
	refs int
}

func (l *leases) get(id string) *lease {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = make(map[string]*lease)
	}
	ls, ok := l.held[id]
	if !ok {
		ls = &lease{ch: make(chan struct{}, 1)}
		l.held[id] = ls
	}
	ls.refs++
	return ls
}

func (l *leases) put(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ls, ok := l.held[id]
	if !ok {
		return
	}
	ls.refs--
	if ls.refs == 0 {
		delete(l.held, id)
	}
}

// size returns the number of live entries.
func (l *leases) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.held)
}

// acquire blocks until the lease for id is free or ctx ends.
func (l *leases) acquire(ctx context.Context, id string) (release func(), err error) {
	ls := l.get(id)
	select {
	case ls.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-ls.ch
				l.put(id)
			})
		}, nil
	case <-ctx.Done():
		l.put(id)
		return nil, ctx.Err()
	}
}
