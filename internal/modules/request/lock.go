// README: Per-request lock serialising transitions on the same id.
package request

import (
	"context"
	"sync"

	"medride/internal/types"
)

type keyedMutex struct {
	mu    sync.Mutex
	locks map[types.ID]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[types.ID]*keyLock)}
}

// Lock blocks until id is free or ctx is done. The returned func releases it.
func (k *keyedMutex) Lock(ctx context.Context, id types.ID) (func(), error) {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &keyLock{ch: make(chan struct{}, 1)}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			k.release(id, l)
		}, nil
	case <-ctx.Done():
		k.release(id, l)
		return nil, ctx.Err()
	}
}

func (k *keyedMutex) release(id types.ID, l *keyLock) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, id)
	}
}
