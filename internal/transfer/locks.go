package transfer

import (
	"sync"

	"github.com/puzpuzpuz/xsync/v4"
)

// lockMap hands out one mutex per transfer id. Mutexes are never removed;
// there is one per configured transfer.
type lockMap struct {
	locks *xsync.Map[int64, *sync.Mutex]
}

func newLockMap() *lockMap {
	return &lockMap{locks: xsync.NewMap[int64, *sync.Mutex]()}
}

// Lock blocks until id is free and returns its unlock function.
func (l *lockMap) Lock(id int64) func() {
	mu, _ := l.locks.LoadOrCompute(id, func() (*sync.Mutex, bool) {
		return &sync.Mutex{}, false
	})
	mu.Lock()
	return mu.Unlock
}
