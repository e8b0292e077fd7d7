package indexer

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"
)

// maxReaders is the full weight of a library lock; a writer takes all of it.
const maxReaders = 1 << 30

// rwLock is a readers-writer lock with context-aware, bounded acquisition.
// Waiters are served in FIFO order, so a queued writer holds back later readers.
type rwLock struct {
	sem     *semaphore.Weighted
	weight  int64
	timeout time.Duration
}

func newRWLock(timeout time.Duration) *rwLock {
	return &rwLock{sem: semaphore.NewWeighted(maxReaders), weight: maxReaders, timeout: timeout}
}

// newMutex returns an exclusive lock with the same acquisition rules.
func newMutex(timeout time.Duration) *rwLock {
	return &rwLock{sem: semaphore.NewWeighted(1), weight: 1, timeout: timeout}
}

func (l *rwLock) rlock(ctx context.Context) error { return l.acquire(ctx, 1) }
func (l *rwLock) runlock()                        { l.sem.Release(1) }
func (l *rwLock) lock(ctx context.Context) error  { return l.acquire(ctx, l.weight) }
func (l *rwLock) unlock()                         { l.sem.Release(l.weight) }

func (l *rwLock) acquire(parent context.Context, n int64) error {
	ctx := parent
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, l.timeout)
		defer cancel()
	}
	if err := l.sem.Acquire(ctx, n); err != nil {
		if perr := parent.Err(); perr != nil {
			return perr
		}
		return fmt.Errorf("%w: waited %s", ErrBusy, l.timeout)
	}
	return nil
}
