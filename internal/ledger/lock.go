package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/flock"
)

// ErrLocked is returned when another process holds the ledger lock past the
// wait deadline.
var ErrLocked = errors.New("ledger is locked by another process")

// Locker serializes read-modify-write cycles on the ledger.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

// FileLock is an advisory lock on "<ledger path>.lock".
type FileLock struct {
	fl    *flock.Flock
	Wait  time.Duration
	Retry time.Duration
}

func NewFileLock(ledgerPath string) *FileLock {
	return &FileLock{
		fl:    flock.New(ledgerPath + ".lock"),
		Wait:  10 * time.Second,
		Retry: 50 * time.Millisecond,
	}
}

// Path of the lock file.
func (l *FileLock) Path() string { return l.fl.Path() }

func (l *FileLock) Lock(ctx context.Context) (func() error, error) {
	if l.Wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.Wait)
		defer cancel()
	}
	ok, err := l.fl.TryLockContext(ctx, l.Retry)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, l.fl.Path())
		}
		return nil, fmt.Errorf("acquire lock %s: %w", l.fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, l.fl.Path())
	}
	return l.fl.Unlock, nil
}

type noLock struct{}

func (noLock) Lock(context.Context) (func() error, error) {
	return func() error { return nil }, nil
}
