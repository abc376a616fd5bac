package project

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const (
	lockFilePerm = 0o600
	maxBackoff   = 25 * time.Millisecond
)

// Lock is a held exclusive lock on a catalog. Call [Lock.Close] to release it.
type Lock struct {
	mu   sync.Mutex
	file *os.File
}

// LockPath is the lock file guarding the catalog at path. The catalog itself
// is replaced by rename on save, so the lock lives beside it.
func LockPath(catalogPath string) string {
	return catalogPath + ".lock"
}

// Acquire takes an exclusive flock on the catalog's lock file, polling with
// backoff until timeout. A timeout of zero tries once.
//
// flock locks an inode, not a name; if the lock file is replaced between open
// and flock, Acquire retries on the new file.
func Acquire(catalogPath string, timeout time.Duration) (*Lock, error) {
	path := LockPath(catalogPath)
	deadline := time.Now().Add(timeout)
	backoff := time.Millisecond

	for {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, lockFilePerm)
		if err != nil {
			return nil, fmt.Errorf("open lock file: %w", err)
		}

		err = tryFlock(f, path)
		if err == nil {
			return &Lock{file: f}, nil
		}

		_ = f.Close()

		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, errReplaced) {
			return nil, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w after %s: %s", ErrLockTimeout, timeout, path)
		}

		time.Sleep(min(backoff, remaining))

		backoff = min(backoff*2, maxBackoff)
	}
}

var errReplaced = errors.New("lock file replaced")

func tryFlock(f *os.File, path string) error {
	fd := int(f.Fd())

	for {
		err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if errors.Is(err, unix.EINTR) {
			continue
		}

		if errors.Is(err, unix.EAGAIN) {
			return unix.EWOULDBLOCK
		}

		if err != nil {
			return fmt.Errorf("flock: %w", err)
		}

		break
	}

	var open, current unix.Stat_t

	if err := unix.Fstat(fd, &open); err != nil {
		_ = unix.Flock(fd, unix.LOCK_UN)
		return fmt.Errorf("stat lock fd: %w", err)
	}

	if err := unix.Stat(path, &current); err != nil {
		_ = unix.Flock(fd, unix.LOCK_UN)

		if errors.Is(err, unix.ENOENT) {
			return errReplaced
		}

		return fmt.Errorf("stat lock file: %w", err)
	}

	if open.Dev != current.Dev || open.Ino != current.Ino {
		_ = unix.Flock(fd, unix.LOCK_UN)
		return errReplaced
	}

	return nil
}

// Close releases the lock. It is idempotent.
func (l *Lock) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if unlockErr != nil {
		unlockErr = fmt.Errorf("unlock: %w", unlockErr)
	}

	if closeErr != nil {
		closeErr = fmt.Errorf("close lock fd: %w", closeErr)
	}

	return errors.Join(unlockErr, closeErr)
}

// Update runs fn on the catalog at path under the lock and saves the result
// when fn succeeds. A missing catalog starts empty.
func Update(path string, timeout time.Duration, fn func(c *Catalog) error) error {
	lock, err := Acquire(path, timeout)
	if err != nil {
		return err
	}

	defer func() { _ = lock.Close() }()

	c, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		c, err = New(), nil
	}

	if err != nil {
		return err
	}

	if err := fn(c); err != nil {
		return err
	}

	return Save(path, c)
}
