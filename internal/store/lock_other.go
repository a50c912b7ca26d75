//go:build !unix

package store

import (
	"errors"
	"fmt"
	"os"
)

type fileLock struct {
	path string
	f    *os.File
}

// acquireLock creates path exclusively; its existence is the lock.
func acquireLock(path string) (*fileLock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0o644)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}
	if err != nil {
		return nil, fmt.Errorf("create lock file: %w", err)
	}
	return &fileLock{path: path, f: f}, nil
}

func (l *fileLock) release() error {
	l.f.Close()
	return os.Remove(l.path)
}
