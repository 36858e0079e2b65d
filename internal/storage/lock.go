package storage

import (
	"os"

	"golang.org/x/sys/unix"
)

// LockedFile is an open file holding an exclusive advisory lock. The lock
// is scoped to the whole read-modify-write critical section; Unlock
// releases it and closes the file.
type LockedFile struct {
	f *os.File
}

// OpenLocked opens (creating if absent) the file and takes a blocking
// exclusive advisory lock on it.
func OpenLocked(path string) (*LockedFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, FileMode)
	if err != nil {
		return nil, err
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil {
		f.Close()
		return nil, err
	}
	return &LockedFile{f: f}, nil
}

// File exposes the underlying handle for the critical section.
func (l *LockedFile) File() *os.File { return l.f }

// Unlock releases the advisory lock and closes the file.
func (l *LockedFile) Unlock() error {
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	return err
}
