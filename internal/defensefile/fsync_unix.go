//go:build !windows

package defensefile

import (
	"os"

	"golang.org/x/sys/unix"
)

// fsync flushes the temp file's content to stable storage before it is
// renamed into place.
func fsync(f *os.File) error {
	return f.Sync()
}

// fsyncDir flushes the directory entry so the rename itself survives a
// crash, not just the file content. os.File.Sync has no portable directory-fsync
// counterpart, so this calls unix.Fsync directly.
func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return unix.Fsync(int(d.Fd()))
}
