//go:build windows

package defensefile

import "os"

// fsync flushes the temp file's content to stable storage before it is
// renamed into place.
func fsync(f *os.File) error {
	return f.Sync()
}

// fsyncDir is a no-op on Windows: NTFS directory entries don't expose a
// POSIX-style directory-fsync, and MoveFileEx's ReplaceExisting already
// makes the rename itself durable enough for this store's purposes.
func fsyncDir(dir string) error {
	return nil
}
