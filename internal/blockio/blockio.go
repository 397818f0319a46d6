// Package blockio implements the file primitives every Location ultimately
// bottoms out on: size, read, write and create-or-resize, each operating on
// an absolute path with a single open-seek-operate-close handle per call.
package blockio

import (
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// Size returns the file's size in bytes. The second return value is false
// iff the path does not exist; any other failure is returned as an error.
func Size(path string) (int64, bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, false, nil
		}
		return 0, false, errors.Wrapf(err, "failed to stat %s", path)
	}
	return info.Size(), true, nil
}

// Read opens path read-only, seeks to offset and reads up to length bytes,
// returning fewer at EOF.
func Read(path string, offset int64, length int) ([]byte, error) {
	handle, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s for reading", path)
	}
	defer handle.Close()

	buffer := make([]byte, length)
	n, err := handle.ReadAt(buffer, offset)
	if err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "failed to read block at offset %d in %s", offset, path)
	}
	return buffer[:n], nil
}

// Write opens path read/write, seeks to offset, writes data and flushes it
// to the kernel. The path must already exist and be large enough; the
// coordinator guarantees both by resizing the target before any write.
func Write(path string, offset int64, data []byte) error {
	handle, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return errors.Wrapf(err, "failed to open %s for writing", path)
	}
	defer handle.Close()

	if _, err := handle.WriteAt(data, offset); err != nil {
		return errors.Wrapf(err, "failed to write block at offset %d in %s", offset, path)
	}
	return handle.Sync()
}

// Resize truncates path to newSize, creating the file (and any missing
// parent directories) first if it doesn't exist. Bytes added by growing the
// file are unspecified (the kernel leaves them sparse/zero-filled).
func Resize(path string, newSize int64) error {
	handle, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		if !os.IsNotExist(err) {
			return errors.Wrapf(err, "failed to open %s for resizing", path)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return errors.Wrapf(err, "failed to create parent directories for %s", path)
		}
		handle, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return errors.Wrapf(err, "failed to create %s", path)
		}
	}
	defer handle.Close()

	if err := handle.Truncate(newSize); err != nil {
		return errors.Wrapf(err, "failed to resize %s to %d bytes", path, newSize)
	}
	return nil
}
