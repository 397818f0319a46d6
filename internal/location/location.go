// Package location provides the uniform Location contract (exists, size,
// read/write a block, resize, get hashes) that lets the delta coordinator
// treat a local path and a remote blocksync server identically.
package location

import (
	"context"
	"net/url"
	"strconv"

	"github.com/pkg/errors"

	"github.com/blocksync/blocksync/internal/config"
)

// Location is a handle to a file, local or remote, offering size, read,
// write, resize and hashing capabilities.
type Location interface {
	// String returns the human-readable expression the Location was
	// constructed from (a path, or an http:// URL).
	String() string
	// IsRemote reports whether this Location names a blocksync server.
	IsRemote() bool
	// Exists reports whether the file is present.
	Exists(ctx context.Context) (bool, error)
	// FileSize returns the file's size in bytes. It is only valid to call
	// once Exists has reported true.
	FileSize(ctx context.Context) (int64, error)
	// GetHashes builds the offset -> digest hash map for the file using
	// the given block size, hash method and hashing concurrency.
	GetHashes(ctx context.Context, blockSize int, method string, concurrency int) (map[int64]string, error)
	// ReadBlock reads up to size bytes starting at offset.
	ReadBlock(ctx context.Context, offset int64, size int) ([]byte, error)
	// WriteBlock writes data starting at offset.
	WriteBlock(ctx context.Context, offset int64, data []byte) error
	// Resize grows or shrinks the file to the given size, creating it
	// (and any missing parent directories) if absent.
	Resize(ctx context.Context, size int64) error
}

// Parse is the total Location expression constructor of spec.md §3: a value
// starting with "/" or lacking a URL scheme is local, "http://host[:port]/path"
// is remote, and any other scheme is rejected.
func Parse(expression string) (Location, error) {
	parsed, err := url.Parse(expression)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid location expression %q", expression)
	}

	if parsed.Scheme == "" {
		return NewLocal(expression), nil
	}
	if parsed.Scheme != "http" {
		return nil, errors.Errorf("invalid URL scheme %q (expected \"http\")", parsed.Scheme)
	}

	host := parsed.Hostname()
	port := config.DefaultPort
	if p := parsed.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid port in %q", expression)
		}
	}
	return NewRemote(host, port, parsed.Path), nil
}
