package location

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/blocksync/blocksync/internal/blockio"
	"github.com/blocksync/blocksync/internal/hashmap"
)

// Local is a Location backed by a path on the current host.
type Local struct {
	path string

	mu      sync.Mutex
	cached  bool
	size    int64
	present bool
	statErr error
}

// NewLocal wraps path as a Location.
func NewLocal(path string) *Local {
	return &Local{path: path}
}

func (l *Local) String() string { return l.path }
func (l *Local) IsRemote() bool { return false }
func (l *Local) Path() string   { return l.path }

// Invalidate clears the cached file_info, forcing the next Exists/FileSize
// call to re-stat the file.
func (l *Local) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cached = false
}

func (l *Local) stat() (int64, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.cached {
		l.size, l.present, l.statErr = blockio.Size(l.path)
		l.cached = true
	}
	return l.size, l.present, l.statErr
}

func (l *Local) Exists(_ context.Context) (bool, error) {
	_, present, err := l.stat()
	return present, err
}

func (l *Local) FileSize(_ context.Context) (int64, error) {
	size, present, err := l.stat()
	if err != nil {
		return 0, err
	}
	if !present {
		return 0, errors.Errorf("local file %s does not exist", l.path)
	}
	return size, nil
}

func (l *Local) GetHashes(ctx context.Context, blockSize int, method string, concurrency int) (map[int64]string, error) {
	return hashmap.Build(ctx, l.path, blockSize, method, concurrency)
}

func (l *Local) ReadBlock(_ context.Context, offset int64, size int) ([]byte, error) {
	return blockio.Read(l.path, offset, size)
}

func (l *Local) WriteBlock(_ context.Context, offset int64, data []byte) error {
	return blockio.Write(l.path, offset, data)
}

func (l *Local) Resize(_ context.Context, size int64) error {
	if err := blockio.Resize(l.path, size); err != nil {
		return err
	}
	l.Invalidate()
	return nil
}
