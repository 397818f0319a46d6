package syncer

import (
	"bytes"
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/hooklift/assert"

	"github.com/blocksync/blocksync/internal/location"
)

func randomBytes(seed int64, size int) []byte {
	data := make([]byte, size)
	rand.New(rand.NewSource(seed)).Read(data)
	return data
}

func defaultOptions() Options {
	return Options{BlockSize: 1024 * 1024, HashMethod: "sha1", Concurrency: 4, DeltaTransfer: true}
}

// TestS1TargetAbsent exercises scenario S1: target missing, full copy.
func TestS1TargetAbsent(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.bin")
	targetPath := filepath.Join(dir, "target.bin")
	source := randomBytes(1, 10*1024*1024)
	assert.Ok(t, os.WriteFile(sourcePath, source, 0o644))

	coord := New(location.NewLocal(sourcePath), location.NewLocal(targetPath), defaultOptions(), nil)
	_, err := coord.Run(context.Background())
	assert.Ok(t, err)

	got, err := os.ReadFile(targetPath)
	assert.Ok(t, err)
	assert.Equals(t, source, got)
}

// TestS3TargetAlreadyEqual exercises scenario S3: nothing to transfer, target untouched.
func TestS3TargetAlreadyEqual(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.bin")
	targetPath := filepath.Join(dir, "target.bin")
	data := randomBytes(2, 5*1024*1024)
	assert.Ok(t, os.WriteFile(sourcePath, data, 0o644))
	assert.Ok(t, os.WriteFile(targetPath, data, 0o644))

	opts := defaultOptions()
	opts.BlockSize = 1024 * 1024
	coord := New(location.NewLocal(sourcePath), location.NewLocal(targetPath), opts, nil)
	result, err := coord.Run(context.Background())
	assert.Ok(t, err)
	assert.Equals(t, 0, len(result.ChangedOffsets))

	got, err := os.ReadFile(targetPath)
	assert.Ok(t, err)
	assert.Equals(t, data, got)
}

// TestS4WholeFileMode exercises scenario S4: --whole-file transfers every block.
func TestS4WholeFileMode(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.bin")
	targetPath := filepath.Join(dir, "target.bin")
	blockSize := 1024 * 1024
	source := randomBytes(3, 10*blockSize)
	target := randomBytes(4, 10*blockSize)
	assert.Ok(t, os.WriteFile(sourcePath, source, 0o644))
	assert.Ok(t, os.WriteFile(targetPath, target, 0o644))

	opts := Options{BlockSize: blockSize, HashMethod: "sha1", Concurrency: 4, DeltaTransfer: false}
	coord := New(location.NewLocal(sourcePath), location.NewLocal(targetPath), opts, nil)
	result, err := coord.Run(context.Background())
	assert.Ok(t, err)
	assert.Equals(t, 10, len(result.ChangedOffsets))

	got, err := os.ReadFile(targetPath)
	assert.Ok(t, err)
	assert.Equals(t, source, got)
}

// TestS5DryRunPurity exercises scenario S5: dry-run leaves the target untouched.
func TestS5DryRunPurity(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.bin")
	targetPath := filepath.Join(dir, "target.bin")
	blockSize := 1024 * 1024
	source := randomBytes(5, 10*blockSize)
	target := randomBytes(6, 10*blockSize)
	assert.Ok(t, os.WriteFile(sourcePath, source, 0o644))
	assert.Ok(t, os.WriteFile(targetPath, target, 0o644))

	opts := Options{BlockSize: blockSize, HashMethod: "sha1", Concurrency: 4, DeltaTransfer: true, DryRun: true}
	coord := New(location.NewLocal(sourcePath), location.NewLocal(targetPath), opts, nil)
	_, err := coord.Run(context.Background())
	assert.Ok(t, err)

	got, err := os.ReadFile(targetPath)
	assert.Ok(t, err)
	assert.Cond(t, !bytes.Equal(source, got), "dry run must not modify the target")
	assert.Equals(t, target, got)
}

// TestIdempotence exercises property 3 from spec.md §8: a second
// synchronize immediately after a successful one transfers nothing.
func TestIdempotence(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.bin")
	targetPath := filepath.Join(dir, "target.bin")
	source := randomBytes(7, 3*1024*1024+17)
	assert.Ok(t, os.WriteFile(sourcePath, source, 0o644))

	opts := defaultOptions()
	opts.BlockSize = 1024 * 1024
	coord := New(location.NewLocal(sourcePath), location.NewLocal(targetPath), opts, nil)

	_, err := coord.Run(context.Background())
	assert.Ok(t, err)

	coord.Source.(interface{ Invalidate() }).Invalidate()
	coord.Target.(interface{ Invalidate() }).Invalidate()

	result, err := coord.Run(context.Background())
	assert.Ok(t, err)
	assert.Equals(t, 0, len(result.ChangedOffsets))
}
