// Package hashmap drives the worker pool over a whole file to build its
// offset -> digest hash map.
package hashmap

import (
	"context"

	"github.com/pkg/errors"

	"github.com/blocksync/blocksync/internal/blockhash"
	"github.com/blocksync/blocksync/internal/blockio"
	"github.com/blocksync/blocksync/internal/pool"
)

// Entry is one (offset, digest) pair as computed by the worker pool.
type Entry struct {
	Offset int64
	Digest string
}

// Build hashes every block of path and returns the resulting offset ->
// digest map. When concurrency is 1 or less it falls back to a serial pass,
// one block at a time, that is byte-equivalent to the parallel path.
func Build(ctx context.Context, path string, blockSize int, method string, concurrency int) (map[int64]string, error) {
	size, ok, err := blockio.Size(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return map[int64]string{}, nil
	}

	if concurrency <= 1 {
		return buildSerial(path, size, blockSize, method)
	}

	output, wait := pool.Run(ctx, concurrency, pool.Range(size, int64(blockSize)), func(ctx context.Context, offset int64) (Entry, error) {
		o, digest, err := blockhash.Block(path, offset, blockSize, method)
		return Entry{Offset: o, Digest: digest}, err
	})

	result := make(map[int64]string)
	for entry := range output {
		result[entry.Offset] = entry.Digest
	}
	if err := wait(); err != nil {
		return nil, errors.Wrapf(err, "failed to build hash map for %s", path)
	}
	return result, nil
}

func buildSerial(path string, size int64, blockSize int, method string) (map[int64]string, error) {
	result := make(map[int64]string)
	for offset := int64(0); offset < size; offset += int64(blockSize) {
		o, digest, err := blockhash.Block(path, offset, blockSize, method)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to hash block at offset %d of %s", offset, path)
		}
		result[o] = digest
	}
	return result, nil
}
