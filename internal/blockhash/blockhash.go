// Package blockhash hashes a single block of a file at a given offset, and
// provides the algorithm registry block maps are computed against.
package blockhash

import (
	"crypto/md5"
	"crypto/sha1"
	"encoding/hex"
	"hash"

	sha256simd "github.com/minio/sha256-simd"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"

	"github.com/blocksync/blocksync/internal/blockio"
)

// Registry maps a hash method name, as accepted by -m/--hash-method and the
// server's "method" query parameter, to a constructor for that algorithm.
var Registry = map[string]func() hash.Hash{
	"sha1":   sha1.New,
	"md5":    md5.New,
	"sha256": sha256simd.New,
	"blake2b": func() hash.Hash {
		h, err := blake2b.New256(nil)
		if err != nil {
			// blake2b.New256 only fails given a key, and we pass none.
			panic(err)
		}
		return h
	},
}

// Lookup resolves a hash method name, defaulting to sha1 when empty.
func Lookup(method string) (func() hash.Hash, error) {
	if method == "" {
		method = "sha1"
	}
	ctor, ok := Registry[method]
	if !ok {
		return nil, errors.Errorf("unsupported hash method %q", method)
	}
	return ctor, nil
}

// Block hashes the block of path at offset (up to blockSize bytes, fewer on
// a short final block) using the named algorithm, and returns the offset
// alongside the lowercase hex digest.
func Block(path string, offset int64, blockSize int, method string) (int64, string, error) {
	ctor, err := Lookup(method)
	if err != nil {
		return offset, "", err
	}

	data, err := blockio.Read(path, offset, blockSize)
	if err != nil {
		return offset, "", errors.Wrapf(err, "failed to hash block at offset %d", offset)
	}

	h := ctor()
	h.Write(data)
	return offset, hex.EncodeToString(h.Sum(nil)), nil
}
