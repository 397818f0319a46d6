// Package config holds the defaults shared by the client and server sides
// of blocksync, along with the block-size expression parsing and formatting
// helpers used by the CLI.
package config

import (
	"runtime"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
)

const (
	// DefaultBlockSize is the block size used for hashing and transfer
	// when the operator doesn't pass -b/--block-size.
	DefaultBlockSize = 1024 * 1024

	// DefaultHashMethod is the block digest algorithm used when the
	// operator doesn't pass -m/--hash-method.
	DefaultHashMethod = "sha1"

	// DefaultPort is the server's default listen port.
	DefaultPort = 8080
)

// DefaultConcurrency returns a third of the available cores, but never fewer
// than two, mirroring the original max(2, cpu_count/3) heuristic.
func DefaultConcurrency() int {
	n := runtime.NumCPU() / 3
	if n < 2 {
		n = 2
	}
	return n
}

// ParseSize parses a size expression such as "5K", "1MiB" or a plain byte
// count into a number of bytes.
func ParseSize(expression string) (uint64, error) {
	n, err := humanize.ParseBytes(expression)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid block size %q", expression)
	}
	return n, nil
}

// FormatSize renders a byte count as a human friendly binary size, e.g. "10 MiB".
func FormatSize(n uint64) string {
	return humanize.IBytes(n)
}
