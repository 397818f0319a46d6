package cli

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/blocksync/blocksync/internal/config"
	"github.com/blocksync/blocksync/internal/location"
	"github.com/blocksync/blocksync/internal/syncer"
)

// ErrBenchmarkAborted is returned when the operator declines the
// interactive confirmation required before a benchmark run mutates the
// target file, mirroring spec.md §7's OperatorAbort class.
var ErrBenchmarkAborted = errors.New("permission to run benchmark denied")

// runBenchmark mutates a growing fraction of the target file and times
// Options.Benchmark successive synchronize passes, reporting the delta size
// and elapsed time for each. It requires a local target: mutating a remote
// file in place isn't something the benchmark can do without its own
// blocksync round trip, which would pollute the measurement.
func (a *App) runBenchmark(ctx context.Context, source, target location.Location, opts syncer.Options, logger *zap.SugaredLogger) error {
	local, ok := target.(*location.Local)
	if !ok {
		return errors.New("benchmark requires a local target file")
	}

	if os.Getenv("BLOCKSYNC_BENCHMARK") != "allowed" {
		fmt.Fprintln(a.Stderr, "Set $BLOCKSYNC_BENCHMARK=allowed to bypass the following interactive prompt.")
		if !a.confirm("This will mutate the target file and then restore its original contents. Are you sure this is okay?") {
			return ErrBenchmarkAborted
		}
	}

	// Level the playing field with one synchronize pass before measuring.
	if _, err := syncer.New(source, target, opts, logger).Run(ctx); err != nil {
		return errors.Wrap(err, "failed initial synchronization before benchmark")
	}
	local.Invalidate()

	for i := 1; i <= a.Options.Benchmark; i++ {
		percent := 100 * i / a.Options.Benchmark
		if err := mutateTarget(local.Path(), percent); err != nil {
			return errors.Wrap(err, "failed to mutate target file for benchmark")
		}
		local.Invalidate()

		started := time.Now()
		result, err := syncer.New(source, target, opts, logger).Run(ctx)
		if err != nil {
			return errors.Wrapf(err, "benchmark iteration %d failed", i)
		}
		elapsed := time.Since(started)

		size := config.FormatSize(uint64(len(result.ChangedOffsets)) * uint64(opts.BlockSize))
		fmt.Fprintf(a.Stdout, "%3d%%  delta %-10s  transferred in %s\n", percent, size, elapsed)
	}
	return nil
}

// mutateTarget overwrites the leading percent% of the target file with
// random bytes, the same
// invalidation strategy the benchmark driver used to manufacture a known
// amount of drift between source and target.
func mutateTarget(path string, percent int) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	size := info.Size()
	numBytes := size / 100 * int64(percent)
	if numBytes <= 0 {
		return nil
	}

	handle, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer handle.Close()

	blockSize := int64(256 * 1024)
	if size > 1024*1024*1024 {
		blockSize = 1024 * 1024
	}

	block := make([]byte, blockSize)
	rand.New(rand.NewSource(time.Now().UnixNano())).Read(block)
	var written int64
	for written < numBytes {
		n := blockSize
		if remaining := numBytes - written; remaining < n {
			n = remaining
		}
		if _, err := handle.WriteAt(block[:n], written); err != nil {
			return err
		}
		written += n
	}
	return nil
}

func (a *App) confirm(question string) bool {
	fmt.Fprintf(a.Stderr, "%s [y/N] ", question)
	var answer string
	fmt.Fscanln(os.Stdin, &answer)
	return answer == "y" || answer == "Y" || answer == "yes"
}
