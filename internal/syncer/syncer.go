// Package syncer implements the delta synchronization coordinator: it
// drives two Locations through the state machine of spec.md §4.6, from
// probing existence through parallel hashing, diffing and dispatching the
// changed-block transfer.
package syncer

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/blocksync/blocksync/internal/location"
	"github.com/blocksync/blocksync/internal/pool"
)

// Options configures one Coordinator.Run invocation.
type Options struct {
	BlockSize     int
	HashMethod    string
	Concurrency   int
	DeltaTransfer bool
	DryRun        bool
}

// Result summarizes one synchronize call, enough for the CLI layer to
// render a report without the coordinator depending on presentation code.
type Result struct {
	// ChangedOffsets is the sorted list of offsets that differed (or, in
	// whole-file mode, every aligned offset).
	ChangedOffsets []int64
	// SimilarityPercent is hits/(hits+misses)*100 from the delta diff; -1
	// when delta transfer was skipped (whole-file mode).
	SimilarityPercent float64
	// Direction is "download" when source is remote, "upload" otherwise,
	// the cosmetic label from spec.md §4.6.
	Direction string
}

// Coordinator runs one synchronize() call between a source and target
// Location.
type Coordinator struct {
	Source  location.Location
	Target  location.Location
	Options Options
	Logger  *zap.SugaredLogger
}

// New builds a Coordinator with the given source/target/options. A nil
// logger is replaced with a no-op logger.
func New(source, target location.Location, options Options, logger *zap.SugaredLogger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Coordinator{Source: source, Target: target, Options: options, Logger: logger}
}

// Run executes the full state machine: probe, diff (or whole-file), resize,
// and parallel transfer. It returns before resizing or writing anything if
// Options.DryRun is set.
func (c *Coordinator) Run(ctx context.Context) (Result, error) {
	direction := "upload"
	if c.Source.IsRemote() {
		direction = "download"
	}
	result := Result{Direction: direction, SimilarityPercent: -1}

	deltaTransfer := c.Options.DeltaTransfer
	targetExists, err := c.Target.Exists(ctx)
	if err != nil {
		return result, errors.Wrap(err, "failed to probe target existence")
	}
	if deltaTransfer && !targetExists {
		c.Logger.Info("disabling delta transfer because target file doesn't exist")
		deltaTransfer = false
	}

	var offsets []int64
	if deltaTransfer {
		offsets, result.SimilarityPercent, err = c.findChanges(ctx)
		if err != nil {
			return result, err
		}
	} else {
		size, err := c.Source.FileSize(ctx)
		if err != nil {
			return result, errors.Wrap(err, "failed to get source size for whole-file transfer")
		}
		for offset := int64(0); offset < size; offset += int64(c.Options.BlockSize) {
			offsets = append(offsets, offset)
		}
	}

	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	result.ChangedOffsets = offsets

	if len(offsets) == 0 {
		c.Logger.Info("nothing to do, file contents match")
		return result, nil
	}
	if c.Options.DryRun {
		c.Logger.Infow("dry run complete", "blocks", len(offsets), "bytes", int64(len(offsets))*int64(c.Options.BlockSize))
		return result, nil
	}

	if err := c.resizeTargetIfNeeded(ctx); err != nil {
		return result, err
	}

	if err := c.transfer(ctx, offsets); err != nil {
		return result, err
	}
	return result, nil
}

// findChanges launches the source and target hash-map builders in
// parallel isolated goroutines (the Go rendering of §9's one-shot
// "Promise" future/join primitive) and diffs the resulting maps.
func (c *Coordinator) findChanges(ctx context.Context) ([]int64, float64, error) {
	var sourceHashes, targetHashes map[int64]string

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		sourceHashes, err = c.Source.GetHashes(gctx, c.Options.BlockSize, c.Options.HashMethod, c.Options.Concurrency)
		return errors.Wrap(err, "failed to get source hashes")
	})
	group.Go(func() error {
		var err error
		targetHashes, err = c.Target.GetHashes(gctx, c.Options.BlockSize, c.Options.HashMethod, c.Options.Concurrency)
		return errors.Wrap(err, "failed to get target hashes")
	})
	if err := group.Wait(); err != nil {
		return nil, 0, err
	}

	keys := make(map[int64]struct{}, len(sourceHashes)+len(targetHashes))
	for offset := range sourceHashes {
		keys[offset] = struct{}{}
	}
	for offset := range targetHashes {
		keys[offset] = struct{}{}
	}

	var hits, misses int
	var changed []int64
	for offset := range keys {
		sourceDigest, sourceHas := sourceHashes[offset]
		targetDigest, targetHas := targetHashes[offset]
		if sourceHas && targetHas && sourceDigest == targetDigest {
			hits++
		} else {
			misses++
			changed = append(changed, offset)
		}
	}

	similarity := 100.0
	if hits+misses > 0 {
		similarity = float64(hits) / float64(hits+misses) * 100
	}
	c.Logger.Infow("computed similarity index", "percent", similarity, "hits", hits, "misses", misses)
	return changed, similarity, nil
}

// resizeTargetIfNeeded implements the resize-exactly-once policy: the
// target is only resized when it is absent or its size doesn't already
// match the source, so a repeated synchronize is a no-op here too.
func (c *Coordinator) resizeTargetIfNeeded(ctx context.Context) error {
	sourceSize, err := c.Source.FileSize(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get source size")
	}

	targetExists, err := c.Target.Exists(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to probe target existence")
	}

	needsResize := !targetExists
	if targetExists {
		targetSize, err := c.Target.FileSize(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to get target size")
		}
		needsResize = targetSize != sourceSize
	}

	if needsResize {
		if err := c.Target.Resize(ctx, sourceSize); err != nil {
			return errors.Wrap(err, "failed to resize target")
		}
	}
	return nil
}

// transfer copies every changed offset from source to target in parallel,
// using the same bounded worker pool that drives block hashing.
func (c *Coordinator) transfer(ctx context.Context, offsets []int64) error {
	output, wait := pool.Run(ctx, c.Options.Concurrency, pool.Slice(offsets), func(ctx context.Context, offset int64) (int64, error) {
		data, err := c.Source.ReadBlock(ctx, offset, c.Options.BlockSize)
		if err != nil {
			return offset, errors.Wrapf(err, "failed to read source block at offset %d", offset)
		}
		if err := c.Target.WriteBlock(ctx, offset, data); err != nil {
			return offset, errors.Wrapf(err, "failed to write target block at offset %d", offset)
		}
		return offset, nil
	})

	transferred := 0
	for range output {
		transferred++
	}
	if err := wait(); err != nil {
		return errors.Wrap(err, "failed to transfer changed blocks")
	}
	c.Logger.Infow("transferred changed blocks", "direction", map[bool]string{true: "download", false: "upload"}[c.Source.IsRemote()], "blocks", transferred)
	return nil
}
