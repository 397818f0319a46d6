package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/blocksync/blocksync/internal/config"
	"github.com/blocksync/blocksync/internal/location"
	"github.com/blocksync/blocksync/internal/logging"
	"github.com/blocksync/blocksync/internal/server"
	"github.com/blocksync/blocksync/internal/syncer"
)

// App is the ambient shell around the core packages: it owns argument
// interpretation, logging setup and result rendering so that none of it
// leaks into the synchronization/server logic itself.
type App struct {
	Stdout  io.Writer
	Stderr  io.Writer
	Options Options
}

// New builds an App writing to stdout/stderr.
func New(stdout, stderr io.Writer) *App {
	return &App{Stdout: stdout, Stderr: stderr}
}

// Run dispatches to the client or the server depending on whether
// Options.Source/Target were supplied.
func (a *App) Run(ctx context.Context) error {
	logger, err := logging.New(a.Options.Verbose, a.Options.Quiet)
	if err != nil {
		return errors.Wrap(err, "failed to initialize logger")
	}
	defer logger.Sync() //nolint:errcheck

	if a.Options.Source != "" || a.Options.Target != "" {
		return a.runClient(ctx, logger)
	}
	return a.runServer(ctx, logger)
}

func (a *App) runServer(ctx context.Context, logger *zap.SugaredLogger) error {
	concurrency := a.Options.Concurrency
	if concurrency == 0 {
		concurrency = config.DefaultConcurrency()
	}
	addr := a.Options.Listen
	switch {
	case addr == "":
		addr = fmt.Sprintf(":%d", config.DefaultPort)
	case !strings.Contains(addr, ":"):
		if _, err := strconv.Atoi(addr); err == nil {
			addr = ":" + addr
		} else {
			addr = fmt.Sprintf("%s:%d", addr, config.DefaultPort)
		}
	}

	httpServer := server.NewHTTPServer(addr, concurrency, logger)
	logger.Infow("listening", "addr", addr, "concurrency", concurrency)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "server failed")
	case <-ctx.Done():
		return httpServer.Close()
	}
}

func (a *App) runClient(ctx context.Context, logger *zap.SugaredLogger) error {
	source, err := location.Parse(a.Options.Source)
	if err != nil {
		return errors.Wrap(err, "invalid source")
	}
	target, err := location.Parse(a.Options.Target)
	if err != nil {
		return errors.Wrap(err, "invalid target")
	}
	if source.IsRemote() == target.IsRemote() {
		return errors.New("exactly one of source and target must be a remote http:// location")
	}

	blockSize := config.DefaultBlockSize
	if a.Options.BlockSize != "" {
		n, err := config.ParseSize(a.Options.BlockSize)
		if err != nil {
			return err
		}
		blockSize = int(n)
	}
	concurrency := a.Options.Concurrency
	if concurrency == 0 {
		concurrency = config.DefaultConcurrency()
	}
	method := a.Options.HashMethod
	if method == "" {
		method = config.DefaultHashMethod
	}

	opts := syncer.Options{
		BlockSize:     blockSize,
		HashMethod:    method,
		Concurrency:   concurrency,
		DeltaTransfer: !a.Options.WholeFile,
		DryRun:        a.Options.DryRun,
	}

	if a.Options.Benchmark > 0 {
		return a.runBenchmark(ctx, source, target, opts, logger)
	}

	coordinator := syncer.New(source, target, opts, logger)
	result, err := coordinator.Run(ctx)
	if err != nil {
		return err
	}
	a.report(result, opts)
	return nil
}

func (a *App) report(result syncer.Result, opts syncer.Options) {
	blocks := len(result.ChangedOffsets)
	size := config.FormatSize(uint64(blocks) * uint64(opts.BlockSize))
	verb := "would transfer"
	if !opts.DryRun {
		verb = "transferred"
	}
	fmt.Fprintf(a.Stdout, "%s %s %d block(s) totaling %s\n",
		color.GreenString(result.Direction), verb, blocks, size)
}
