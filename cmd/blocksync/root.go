package main

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/blocksync/blocksync/internal/cli"
)

// buildRootCmd builds the blocksync root command: two positional arguments
// (SOURCE, TARGET) run the client, zero run the server.
func buildRootCmd() *cobra.Command {
	options := &cli.Options{}
	app := cli.New(nil, nil)

	cmd := &cobra.Command{
		Use:           "blocksync [OPTIONS] [SOURCE TARGET]",
		Short:         "Copy a large file between two hosts, transferring only the blocks that differ",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.MaximumNArgs(2),
		Long: heredoc.Doc(`
			blocksync copies a single large file between two hosts over HTTP,
			computing fixed-size block hashes in parallel on both sides and
			transferring only the blocks that differ.

			One of SOURCE and TARGET is expected to be a local pathname and the
			other a URL pointing at a blocksync server (http://host[:port]/path).

			Invoked with no positional arguments, blocksync starts the server.
		`),
		Example: heredoc.Doc(`
			# Start a server listening on the default port (8080)
			$ blocksync

			# Push a local file to a remote server
			$ blocksync /data/image.raw http://backup-host/data/image.raw

			# Pull a remote file down, disabling delta transfer
			$ blocksync --whole-file http://build-host/out.img /data/out.img

			# Compute the similarity index without transferring anything
			$ blocksync --dry-run /data/image.raw http://backup-host/data/image.raw
		`),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch len(args) {
			case 2:
				options.Source = args[0]
				options.Target = args[1]
			case 0:
				// Server mode.
			default:
				return errTwoPositionalArgs
			}
			app.Stdout = cmd.OutOrStdout()
			app.Stderr = cmd.ErrOrStderr()
			app.Options = *options
			return app.Run(cmd.Context())
		},
	}

	var flags *pflag.FlagSet = cmd.Flags()
	flags.StringVarP(&options.BlockSize, "block-size", "b", "", "Block size for hashing and transfer (e.g. 5K, 1MiB); defaults to 1 MiB")
	flags.StringVarP(&options.HashMethod, "hash-method", "m", "", "Block hash algorithm: sha1, sha256, md5 or blake2b; defaults to sha1")
	flags.BoolVarP(&options.WholeFile, "whole-file", "W", false, "Disable delta transfer")
	flags.IntVarP(&options.Concurrency, "concurrency", "c", 0, "Parallelism for hashing, transfer and server workers")
	flags.BoolVarP(&options.DryRun, "dry-run", "n", false, "Compute the delta only, transfer nothing")
	flags.StringVarP(&options.Listen, "listen", "l", "", "Server bind address (PORT, HOST:PORT or HOST); defaults to :8080")
	flags.BoolVarP(&options.Verbose, "verbose", "v", false, "Increase logging verbosity")
	flags.BoolVarP(&options.Quiet, "quiet", "q", false, "Decrease logging verbosity")
	flags.IntVar(&options.Benchmark, "benchmark", 0, "Run the synchronize pass this many times against a progressively mutated target, reporting timings")

	return cmd
}
