package main

import "errors"

// errTwoPositionalArgs is returned when blocksync is invoked with exactly
// one positional argument, which is never valid: either zero (server mode)
// or two (source, target) are required.
var errTwoPositionalArgs = errors.New("exactly two positional arguments expected (SOURCE and TARGET)")
