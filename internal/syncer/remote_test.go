package syncer

import (
	"context"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/hooklift/assert"

	"github.com/blocksync/blocksync/internal/location"
	"github.com/blocksync/blocksync/internal/server"
)

// TestS2RemoteDeltaTransfer exercises scenario S2: server->client sync with
// delta transfer on, against an independent random target file.
func TestS2RemoteDeltaTransfer(t *testing.T) {
	dir := t.TempDir()
	sourcePath := filepath.Join(dir, "source.bin")
	targetPath := filepath.Join(dir, "target.bin")
	blockSize := 1024 * 1024
	source := randomBytes(8, 10*blockSize)
	target := randomBytes(9, 10*blockSize)
	assert.Ok(t, os.WriteFile(sourcePath, source, 0o644))
	assert.Ok(t, os.WriteFile(targetPath, target, 0o644))

	ts := httptest.NewServer(server.New(4, nil))
	defer ts.Close()

	parsed, err := url.Parse(ts.URL)
	assert.Ok(t, err)
	host := parsed.Hostname()
	port, err := strconv.Atoi(parsed.Port())
	assert.Ok(t, err)

	// Source lives on the "server" (remote), target is local: a download.
	remoteSource := location.NewRemote(host, port, sourcePath).WithClient(ts.Client())
	localTarget := location.NewLocal(targetPath)

	opts := Options{BlockSize: blockSize, HashMethod: "sha1", Concurrency: 4, DeltaTransfer: true}
	coord := New(remoteSource, localTarget, opts, nil)
	result, err := coord.Run(context.Background())
	assert.Ok(t, err)
	assert.Equals(t, "download", result.Direction)

	got, err := os.ReadFile(targetPath)
	assert.Ok(t, err)
	assert.Equals(t, source, got)
}

// TestDirectionSymmetry exercises property 5 from spec.md §8: swapping
// source/target roles (local<->remote) produces byte-identical results.
func TestDirectionSymmetry(t *testing.T) {
	dir := t.TempDir()
	localPath := filepath.Join(dir, "local.bin")
	remotePath := filepath.Join(dir, "remote.bin")
	blockSize := 1024 * 1024
	content := randomBytes(11, 4*blockSize)
	assert.Ok(t, os.WriteFile(localPath, content, 0o644))

	ts := httptest.NewServer(server.New(2, nil))
	defer ts.Close()
	parsed, err := url.Parse(ts.URL)
	assert.Ok(t, err)
	port, err := strconv.Atoi(parsed.Port())
	assert.Ok(t, err)

	remote := location.NewRemote(parsed.Hostname(), port, remotePath).WithClient(ts.Client())
	local := location.NewLocal(localPath)

	opts := Options{BlockSize: blockSize, HashMethod: "sha1", Concurrency: 2, DeltaTransfer: true}
	// Upload: local -> remote.
	_, err = New(local, remote, opts, nil).Run(context.Background())
	assert.Ok(t, err)

	got, err := os.ReadFile(remotePath)
	assert.Ok(t, err)
	assert.Equals(t, content, got)

	// Download: remote -> a fresh local path.
	roundTripPath := filepath.Join(dir, "roundtrip.bin")
	_, err = New(remote, location.NewLocal(roundTripPath), opts, nil).Run(context.Background())
	assert.Ok(t, err)

	got, err = os.ReadFile(roundTripPath)
	assert.Ok(t, err)
	assert.Equals(t, content, got)
}
