package blockio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hooklift/assert"
)

func TestSizeAbsent(t *testing.T) {
	_, ok, err := Size(filepath.Join(t.TempDir(), "nope.bin"))
	assert.Ok(t, err)
	assert.Cond(t, !ok, "size of a missing path should report absent")
}

func TestSizeExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.bin")
	assert.Ok(t, os.WriteFile(path, []byte("hello"), 0o644))

	size, ok, err := Size(path)
	assert.Ok(t, err)
	assert.Cond(t, ok, "size of an existing path should report present")
	assert.Equals(t, int64(5), size)
}

func TestReadShortFinalBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.bin")
	assert.Ok(t, os.WriteFile(path, []byte("hello"), 0o644))

	block, err := Read(path, 2, 10)
	assert.Ok(t, err)
	assert.Equals(t, []byte("llo"), block)
}

func TestWriteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.bin")
	assert.Ok(t, Resize(path, 10))
	assert.Ok(t, Write(path, 3, []byte("XYZ")))

	block, err := Read(path, 0, 10)
	assert.Ok(t, err)
	assert.Equals(t, []byte{0, 0, 0, 'X', 'Y', 'Z', 0, 0, 0, 0}, block)
}

func TestResizeCreatesMissingParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "file.bin")
	assert.Ok(t, Resize(path, 42))

	size, ok, err := Size(path)
	assert.Ok(t, err)
	assert.Cond(t, ok, "resized file should exist")
	assert.Equals(t, int64(42), size)
}

func TestResizeShrinksExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.bin")
	assert.Ok(t, os.WriteFile(path, make([]byte, 100), 0o644))
	assert.Ok(t, Resize(path, 10))

	size, ok, err := Size(path)
	assert.Ok(t, err)
	assert.Cond(t, ok, "resized file should exist")
	assert.Equals(t, int64(10), size)
}
