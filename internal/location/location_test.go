package location

import (
	"testing"

	"github.com/hooklift/assert"
)

// TestParseTotality exercises property 6 from spec.md §8.
func TestParseTotality(t *testing.T) {
	loc, err := Parse("/a/b")
	assert.Ok(t, err)
	local, ok := loc.(*Local)
	assert.Cond(t, ok, "expected a *Local for a bare path")
	assert.Equals(t, "/a/b", local.Path())

	loc, err = Parse("relative/path")
	assert.Ok(t, err)
	_, ok = loc.(*Local)
	assert.Cond(t, ok, "expected a *Local for a scheme-less expression")

	loc, err = Parse("http://h:12345/a/b")
	assert.Ok(t, err)
	remote, ok := loc.(*Remote)
	assert.Cond(t, ok, "expected a *Remote for an http:// expression")
	assert.Equals(t, "h", remote.host)
	assert.Equals(t, 12345, remote.port)
	assert.Equals(t, "/a/b", remote.path)

	_, err = Parse("udp://h:123/a/b")
	assert.Cond(t, err != nil, "expected non-http schemes to be rejected")
}

func TestParseDefaultPort(t *testing.T) {
	loc, err := Parse("http://h/a/b")
	assert.Ok(t, err)
	remote := loc.(*Remote)
	assert.Equals(t, 8080, remote.port)
}
