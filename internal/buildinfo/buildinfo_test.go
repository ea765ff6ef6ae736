package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortPrefersVersion(t *testing.T) {
	vcsOnce.Do(func() {})
	v, c := Version, Commit
	t.Cleanup(func() { Version, Commit = v, c })

	Version, Commit = "v1.2.0", "0123456789abcdef"
	assert.Equal(t, "v1.2.0", Short())

	Version = "dev"
	assert.Equal(t, "0123456789ab", Short())

	Commit = "unknown"
	assert.Equal(t, "dev", Short())
}
