package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStaticProfile(t *testing.T) {
	p := Static()

	assert.Equal(t, "static", p.Container)
	secs, ok := p.ExpirationSeconds()
	assert.False(t, ok, "static URLs never expire")
	assert.Zero(t, secs)
	assert.True(t, p.Public())
}

func TestMediaProfile(t *testing.T) {
	p := Media()

	assert.Equal(t, "media", p.Container)
	assert.False(t, p.OverwriteOnConflict)
	secs, ok := p.ExpirationSeconds()
	assert.True(t, ok)
	assert.Equal(t, int64(604800), secs)
	assert.Equal(t, 7*24*time.Hour, p.Expiration)
	assert.False(t, p.Public())
}

func TestProfilesAreDistinctAndImmutable(t *testing.T) {
	profiles := Profiles()
	assert.Len(t, profiles, 2)
	assert.NotEqual(t, profiles[0].Container, profiles[1].Container)

	// Mutating a returned copy does not leak into later calls.
	m := Media()
	m.Expiration = 0
	m.OverwriteOnConflict = true
	assert.Equal(t, MediaURLExpiration, Media().Expiration)
	assert.False(t, Media().OverwriteOnConflict)
}
