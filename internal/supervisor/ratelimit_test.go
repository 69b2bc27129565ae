package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketAllowsWithinCapacity(t *testing.T) {
	b := newTokenBucket(2, 100)
	now := time.Now()

	ok, wait := b.Allow(40, now)
	assert.True(t, ok)
	assert.Zero(t, wait)

	ok, wait = b.Allow(40, now)
	assert.True(t, ok)
	assert.Zero(t, wait)
}

func TestTokenBucketDeniesOverRequestCapacity(t *testing.T) {
	b := newTokenBucket(1, 1000)
	now := time.Now()

	ok, _ := b.Allow(10, now)
	assert.True(t, ok)

	ok, wait := b.Allow(10, now)
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))
}

func TestTokenBucketDeniesOverTokenCapacity(t *testing.T) {
	b := newTokenBucket(1000, 100)
	now := time.Now()

	ok, wait := b.Allow(500, now)
	assert.False(t, ok)
	assert.Greater(t, wait, time.Duration(0))
}

func TestTokenBucketRefillsOverTime(t *testing.T) {
	b := newTokenBucket(60, 6000)
	now := time.Now()

	ok, _ := b.Allow(6000, now)
	assert.True(t, ok)

	ok, _ = b.Allow(100, now)
	assert.False(t, ok)

	later := now.Add(time.Minute)
	ok, _ = b.Allow(100, later)
	assert.True(t, ok)
}

func TestTokenBucketUnlimitedWhenBothCapacitiesZero(t *testing.T) {
	b := newTokenBucket(0, 0)
	ok, wait := b.Allow(1_000_000, time.Now())
	assert.True(t, ok)
	assert.Zero(t, wait)
}
