package connlimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucketBurst(t *testing.T) {
	l := NewTokenBucket(1, 3)

	// The burst is available immediately, then the bucket is empty.
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(), "burst permit %d", i)
	}
	assert.False(t, l.Allow())
}

func TestTokenBucketRefills(t *testing.T) {
	l := NewTokenBucket(100, 1)

	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	// At 100 permits/s one token is back within ~10ms.
	time.Sleep(20 * time.Millisecond)
	assert.True(t, l.Allow())
}

func TestWindowCap(t *testing.T) {
	l := NewWindow(50*time.Millisecond, 2)

	assert.True(t, l.Allow())
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	// Records slide out of the window and free budget again.
	time.Sleep(70 * time.Millisecond)
	assert.True(t, l.Allow())
}

func TestCombinedRequiresBoth(t *testing.T) {
	bucket := NewTokenBucket(1000, 10)
	window := NewWindow(time.Minute, 1)
	l := NewCombined(bucket, window)

	assert.True(t, l.Allow())

	// The window is exhausted even though the bucket has tokens left.
	assert.False(t, l.Allow())
}
