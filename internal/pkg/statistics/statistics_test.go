package statistics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// Without a cache server every read misses, so cachedCount must fall back to
// the database fetch and still return the count.
func TestCachedCountFallsBackToFetch(t *testing.T) {
	got := cachedCount("statistics:test:fallback", func(db *gorm.DB) (int64, error) {
		return 42, nil
	})
	assert.Equal(t, 42, got)
}

func TestCachedCountFetchErrorYieldsZero(t *testing.T) {
	got := cachedCount("statistics:test:error", func(db *gorm.DB) (int64, error) {
		return 0, errors.New("connection refused")
	})
	assert.Equal(t, 0, got)
}

func TestResetCacheUpdateTimerForcesRefresh(t *testing.T) {
	ResetCacheUpdateTimer()
	assert.True(t, ShouldUpdateCache())
}
