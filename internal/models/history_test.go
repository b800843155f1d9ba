package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHistoryItem_Expired(t *testing.T) {
	now := time.Now()

	assert.False(t, HistoryItem{CreatedAt: now.Add(-59 * time.Minute)}.Expired(now))
	assert.True(t, HistoryItem{CreatedAt: now.Add(-time.Hour)}.Expired(now))
	assert.True(t, HistoryItem{CreatedAt: now.Add(-2 * time.Hour)}.Expired(now))
}

func TestRateLimitBucket_Clone(t *testing.T) {
	b := &RateLimitBucket{Key: "device:abc", Tokens: 3, LastRefill: time.Now()}
	c := b.Clone()
	c.Tokens = 0

	assert.Equal(t, 3, b.Tokens)
	assert.Nil(t, (*RateLimitBucket)(nil).Clone())
}
