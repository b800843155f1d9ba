package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUnixNanoRoundTrip(t *testing.T) {
	now := time.Now()
	assert.True(t, now.Equal(fromUnixNano(toUnixNano(now))))
	assert.Equal(t, int64(0), toUnixNano(time.Time{}))
	assert.True(t, fromUnixNano(0).IsZero())
}
