package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealNowMillisTracksWallClock(t *testing.T) {
	r := Real{}
	before := time.Now().UnixMilli()
	got := r.NowMillis()
	after := time.Now().UnixMilli()

	assert.GreaterOrEqual(t, got, before)
	assert.LessOrEqual(t, got, after)
}

func TestManualClockAdvanceAndSet(t *testing.T) {
	m := NewManual(1000)
	assert.Equal(t, int64(1000), m.NowMillis())

	m.Advance(500)
	assert.Equal(t, int64(1500), m.NowMillis())

	m.Set(42)
	assert.Equal(t, int64(42), m.NowMillis())
}
