// Package clock provides the ports.Clock implementations used outside of
// tests: a real wall-clock source for production wiring, and a manual
// clock tests advance explicitly with a "create, advance, assert"
// pattern.
package clock

import (
	"sync"
	"time"
)

// Real returns wall-clock milliseconds via time.Now().
type Real struct{}

// NowMillis satisfies ports.Clock.
func (Real) NowMillis() int64 {
	return time.Now().UnixMilli()
}

// Manual is a test double advanced explicitly by calling Advance or Set.
type Manual struct {
	mu     sync.Mutex
	millis int64
}

// NewManual starts the clock at the given millisecond value.
func NewManual(startMillis int64) *Manual {
	return &Manual{millis: startMillis}
}

// NowMillis satisfies ports.Clock.
func (m *Manual) NowMillis() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.millis
}

// Advance moves the clock forward by delta milliseconds.
func (m *Manual) Advance(deltaMillis int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.millis += deltaMillis
}

// Set pins the clock to an absolute millisecond value.
func (m *Manual) Set(millis int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.millis = millis
}
