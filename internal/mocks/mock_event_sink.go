package mocks

import (
	"sync"
	"time"

	"github.com/namhsc/tvtl-sub000/domain"
)

// MockEventSink implements domain.EventSink for testing, recording every
// published event.
type MockEventSink struct {
	mu     sync.Mutex
	events []*domain.SessionEvent
}

// NewMockEventSink creates a new MockEventSink
func NewMockEventSink() *MockEventSink {
	return &MockEventSink{}
}

// Publish records the event
func (m *MockEventSink) Publish(event *domain.SessionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// Events returns a copy of the recorded events
func (m *MockEventSink) Events() []*domain.SessionEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.SessionEvent(nil), m.events...)
}

// HasEvent reports whether an event of the given type was published
func (m *MockEventSink) HasEvent(eventType domain.SessionEventType) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e.EventType == eventType {
			return true
		}
	}
	return false
}

// Compile-time interface compliance verification
var _ domain.EventSink = (*MockEventSink)(nil)

// MockClock implements domain.Clock for testing
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMockClock creates a clock frozen at the given instant
func NewMockClock(now time.Time) *MockClock {
	return &MockClock{now: now}
}

// Now returns the frozen instant
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Compile-time interface compliance verification
var _ domain.Clock = (*MockClock)(nil)
