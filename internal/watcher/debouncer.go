package watcher

import (
	"sort"
	"sync"
	"time"
)

// BatchDebouncer collects events and emits them as one batch once no new
// event arrived for the delay. A path appears once per batch with its
// latest event.
type BatchDebouncer struct {
	delay  time.Duration
	timer  *time.Timer
	mu     sync.Mutex
	events map[string]Event
	emit   func([]Event)
}

// NewBatchDebouncer creates a new batch debouncer
func NewBatchDebouncer(delay time.Duration, emit func([]Event)) *BatchDebouncer {
	return &BatchDebouncer{
		delay:  delay,
		events: make(map[string]Event),
		emit:   emit,
	}
}

// Add adds an event to the batch and restarts the quiet period
func (b *BatchDebouncer) Add(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events[event.Path] = event

	if b.timer != nil {
		b.timer.Stop()
	}
	b.timer = time.AfterFunc(b.delay, b.flush)
}

// flush emits collected events sorted by path
func (b *BatchDebouncer) flush() {
	b.mu.Lock()
	events := make([]Event, 0, len(b.events))
	for _, e := range b.events {
		events = append(events, e)
	}
	b.events = make(map[string]Event)
	b.timer = nil
	b.mu.Unlock()

	if len(events) == 0 || b.emit == nil {
		return
	}
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	b.emit(events)
}

// Cancel drops any pending emission
func (b *BatchDebouncer) Cancel() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.events = make(map[string]Event)
}

// Flush immediately emits any pending events
func (b *BatchDebouncer) Flush() {
	b.mu.Lock()
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	b.flush()
}

// EventCount returns the number of distinct pending paths
func (b *BatchDebouncer) EventCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.events)
}
