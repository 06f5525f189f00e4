// Package events allows for the registering and receiving of events.
package events

import (
	"fmt"
	"strings"
	"sync"
)

// messageBuffer is the number of events a subscriber can fall behind before
// events are dropped for it. Websocket sends could take long.
const messageBuffer = 100

// subscriber is a registered receiver and the events it wants.
type subscriber struct {
	ch      chan string
	match   string
	dropped int
}

// Events maintains a mapping of unique id and subscribers so goroutines
// can register and receive events.
type Events struct {
	m  map[string]*subscriber
	mu sync.RWMutex
}

// New constructs an events for registering and receiving events.
func New() *Events {
	return &Events{
		m: make(map[string]*subscriber),
	}
}

// Shutdown closes and removes all channels that were provided by
// the call to Acquire.
func (evt *Events) Shutdown() {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for id, sub := range evt.m {
		delete(evt.m, id)
		close(sub.ch)
	}
}

// Acquire takes a unique id and returns a channel that can be used to
// receive events. Only events containing match are delivered, an empty
// match receives everything. Acquiring an existing id returns its channel
// and keeps the original match.
func (evt *Events) Acquire(id string, match string) <-chan string {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	if sub, exists := evt.m[id]; exists {
		return sub.ch
	}

	sub := subscriber{
		ch:    make(chan string, messageBuffer),
		match: match,
	}
	evt.m[id] = &sub

	return sub.ch
}

// Release closes and removes the channel that was provided by the call to
// Acquire. It returns the number of events dropped for the subscriber
// because it fell behind.
func (evt *Events) Release(id string) (int, error) {
	evt.mu.Lock()
	defer evt.mu.Unlock()

	sub, exists := evt.m[id]
	if !exists {
		return 0, fmt.Errorf("id %q does not exist", id)
	}

	delete(evt.m, id)
	close(sub.ch)

	return sub.dropped, nil
}

// Count returns the number of registered subscribers.
func (evt *Events) Count() int {
	evt.mu.RLock()
	defer evt.mu.RUnlock()

	return len(evt.m)
}

// Send signals a message to every matching subscriber. Send will not block
// waiting for a receiver on any given channel.
func (evt *Events) Send(s string) {
	// Write lock since drop counts are updated.
	evt.mu.Lock()
	defer evt.mu.Unlock()

	for _, sub := range evt.m {
		if sub.match != "" && !strings.Contains(s, sub.match) {
			continue
		}

		select {
		case sub.ch <- s:
		default:
			sub.dropped++
		}
	}
}
