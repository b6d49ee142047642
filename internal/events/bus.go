// Package events implements the per-analysis broadcast channel used to
// stream pipeline progress. Delivery is non-blocking: a slow or absent
// subscriber never stalls a run, and a subscriber that registers after an
// event was published never receives it.
package events

import (
	"sync"
	"time"
)

// subscriberBuffer bounds each subscriber channel. Events beyond the
// buffer are dropped for that subscriber rather than blocking publish.
const subscriberBuffer = 64

// Event is one named progress notification for an analysis.
type Event struct {
	Name      string    `json:"event"`
	Data      any       `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Bus fans events out to the subscribers of each analysis. The zero
// value is not usable; construct with NewBus and inject it where needed.
type Bus struct {
	mu   sync.RWMutex
	subs map[string][]chan Event
}

func NewBus() *Bus {
	return &Bus{subs: make(map[string][]chan Event)}
}

// Publish sends an event to every current subscriber of the analysis.
// It never blocks: a full subscriber channel drops the event.
func (b *Bus) Publish(analysisID, name string, data any) {
	event := Event{Name: name, Data: data, Timestamp: time.Now()}

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[analysisID] {
		select {
		case ch <- event:
		default: // drop if subscriber is not keeping up
		}
	}
}

// Subscribe registers a receiver for the analysis's events and returns
// the channel plus a cancel func. Cancel closes the channel and removes
// the subscription; the analysis entry is torn down when the last
// subscriber disconnects.
func (b *Bus) Subscribe(analysisID string) (<-chan Event, func()) {
	ch := make(chan Event, subscriberBuffer)

	b.mu.Lock()
	b.subs[analysisID] = append(b.subs[analysisID], ch)
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			subs := b.subs[analysisID]
			for i, sub := range subs {
				if sub == ch {
					b.subs[analysisID] = append(subs[:i], subs[i+1:]...)
					close(sub)
					break
				}
			}
			if len(b.subs[analysisID]) == 0 {
				delete(b.subs, analysisID)
			}
		})
	}
	return ch, cancel
}

// SubscriberCount reports the current subscribers for an analysis.
func (b *Bus) SubscriberCount(analysisID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[analysisID])
}
