package serve

import (
	"sync"
)

const maxSubscribers = 50

// DeploymentEvent is a change to a deployment record.
type DeploymentEvent struct {
	Type       string     `json:"type"`
	Deployment Deployment `json:"deployment"`
}

// EventBroker fans out deployment events to SSE subscribers. A subscriber
// follows one deployment, or every deployment when subscribed with "".
type EventBroker struct {
	subscribers map[string]map[chan DeploymentEvent]struct{} // deployment ID → channels
	count       int
	mu          sync.RWMutex
}

// NewEventBroker creates a new broker.
func NewEventBroker() *EventBroker {
	return &EventBroker{
		subscribers: make(map[string]map[chan DeploymentEvent]struct{}),
	}
}

// Subscribe returns a channel that receives the events of deploymentID, or
// nil when the broker is full. The channel is closed once that deployment
// finishes. The caller must call Unsubscribe when done.
func (b *EventBroker) Subscribe(deploymentID string) chan DeploymentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= maxSubscribers {
		return nil
	}

	ch := make(chan DeploymentEvent, 64)
	set, ok := b.subscribers[deploymentID]
	if !ok {
		set = make(map[chan DeploymentEvent]struct{})
		b.subscribers[deploymentID] = set
	}
	set[ch] = struct{}{}
	b.count++
	return ch
}

// Unsubscribe removes a subscriber channel.
func (b *EventBroker) Unsubscribe(ch chan DeploymentEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, set := range b.subscribers {
		if _, ok := set[ch]; ok {
			b.drop(id, ch)
			return
		}
	}
}

// Close closes all subscriber channels, causing SSE handlers to exit.
func (b *EventBroker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, set := range b.subscribers {
		for ch := range set {
			b.drop(id, ch)
		}
	}
}

// Publish sends an event to the subscribers of its deployment and to those
// following every deployment. Non-blocking: if a subscriber's buffer is
// full, the event is dropped for that subscriber. A terminal event closes
// the deployment's own subscribers after delivery.
func (b *EventBroker) Publish(event DeploymentEvent) {
	id := event.Deployment.ID
	done := event.Deployment.Done()

	if done {
		b.mu.Lock()
		defer b.mu.Unlock()
	} else {
		b.mu.RLock()
		defer b.mu.RUnlock()
	}

	for _, key := range []string{id, ""} {
		for ch := range b.subscribers[key] {
			select {
			case ch <- event:
			default:
				// Subscriber too slow, drop event
			}
		}
	}
	if done && id != "" {
		for ch := range b.subscribers[id] {
			b.drop(id, ch)
		}
	}
}

// drop closes and forgets ch. b.mu must be held for writing.
func (b *EventBroker) drop(id string, ch chan DeploymentEvent) {
	set := b.subscribers[id]
	delete(set, ch)
	close(ch)
	b.count--
	if len(set) == 0 {
		delete(b.subscribers, id)
	}
}
