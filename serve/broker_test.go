package serve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func event(id, status string) DeploymentEvent {
	return DeploymentEvent{Type: "updated", Deployment: Deployment{ID: id, Status: status}}
}

func TestEventBroker_FiltersByDeployment(t *testing.T) {
	b := NewEventBroker()
	one := b.Subscribe("dep-1")
	two := b.Subscribe("dep-2")
	all := b.Subscribe("")
	require.NotNil(t, one)
	require.NotNil(t, two)
	require.NotNil(t, all)

	b.Publish(event("dep-1", DeploymentDeploying))

	require.Len(t, one, 1)
	assert.Equal(t, "dep-1", (<-one).Deployment.ID)
	assert.Empty(t, two)
	require.Len(t, all, 1)
	assert.Equal(t, "dep-1", (<-all).Deployment.ID)
}

func TestEventBroker_TerminalEventClosesDeploymentStreams(t *testing.T) {
	b := NewEventBroker()
	one := b.Subscribe("dep-1")
	other := b.Subscribe("dep-2")
	all := b.Subscribe("")

	b.Publish(event("dep-1", DeploymentCompleted))

	ev, ok := <-one
	require.True(t, ok)
	assert.Equal(t, DeploymentCompleted, ev.Deployment.Status)
	_, ok = <-one
	assert.False(t, ok, "stream should close after the terminal event")

	// Unsubscribing an already closed channel is a no-op.
	b.Unsubscribe(one)

	b.Publish(event("dep-2", DeploymentDeploying))
	assert.Len(t, other, 1)
	assert.Len(t, all, 2)
}

func TestEventBroker_SubscriberLimit(t *testing.T) {
	b := NewEventBroker()
	chans := make([]chan DeploymentEvent, 0, maxSubscribers)
	for i := 0; i < maxSubscribers; i++ {
		ch := b.Subscribe("dep-1")
		require.NotNil(t, ch)
		chans = append(chans, ch)
	}
	assert.Nil(t, b.Subscribe("dep-2"))

	b.Unsubscribe(chans[0])
	assert.NotNil(t, b.Subscribe("dep-2"))

	// Finished deployments free their slots.
	b.Publish(event("dep-1", DeploymentFailed))
	for i := 0; i < maxSubscribers-1; i++ {
		assert.NotNil(t, b.Subscribe("dep-3"))
	}
}

func TestEventBroker_Close(t *testing.T) {
	b := NewEventBroker()
	one := b.Subscribe("dep-1")
	all := b.Subscribe("")

	b.Close()

	_, ok := <-one
	assert.False(t, ok)
	_, ok = <-all
	assert.False(t, ok)
	assert.NotNil(t, b.Subscribe("dep-1"))
}
