package notify_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxiflow/notify"
	"taxiflow/pkg/logger"
	"taxiflow/pkg/models"
)

func newBroker() *notify.Broker {
	return notify.NewBroker(logger.New("taxiflow-test", "error"))
}

func event(id string, orderID int64, kind models.EventKind) models.Event {
	return models.Event{ID: id, Kind: kind, OrderID: orderID, At: time.Now().UTC()}
}

func recv(t *testing.T, sub *notify.Subscription) models.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C():
		require.True(t, ok, "subscription channel closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return models.Event{}
	}
}

func TestBrokerDeliversToAllSubscribers(t *testing.T) {
	b := newBroker()

	first := b.Subscribe(4)
	defer first.Close()
	second := b.Subscribe(4)
	defer second.Close()

	require.NoError(t, b.Publish(context.Background(), event("e1", 1, models.EventNewOrder)))

	assert.Equal(t, "e1", recv(t, first).ID)
	assert.Equal(t, "e1", recv(t, second).ID)
}

func TestBrokerNoReplayForLateSubscribers(t *testing.T) {
	b := newBroker()

	require.NoError(t, b.Publish(context.Background(), event("e1", 1, models.EventNewOrder)))

	late := b.Subscribe(4)
	defer late.Close()

	select {
	case ev := <-late.C():
		t.Fatalf("late subscriber must not receive past events, got %s", ev.ID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerUnsubscribeStopsDelivery(t *testing.T) {
	b := newBroker()

	sub := b.Subscribe(4)
	sub.Close()

	require.NoError(t, b.Publish(context.Background(), event("e1", 1, models.EventNewOrder)))

	_, ok := <-sub.C()
	assert.False(t, ok, "closed subscription channel should be drained and closed")
}

func TestBrokerCloseIsIdempotent(t *testing.T) {
	b := newBroker()

	sub := b.Subscribe(1)
	sub.Close()
	sub.Close()
}

func TestBrokerSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	b := newBroker()

	slow := b.Subscribe(1)
	defer slow.Close()
	fast := b.Subscribe(8)
	defer fast.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			_ = b.Publish(context.Background(), event(fmt.Sprintf("e%d", i), int64(i), models.EventNewOrder))
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}

	// The slow subscriber kept only what fit its buffer, the rest dropped.
	assert.Equal(t, "e0", recv(t, slow).ID)
	assert.Equal(t, int64(4), b.Dropped())

	for i := 0; i < 5; i++ {
		assert.Equal(t, fmt.Sprintf("e%d", i), recv(t, fast).ID)
	}
}

func TestBrokerPreservesPublishOrderPerSubscriber(t *testing.T) {
	b := newBroker()

	sub := b.Subscribe(16)
	defer sub.Close()

	kinds := []models.EventKind{models.EventNewOrder, models.EventOrderAssigned, models.EventOrderCompleted}
	for i, k := range kinds {
		require.NoError(t, b.Publish(context.Background(), event(fmt.Sprintf("e%d", i), 9, k)))
	}

	for _, k := range kinds {
		ev := recv(t, sub)
		assert.Equal(t, k, ev.Kind)
		assert.Equal(t, int64(9), ev.OrderID)
	}
}
