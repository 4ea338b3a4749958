package relay_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
	"github.com/slok/taskflow/internal/relay"
)

func ev(i int) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(`{"type":"task-deleted","taskId":"t%d"}`, i))
}

func newQueue(t *testing.T, mode relay.DeliveryMode) *relay.Queue {
	t.Helper()
	q, err := relay.NewQueue(relay.QueueConfig{Mode: mode, Logger: log.Noop})
	require.NoError(t, err)
	return q
}

func TestQueuePublish(t *testing.T) {
	tests := map[string]struct {
		projectID string
		event     json.RawMessage
		expErr    error
	}{
		"A valid event should be queued.": {
			projectID: "p1",
			event:     ev(1),
		},
		"Missing project should fail.": {
			event:  ev(1),
			expErr: model.ErrNotValid,
		},
		"Missing event should fail.": {
			projectID: "p1",
			expErr:    model.ErrNotValid,
		},
		"A null event should fail.": {
			projectID: "p1",
			event:     json.RawMessage(`null`),
			expErr:    model.ErrNotValid,
		},
		"A non object event should fail.": {
			projectID: "p1",
			event:     json.RawMessage(`"hello"`),
			expErr:    model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			q := newQueue(t, relay.DeliveryModeDrain)
			err := q.Publish(test.projectID, test.event)

			if test.expErr != nil {
				assert.ErrorIs(err, test.expErr)
				assert.Empty(q.Stats().Projects)
			} else {
				assert.NoError(err)
				assert.Equal(1, q.Stats().Projects[test.projectID].Pending)
			}
		})
	}
}

func TestQueueDrain(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	q := newQueue(t, relay.DeliveryModeDrain)
	require.NoError(q.Publish("p1", ev(1)))
	require.NoError(q.Publish("p2", ev(2)))
	require.NoError(q.Publish("p1", ev(3)))

	// Project isolation and publish order.
	assert.Equal([]json.RawMessage{ev(1), ev(3)}, q.Drain("p1"))
	assert.Empty(q.Drain("p1"))

	// Other projects are untouched.
	assert.Equal([]json.RawMessage{ev(2)}, q.Drain("p2"))
	assert.Empty(q.Drain("unknown"))
	assert.Empty(q.Stats().Projects)
}

func TestQueueDrainEventsAreDeliveredOnce(t *testing.T) {
	q := newQueue(t, relay.DeliveryModeDrain)

	const total = 200
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; i++ {
			_ = q.Publish("p1", ev(i))
		}
	}()

	// Two drainers of the same project split the events between them.
	var mu sync.Mutex
	got := map[string]int{}
	drainer := func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			for _, e := range q.Drain("p1") {
				mu.Lock()
				got[string(e)]++
				mu.Unlock()
			}
		}
	}
	wg.Add(2)
	go drainer()
	go drainer()
	wg.Wait()

	for _, e := range q.Drain("p1") {
		got[string(e)]++
	}

	assert.Len(t, got, total)
	for e, n := range got {
		assert.Equal(t, 1, n, "event %s delivered %d times", e, n)
	}
}

func TestQueueFanoutCursors(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	q := newQueue(t, relay.DeliveryModeFanout)
	c1 := q.Subscribe("p1")
	c2 := q.Subscribe("p1")
	other := q.Subscribe("p2")

	require.NoError(q.Publish("p1", ev(1)))
	require.NoError(q.Publish("p1", ev(2)))

	// Every subscriber gets every event, exactly once.
	assert.Equal([]json.RawMessage{ev(1), ev(2)}, c1.Next())
	assert.Empty(c1.Next())

	require.NoError(q.Publish("p1", ev(3)))
	assert.Equal([]json.RawMessage{ev(3)}, c1.Next())
	assert.Equal([]json.RawMessage{ev(1), ev(2), ev(3)}, c2.Next())
	assert.Empty(other.Next())

	// Everything has been read by every cursor, nothing pending.
	assert.Equal(relay.ProjectStats{Pending: 0, Subscribers: 2}, q.Stats().Projects["p1"])

	// A closed cursor doesn't block compaction.
	require.NoError(q.Publish("p1", ev(4)))
	c2.Close()
	assert.Equal([]json.RawMessage{ev(4)}, c1.Next())
	assert.Equal(relay.ProjectStats{Pending: 0, Subscribers: 1}, q.Stats().Projects["p1"])
	assert.Empty(c2.Next())
}

func TestQueueFanoutLateSubscriberGetsRetainedEvents(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	q := newQueue(t, relay.DeliveryModeFanout)
	require.NoError(q.Publish("p1", ev(1)))

	c := q.Subscribe("p1")
	assert.Equal([]json.RawMessage{ev(1)}, c.Next())
	assert.Equal(0, q.Stats().Projects["p1"].Pending)
}

func TestQueueMaxPending(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	q, err := relay.NewQueue(relay.QueueConfig{MaxPending: 2})
	require.NoError(err)
	c := q.Subscribe("p1")

	for i := 1; i <= 3; i++ {
		require.NoError(q.Publish("p1", ev(i)))
	}

	assert.Equal([]json.RawMessage{ev(2), ev(3)}, c.Next())
}

func TestQueueClose(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	q := newQueue(t, relay.DeliveryModeFanout)
	c := q.Subscribe("p1")
	require.NoError(q.Publish("p1", ev(1)))

	q.Close()
	assert.True(q.Closed())

	err := q.Publish("p1", ev(2))
	assert.True(errors.Is(err, model.ErrClosed))
	assert.Empty(c.Next())
	assert.Empty(q.Subscribe("p1").Next())
	assert.Empty(q.Stats().Projects)
}

func TestNewQueueInvalidMode(t *testing.T) {
	_, err := relay.NewQueue(relay.QueueConfig{Mode: "broadcast"})
	assert.Error(t, err)
}

func TestParseDeliveryMode(t *testing.T) {
	tests := map[string]struct {
		mode    string
		expMode relay.DeliveryMode
		expErr  bool
	}{
		"Drain.":   {mode: "drain", expMode: relay.DeliveryModeDrain},
		"Fanout.":  {mode: "fanout", expMode: relay.DeliveryModeFanout},
		"Unknown.": {mode: "all", expErr: true},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			mode, err := relay.ParseDeliveryMode(test.mode)
			if test.expErr {
				assert.Error(err)
			} else if assert.NoError(err) {
				assert.Equal(test.expMode, mode)
			}
		})
	}
}
