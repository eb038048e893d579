package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	mu    sync.Mutex
	sent  []Notification
	fail  bool
	panic bool
}

func (r *recordingTransport) EmitToUser(_ context.Context, userID, event string, payload interface{}) error {
	if r.panic {
		panic("transport exploded")
	}
	if r.fail {
		return errors.New("redis down")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, Notification{UserID: userID, Event: event, Payload: payload})
	return nil
}

func TestDispatcherDelivers(t *testing.T) {
	tr := &recordingTransport{}
	d := NewDispatcher(tr)

	d.Dispatch(
		Notification{UserID: "u1", Event: ProposalNewComment, Payload: "a"},
		Notification{UserID: "", Event: ProposalNewComment},
		Notification{UserID: "u2", Event: ProposalStatusChanged},
	)
	d.Wait()

	require.Len(t, tr.sent, 2)
	assert.Equal(t, "u1", tr.sent[0].UserID)
	assert.Equal(t, "u2", tr.sent[1].UserID)
}

func TestDispatcherSwallowsFailures(t *testing.T) {
	for _, tr := range []*recordingTransport{{fail: true}, {panic: true}} {
		d := NewDispatcher(tr)
		assert.NotPanics(t, func() {
			d.Dispatch(Notification{UserID: "u1", Event: ProposalNewComment})
			d.Wait()
		})
	}
}

func TestNilDispatcherIsNoop(t *testing.T) {
	var d *Dispatcher
	d.Dispatch(Notification{UserID: "u1"})
	d.Wait()

	NewDispatcher(nil).Dispatch(Notification{UserID: "u1"})
}

func TestBusRunsHandlers(t *testing.T) {
	bus := NewEventBus()
	got := make(chan interface{}, 1)
	bus.On(UserCreated, func(data interface{}) { got <- data })
	bus.On("boom", func(interface{}) { panic("handler failure") })

	bus.Emit(UserCreated, "user-1")
	bus.Emit("boom", nil)
	bus.Emit("nobody.listens", nil)

	select {
	case data := <-got:
		assert.Equal(t, "user-1", data)
	case <-time.After(time.Second):
		t.Fatal("handler was not called")
	}
}

func TestBusOffAndDrain(t *testing.T) {
	bus := NewEventBus()
	var mu sync.Mutex
	calls := 0
	off := bus.On(UserCreated, func(interface{}) {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	bus.Emit(UserCreated, nil)
	bus.Drain()
	off()
	bus.Emit(UserCreated, nil)
	bus.Drain()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}
