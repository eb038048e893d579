package events

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const deliveryTimeout = 5 * time.Second

// Dispatcher delivers notifications off the request path. Failures are logged
// and never reach the caller.
type Dispatcher struct {
	transport Transport
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewDispatcher(transport Transport) *Dispatcher {
	return &Dispatcher{transport: transport, timeout: deliveryTimeout}
}

// Dispatch schedules delivery of notes and returns immediately.
func (d *Dispatcher) Dispatch(notes ...Notification) {
	if d == nil || d.transport == nil || len(notes) == 0 {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				_ = log.Error("Panic while delivering notifications", fmt.Errorf("panic: %v", r))
			}
		}()

		for _, n := range notes {
			d.deliver(n)
		}
	}()
}

func (d *Dispatcher) deliver(n Notification) {
	if n.UserID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	if err := d.transport.EmitToUser(ctx, n.UserID, n.Event, n.Payload); err != nil {
		_ = log.Error("Failed to deliver %s to user %s", err, n.Event, n.UserID)
	}
}

// Wait blocks until every scheduled delivery has finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}
