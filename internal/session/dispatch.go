package session

import "sync"

// dispatcher delivers events to the handler on one goroutine.  push
// never blocks, so it is safe to call with the session lock held.
type dispatcher struct {
	handler Handler

	mu     sync.Mutex
	queue  []Event
	closed bool
	wake   chan struct{}
	done   chan struct{}
}

func newDispatcher(h Handler) *dispatcher {
	if h == nil {
		h = HandlerFunc(func(Event) {})
	}
	d := &dispatcher{
		handler: h,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) push(evs ...Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, evs...)
	d.mu.Unlock()
	d.signal()
}

func (d *dispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	defer close(d.done)
	for {
		d.mu.Lock()
		batch := d.queue
		d.queue = nil
		closed := d.closed
		d.mu.Unlock()

		for _, ev := range batch {
			d.handler.HandleEvent(ev)
		}
		if len(batch) > 0 {
			continue
		}
		if closed {
			return
		}
		<-d.wake
	}
}

// close stops accepting events, drains what is queued and waits for
// the handler to return.
func (d *dispatcher) close() {
	d.mu.Lock()
	already := d.closed
	d.closed = true
	d.mu.Unlock()
	if !already {
		d.signal()
	}
	<-d.done
}
