package session

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcher_Order(t *testing.T) {
	var (
		mu  sync.Mutex
		got []string
	)
	d := newDispatcher(HandlerFunc(func(ev Event) {
		mu.Lock()
		got = append(got, ev.(CommandAck).Message)
		mu.Unlock()
	}))

	for _, m := range []string{"a", "b", "c", "d"} {
		d.push(CommandAck{Message: m})
	}
	d.close()

	assert.Equal(t, []string{"a", "b", "c", "d"}, got)
}

func TestDispatcher_PushAfterClose(t *testing.T) {
	calls := 0
	d := newDispatcher(HandlerFunc(func(Event) { calls++ }))
	d.close()
	d.close()
	d.push(AuthFailed{})
	assert.Zero(t, calls)
}

func TestDispatcher_NilHandler(t *testing.T) {
	d := newDispatcher(nil)
	d.push(AuthFailed{})
	d.close()
}

func TestHandlers_FanOut(t *testing.T) {
	var a, b []Event
	hs := Handlers{
		HandlerFunc(func(ev Event) { a = append(a, ev) }),
		HandlerFunc(func(ev Event) { b = append(b, ev) }),
	}
	hs.HandleEvent(AuthFailed{})
	assert.Len(t, a, 1)
	assert.Len(t, b, 1)
}
