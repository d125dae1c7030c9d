package someipc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/someipc/middleware"
)

func receiveEvent(t *testing.T, ev *Events) Event {
	t.Helper()
	select {
	case e := <-ev.C():
		return e
	case <-time.After(time.Second):
		t.Fatal("no event on stream")
		return nil
	}
}

func openTestEvents(t *testing.T) (*mockApplication, *Events, func()) {
	t.Helper()
	rt := newMockRuntime()
	a := Create(rt, "client")
	require.NotNil(t, a)
	waitStarted(t, rt.app)
	ev := OpenEvents(a, 4)
	return rt.app, ev, a.Close
}

func TestOpenEventsInstallsAllHandlers(t *testing.T) {
	app, _, done := openTestEvents(t)
	defer done()

	app.mu.Lock()
	defer app.mu.Unlock()
	assert.NotNil(t, app.stateHandler)
	assert.NotNil(t, app.msgHandler)
	assert.Len(t, app.availRegs, 1)
}

func TestEventStreamCarriesStateChanges(t *testing.T) {
	app, ev, done := openTestEvents(t)
	defer done()

	app.mu.Lock()
	handler := app.stateHandler
	app.mu.Unlock()
	handler(middleware.StateRegistered)

	e := receiveEvent(t, ev)
	require.IsType(t, StateEvent{}, e)
	assert.Equal(t, Registered, e.(StateEvent).State)
}

func TestEventStreamCarriesAvailability(t *testing.T) {
	app, ev, done := openTestEvents(t)
	defer done()

	app.mu.Lock()
	handler := app.availRegs[0].handler
	app.mu.Unlock()
	handler(0x1234, 0x0001, true)

	e := receiveEvent(t, ev)
	require.IsType(t, AvailabilityEvent{}, e)
	ae := e.(AvailabilityEvent)
	assert.Equal(t, ServiceID(0x1234), ae.Service)
	assert.True(t, ae.Available)
}

func TestEventStreamCopiesMessagePayload(t *testing.T) {
	app, ev, done := openTestEvents(t)
	defer done()

	pl := &mockPayload{data: []byte{0x01, 0x02}}
	msg := &mockMessage{service: 0x1234, method: 0x0421, mType: middleware.MessageTypeRequest, pl: pl}

	app.mu.Lock()
	handler := app.msgHandler
	app.mu.Unlock()
	handler(msg)

	// Mutating the middleware payload after delivery must not reach the
	// stream's copy.
	pl.data[0] = 0xFF

	e := receiveEvent(t, ev)
	require.IsType(t, MessageEvent{}, e)
	me := e.(MessageEvent)
	assert.Equal(t, MTRequest, me.Header.Type)
	assert.Equal(t, []byte{0x01, 0x02}, me.Payload)
}

func TestEventStreamDropsACKTypes(t *testing.T) {
	app, ev, done := openTestEvents(t)
	defer done()

	app.mu.Lock()
	handler := app.msgHandler
	app.mu.Unlock()

	acks := []middleware.MessageType{
		middleware.MessageTypeRequestACK,
		middleware.MessageTypeRequestNoReturnACK,
		middleware.MessageTypeNotificationACK,
		middleware.MessageTypeResponseACK,
		middleware.MessageTypeErrorACK,
		middleware.MessageTypeUnknown,
	}
	for _, mt := range acks {
		handler(&mockMessage{mType: mt})
	}
	handler(&mockMessage{mType: middleware.MessageTypeNotification})

	e := receiveEvent(t, ev)
	require.IsType(t, MessageEvent{}, e)
	assert.Equal(t, MTNotification, e.(MessageEvent).Header.Type)

	select {
	case extra := <-ev.C():
		t.Fatalf("unexpected event: %#v", extra)
	default:
	}
}

func TestEventStreamTerminatesOnUndefinedType(t *testing.T) {
	trapFatal(t)
	app, _, done := openTestEvents(t)
	defer done()

	app.mu.Lock()
	handler := app.msgHandler
	app.mu.Unlock()

	assert.PanicsWithValue(t, "fatal exit", func() {
		handler(&mockMessage{mType: middleware.MessageType(0x10)})
	})
}
