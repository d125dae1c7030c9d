package someipc

import (
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/someipc/middleware"
)

// Event is one item on the event stream opened by OpenEvents.
type Event interface {
	event()
}

// StateEvent reports a registration state change.
type StateEvent struct {
	State StateType
}

// AvailabilityEvent reports an availability change of a service instance.
type AvailabilityEvent struct {
	Service   ServiceID
	Instance  InstanceID
	Available bool
}

// MessageEvent carries one received message: a header snapshot plus a copy
// of the payload bytes. Header.Type distinguishes requests, responses,
// errors and notifications.
type MessageEvent struct {
	Header  MessageHeader
	Payload []byte
}

func (StateEvent) event()        {}
func (AvailabilityEvent) event() {}
func (MessageEvent) event()      {}

// Events converts the application's callbacks into a single event stream,
// for callers that prefer select loops over callbacks. The stream carries
// state, availability and message events in dispatch order.
type Events struct {
	ch chan Event
}

// OpenEvents installs state, global availability and message handlers on
// app and returns the resulting stream. buffer sizes the channel; zero
// selects a default of 64. The dispatch goroutine blocks while the channel
// is full, so a stalled consumer stalls dispatch, matching the layer's
// no-queuing contract.
//
// ACK message types and MT_UNKNOWN never reach the stream; a message type
// byte outside the defined set terminates the process.
func OpenEvents(app *Application, buffer int) *Events {
	if buffer <= 0 {
		buffer = 64
	}
	ev := &Events{ch: make(chan Event, buffer)}

	app.SetupStateHandler(func(state StateType) {
		ev.ch <- StateEvent{State: state}
	})
	app.SetupAvailHandler(func(service ServiceID, instance InstanceID, state AvailabilityState) {
		ev.ch <- AvailabilityEvent{
			Service:   service,
			Instance:  instance,
			Available: state == Available,
		}
	})
	app.SetupMsgHandler(func(msg middleware.Message) {
		if e, ok := ev.messageEvent(msg); ok {
			ev.ch <- e
		}
	})
	return ev
}

// C returns the receive side of the event stream.
func (ev *Events) C() <-chan Event {
	return ev.ch
}

func (ev *Events) messageEvent(msg middleware.Message) (MessageEvent, bool) {
	switch msg.Type() {
	case middleware.MessageTypeRequest,
		middleware.MessageTypeRequestNoReturn,
		middleware.MessageTypeNotification,
		middleware.MessageTypeResponse,
		middleware.MessageTypeError:
		hdr := HeaderOf(msg)
		var data []byte
		if len(hdr.Data) > 0 {
			// The header's view dies with the middleware payload; the
			// stream outlives the callback, so the bytes are copied.
			data = append([]byte(nil), hdr.Data...)
		}
		return MessageEvent{Header: hdr, Payload: data}, true

	case middleware.MessageTypeRequestACK,
		middleware.MessageTypeRequestNoReturnACK,
		middleware.MessageTypeNotificationACK,
		middleware.MessageTypeResponseACK,
		middleware.MessageTypeErrorACK,
		middleware.MessageTypeUnknown:
		// ACK types are middleware-internal and never forwarded upstream.
		return MessageEvent{}, false

	default:
		// A value outside the defined set means the middleware is in an
		// undefined state or an incompatible version is linked.
		logrus.WithFields(logrus.Fields{
			"function":     "Events.messageEvent",
			"message_type": uint8(msg.Type()),
		}).Fatal("undefined message type received from middleware")
		return MessageEvent{}, false // unreachable
	}
}
