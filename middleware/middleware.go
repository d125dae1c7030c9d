package middleware

import "time"

// Runtime is the middleware's process-wide entry point. It creates and
// removes applications and manufactures payload and message objects.
type Runtime interface {
	// CreateApplication creates a named application object. The application
	// is not usable before Init has been called on it.
	CreateApplication(name string) (Application, error)

	// RemoveApplication removes a previously created application from the
	// runtime's bookkeeping. Removing an unknown name is a no-op.
	RemoveApplication(name string)

	// CreatePayload creates a payload holding a copy of data.
	CreatePayload(data []byte) Payload

	// CreateEmptyPayload creates a payload with no data.
	CreateEmptyPayload() Payload

	// CreateMessage creates a blank message for the given transport class.
	CreateMessage(reliable bool) Message

	// CreateRequest creates a request-typed message for the given transport
	// class. The session is assigned by the middleware when the message is
	// sent.
	CreateRequest(reliable bool) Message
}

// Application is one logical SOME/IP endpoint owned by the middleware.
//
// Start blocks and runs the application's dispatch loop until Stop is
// called; every registered handler is invoked from that loop. All other
// methods are non-blocking pass-throughs whose success or failure is decided
// and signaled by the middleware itself (through availability and message
// handlers), never through return values here.
type Application interface {
	Name() string
	ClientID() ClientID

	// Init prepares the application. It must be called exactly once before
	// Start.
	Init() error

	// Start runs the dispatch loop. It blocks until Stop is called.
	Start()

	// Stop terminates the dispatch loop. It may be called at most once per
	// Start and is tolerated when the loop never ran.
	Stop()

	OfferService(service ServiceID, instance InstanceID, major MajorVersion, minor MinorVersion)
	StopOfferService(service ServiceID, instance InstanceID, major MajorVersion, minor MinorVersion)
	RequestService(service ServiceID, instance InstanceID, major MajorVersion, minor MinorVersion)
	ReleaseService(service ServiceID, instance InstanceID)

	OfferEvent(service ServiceID, instance InstanceID, notifier EventID, groups []EventgroupID,
		kind EventType, cycle time.Duration, changeResetsCycle, updateOnChange bool, reliability Reliability)
	StopOfferEvent(service ServiceID, instance InstanceID, notifier EventID)
	RequestEvent(service ServiceID, instance InstanceID, event EventID, groups []EventgroupID,
		kind EventType, reliability Reliability)
	ReleaseEvent(service ServiceID, instance InstanceID, event EventID)

	Subscribe(service ServiceID, instance InstanceID, group EventgroupID, major MajorVersion, event EventID)
	SubscribeWithDebounce(service ServiceID, instance InstanceID, group EventgroupID, major MajorVersion,
		event EventID, filter DebounceFilter)
	Unsubscribe(service ServiceID, instance InstanceID, group EventgroupID)

	// Notify updates the payload of an offered event and notifies
	// subscribers. With force set, subscribers are notified even when the
	// payload did not change.
	Notify(service ServiceID, instance InstanceID, event EventID, payload Payload, force bool)

	// Send transmits a message. For request-typed messages the middleware
	// assigns the session identifier, readable from the message afterwards.
	Send(msg Message)

	RegisterStateHandler(handler StateHandler)
	UnregisterStateHandler()
	RegisterAvailabilityHandler(service ServiceID, instance InstanceID, handler AvailabilityHandler,
		major MajorVersion, minor MinorVersion)
	UnregisterAvailabilityHandler(service ServiceID, instance InstanceID, major MajorVersion)
	RegisterMessageHandler(service ServiceID, instance InstanceID, method MethodID, handler MessageHandler)
	UnregisterMessageHandler(service ServiceID, instance InstanceID, method MethodID)
	ClearAllHandlers()
}

// Message is a transient SOME/IP request, response or notification.
type Message interface {
	Service() ServiceID
	SetService(ServiceID)
	Instance() InstanceID
	SetInstance(InstanceID)
	Method() MethodID
	SetMethod(MethodID)
	Client() ClientID
	SetClient(ClientID)
	Session() SessionID
	SetSession(SessionID)
	ProtocolVersion() ProtocolVersion
	InterfaceVersion() MajorVersion
	SetInterfaceVersion(MajorVersion)
	Type() MessageType
	SetType(MessageType)
	ReturnCode() ReturnCode
	SetReturnCode(ReturnCode)
	IsReliable() bool
	SetReliable(bool)
	IsInitial() bool
	SetInitial(bool)

	// Payload returns the attached payload, which may be nil.
	Payload() Payload
	SetPayload(Payload)

	// Length returns the payload length in bytes, zero when no payload is
	// attached.
	Length() uint32
}

// Payload is a raw byte buffer attached to a message. The returned slice
// aliases the payload's buffer; its lifetime is bound to the payload.
type Payload interface {
	Data() []byte
	Length() uint32
	SetData([]byte)
}
