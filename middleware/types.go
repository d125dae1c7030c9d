package middleware

import "time"

// Fixed-width SOME/IP identifier types. The widths are part of the wire
// format and of the C boundary struct layout.
type (
	// ServiceID identifies a service interface.
	ServiceID uint16
	// InstanceID identifies one instance of a service interface.
	InstanceID uint16
	// MethodID identifies a method within a service interface. Events use
	// the same space; an event's MethodID is also called its notifier ID.
	MethodID uint16
	// EventID identifies a notifiable event or field.
	EventID uint16
	// EventgroupID identifies a group of events subscribed to as a unit.
	EventgroupID uint16
	// ClientID identifies an application within the SOME/IP network.
	ClientID uint16
	// SessionID correlates a request with its response.
	SessionID uint16
	// ProtocolVersion is the SOME/IP protocol version of a message.
	ProtocolVersion uint8
	// MajorVersion is the major version of a service interface.
	MajorVersion uint8
	// MinorVersion is the minor version of a service interface.
	MinorVersion uint32
)

// Wildcard and default values understood by the middleware.
const (
	AnyService    ServiceID    = 0xFFFF
	AnyInstance   InstanceID   = 0xFFFF
	AnyMethod     MethodID     = 0xFFFF
	AnyEvent      EventID      = 0xFFFF
	AnyEventgroup EventgroupID = 0xFFFF
	AnyMajor      MajorVersion = 0xFF
	AnyMinor      MinorVersion = 0xFFFFFFFF
	DefaultMajor  MajorVersion = 0x00
	DefaultMinor  MinorVersion = 0x00
	NoSession     SessionID    = 0x0000
	UnknownClient ClientID     = 0x0000
)

// State is the registration state of an application at the middleware.
type State uint8

const (
	StateDeregistered State = 0x00
	StateRegistered   State = 0x01
)

// MessageType is the middleware's native message type. Values are the
// SOME/IP wire values.
type MessageType uint8

const (
	MessageTypeRequest            MessageType = 0x00
	MessageTypeRequestNoReturn    MessageType = 0x01
	MessageTypeNotification       MessageType = 0x02
	MessageTypeRequestACK         MessageType = 0x40
	MessageTypeRequestNoReturnACK MessageType = 0x41
	MessageTypeNotificationACK    MessageType = 0x42
	MessageTypeResponse           MessageType = 0x80
	MessageTypeError              MessageType = 0x81
	MessageTypeResponseACK        MessageType = 0xC0
	MessageTypeErrorACK           MessageType = 0xC1
	MessageTypeUnknown            MessageType = 0xFF
)

// ReturnCode is the middleware's native return code. Values are the SOME/IP
// wire values.
type ReturnCode uint8

const (
	ReturnCodeOK                    ReturnCode = 0x00
	ReturnCodeNotOK                 ReturnCode = 0x01
	ReturnCodeUnknownService        ReturnCode = 0x02
	ReturnCodeUnknownMethod         ReturnCode = 0x03
	ReturnCodeNotReady              ReturnCode = 0x04
	ReturnCodeNotReachable          ReturnCode = 0x05
	ReturnCodeTimeout               ReturnCode = 0x06
	ReturnCodeWrongProtocolVersion  ReturnCode = 0x07
	ReturnCodeWrongInterfaceVersion ReturnCode = 0x08
	ReturnCodeMalformedMessage      ReturnCode = 0x09
	ReturnCodeWrongMessageType      ReturnCode = 0x0A
	ReturnCodeUnknown               ReturnCode = 0xFF
)

// EventType distinguishes plain events from fields (events with state).
type EventType uint8

const (
	EventTypeEvent   EventType = 0x00
	EventTypeField   EventType = 0x02
	EventTypeUnknown EventType = 0xFF
)

// Reliability selects the transport class of an event.
type Reliability uint8

const (
	ReliabilityReliable   Reliability = 0x01
	ReliabilityUnreliable Reliability = 0x02
	ReliabilityBoth       Reliability = 0x03
	ReliabilityUnknown    Reliability = 0xFF
)

// DebounceFilter configures debounced event subscriptions.
type DebounceFilter struct {
	OnChange               bool
	OnChangeResetsInterval bool
	Interval               time.Duration
	SendCurrentValueAfter  bool
}

// StateHandler receives registration state changes.
type StateHandler func(State)

// AvailabilityHandler receives availability changes for a service instance.
type AvailabilityHandler func(ServiceID, InstanceID, bool)

// MessageHandler receives incoming messages.
type MessageHandler func(Message)
