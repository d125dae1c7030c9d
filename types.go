package someipc

import "github.com/opd-ai/someipc/middleware"

// Identifier types are shared with the middleware contract; the aliases keep
// caller code free of a second import.
type (
	ServiceID       = middleware.ServiceID
	InstanceID      = middleware.InstanceID
	MethodID        = middleware.MethodID
	EventID         = middleware.EventID
	EventgroupID    = middleware.EventgroupID
	ClientID        = middleware.ClientID
	SessionID       = middleware.SessionID
	ProtocolVersion = middleware.ProtocolVersion
	MajorVersion    = middleware.MajorVersion
	MinorVersion    = middleware.MinorVersion

	// Message and Payload are the middleware's message objects, re-exported
	// for callers that never touch the contract package directly.
	Message = middleware.Message
	Payload = middleware.Payload
)

const (
	AnyService    = middleware.AnyService
	AnyInstance   = middleware.AnyInstance
	AnyMethod     = middleware.AnyMethod
	AnyEvent      = middleware.AnyEvent
	AnyEventgroup = middleware.AnyEventgroup
	AnyMajor      = middleware.AnyMajor
	AnyMinor      = middleware.AnyMinor
	DefaultMajor  = middleware.DefaultMajor
	DefaultMinor  = middleware.DefaultMinor
	NoSession     = middleware.NoSession
	UnknownClient = middleware.UnknownClient
)

// StateType is the boundary's registration state enum.
type StateType uint8

const (
	Deregistered StateType = 0
	Registered   StateType = 1
)

// String returns a human-readable state name.
func (s StateType) String() string {
	switch s {
	case Deregistered:
		return "DEREGISTERED"
	case Registered:
		return "REGISTERED"
	default:
		return "INVALID"
	}
}

// AvailabilityState is the boundary's service availability enum.
type AvailabilityState uint8

const (
	Unavailable AvailabilityState = 0
	Available   AvailabilityState = 1
)

// String returns a human-readable availability name.
func (a AvailabilityState) String() string {
	switch a {
	case Unavailable:
		return "UNAVAILABLE"
	case Available:
		return "AVAILABLE"
	default:
		return "INVALID"
	}
}

// MessageType is the boundary's message type enum. Values are fixed to the
// SOME/IP wire values and must be preserved bit-for-bit.
type MessageType uint8

const (
	MTRequest            MessageType = 0x00
	MTRequestNoReturn    MessageType = 0x01
	MTNotification       MessageType = 0x02
	MTRequestACK         MessageType = 0x40
	MTRequestNoReturnACK MessageType = 0x41
	MTNotificationACK    MessageType = 0x42
	MTResponse           MessageType = 0x80
	MTError              MessageType = 0x81
	MTResponseACK        MessageType = 0xC0
	MTErrorACK           MessageType = 0xC1
	MTUnknown            MessageType = 0xFF
)

// String returns the SOME/IP name of the message type.
func (mt MessageType) String() string {
	switch mt {
	case MTRequest:
		return "REQUEST"
	case MTRequestNoReturn:
		return "REQUEST_NO_RETURN"
	case MTNotification:
		return "NOTIFICATION"
	case MTRequestACK:
		return "REQUEST_ACK"
	case MTRequestNoReturnACK:
		return "REQUEST_NO_RETURN_ACK"
	case MTNotificationACK:
		return "NOTIFICATION_ACK"
	case MTResponse:
		return "RESPONSE"
	case MTError:
		return "ERROR"
	case MTResponseACK:
		return "RESPONSE_ACK"
	case MTErrorACK:
		return "ERROR_ACK"
	case MTUnknown:
		return "UNKNOWN"
	default:
		return "INVALID"
	}
}

// ReturnCode is the boundary's return code enum. Values are fixed to the
// SOME/IP wire values and must be preserved bit-for-bit.
type ReturnCode uint8

const (
	EOK                    ReturnCode = 0x00
	ENotOK                 ReturnCode = 0x01
	EUnknownService        ReturnCode = 0x02
	EUnknownMethod         ReturnCode = 0x03
	ENotReady              ReturnCode = 0x04
	ENotReachable          ReturnCode = 0x05
	ETimeout               ReturnCode = 0x06
	EWrongProtocolVersion  ReturnCode = 0x07
	EWrongInterfaceVersion ReturnCode = 0x08
	EMalformedMessage      ReturnCode = 0x09
	EWrongMessageType      ReturnCode = 0x0A
	EUnknown               ReturnCode = 0xFF
)

// CanBeSent reports whether an application is allowed to use the return
// code in a response it sends itself. The excluded codes are reserved for
// the middleware's own error signaling.
func (rc ReturnCode) CanBeSent() bool {
	switch rc {
	case ENotReachable, ETimeout, EUnknownService, EWrongInterfaceVersion, EWrongProtocolVersion:
		return false
	default:
		return true
	}
}

// String returns the SOME/IP name of the return code.
func (rc ReturnCode) String() string {
	switch rc {
	case EOK:
		return "OK"
	case ENotOK:
		return "NOT_OK"
	case EUnknownService:
		return "UNKNOWN_SERVICE"
	case EUnknownMethod:
		return "UNKNOWN_METHOD"
	case ENotReady:
		return "NOT_READY"
	case ENotReachable:
		return "NOT_REACHABLE"
	case ETimeout:
		return "TIMEOUT"
	case EWrongProtocolVersion:
		return "WRONG_PROTOCOL_VERSION"
	case EWrongInterfaceVersion:
		return "WRONG_INTERFACE_VERSION"
	case EMalformedMessage:
		return "MALFORMED_MESSAGE"
	case EWrongMessageType:
		return "WRONG_MESSAGE_TYPE"
	case EUnknown:
		return "UNKNOWN"
	default:
		return "INVALID"
	}
}
