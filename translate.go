package someipc

import (
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/someipc/middleware"
)

// Enum translation between the boundary's plain integer enums and the
// middleware's native enums. An undefined value arriving here is a contract
// violation by the caller, not a runtime condition: the process terminates
// immediately instead of substituting a default.

// Native maps the boundary message type to the middleware's native enum.
// It terminates the process on an undefined value.
func (mt MessageType) Native() middleware.MessageType {
	switch mt {
	case MTRequest:
		return middleware.MessageTypeRequest
	case MTRequestNoReturn:
		return middleware.MessageTypeRequestNoReturn
	case MTNotification:
		return middleware.MessageTypeNotification
	case MTRequestACK:
		return middleware.MessageTypeRequestACK
	case MTRequestNoReturnACK:
		return middleware.MessageTypeRequestNoReturnACK
	case MTNotificationACK:
		return middleware.MessageTypeNotificationACK
	case MTResponse:
		return middleware.MessageTypeResponse
	case MTError:
		return middleware.MessageTypeError
	case MTResponseACK:
		return middleware.MessageTypeResponseACK
	case MTErrorACK:
		return middleware.MessageTypeErrorACK
	case MTUnknown:
		return middleware.MessageTypeUnknown
	default:
		logrus.WithFields(logrus.Fields{
			"function":     "MessageType.Native",
			"message_type": uint8(mt),
		}).Fatal("invalid message type crossed the boundary")
		return middleware.MessageTypeUnknown // unreachable
	}
}

// Native maps the boundary return code to the middleware's native enum.
// It terminates the process on an undefined value.
func (rc ReturnCode) Native() middleware.ReturnCode {
	switch rc {
	case EOK:
		return middleware.ReturnCodeOK
	case ENotOK:
		return middleware.ReturnCodeNotOK
	case EUnknownService:
		return middleware.ReturnCodeUnknownService
	case EUnknownMethod:
		return middleware.ReturnCodeUnknownMethod
	case ENotReady:
		return middleware.ReturnCodeNotReady
	case ENotReachable:
		return middleware.ReturnCodeNotReachable
	case ETimeout:
		return middleware.ReturnCodeTimeout
	case EWrongProtocolVersion:
		return middleware.ReturnCodeWrongProtocolVersion
	case EWrongInterfaceVersion:
		return middleware.ReturnCodeWrongInterfaceVersion
	case EMalformedMessage:
		return middleware.ReturnCodeMalformedMessage
	case EWrongMessageType:
		return middleware.ReturnCodeWrongMessageType
	case EUnknown:
		return middleware.ReturnCodeUnknown
	default:
		logrus.WithFields(logrus.Fields{
			"function":    "ReturnCode.Native",
			"return_code": uint8(rc),
		}).Fatal("invalid return code crossed the boundary")
		return middleware.ReturnCodeUnknown // unreachable
	}
}

// The receive direction needs no validation: native values are produced by
// the middleware and share the boundary's bit patterns.

func messageTypeFromNative(mt middleware.MessageType) MessageType {
	return MessageType(mt)
}

func returnCodeFromNative(rc middleware.ReturnCode) ReturnCode {
	return ReturnCode(rc)
}

func stateFromNative(st middleware.State) StateType {
	if st == middleware.StateRegistered {
		return Registered
	}
	return Deregistered
}
