package someipc

import (
	"fmt"

	"github.com/opd-ai/someipc/middleware"
)

// Version is a service interface version.
type Version struct {
	Major MajorVersion
	Minor MinorVersion
}

// AnyVersion returns the wildcard version.
func AnyVersion() Version {
	return Version{Major: AnyMajor, Minor: AnyMinor}
}

// MakeVersion returns the given major.minor version.
func MakeVersion(major MajorVersion, minor MinorVersion) Version {
	return Version{Major: major, Minor: minor}
}

// MajorOnly returns major with a wildcard minor. SOME/IP messages carry only
// the major version, so this is the most a received message can report.
func MajorOnly(major MajorVersion) Version {
	return Version{Major: major, Minor: AnyMinor}
}

func (v Version) String() string {
	if v.Major == AnyMajor {
		return "-.-"
	}
	if v.Minor == AnyMinor {
		return fmt.Sprintf("%d.-", v.Major)
	}
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// MessageHeader is a value snapshot of a message's scalar fields taken at
// translation time. It is a copy, not a live view: later mutation of the
// message is not reflected. Data is the exception, it aliases the payload
// buffer and is only valid while the payload lives.
type MessageHeader struct {
	Service          ServiceID
	Instance         InstanceID
	Method           MethodID
	Client           ClientID
	Session          SessionID
	ProtocolVersion  ProtocolVersion
	InterfaceVersion MajorVersion
	Type             MessageType
	ReturnCode       ReturnCode
	Initial          bool
	Reliable         bool
	Data             []byte
}

// HeaderOf snapshots all scalar fields of msg plus a view of its payload.
func HeaderOf(msg middleware.Message) MessageHeader {
	hdr := MessageHeader{
		Service:          msg.Service(),
		Instance:         msg.Instance(),
		Method:           msg.Method(),
		Client:           msg.Client(),
		Session:          msg.Session(),
		ProtocolVersion:  msg.ProtocolVersion(),
		InterfaceVersion: msg.InterfaceVersion(),
		Type:             messageTypeFromNative(msg.Type()),
		ReturnCode:       returnCodeFromNative(msg.ReturnCode()),
		Initial:          msg.IsInitial(),
		Reliable:         msg.IsReliable(),
	}
	if pl := msg.Payload(); pl != nil {
		hdr.Data = pl.Data()
	}
	return hdr
}

func (h MessageHeader) String() string {
	return fmt.Sprintf("%04x.%04x.%04x-%s (%04x:%04x)",
		h.Service, h.Instance, h.Method, MajorOnly(h.InterfaceVersion), h.Client, h.Session)
}
