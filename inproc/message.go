package inproc

import "github.com/opd-ai/someipc/middleware"

const protocolVersion middleware.ProtocolVersion = 0x01

// payload is a plain byte buffer. Data returns a view into the buffer, so
// its lifetime is bound to the payload, as the middleware contract states.
type payload struct {
	data []byte
}

func newPayload(data []byte) *payload {
	return &payload{data: append([]byte(nil), data...)}
}

func (p *payload) Data() []byte {
	return p.data
}

func (p *payload) Length() uint32 {
	return uint32(len(p.data))
}

func (p *payload) SetData(data []byte) {
	p.data = append([]byte(nil), data...)
}

// msg is the in-process message object. Single-writer discipline applies;
// it carries no locking of its own.
type msg struct {
	service  middleware.ServiceID
	instance middleware.InstanceID
	method   middleware.MethodID
	client   middleware.ClientID
	session  middleware.SessionID
	proto    middleware.ProtocolVersion
	ifVer    middleware.MajorVersion
	mType    middleware.MessageType
	retCode  middleware.ReturnCode
	reliable bool
	initial  bool
	pl       middleware.Payload
}

func newMessage(reliable bool) *msg {
	return &msg{
		proto:    protocolVersion,
		ifVer:    middleware.DefaultMajor,
		mType:    middleware.MessageTypeUnknown,
		retCode:  middleware.ReturnCodeOK,
		reliable: reliable,
	}
}

func newRequest(reliable bool) *msg {
	m := newMessage(reliable)
	m.mType = middleware.MessageTypeRequest
	return m
}

func (m *msg) Service() middleware.ServiceID { return m.service }

func (m *msg) SetService(v middleware.ServiceID) { m.service = v }

func (m *msg) Instance() middleware.InstanceID { return m.instance }

func (m *msg) SetInstance(v middleware.InstanceID) { m.instance = v }

func (m *msg) Method() middleware.MethodID { return m.method }

func (m *msg) SetMethod(v middleware.MethodID) { m.method = v }

func (m *msg) Client() middleware.ClientID { return m.client }

func (m *msg) SetClient(v middleware.ClientID) { m.client = v }

func (m *msg) Session() middleware.SessionID { return m.session }

func (m *msg) SetSession(v middleware.SessionID) { m.session = v }

func (m *msg) ProtocolVersion() middleware.ProtocolVersion { return m.proto }

func (m *msg) InterfaceVersion() middleware.MajorVersion { return m.ifVer }

func (m *msg) SetInterfaceVersion(v middleware.MajorVersion) { m.ifVer = v }

func (m *msg) Type() middleware.MessageType { return m.mType }

func (m *msg) SetType(v middleware.MessageType) { m.mType = v }

func (m *msg) ReturnCode() middleware.ReturnCode { return m.retCode }

func (m *msg) SetReturnCode(v middleware.ReturnCode) { m.retCode = v }

func (m *msg) IsReliable() bool { return m.reliable }

func (m *msg) SetReliable(v bool) { m.reliable = v }

func (m *msg) IsInitial() bool { return m.initial }

func (m *msg) SetInitial(v bool) { m.initial = v }

func (m *msg) Payload() middleware.Payload { return m.pl }

func (m *msg) SetPayload(pl middleware.Payload) { m.pl = pl }

func (m *msg) Length() uint32 {
	if m.pl == nil {
		return 0
	}
	return m.pl.Length()
}
