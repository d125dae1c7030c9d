package someipc

import (
	"sync"
	"time"

	"github.com/opd-ai/someipc/middleware"
)

// Hand-rolled middleware mocks. They record every call so tests can assert
// on ordering and arguments without a real runtime behind them.

const mockSession SessionID = 0x002A

type mockPayload struct {
	data []byte
}

func (p *mockPayload) Data() []byte { return p.data }

func (p *mockPayload) Length() uint32 { return uint32(len(p.data)) }

func (p *mockPayload) SetData(d []byte) {
	p.data = append([]byte(nil), d...)
}

type mockMessage struct {
	service  ServiceID
	instance InstanceID
	method   MethodID
	client   ClientID
	session  SessionID
	proto    ProtocolVersion
	ifVer    MajorVersion
	mType    middleware.MessageType
	retCode  middleware.ReturnCode
	reliable bool
	initial  bool
	pl       middleware.Payload
}

func (m *mockMessage) Service() ServiceID { return m.service }

func (m *mockMessage) SetService(v ServiceID) { m.service = v }

func (m *mockMessage) Instance() InstanceID { return m.instance }

func (m *mockMessage) SetInstance(v InstanceID) { m.instance = v }

func (m *mockMessage) Method() MethodID { return m.method }

func (m *mockMessage) SetMethod(v MethodID) { m.method = v }

func (m *mockMessage) Client() ClientID { return m.client }

func (m *mockMessage) SetClient(v ClientID) { m.client = v }

func (m *mockMessage) Session() SessionID { return m.session }

func (m *mockMessage) SetSession(v SessionID) { m.session = v }

func (m *mockMessage) ProtocolVersion() ProtocolVersion { return m.proto }

func (m *mockMessage) InterfaceVersion() MajorVersion { return m.ifVer }

func (m *mockMessage) SetInterfaceVersion(v MajorVersion) { m.ifVer = v }

func (m *mockMessage) Type() middleware.MessageType { return m.mType }

func (m *mockMessage) SetType(v middleware.MessageType) { m.mType = v }

func (m *mockMessage) ReturnCode() middleware.ReturnCode { return m.retCode }

func (m *mockMessage) SetReturnCode(v middleware.ReturnCode) { m.retCode = v }

func (m *mockMessage) IsReliable() bool { return m.reliable }

func (m *mockMessage) SetReliable(v bool) { m.reliable = v }

func (m *mockMessage) IsInitial() bool { return m.initial }

func (m *mockMessage) SetInitial(v bool) { m.initial = v }

func (m *mockMessage) Payload() middleware.Payload { return m.pl }

func (m *mockMessage) SetPayload(pl middleware.Payload) { m.pl = pl }

func (m *mockMessage) Length() uint32 {
	if m.pl == nil {
		return 0
	}
	return m.pl.Length()
}

type availRegistration struct {
	service  ServiceID
	instance InstanceID
	major    MajorVersion
	handler  middleware.AvailabilityHandler
}

type mockApplication struct {
	mu sync.Mutex

	name    string
	client  ClientID
	initErr error

	started chan struct{}
	stopped chan struct{}

	initCalls int
	stopCalls int
	cleared   bool

	sent []middleware.Message

	offered     []svcCall
	stopOffered []svcCall
	requested   []svcCall
	released    []svcCall

	stateHandler middleware.StateHandler
	availRegs    []availRegistration
	availUnregs  []availRegistration
	msgHandler   middleware.MessageHandler

	// call order across teardown-relevant methods
	calls []string
}

type svcCall struct {
	service  ServiceID
	instance InstanceID
	major    MajorVersion
	minor    MinorVersion
}

func newMockApplication(name string) *mockApplication {
	return &mockApplication{
		name:    name,
		client:  0x0101,
		started: make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func (a *mockApplication) record(call string) {
	a.mu.Lock()
	a.calls = append(a.calls, call)
	a.mu.Unlock()
}

func (a *mockApplication) Name() string { return a.name }

func (a *mockApplication) ClientID() ClientID { return a.client }

func (a *mockApplication) Init() error {
	a.mu.Lock()
	a.initCalls++
	a.mu.Unlock()
	return a.initErr
}

func (a *mockApplication) Start() {
	close(a.started)
	<-a.stopped
}

func (a *mockApplication) Stop() {
	a.record("stop")
	a.mu.Lock()
	a.stopCalls++
	first := a.stopCalls == 1
	a.mu.Unlock()
	if first {
		close(a.stopped)
	}
}

func (a *mockApplication) OfferService(service ServiceID, instance InstanceID,
	major MajorVersion, minor MinorVersion,
) {
	a.mu.Lock()
	a.offered = append(a.offered, svcCall{service, instance, major, minor})
	a.mu.Unlock()
}

func (a *mockApplication) StopOfferService(service ServiceID, instance InstanceID,
	major MajorVersion, minor MinorVersion,
) {
	a.mu.Lock()
	a.stopOffered = append(a.stopOffered, svcCall{service, instance, major, minor})
	a.mu.Unlock()
}

func (a *mockApplication) RequestService(service ServiceID, instance InstanceID,
	major MajorVersion, minor MinorVersion,
) {
	a.mu.Lock()
	a.requested = append(a.requested, svcCall{service, instance, major, minor})
	a.mu.Unlock()
}

func (a *mockApplication) ReleaseService(service ServiceID, instance InstanceID) {
	a.mu.Lock()
	a.released = append(a.released, svcCall{service: service, instance: instance})
	a.mu.Unlock()
}

func (a *mockApplication) OfferEvent(service ServiceID, instance InstanceID, notifier EventID,
	groups []EventgroupID, kind middleware.EventType, cycle time.Duration,
	changeResetsCycle, updateOnChange bool, reliability middleware.Reliability,
) {
}

func (a *mockApplication) StopOfferEvent(service ServiceID, instance InstanceID, notifier EventID) {}

func (a *mockApplication) RequestEvent(service ServiceID, instance InstanceID, event EventID,
	groups []EventgroupID, kind middleware.EventType, reliability middleware.Reliability,
) {
}

func (a *mockApplication) ReleaseEvent(service ServiceID, instance InstanceID, event EventID) {}

func (a *mockApplication) Subscribe(service ServiceID, instance InstanceID, group EventgroupID,
	major MajorVersion, event EventID,
) {
}

func (a *mockApplication) SubscribeWithDebounce(service ServiceID, instance InstanceID,
	group EventgroupID, major MajorVersion, event EventID, filter middleware.DebounceFilter,
) {
}

func (a *mockApplication) Unsubscribe(service ServiceID, instance InstanceID, group EventgroupID) {}

func (a *mockApplication) Notify(service ServiceID, instance InstanceID, event EventID,
	payload middleware.Payload, force bool,
) {
}

func (a *mockApplication) Send(msg middleware.Message) {
	if msg.Type() == middleware.MessageTypeRequest ||
		msg.Type() == middleware.MessageTypeRequestNoReturn {
		msg.SetClient(a.client)
		msg.SetSession(mockSession)
	}
	a.mu.Lock()
	a.sent = append(a.sent, msg)
	a.mu.Unlock()
}

func (a *mockApplication) sentMessages() []middleware.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]middleware.Message(nil), a.sent...)
}

func (a *mockApplication) RegisterStateHandler(handler middleware.StateHandler) {
	a.mu.Lock()
	a.stateHandler = handler
	a.mu.Unlock()
}

func (a *mockApplication) UnregisterStateHandler() {
	a.mu.Lock()
	a.stateHandler = nil
	a.mu.Unlock()
}

func (a *mockApplication) RegisterAvailabilityHandler(service ServiceID, instance InstanceID,
	handler middleware.AvailabilityHandler, major MajorVersion, minor MinorVersion,
) {
	a.mu.Lock()
	a.availRegs = append(a.availRegs, availRegistration{service, instance, major, handler})
	a.mu.Unlock()
}

func (a *mockApplication) UnregisterAvailabilityHandler(service ServiceID, instance InstanceID,
	major MajorVersion,
) {
	a.mu.Lock()
	a.availUnregs = append(a.availUnregs, availRegistration{service: service, instance: instance, major: major})
	a.mu.Unlock()
}

func (a *mockApplication) RegisterMessageHandler(service ServiceID, instance InstanceID,
	method MethodID, handler middleware.MessageHandler,
) {
	a.mu.Lock()
	a.msgHandler = handler
	a.mu.Unlock()
}

func (a *mockApplication) UnregisterMessageHandler(service ServiceID, instance InstanceID,
	method MethodID,
) {
	a.mu.Lock()
	a.msgHandler = nil
	a.mu.Unlock()
}

func (a *mockApplication) ClearAllHandlers() {
	a.record("clear_handlers")
	a.mu.Lock()
	a.cleared = true
	a.stateHandler = nil
	a.msgHandler = nil
	a.availRegs = nil
	a.mu.Unlock()
}

type mockRuntime struct {
	mu sync.Mutex

	app       *mockApplication
	createErr error

	removed []string
	calls   []string
}

func newMockRuntime() *mockRuntime {
	return &mockRuntime{}
}

func (r *mockRuntime) CreateApplication(name string) (middleware.Application, error) {
	if r.createErr != nil {
		return nil, r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.app == nil {
		r.app = newMockApplication(name)
	}
	return r.app, nil
}

func (r *mockRuntime) RemoveApplication(name string) {
	r.mu.Lock()
	r.removed = append(r.removed, name)
	r.calls = append(r.calls, "remove_application")
	r.mu.Unlock()
	if r.app != nil {
		r.app.record("remove_application")
	}
}

func (r *mockRuntime) CreatePayload(data []byte) middleware.Payload {
	return &mockPayload{data: append([]byte(nil), data...)}
}

func (r *mockRuntime) CreateEmptyPayload() middleware.Payload {
	return &mockPayload{}
}

func (r *mockRuntime) CreateMessage(reliable bool) middleware.Message {
	return &mockMessage{
		proto:    0x01,
		mType:    middleware.MessageTypeUnknown,
		reliable: reliable,
	}
}

func (r *mockRuntime) CreateRequest(reliable bool) middleware.Message {
	return &mockMessage{
		proto:    0x01,
		mType:    middleware.MessageTypeRequest,
		reliable: reliable,
	}
}
