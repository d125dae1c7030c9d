package someipc

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/someipc/middleware"
)

// StateCallback receives registration state changes.
type StateCallback func(StateType)

// AvailabilityCallback receives availability changes for a service instance.
type AvailabilityCallback func(ServiceID, InstanceID, AvailabilityState)

// MessageCallback receives incoming messages. The message and its payload
// are owned by the middleware and valid for the duration of the call.
type MessageCallback func(middleware.Message)

type availKey struct {
	service  ServiceID
	instance InstanceID
	major    MajorVersion
}

// Application wraps one middleware application object and its dispatch
// goroutine. It is created with Create, not copyable, and must be released
// with Close exactly once. All callbacks registered through Setup* methods
// are invoked on the dispatch goroutine, concurrently with the caller.
type Application struct {
	runtime middleware.Runtime
	app     middleware.Application
	name    string

	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
	stopped bool
	closed  bool

	// Scoped availability handlers, at most one per (service, instance,
	// major) key. Tracked here so re-registration replaces deterministically
	// instead of relying on the middleware's override behavior.
	availHandlers map[availKey]AvailabilityCallback
}

// Create obtains an application from the runtime, initializes it and starts
// its dispatch goroutine. It returns nil if creation or initialization
// fails; the failure is logged, never raised.
func Create(runtime middleware.Runtime, name string) *Application {
	app, err := runtime.CreateApplication(name)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Create",
			"name":     name,
			"error":    err.Error(),
		}).Error("failed to create middleware application")
		return nil
	}
	if err := app.Init(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Create",
			"name":     name,
			"error":    err.Error(),
		}).Error("failed to initialize middleware application")
		runtime.RemoveApplication(name)
		return nil
	}

	a := &Application{
		runtime:       runtime,
		app:           app,
		name:          name,
		availHandlers: make(map[availKey]AvailabilityCallback),
	}
	a.start()
	return a
}

// start launches the dispatch goroutine. Exactly once per handle lifetime.
func (a *Application) start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.started {
		panic("someipc: application dispatch goroutine already started")
	}
	a.started = true
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.app.Start()
	}()
}

// Stop stops the middleware application and blocks until the dispatch
// goroutine has exited. Calling Stop again after it returned is a no-op;
// Close calls it implicitly.
func (a *Application) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.mu.Unlock()

	a.app.Stop()
	a.wg.Wait()
}

// Close releases the application: it clears all handlers, stops the
// dispatch goroutine, removes the application from the runtime and drops
// both references, in that order, so no callback fires after teardown
// begins. Close is idempotent.
func (a *Application) Close() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.mu.Unlock()

	a.app.ClearAllHandlers()
	a.Stop()
	a.runtime.RemoveApplication(a.name)
	a.app = nil
	a.runtime = nil
}

// Name returns the application name.
func (a *Application) Name() string {
	return a.name
}

// ClientID returns the client identifier assigned by the middleware.
func (a *Application) ClientID() ClientID {
	return a.app.ClientID()
}

// RequestService announces interest in a service instance. Availability is
// reported through the availability handlers.
func (a *Application) RequestService(service ServiceID, instance InstanceID, version Version) {
	a.app.RequestService(service, instance, version.Major, version.Minor)
}

// ReleaseService withdraws a previous service request.
func (a *Application) ReleaseService(service ServiceID, instance InstanceID) {
	a.app.ReleaseService(service, instance)
}

// OfferService announces readiness to serve a service instance.
func (a *Application) OfferService(service ServiceID, instance InstanceID, version Version) {
	a.app.OfferService(service, instance, version.Major, version.Minor)
}

// StopOfferService withdraws a service offer.
func (a *Application) StopOfferService(service ServiceID, instance InstanceID, version Version) {
	a.app.StopOfferService(service, instance, version.Major, version.Minor)
}

// RequestEvent configures an event for reception. All events of an
// eventgroup should be requested before the first subscription to the
// group, otherwise initial notifications may be discarded by the
// middleware.
func (a *Application) RequestEvent(service ServiceID, instance InstanceID, event EventID,
	groups []EventgroupID, isField bool,
) {
	a.app.RequestEvent(service, instance, event, groups, eventKind(isField), middleware.ReliabilityUnknown)
}

// ReleaseEvent releases a previously requested event.
func (a *Application) ReleaseEvent(service ServiceID, instance InstanceID, event EventID) {
	a.app.ReleaseEvent(service, instance, event)
}

// OfferEvent offers an event or field under the given eventgroups.
func (a *Application) OfferEvent(service ServiceID, instance InstanceID, notifier EventID,
	groups []EventgroupID, isField bool, cycle time.Duration, changeResetsCycle, updateOnChange bool,
) {
	a.app.OfferEvent(service, instance, notifier, groups, eventKind(isField),
		cycle, changeResetsCycle, updateOnChange, middleware.ReliabilityUnknown)
}

// StopOfferEvent withdraws an event offer.
func (a *Application) StopOfferEvent(service ServiceID, instance InstanceID, notifier EventID) {
	a.app.StopOfferEvent(service, instance, notifier)
}

// Subscribe subscribes to an eventgroup. The event argument only filters
// which notifications of the group are forwarded to this application.
func (a *Application) Subscribe(service ServiceID, instance InstanceID, group EventgroupID,
	event EventID, major MajorVersion,
) {
	a.app.Subscribe(service, instance, group, major, event)
}

// SubscribeWithDebounce subscribes to an eventgroup with a debounce filter.
func (a *Application) SubscribeWithDebounce(service ServiceID, instance InstanceID, group EventgroupID,
	event EventID, major MajorVersion, filter middleware.DebounceFilter,
) {
	a.app.SubscribeWithDebounce(service, instance, group, major, event, filter)
}

// Unsubscribe cancels a subscription to an eventgroup.
func (a *Application) Unsubscribe(service ServiceID, instance InstanceID, group EventgroupID) {
	a.app.Unsubscribe(service, instance, group)
}

// Notify updates the data of an offered event and notifies subscribers.
func (a *Application) Notify(service ServiceID, instance InstanceID, event EventID,
	data []byte, force bool,
) {
	payload := a.runtime.CreatePayload(data)
	a.app.Notify(service, instance, event, payload, force)
}

// SendRequest builds a request from the raw payload bytes, sends it and
// returns the session identifier assigned by the middleware. The eventual
// response carries the same session.
func (a *Application) SendRequest(service ServiceID, instance InstanceID, method MethodID,
	major MajorVersion, data []byte, reliable bool,
) SessionID {
	msg := a.runtime.CreateRequest(reliable)
	msg.SetService(service)
	msg.SetInstance(instance)
	msg.SetMethod(method)
	msg.SetInterfaceVersion(major)
	msg.SetPayload(a.runtime.CreatePayload(data))
	a.app.Send(msg)
	return msg.Session()
}

// SendResponse sends a response to the request described by req, carrying
// the given return code and payload.
func (a *Application) SendResponse(req MessageHeader, rc ReturnCode, data []byte) {
	msg := a.responseFor(req, rc)
	msg.SetPayload(a.runtime.CreatePayload(data))
	a.app.Send(msg)
}

// SendError sends an error response to the request described by req. No
// payload is attached.
func (a *Application) SendError(req MessageHeader, rc ReturnCode) {
	a.app.Send(a.responseFor(req, rc))
}

func (a *Application) responseFor(req MessageHeader, rc ReturnCode) middleware.Message {
	msg := a.runtime.CreateMessage(req.Reliable)
	msg.SetService(req.Service)
	msg.SetInstance(req.Instance)
	msg.SetMethod(req.Method)
	msg.SetClient(req.Client)
	msg.SetSession(req.Session)
	msg.SetInterfaceVersion(req.InterfaceVersion)
	msg.SetType(middleware.MessageTypeResponse)
	msg.SetReturnCode(rc.Native())
	return msg
}

// CreatePayload creates a payload holding a copy of data.
func (a *Application) CreatePayload(data []byte) middleware.Payload {
	return a.runtime.CreatePayload(data)
}

// CreateEmptyPayload creates a payload with no data.
func (a *Application) CreateEmptyPayload() middleware.Payload {
	return a.runtime.CreateEmptyPayload()
}

// CreateMessage builds a message with the given header fields and payload
// bytes. An empty data slice leaves the message without payload.
func (a *Application) CreateMessage(service ServiceID, instance InstanceID, method MethodID,
	session SessionID, mt MessageType, rc ReturnCode, data []byte,
) middleware.Message {
	msg := a.runtime.CreateMessage(false)
	msg.SetService(service)
	msg.SetInstance(instance)
	msg.SetMethod(method)
	msg.SetSession(session)
	msg.SetType(mt.Native())
	msg.SetReturnCode(rc.Native())
	if len(data) > 0 {
		msg.SetPayload(a.runtime.CreatePayload(data))
	}
	return msg
}

// SendMessage forwards a prebuilt message to the middleware.
func (a *Application) SendMessage(msg middleware.Message) {
	a.app.Send(msg)
}

// SetupStateHandler installs the registration state handler.
func (a *Application) SetupStateHandler(cb StateCallback) {
	a.app.RegisterStateHandler(func(st middleware.State) {
		cb(stateFromNative(st))
	})
}

// SetupAvailHandler installs the global availability handler covering all
// services. It is independent of handlers installed per scope.
func (a *Application) SetupAvailHandler(cb AvailabilityCallback) {
	a.app.RegisterAvailabilityHandler(AnyService, AnyInstance,
		availAdapter(cb), AnyMajor, AnyMinor)
}

// SetupAvailHandlerFor installs an availability handler scoped to one
// (service, instance, major) key. At most one handler is active per key;
// installing a second one replaces the first.
func (a *Application) SetupAvailHandlerFor(service ServiceID, instance InstanceID,
	major MajorVersion, cb AvailabilityCallback,
) {
	key := availKey{service: service, instance: instance, major: major}

	a.mu.Lock()
	_, replaced := a.availHandlers[key]
	a.availHandlers[key] = cb
	a.mu.Unlock()

	if replaced {
		a.app.UnregisterAvailabilityHandler(service, instance, major)
	}
	a.app.RegisterAvailabilityHandler(service, instance, availAdapter(cb), major, AnyMinor)
}

// ClearAvailHandler removes the availability handler for one scope key.
// Clearing a handler that was never installed is tolerated.
func (a *Application) ClearAvailHandler(service ServiceID, instance InstanceID, major MajorVersion) {
	key := availKey{service: service, instance: instance, major: major}

	a.mu.Lock()
	delete(a.availHandlers, key)
	a.mu.Unlock()

	a.app.UnregisterAvailabilityHandler(service, instance, major)
}

// SetupMsgHandler installs the message handler covering all incoming
// messages. Only one is active at a time; re-registering replaces it.
func (a *Application) SetupMsgHandler(cb MessageCallback) {
	a.app.RegisterMessageHandler(AnyService, AnyInstance, AnyMethod, func(msg middleware.Message) {
		cb(msg)
	})
}

func availAdapter(cb AvailabilityCallback) middleware.AvailabilityHandler {
	return func(service ServiceID, instance InstanceID, avail bool) {
		state := Unavailable
		if avail {
			state = Available
		}
		cb(service, instance, state)
	}
}

func eventKind(isField bool) middleware.EventType {
	if isField {
		return middleware.EventTypeField
	}
	return middleware.EventTypeEvent
}
