package inproc

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/opd-ai/someipc/middleware"
)

const dispatchQueueSize = 256

type availScope struct {
	service  middleware.ServiceID
	instance middleware.InstanceID
	major    middleware.MajorVersion
}

type msgScope struct {
	service  middleware.ServiceID
	instance middleware.InstanceID
	method   middleware.MethodID
}

type eventKey struct {
	key   svcKey
	event middleware.EventID
}

type subKey struct {
	key   svcKey
	group middleware.EventgroupID
}

type eventState struct {
	groups         []middleware.EventgroupID
	kind           middleware.EventType
	updateOnChange bool
	hasValue       bool
	last           []byte
}

type initialValue struct {
	event middleware.EventID
	data  []byte
}

// application implements middleware.Application on top of the runtime's
// bus. Start runs the dispatch loop; every topic feeds into one work queue
// so all handlers execute on the Start goroutine.
type application struct {
	rt   *Runtime
	name string

	ctx    context.Context
	cancel context.CancelFunc

	dispatch chan func()
	quit     chan struct{}

	mu             sync.Mutex
	client         middleware.ClientID
	inited         bool
	running        bool
	stopped        bool
	nextSession    middleware.SessionID
	stateHandler   middleware.StateHandler
	availHandlers  map[availScope]middleware.AvailabilityHandler
	msgHandlers    map[msgScope]middleware.MessageHandler
	topicCancels   map[string]context.CancelFunc
	offeredEvents  map[eventKey]*eventState
	requestedEvent map[eventKey]struct{}
	subscriptions  map[subKey]middleware.EventID
}

func newApplication(rt *Runtime, name string) *application {
	ctx, cancel := context.WithCancel(context.Background())
	return &application{
		rt:             rt,
		name:           name,
		ctx:            ctx,
		cancel:         cancel,
		dispatch:       make(chan func(), dispatchQueueSize),
		quit:           make(chan struct{}),
		availHandlers:  make(map[availScope]middleware.AvailabilityHandler),
		msgHandlers:    make(map[msgScope]middleware.MessageHandler),
		topicCancels:   make(map[string]context.CancelFunc),
		offeredEvents:  make(map[eventKey]*eventState),
		requestedEvent: make(map[eventKey]struct{}),
		subscriptions:  make(map[subKey]middleware.EventID),
	}
}

func (a *application) Name() string {
	return a.name
}

func (a *application) ClientID() middleware.ClientID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.client
}

func (a *application) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inited {
		return nil
	}
	a.client = a.rt.assignClient()
	a.inited = true
	return nil
}

// Start runs the dispatch loop until Stop is called. Every registered
// handler is invoked from this goroutine. If Stop already ran, Start
// returns immediately, so a caller racing stop against start can always
// join.
func (a *application) Start() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	if !a.inited || a.running {
		a.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "application.Start",
			"name":     a.name,
		}).Warn("start ignored: not initialized or already running")
		return
	}
	a.running = true
	client := a.client
	handler := a.stateHandler
	quit := a.quit
	a.mu.Unlock()

	a.subscribeTopic(clientTopic(client), middleware.AnyEvent)
	if handler != nil {
		a.post(func() { handler(middleware.StateRegistered) })
	}

	for {
		select {
		case fn := <-a.dispatch:
			fn()
		case <-quit:
			return
		}
	}
}

// Stop terminates the dispatch loop. Queued work that has not run yet is
// dropped: once stop begins, no further callback delivery is promised.
// Stop is effective even before Start has entered its loop.
func (a *application) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	a.running = false
	a.mu.Unlock()

	a.cancel()
	close(a.quit)
}

// post enqueues fn for the dispatch loop. Posting after Stop is a no-op.
func (a *application) post(fn func()) {
	select {
	case a.dispatch <- fn:
	case <-a.quit:
	}
}

// subscribeTopic attaches a bus topic to the dispatch queue. filter
// restricts notification delivery to one event; AnyEvent passes all.
func (a *application) subscribeTopic(topic string, filter middleware.EventID) {
	ctx, cancel := context.WithCancel(a.ctx)

	a.mu.Lock()
	if _, exists := a.topicCancels[topic]; exists {
		a.mu.Unlock()
		cancel()
		return
	}
	a.topicCancels[topic] = cancel
	a.mu.Unlock()

	msgs, err := a.rt.bus.Subscribe(ctx, topic)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "application.subscribeTopic",
			"name":     a.name,
			"topic":    topic,
			"error":    err.Error(),
		}).Error("bus subscribe failed")
		return
	}

	go func() {
		for wm := range msgs {
			m, err := decodeWire(wm)
			wm.Ack()
			if err != nil {
				logrus.WithFields(logrus.Fields{
					"function": "application.subscribeTopic",
					"name":     a.name,
					"topic":    topic,
					"error":    err.Error(),
				}).Warn("dropping malformed bus message")
				continue
			}
			if m.Type() == middleware.MessageTypeNotification &&
				filter != middleware.AnyEvent && middleware.EventID(m.Method()) != filter {
				continue
			}
			a.postMessage(m)
		}
	}()
}

func (a *application) unsubscribeTopic(topic string) {
	a.mu.Lock()
	cancel, ok := a.topicCancels[topic]
	delete(a.topicCancels, topic)
	a.mu.Unlock()
	if ok {
		cancel()
	}
}

func (a *application) OfferService(service middleware.ServiceID, instance middleware.InstanceID,
	major middleware.MajorVersion, minor middleware.MinorVersion,
) {
	key := svcKey{service: service, instance: instance}
	a.subscribeTopic(serviceTopic(service, instance), middleware.AnyEvent)
	a.rt.announceOffer(a, key, major, minor, true)
}

func (a *application) StopOfferService(service middleware.ServiceID, instance middleware.InstanceID,
	major middleware.MajorVersion, minor middleware.MinorVersion,
) {
	key := svcKey{service: service, instance: instance}
	a.rt.announceOffer(a, key, major, minor, false)
	a.unsubscribeTopic(serviceTopic(service, instance))
}

func (a *application) RequestService(service middleware.ServiceID, instance middleware.InstanceID,
	major middleware.MajorVersion, minor middleware.MinorVersion,
) {
	key := svcKey{service: service, instance: instance}
	if offeredMajor, up := a.rt.watchService(a, key); up {
		a.postAvailability(service, instance, offeredMajor, true)
	}
}

func (a *application) ReleaseService(service middleware.ServiceID, instance middleware.InstanceID) {
	a.rt.unwatchService(a, svcKey{service: service, instance: instance})
}

func (a *application) OfferEvent(service middleware.ServiceID, instance middleware.InstanceID,
	notifier middleware.EventID, groups []middleware.EventgroupID, kind middleware.EventType,
	cycle time.Duration, changeResetsCycle, updateOnChange bool, reliability middleware.Reliability,
) {
	key := eventKey{key: svcKey{service: service, instance: instance}, event: notifier}
	a.mu.Lock()
	a.offeredEvents[key] = &eventState{
		groups:         append([]middleware.EventgroupID(nil), groups...),
		kind:           kind,
		updateOnChange: updateOnChange,
	}
	a.mu.Unlock()
}

func (a *application) StopOfferEvent(service middleware.ServiceID, instance middleware.InstanceID,
	notifier middleware.EventID,
) {
	key := eventKey{key: svcKey{service: service, instance: instance}, event: notifier}
	a.mu.Lock()
	delete(a.offeredEvents, key)
	a.mu.Unlock()
}

func (a *application) RequestEvent(service middleware.ServiceID, instance middleware.InstanceID,
	event middleware.EventID, groups []middleware.EventgroupID, kind middleware.EventType,
	reliability middleware.Reliability,
) {
	key := eventKey{key: svcKey{service: service, instance: instance}, event: event}
	a.mu.Lock()
	a.requestedEvent[key] = struct{}{}
	a.mu.Unlock()
}

func (a *application) ReleaseEvent(service middleware.ServiceID, instance middleware.InstanceID,
	event middleware.EventID,
) {
	key := eventKey{key: svcKey{service: service, instance: instance}, event: event}
	a.mu.Lock()
	delete(a.requestedEvent, key)
	a.mu.Unlock()
}

func (a *application) Subscribe(service middleware.ServiceID, instance middleware.InstanceID,
	group middleware.EventgroupID, major middleware.MajorVersion, event middleware.EventID,
) {
	key := svcKey{service: service, instance: instance}
	a.mu.Lock()
	a.subscriptions[subKey{key: key, group: group}] = event
	a.mu.Unlock()

	a.subscribeTopic(eventTopic(service, instance, group), event)
	a.rt.deliverInitialValues(a, key, group, event)
}

func (a *application) SubscribeWithDebounce(service middleware.ServiceID, instance middleware.InstanceID,
	group middleware.EventgroupID, major middleware.MajorVersion, event middleware.EventID,
	filter middleware.DebounceFilter,
) {
	// The in-process bus delivers instantly; the debounce filter has no
	// observable effect here beyond a plain subscription.
	logrus.WithFields(logrus.Fields{
		"function": "application.SubscribeWithDebounce",
		"name":     a.name,
		"interval": filter.Interval,
	}).Debug("debounce filter ignored by in-process runtime")
	a.Subscribe(service, instance, group, major, event)
}

func (a *application) Unsubscribe(service middleware.ServiceID, instance middleware.InstanceID,
	group middleware.EventgroupID,
) {
	key := svcKey{service: service, instance: instance}
	a.mu.Lock()
	delete(a.subscriptions, subKey{key: key, group: group})
	a.mu.Unlock()
	a.unsubscribeTopic(eventTopic(service, instance, group))
}

func (a *application) Notify(service middleware.ServiceID, instance middleware.InstanceID,
	event middleware.EventID, payload middleware.Payload, force bool,
) {
	key := eventKey{key: svcKey{service: service, instance: instance}, event: event}
	var data []byte
	if payload != nil {
		data = append([]byte(nil), payload.Data()...)
	}

	a.mu.Lock()
	st, ok := a.offeredEvents[key]
	if !ok {
		a.mu.Unlock()
		logrus.WithFields(logrus.Fields{
			"function": "application.Notify",
			"name":     a.name,
			"service":  service,
			"event":    event,
		}).Warn("notify on unoffered event ignored")
		return
	}
	changed := !st.hasValue || !bytes.Equal(st.last, data)
	st.last = data
	st.hasValue = true
	groups := append([]middleware.EventgroupID(nil), st.groups...)
	client := a.client
	send := force || (st.updateOnChange && changed)
	a.mu.Unlock()

	if !send {
		return
	}

	m := newMessage(false)
	m.SetService(service)
	m.SetInstance(instance)
	m.SetMethod(middleware.MethodID(event))
	m.SetClient(client)
	m.SetType(middleware.MessageTypeNotification)
	m.SetPayload(newPayload(data))
	for _, g := range groups {
		a.publish(eventTopic(service, instance, g), m)
	}
}

// Send transmits a message. Requests get the client and a fresh session
// stamped here, which is how the "middleware-assigned session" reaches the
// caller. Prebuilt notifications go through the offered event's topics,
// the same route Notify takes.
func (a *application) Send(m middleware.Message) {
	switch m.Type() {
	case middleware.MessageTypeRequest, middleware.MessageTypeRequestNoReturn:
		a.mu.Lock()
		m.SetClient(a.client)
		if m.Session() == middleware.NoSession {
			a.nextSession++
			if a.nextSession == middleware.NoSession {
				a.nextSession++
			}
			m.SetSession(a.nextSession)
		}
		a.mu.Unlock()
		a.publish(serviceTopic(m.Service(), m.Instance()), m)

	case middleware.MessageTypeResponse, middleware.MessageTypeError:
		a.publish(clientTopic(m.Client()), m)

	case middleware.MessageTypeNotification:
		a.Notify(m.Service(), m.Instance(), middleware.EventID(m.Method()), m.Payload(), true)

	default:
		logrus.WithFields(logrus.Fields{
			"function":     "application.Send",
			"name":         a.name,
			"message_type": uint8(m.Type()),
		}).Warn("send ignored for message type")
	}
}

func (a *application) publish(topic string, m middleware.Message) {
	if err := a.rt.bus.Publish(topic, encodeWire(m)); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "application.publish",
			"name":     a.name,
			"topic":    topic,
			"error":    err.Error(),
		}).Error("bus publish failed")
	}
}

func (a *application) RegisterStateHandler(handler middleware.StateHandler) {
	a.mu.Lock()
	a.stateHandler = handler
	running := a.running
	a.mu.Unlock()

	// The current state is reported right away, as a real middleware does
	// on registration.
	if running && handler != nil {
		a.post(func() { handler(middleware.StateRegistered) })
	}
}

func (a *application) UnregisterStateHandler() {
	a.mu.Lock()
	a.stateHandler = nil
	a.mu.Unlock()
}

func (a *application) RegisterAvailabilityHandler(service middleware.ServiceID,
	instance middleware.InstanceID, handler middleware.AvailabilityHandler,
	major middleware.MajorVersion, minor middleware.MinorVersion,
) {
	scope := availScope{service: service, instance: instance, major: major}
	a.mu.Lock()
	a.availHandlers[scope] = handler
	a.mu.Unlock()

	if service != middleware.AnyService && instance != middleware.AnyInstance {
		offeredMajor, up := a.rt.offered(svcKey{service: service, instance: instance})
		if up && (major == middleware.AnyMajor || major == offeredMajor) {
			a.post(func() { handler(service, instance, true) })
		}
	}
}

func (a *application) UnregisterAvailabilityHandler(service middleware.ServiceID,
	instance middleware.InstanceID, major middleware.MajorVersion,
) {
	scope := availScope{service: service, instance: instance, major: major}
	a.mu.Lock()
	delete(a.availHandlers, scope)
	a.mu.Unlock()
}

func (a *application) RegisterMessageHandler(service middleware.ServiceID,
	instance middleware.InstanceID, method middleware.MethodID, handler middleware.MessageHandler,
) {
	scope := msgScope{service: service, instance: instance, method: method}
	a.mu.Lock()
	a.msgHandlers[scope] = handler
	a.mu.Unlock()
}

func (a *application) UnregisterMessageHandler(service middleware.ServiceID,
	instance middleware.InstanceID, method middleware.MethodID,
) {
	scope := msgScope{service: service, instance: instance, method: method}
	a.mu.Lock()
	delete(a.msgHandlers, scope)
	a.mu.Unlock()
}

func (a *application) ClearAllHandlers() {
	a.mu.Lock()
	a.stateHandler = nil
	a.availHandlers = make(map[availScope]middleware.AvailabilityHandler)
	a.msgHandlers = make(map[msgScope]middleware.MessageHandler)
	a.mu.Unlock()
}

func (a *application) postAvailability(service middleware.ServiceID,
	instance middleware.InstanceID, major middleware.MajorVersion, up bool,
) {
	a.post(func() { a.deliverAvailability(service, instance, major, up) })
}

func (a *application) deliverAvailability(service middleware.ServiceID,
	instance middleware.InstanceID, major middleware.MajorVersion, up bool,
) {
	a.mu.Lock()
	matched := make([]middleware.AvailabilityHandler, 0, len(a.availHandlers))
	for scope, h := range a.availHandlers {
		if (scope.service == middleware.AnyService || scope.service == service) &&
			(scope.instance == middleware.AnyInstance || scope.instance == instance) &&
			(scope.major == middleware.AnyMajor || scope.major == major) {
			matched = append(matched, h)
		}
	}
	a.mu.Unlock()

	for _, h := range matched {
		h(service, instance, up)
	}
}

func (a *application) postMessage(m middleware.Message) {
	a.post(func() { a.deliverMessage(m) })
}

func (a *application) deliverMessage(m middleware.Message) {
	a.mu.Lock()
	matched := make([]middleware.MessageHandler, 0, len(a.msgHandlers))
	for scope, h := range a.msgHandlers {
		if (scope.service == middleware.AnyService || scope.service == m.Service()) &&
			(scope.instance == middleware.AnyInstance || scope.instance == m.Instance()) &&
			(scope.method == middleware.AnyMethod || scope.method == m.Method()) {
			matched = append(matched, h)
		}
	}
	a.mu.Unlock()

	for _, h := range matched {
		h(m)
	}
}

// initialValues returns the stored values of all field events of the given
// eventgroup, for initial delivery to a fresh subscriber.
func (a *application) initialValues(key svcKey, group middleware.EventgroupID) []initialValue {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out []initialValue
	for ek, st := range a.offeredEvents {
		if ek.key != key || st.kind != middleware.EventTypeField || !st.hasValue {
			continue
		}
		for _, g := range st.groups {
			if g == group {
				out = append(out, initialValue{
					event: ek.event,
					data:  append([]byte(nil), st.last...),
				})
				break
			}
		}
	}
	return out
}
