package inproc

import (
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/sirupsen/logrus"

	"github.com/opd-ai/someipc/middleware"
)

// Config carries runtime-wide settings, the in-process counterpart of the
// middleware's external logging configuration file.
type Config struct {
	// LogLevel controls the verbosity of the whole process, like the
	// middleware's logging configuration file would.
	LogLevel logrus.Level

	// ChannelBuffer sizes the bus output channels.
	ChannelBuffer int64
}

// DefaultConfig returns the default runtime configuration.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:      logrus.InfoLevel,
		ChannelBuffer: 64,
	}
}

type svcKey struct {
	service  middleware.ServiceID
	instance middleware.InstanceID
}

type offerState struct {
	provider *application
	major    middleware.MajorVersion
	minor    middleware.MinorVersion
}

// Runtime is the in-process middleware runtime. All applications created
// from the same Runtime can reach each other.
type Runtime struct {
	bus *gochannel.GoChannel

	mu       sync.Mutex
	apps     map[string]*application
	offers   map[svcKey]*offerState
	watchers map[svcKey]map[*application]struct{}
	nextID   middleware.ClientID
}

var (
	defaultRuntime *Runtime
	defaultOnce    sync.Once
)

// Get returns the process-wide default runtime, creating it on first use.
func Get() *Runtime {
	defaultOnce.Do(func() {
		defaultRuntime = NewRuntime(nil)
	})
	return defaultRuntime
}

// NewRuntime creates an isolated runtime. A nil config selects defaults.
func NewRuntime(cfg *Config) *Runtime {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logrus.SetLevel(cfg.LogLevel)

	bus := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: cfg.ChannelBuffer,
	}, newLoggerAdapter())

	return &Runtime{
		bus:      bus,
		apps:     make(map[string]*application),
		offers:   make(map[svcKey]*offerState),
		watchers: make(map[svcKey]map[*application]struct{}),
	}
}

// CreateApplication creates a named application. Names are unique per
// runtime.
func (r *Runtime) CreateApplication(name string) (middleware.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.apps[name]; exists {
		return nil, fmt.Errorf("application name %q already in use", name)
	}
	a := newApplication(r, name)
	r.apps[name] = a

	logrus.WithFields(logrus.Fields{
		"function": "Runtime.CreateApplication",
		"name":     name,
	}).Debug("application created")
	return a, nil
}

// RemoveApplication removes a previously created application. Unknown
// names are ignored.
func (r *Runtime) RemoveApplication(name string) {
	r.mu.Lock()
	a, exists := r.apps[name]
	if exists {
		delete(r.apps, name)
		for key, set := range r.watchers {
			delete(set, a)
			if len(set) == 0 {
				delete(r.watchers, key)
			}
		}
		for key, offer := range r.offers {
			if offer.provider == a {
				delete(r.offers, key)
			}
		}
	}
	r.mu.Unlock()

	if exists {
		logrus.WithFields(logrus.Fields{
			"function": "Runtime.RemoveApplication",
			"name":     name,
		}).Debug("application removed")
	}
}

// CreatePayload creates a payload holding a copy of data.
func (r *Runtime) CreatePayload(data []byte) middleware.Payload {
	return newPayload(data)
}

// CreateEmptyPayload creates a payload with no data.
func (r *Runtime) CreateEmptyPayload() middleware.Payload {
	return &payload{}
}

// CreateMessage creates a blank message.
func (r *Runtime) CreateMessage(reliable bool) middleware.Message {
	return newMessage(reliable)
}

// CreateRequest creates a request-typed message.
func (r *Runtime) CreateRequest(reliable bool) middleware.Message {
	return newRequest(reliable)
}

func (r *Runtime) assignClient() middleware.ClientID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	return r.nextID
}

// watchService records a's interest in the service and reports whether it
// is currently offered, and under which major version.
func (r *Runtime) watchService(a *application, key svcKey) (middleware.MajorVersion, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.watchers[key]
	if !ok {
		set = make(map[*application]struct{})
		r.watchers[key] = set
	}
	set[a] = struct{}{}
	if offer, offered := r.offers[key]; offered {
		return offer.major, true
	}
	return 0, false
}

func (r *Runtime) unwatchService(a *application, key svcKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.watchers[key]; ok {
		delete(set, a)
		if len(set) == 0 {
			delete(r.watchers, key)
		}
	}
}

// announceOffer records or withdraws an offer and fans the availability
// change out to every watching application.
func (r *Runtime) announceOffer(provider *application, key svcKey,
	major middleware.MajorVersion, minor middleware.MinorVersion, up bool,
) {
	r.mu.Lock()
	if up {
		r.offers[key] = &offerState{provider: provider, major: major, minor: minor}
	} else {
		delete(r.offers, key)
	}
	targets := make([]*application, 0, len(r.watchers[key]))
	for a := range r.watchers[key] {
		targets = append(targets, a)
	}
	r.mu.Unlock()

	for _, a := range targets {
		a.postAvailability(key.service, key.instance, major, up)
	}
}

// offered reports whether the service instance is currently offered, and
// under which major version.
func (r *Runtime) offered(key svcKey) (middleware.MajorVersion, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offer, ok := r.offers[key]; ok {
		return offer.major, true
	}
	return 0, false
}

// deliverInitialValues sends the stored values of all field events of the
// given eventgroup to a fresh subscriber, flagged as initial
// notifications.
func (r *Runtime) deliverInitialValues(sub *application, key svcKey,
	group middleware.EventgroupID, filter middleware.EventID,
) {
	r.mu.Lock()
	offer, ok := r.offers[key]
	r.mu.Unlock()
	if !ok {
		return
	}

	for _, iv := range offer.provider.initialValues(key, group) {
		if filter != middleware.AnyEvent && filter != iv.event {
			continue
		}
		m := newMessage(false)
		m.SetService(key.service)
		m.SetInstance(key.instance)
		m.SetMethod(middleware.MethodID(iv.event))
		m.SetType(middleware.MessageTypeNotification)
		m.SetInitial(true)
		m.SetPayload(newPayload(iv.data))
		sub.postMessage(m)
	}
}
