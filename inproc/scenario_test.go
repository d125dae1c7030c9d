package inproc_test

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opd-ai/someipc"
	"github.com/opd-ai/someipc/inproc"
)

func nextEvent(t *testing.T, ev *someipc.Events) someipc.Event {
	t.Helper()
	select {
	case e := <-ev.C():
		return e
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for event")
		return nil
	}
}

// waitForAvailability discards events until the service instance reports
// the wanted availability.
func waitForAvailability(t *testing.T, ev *someipc.Events, service someipc.ServiceID,
	instance someipc.InstanceID, want bool,
) {
	t.Helper()
	for {
		if ae, ok := nextEvent(t, ev).(someipc.AvailabilityEvent); ok {
			if ae.Service == service && ae.Instance == instance && ae.Available == want {
				return
			}
		}
	}
}

// waitForMessage discards events until a message of the wanted type
// arrives.
func waitForMessage(t *testing.T, ev *someipc.Events, mt someipc.MessageType) someipc.MessageEvent {
	t.Helper()
	for {
		if me, ok := nextEvent(t, ev).(someipc.MessageEvent); ok {
			if me.Header.Type == mt {
				return me
			}
		}
	}
}

func u32(v uint32) []byte {
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, v)
	return out
}

// Scenario: a provider offers one method that echoes the request payload
// xor-ed with a fixed key, a consumer sends a run of requests and matches
// every response back to its session.
func TestRequestResponseRoundTrips(t *testing.T) {
	const (
		service  someipc.ServiceID  = 0x002A
		instance someipc.InstanceID = 101
		method   someipc.MethodID   = 0x0002
		xorKey   uint32             = 0x12345678
		requests uint32             = 20
	)
	version := someipc.MakeVersion(2, 3)
	rt := inproc.NewRuntime(nil)

	provider := someipc.Create(rt, "provider")
	require.NotNil(t, provider)
	defer provider.Close()
	pev := someipc.OpenEvents(provider, 64)
	provider.OfferService(service, instance, version)

	providerDone := make(chan struct{})
	go func() {
		defer close(providerDone)
		for e := range pev.C() {
			me, ok := e.(someipc.MessageEvent)
			if !ok || me.Header.Type != someipc.MTRequest {
				continue
			}
			assert.Equal(t, service, me.Header.Service)
			assert.Equal(t, instance, me.Header.Instance)
			assert.Equal(t, method, me.Header.Method)
			if !assert.Len(t, me.Payload, 4) {
				return
			}

			input := binary.BigEndian.Uint32(me.Payload)
			provider.SendResponse(me.Header, someipc.EOK, u32(input^xorKey))
			if input == requests-1 {
				return
			}
		}
	}()

	consumer := someipc.Create(rt, "consumer")
	require.NotNil(t, consumer)
	defer consumer.Close()
	cev := someipc.OpenEvents(consumer, 64)
	consumer.RequestService(service, instance, version)
	waitForAvailability(t, cev, service, instance, true)

	sessions := make(map[someipc.SessionID]uint32)
	for i := uint32(0); i < requests; i++ {
		session := consumer.SendRequest(service, instance, method, version.Major, u32(i), false)
		require.NotEqual(t, someipc.NoSession, session)
		sessions[session] = i

		resp := waitForMessage(t, cev, someipc.MTResponse)
		assert.Equal(t, service, resp.Header.Service)
		assert.Equal(t, method, resp.Header.Method)
		assert.Equal(t, someipc.EOK, resp.Header.ReturnCode)
		require.Len(t, resp.Payload, 4)

		input := binary.BigEndian.Uint32(resp.Payload) ^ xorKey
		want, known := sessions[resp.Header.Session]
		require.True(t, known, "response for unknown session %04x", resp.Header.Session)
		assert.Equal(t, want, input)
	}

	select {
	case <-providerDone:
	case <-time.After(5 * time.Second):
		t.Fatal("provider loop did not finish")
	}
}

// Scenario: a provider offers a field event and notifies it; a fresh
// subscriber first receives the stored value as an initial notification,
// then the live updates.
func TestFieldNotifyDeliversInitialValue(t *testing.T) {
	const (
		service  someipc.ServiceID    = 0x4711
		instance someipc.InstanceID   = 42
		notifier someipc.EventID      = 0x8002
		group    someipc.EventgroupID = 8
		updates  uint32               = 10
	)
	version := someipc.MakeVersion(3, 28)
	groups := []someipc.EventgroupID{group}
	rt := inproc.NewRuntime(nil)

	provider := someipc.Create(rt, "provider")
	require.NotNil(t, provider)
	defer provider.Close()
	provider.OfferEvent(service, instance, notifier, groups, true, 0, true, true)
	provider.OfferService(service, instance, version)
	provider.Notify(service, instance, notifier, u32(1), true)

	consumer := someipc.Create(rt, "consumer")
	require.NotNil(t, consumer)
	defer consumer.Close()
	cev := someipc.OpenEvents(consumer, 64)
	consumer.RequestService(service, instance, version)
	consumer.RequestEvent(service, instance, notifier, groups, true)
	waitForAvailability(t, cev, service, instance, true)
	consumer.Subscribe(service, instance, group, notifier, version.Major)

	first := waitForMessage(t, cev, someipc.MTNotification)
	assert.True(t, first.Header.Initial)
	assert.Equal(t, someipc.MethodID(notifier), first.Header.Method)
	require.Len(t, first.Payload, 4)
	assert.EqualValues(t, 1, binary.BigEndian.Uint32(first.Payload))

	for v := uint32(2); v <= updates; v++ {
		provider.Notify(service, instance, notifier, u32(v), true)
		me := waitForMessage(t, cev, someipc.MTNotification)
		assert.False(t, me.Header.Initial)
		require.Len(t, me.Payload, 4)
		assert.Equal(t, v, binary.BigEndian.Uint32(me.Payload))
	}

	consumer.ReleaseEvent(service, instance, notifier)
	consumer.ReleaseService(service, instance)
}

func TestAvailabilityFollowsOfferLifecycle(t *testing.T) {
	const (
		service  someipc.ServiceID  = 0x1000
		instance someipc.InstanceID = 1
	)
	version := someipc.MakeVersion(1, 0)
	rt := inproc.NewRuntime(nil)

	consumer := someipc.Create(rt, "consumer")
	require.NotNil(t, consumer)
	defer consumer.Close()
	cev := someipc.OpenEvents(consumer, 16)
	consumer.RequestService(service, instance, version)

	provider := someipc.Create(rt, "provider")
	require.NotNil(t, provider)
	defer provider.Close()
	provider.OfferService(service, instance, version)
	waitForAvailability(t, cev, service, instance, true)

	provider.StopOfferService(service, instance, version)
	waitForAvailability(t, cev, service, instance, false)
}

func TestAvailabilityReportedWhenAlreadyOffered(t *testing.T) {
	const (
		service  someipc.ServiceID  = 0x1001
		instance someipc.InstanceID = 2
	)
	version := someipc.MakeVersion(1, 0)
	rt := inproc.NewRuntime(nil)

	provider := someipc.Create(rt, "provider")
	require.NotNil(t, provider)
	defer provider.Close()
	provider.OfferService(service, instance, version)

	// The service is up before the consumer even asks.
	consumer := someipc.Create(rt, "consumer")
	require.NotNil(t, consumer)
	defer consumer.Close()
	cev := someipc.OpenEvents(consumer, 16)
	consumer.RequestService(service, instance, version)
	waitForAvailability(t, cev, service, instance, true)
}

// Availability handlers scoped to a major version must only fire for
// offers of that major; the wildcard scope sees every offer.
func TestScopedAvailabilityHonorsMajorVersion(t *testing.T) {
	const (
		service  someipc.ServiceID  = 0x3000
		instance someipc.InstanceID = 1
	)
	rt := inproc.NewRuntime(nil)

	consumer := someipc.Create(rt, "consumer")
	require.NotNil(t, consumer)
	defer consumer.Close()
	consumer.RequestService(service, instance, someipc.AnyVersion())

	fired := make(chan someipc.MajorVersion, 8)
	for _, major := range []someipc.MajorVersion{1, 2, someipc.AnyMajor} {
		scope := major
		consumer.SetupAvailHandlerFor(service, instance, scope,
			func(_ someipc.ServiceID, _ someipc.InstanceID, state someipc.AvailabilityState) {
				if state == someipc.Available {
					fired <- scope
				}
			})
	}

	provider := someipc.Create(rt, "provider")
	require.NotNil(t, provider)
	defer provider.Close()
	provider.OfferService(service, instance, someipc.MakeVersion(2, 0))

	seen := make(map[someipc.MajorVersion]bool)
	for i := 0; i < 2; i++ {
		select {
		case m := <-fired:
			seen[m] = true
		case <-time.After(5 * time.Second):
			t.Fatal("timeout waiting for availability callbacks")
		}
	}
	assert.True(t, seen[2])
	assert.True(t, seen[someipc.AnyMajor])

	select {
	case m := <-fired:
		t.Fatalf("handler scoped to major %d fired for a major-2 offer", m)
	case <-time.After(200 * time.Millisecond):
	}
}

// A prebuilt notification handed to SendMessage reaches subscribers the
// same way Notify does.
func TestSendMessageRoutesNotifications(t *testing.T) {
	const (
		service  someipc.ServiceID    = 0x4712
		instance someipc.InstanceID   = 7
		notifier someipc.EventID      = 0x8003
		group    someipc.EventgroupID = 3
	)
	version := someipc.MakeVersion(1, 0)
	groups := []someipc.EventgroupID{group}
	rt := inproc.NewRuntime(nil)

	provider := someipc.Create(rt, "provider")
	require.NotNil(t, provider)
	defer provider.Close()
	provider.OfferEvent(service, instance, notifier, groups, false, 0, false, false)
	provider.OfferService(service, instance, version)

	consumer := someipc.Create(rt, "consumer")
	require.NotNil(t, consumer)
	defer consumer.Close()
	cev := someipc.OpenEvents(consumer, 16)
	consumer.RequestService(service, instance, version)
	consumer.RequestEvent(service, instance, notifier, groups, false)
	waitForAvailability(t, cev, service, instance, true)
	consumer.Subscribe(service, instance, group, notifier, version.Major)

	msg := provider.CreateMessage(service, instance, someipc.MethodID(notifier),
		someipc.NoSession, someipc.MTNotification, someipc.EOK, u32(0xCAFE))
	provider.SendMessage(msg)

	me := waitForMessage(t, cev, someipc.MTNotification)
	assert.Equal(t, someipc.MethodID(notifier), me.Header.Method)
	require.Len(t, me.Payload, 4)
	assert.EqualValues(t, 0xCAFE, binary.BigEndian.Uint32(me.Payload))
}

func TestRegistrationStateDeliveredOnStart(t *testing.T) {
	rt := inproc.NewRuntime(nil)

	app := someipc.Create(rt, "app")
	require.NotNil(t, app)
	defer app.Close()
	ev := someipc.OpenEvents(app, 4)

	e := nextEvent(t, ev)
	require.IsType(t, someipc.StateEvent{}, e)
	assert.Equal(t, someipc.Registered, e.(someipc.StateEvent).State)
}

func TestCreateAndCloseImmediately(t *testing.T) {
	rt := inproc.NewRuntime(nil)

	for i := 0; i < 5; i++ {
		app := someipc.Create(rt, "short-lived")
		require.NotNil(t, app)
		app.Close()
	}
}

func TestSessionsIncrementPerApplication(t *testing.T) {
	const (
		service  someipc.ServiceID  = 0x2000
		instance someipc.InstanceID = 1
	)
	rt := inproc.NewRuntime(nil)

	app := someipc.Create(rt, "client")
	require.NotNil(t, app)
	defer app.Close()

	s1 := app.SendRequest(service, instance, 1, 1, nil, false)
	s2 := app.SendRequest(service, instance, 1, 1, nil, false)
	assert.NotEqual(t, someipc.NoSession, s1)
	assert.Equal(t, s1+1, s2)
}
