package main

/*
#include <stdlib.h>
#include "someipc.h"
*/
import "C"

import (
	"time"
	"unsafe"

	"github.com/opd-ai/someipc"
	"github.com/opd-ai/someipc/inproc"
)

// Required for c-shared build mode.
func main() {}

type appEntry struct {
	app   *someipc.Application
	cname *C.char
}

// payloadEntry owns a C-allocated copy of the payload bytes, so the data
// pointer handed to C stays valid until payload_destroy.
type payloadEntry struct {
	data unsafe.Pointer
	size C.uint32_t
}

type msgEntry struct {
	msg someipc.Message
}

func getApp(h C.application_t) *appEntry {
	v := handles.get(uintptr(h), kindApplication)
	if v == nil {
		return nil
	}
	return v.(*appEntry)
}

func goBytes(data *C.uint8_t, size C.uint32_t) []byte {
	if data == nil || size == 0 {
		return nil
	}
	return C.GoBytes(unsafe.Pointer(data), C.int(size))
}

func goGroups(groups *C.eventgroup_id, size C.uint32_t) []someipc.EventgroupID {
	if groups == nil || size == 0 {
		return nil
	}
	src := unsafe.Slice(groups, int(size))
	out := make([]someipc.EventgroupID, len(src))
	for i, g := range src {
		out[i] = someipc.EventgroupID(g)
	}
	return out
}

func newPayloadHandle(data []byte) (C.payload_t, *payloadEntry) {
	e := &payloadEntry{}
	if len(data) > 0 {
		e.data = C.CBytes(data)
		e.size = C.uint32_t(len(data))
	}
	h := handles.put(kindPayload, e)
	return C.payload_t(unsafe.Pointer(h)), e
}

//export create_application
func create_application(name *C.char) C.application_t {
	app := someipc.Create(inproc.Get(), C.GoString(name))
	if app == nil {
		return nil
	}
	e := &appEntry{app: app, cname: C.CString(app.Name())}
	return C.application_t(unsafe.Pointer(handles.put(kindApplication, e)))
}

//export application_delete
func application_delete(app C.application_t) {
	if app == nil {
		return
	}
	v := handles.del(uintptr(app), kindApplication)
	if v == nil {
		return
	}
	e := v.(*appEntry)
	e.app.Close()
	C.free(unsafe.Pointer(e.cname))
}

//export application_get_name
func application_get_name(app C.application_t) *C.char {
	e := getApp(app)
	if e == nil {
		return nil
	}
	return e.cname
}

//export application_register_handlers
func application_register_handlers(app C.application_t, stateHandler C.state_handler_t,
	msgHandler C.message_handler_t, object unsafe.Pointer,
) {
	e := getApp(app)
	if e == nil {
		return
	}
	if stateHandler != nil {
		h := stateHandler
		e.app.SetupStateHandler(func(st someipc.StateType) {
			C.bridge_state(h, C.enum_state_type_ce(st), object)
		})
	}
	if msgHandler != nil {
		h := msgHandler
		e.app.SetupMsgHandler(func(msg someipc.Message) {
			deliverMessage(h, object, msg)
		})
	}
}

// deliverMessage translates one incoming message for a C handler. The
// payload bytes are copied into C memory once; both the header's data
// view and the payload handle refer to that copy, and the handle owns it.
func deliverMessage(h C.message_handler_t, object unsafe.Pointer, msg someipc.Message) {
	hdr := someipc.HeaderOf(msg)
	plHandle, pl := newPayloadHandle(hdr.Data)

	chdr := C.struct_message_header{
		service:       C.service_id(hdr.Service),
		instance:      C.instance_id(hdr.Instance),
		method:        C.method_id(hdr.Method),
		client:        C.client_id(hdr.Client),
		session:       C.session_id(hdr.Session),
		proto_version: C.protocol_version(hdr.ProtocolVersion),
		if_version:    C.interface_version(hdr.InterfaceVersion),
		message_type:  C.enum_message_type(hdr.Type),
		return_code:   C.enum_return_code(hdr.ReturnCode),
		is_initial:    C.bool(hdr.Initial),
		is_reliable:   C.bool(hdr.Reliable),
		data:          (*C.uint8_t)(pl.data),
		data_size:     pl.size,
	}
	C.bridge_message(h, chdr, plHandle, object)
}

//export application_request_service
func application_request_service(app C.application_t, service C.service_id,
	instance C.instance_id, major C.major_version, minor C.minor_version,
	availHandler C.availability_handler_t, object unsafe.Pointer,
) {
	e := getApp(app)
	if e == nil {
		return
	}
	if availHandler != nil {
		h := availHandler
		e.app.SetupAvailHandlerFor(someipc.ServiceID(service), someipc.InstanceID(instance),
			someipc.MajorVersion(major),
			func(svc someipc.ServiceID, inst someipc.InstanceID, st someipc.AvailabilityState) {
				C.bridge_availability(h, C.service_id(svc), C.instance_id(inst),
					C.enum_availability_state_e(st), object)
			})
	}
	e.app.RequestService(someipc.ServiceID(service), someipc.InstanceID(instance),
		someipc.MakeVersion(someipc.MajorVersion(major), someipc.MinorVersion(minor)))
}

//export application_release_service
func application_release_service(app C.application_t, service C.service_id,
	instance C.instance_id, major C.major_version,
) {
	e := getApp(app)
	if e == nil {
		return
	}
	e.app.ClearAvailHandler(someipc.ServiceID(service), someipc.InstanceID(instance),
		someipc.MajorVersion(major))
	e.app.ReleaseService(someipc.ServiceID(service), someipc.InstanceID(instance))
}

//export application_offer_service
func application_offer_service(app C.application_t, service C.service_id,
	instance C.instance_id, major C.major_version, minor C.minor_version,
) {
	e := getApp(app)
	if e == nil {
		return
	}
	e.app.OfferService(someipc.ServiceID(service), someipc.InstanceID(instance),
		someipc.MakeVersion(someipc.MajorVersion(major), someipc.MinorVersion(minor)))
}

//export application_stop_offer_service
func application_stop_offer_service(app C.application_t, service C.service_id,
	instance C.instance_id, major C.major_version, minor C.minor_version,
) {
	e := getApp(app)
	if e == nil {
		return
	}
	e.app.StopOfferService(someipc.ServiceID(service), someipc.InstanceID(instance),
		someipc.MakeVersion(someipc.MajorVersion(major), someipc.MinorVersion(minor)))
}

//export application_offer_event
func application_offer_event(app C.application_t, service C.service_id,
	instance C.instance_id, notifier C.notifier_id, eventGroups *C.eventgroup_id,
	eventGroupsSize C.uint32_t, isField C.bool, cycle C.uint32_t,
	changeResetsCycle C.bool, updateOnChange C.bool,
) {
	e := getApp(app)
	if e == nil {
		return
	}
	e.app.OfferEvent(someipc.ServiceID(service), someipc.InstanceID(instance),
		someipc.EventID(notifier), goGroups(eventGroups, eventGroupsSize), bool(isField),
		time.Duration(cycle)*time.Millisecond, bool(changeResetsCycle), bool(updateOnChange))
}

//export application_stop_offer_event
func application_stop_offer_event(app C.application_t, service C.service_id,
	instance C.instance_id, notifier C.notifier_id,
) {
	e := getApp(app)
	if e == nil {
		return
	}
	e.app.StopOfferEvent(someipc.ServiceID(service), someipc.InstanceID(instance),
		someipc.EventID(notifier))
}

//export application_request_event
func application_request_event(app C.application_t, service C.service_id,
	instance C.instance_id, notifier C.notifier_id, eventGroups *C.eventgroup_id,
	eventGroupsSize C.uint32_t, isField C.bool,
) {
	e := getApp(app)
	if e == nil {
		return
	}
	e.app.RequestEvent(someipc.ServiceID(service), someipc.InstanceID(instance),
		someipc.EventID(notifier), goGroups(eventGroups, eventGroupsSize), bool(isField))
}

//export application_release_event
func application_release_event(app C.application_t, service C.service_id,
	instance C.instance_id, notifier C.notifier_id,
) {
	e := getApp(app)
	if e == nil {
		return
	}
	e.app.ReleaseEvent(someipc.ServiceID(service), someipc.InstanceID(instance),
		someipc.EventID(notifier))
}

//export application_subscribe_event
func application_subscribe_event(app C.application_t, service C.service_id,
	instance C.instance_id, eg C.eventgroup_id, event C.notifier_id, version C.major_version,
) {
	e := getApp(app)
	if e == nil {
		return
	}
	e.app.Subscribe(someipc.ServiceID(service), someipc.InstanceID(instance),
		someipc.EventgroupID(eg), someipc.EventID(event), someipc.MajorVersion(version))
}

//export application_unsubscribe_event
func application_unsubscribe_event(app C.application_t, service C.service_id,
	instance C.instance_id, eg C.eventgroup_id,
) {
	e := getApp(app)
	if e == nil {
		return
	}
	e.app.Unsubscribe(someipc.ServiceID(service), someipc.InstanceID(instance),
		someipc.EventgroupID(eg))
}

//export application_notify
func application_notify(app C.application_t, service C.service_id, instance C.instance_id,
	notifier C.notifier_id, forceSend C.bool, data *C.uint8_t, dataLen C.uint32_t,
) {
	e := getApp(app)
	if e == nil {
		return
	}
	e.app.Notify(someipc.ServiceID(service), someipc.InstanceID(instance),
		someipc.EventID(notifier), goBytes(data, dataLen), bool(forceSend))
}

//export application_send_request
func application_send_request(app C.application_t, service C.service_id,
	instance C.instance_id, method C.method_id, major C.major_version, reliable C.bool,
	data *C.uint8_t, dataLen C.uint32_t,
) C.session_id {
	e := getApp(app)
	if e == nil {
		return 0
	}
	session := e.app.SendRequest(someipc.ServiceID(service), someipc.InstanceID(instance),
		someipc.MethodID(method), someipc.MajorVersion(major), goBytes(data, dataLen),
		bool(reliable))
	return C.session_id(session)
}

//export application_send_response
func application_send_response(app C.application_t, service C.service_id,
	instance C.instance_id, method C.method_id, client C.client_id, session C.session_id,
	major C.major_version, reliable C.bool, rc C.enum_return_code,
	data *C.uint8_t, dataLen C.uint32_t,
) {
	e := getApp(app)
	if e == nil {
		return
	}
	req := someipc.MessageHeader{
		Service:          someipc.ServiceID(service),
		Instance:         someipc.InstanceID(instance),
		Method:           someipc.MethodID(method),
		Client:           someipc.ClientID(client),
		Session:          someipc.SessionID(session),
		InterfaceVersion: someipc.MajorVersion(major),
		Reliable:         bool(reliable),
	}
	e.app.SendResponse(req, someipc.ReturnCode(rc), goBytes(data, dataLen))
}

//export application_send_error
func application_send_error(app C.application_t, service C.service_id,
	instance C.instance_id, method C.method_id, client C.client_id, session C.session_id,
	major C.major_version, reliable C.bool, rc C.enum_return_code,
) {
	e := getApp(app)
	if e == nil {
		return
	}
	req := someipc.MessageHeader{
		Service:          someipc.ServiceID(service),
		Instance:         someipc.InstanceID(instance),
		Method:           someipc.MethodID(method),
		Client:           someipc.ClientID(client),
		Session:          someipc.SessionID(session),
		InterfaceVersion: someipc.MajorVersion(major),
		Reliable:         bool(reliable),
	}
	e.app.SendError(req, someipc.ReturnCode(rc))
}

//export application_payload_create
func application_payload_create(app C.application_t, data *C.uint8_t, size C.uint32_t) C.payload_t {
	if getApp(app) == nil {
		return nil
	}
	h, _ := newPayloadHandle(goBytes(data, size))
	return h
}

//export payload_create_empty
func payload_create_empty(app C.application_t) C.payload_t {
	if getApp(app) == nil {
		return nil
	}
	h, _ := newPayloadHandle(nil)
	return h
}

//export payload_destroy
func payload_destroy(pl C.payload_t) {
	if pl == nil {
		return
	}
	v := handles.del(uintptr(pl), kindPayload)
	if v == nil {
		return
	}
	e := v.(*payloadEntry)
	if e.data != nil {
		C.free(e.data)
	}
}

//export payload_get_info
func payload_get_info(pl C.payload_t) C.struct_PayloadInfo {
	v := handles.get(uintptr(pl), kindPayload)
	if v == nil {
		return C.struct_PayloadInfo{}
	}
	e := v.(*payloadEntry)
	return C.struct_PayloadInfo{
		data: (*C.uint8_t)(e.data),
		len:  e.size,
	}
}

//export application_create_message
func application_create_message(app C.application_t, service C.service_id,
	instance C.instance_id, method C.method_id, session C.session_id,
	messageType C.enum_message_type, returnCode C.enum_return_code,
	data *C.uint8_t, dataSize C.uint32_t,
) C.message_t {
	e := getApp(app)
	if e == nil {
		return nil
	}
	msg := e.app.CreateMessage(someipc.ServiceID(service), someipc.InstanceID(instance),
		someipc.MethodID(method), someipc.SessionID(session),
		someipc.MessageType(messageType), someipc.ReturnCode(returnCode),
		goBytes(data, dataSize))
	return C.message_t(unsafe.Pointer(handles.put(kindMessage, &msgEntry{msg: msg})))
}

//export application_send_msg
func application_send_msg(app C.application_t, msg C.message_t) {
	e := getApp(app)
	if e == nil {
		return
	}
	v := handles.get(uintptr(msg), kindMessage)
	if v == nil {
		return
	}
	e.app.SendMessage(v.(*msgEntry).msg)
}

//export message_destroy
func message_destroy(msg C.message_t) {
	if msg == nil {
		return
	}
	handles.del(uintptr(msg), kindMessage)
}
