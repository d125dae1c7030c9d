package inproc

import (
	"fmt"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/opd-ai/someipc/middleware"
)

// Wire format on the bus: the SOME/IP payload travels as the watermill
// message payload, the header fields as metadata.
const (
	mdService  = "someip_service"
	mdInstance = "someip_instance"
	mdMethod   = "someip_method"
	mdClient   = "someip_client"
	mdSession  = "someip_session"
	mdProto    = "someip_proto_version"
	mdIfVer    = "someip_if_version"
	mdType     = "someip_message_type"
	mdRetCode  = "someip_return_code"
	mdReliable = "someip_reliable"
	mdInitial  = "someip_initial"
)

func encodeWire(m middleware.Message) *message.Message {
	var data []byte
	if pl := m.Payload(); pl != nil {
		data = append([]byte(nil), pl.Data()...)
	}
	wm := message.NewMessage(watermill.NewUUID(), data)
	md := wm.Metadata
	md.Set(mdService, formatU16(uint16(m.Service())))
	md.Set(mdInstance, formatU16(uint16(m.Instance())))
	md.Set(mdMethod, formatU16(uint16(m.Method())))
	md.Set(mdClient, formatU16(uint16(m.Client())))
	md.Set(mdSession, formatU16(uint16(m.Session())))
	md.Set(mdProto, formatU16(uint16(m.ProtocolVersion())))
	md.Set(mdIfVer, formatU16(uint16(m.InterfaceVersion())))
	md.Set(mdType, formatU16(uint16(m.Type())))
	md.Set(mdRetCode, formatU16(uint16(m.ReturnCode())))
	md.Set(mdReliable, strconv.FormatBool(m.IsReliable()))
	md.Set(mdInitial, strconv.FormatBool(m.IsInitial()))
	return wm
}

func decodeWire(wm *message.Message) (*msg, error) {
	service, err := parseU16(wm.Metadata, mdService)
	if err != nil {
		return nil, err
	}
	instance, err := parseU16(wm.Metadata, mdInstance)
	if err != nil {
		return nil, err
	}
	method, err := parseU16(wm.Metadata, mdMethod)
	if err != nil {
		return nil, err
	}
	client, err := parseU16(wm.Metadata, mdClient)
	if err != nil {
		return nil, err
	}
	session, err := parseU16(wm.Metadata, mdSession)
	if err != nil {
		return nil, err
	}
	proto, err := parseU16(wm.Metadata, mdProto)
	if err != nil {
		return nil, err
	}
	ifVer, err := parseU16(wm.Metadata, mdIfVer)
	if err != nil {
		return nil, err
	}
	mType, err := parseU16(wm.Metadata, mdType)
	if err != nil {
		return nil, err
	}
	retCode, err := parseU16(wm.Metadata, mdRetCode)
	if err != nil {
		return nil, err
	}

	m := &msg{
		service:  middleware.ServiceID(service),
		instance: middleware.InstanceID(instance),
		method:   middleware.MethodID(method),
		client:   middleware.ClientID(client),
		session:  middleware.SessionID(session),
		proto:    middleware.ProtocolVersion(proto),
		ifVer:    middleware.MajorVersion(ifVer),
		mType:    middleware.MessageType(mType),
		retCode:  middleware.ReturnCode(retCode),
		reliable: wm.Metadata.Get(mdReliable) == "true",
		initial:  wm.Metadata.Get(mdInitial) == "true",
	}
	if len(wm.Payload) > 0 {
		m.pl = newPayload(wm.Payload)
	}
	return m, nil
}

func formatU16(v uint16) string {
	return strconv.FormatUint(uint64(v), 10)
}

func parseU16(md message.Metadata, key string) (uint16, error) {
	raw := md.Get(key)
	if raw == "" {
		return 0, fmt.Errorf("metadata %s missing", key)
	}
	v, err := strconv.ParseUint(raw, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("metadata %s: %w", key, err)
	}
	return uint16(v), nil
}

func clientTopic(client middleware.ClientID) string {
	return fmt.Sprintf("someip.client.%04x", uint16(client))
}

func serviceTopic(service middleware.ServiceID, instance middleware.InstanceID) string {
	return fmt.Sprintf("someip.service.%04x.%04x", uint16(service), uint16(instance))
}

func eventTopic(service middleware.ServiceID, instance middleware.InstanceID, group middleware.EventgroupID) string {
	return fmt.Sprintf("someip.event.%04x.%04x.%04x", uint16(service), uint16(instance), uint16(group))
}
