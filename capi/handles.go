//go:build cgo

package main

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type handleKind uint8

const (
	kindApplication handleKind = iota + 1
	kindPayload
	kindMessage
)

func (k handleKind) String() string {
	switch k {
	case kindApplication:
		return "application"
	case kindPayload:
		return "payload"
	case kindMessage:
		return "message"
	default:
		return "invalid"
	}
}

type slot struct {
	gen  uint32
	kind handleKind
	val  any
}

// handleTable maps the opaque handles handed to C onto Go objects. A
// handle packs a slot index and the slot's generation; freeing a slot
// bumps the generation, so a stale or double-freed handle fails the
// generation check instead of resolving to an unrelated object.
type handleTable struct {
	mu    sync.Mutex
	slots []slot
	free  []uint32
}

// maxHandleSlots bounds the table so a slot index always fits the packed
// index field.
const maxHandleSlots = 1<<16 - 1

// pack encodes index and generation into one handle small enough for a
// 32-bit pointer: generation in the high 16 bits, index in the low 16.
// The index is stored off by one so that a valid handle is never 0
// (NULL).
func pack(idx, gen uint32) uintptr {
	return uintptr(gen&0xFFFF)<<16 | uintptr(idx+1)&0xFFFF
}

func unpack(h uintptr) (idx, gen uint32) {
	return uint32(h&0xFFFF) - 1, uint32(h>>16) & 0xFFFF
}

func (t *handleTable) put(kind handleKind, val any) uintptr {
	t.mu.Lock()
	defer t.mu.Unlock()

	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
	} else {
		if len(t.slots) >= maxHandleSlots {
			logrus.WithFields(logrus.Fields{
				"function": "handleTable.put",
				"kind":     kind.String(),
			}).Error("handle table exhausted")
			return 0
		}
		t.slots = append(t.slots, slot{gen: 1})
		idx = uint32(len(t.slots) - 1)
	}
	s := &t.slots[idx]
	s.kind = kind
	s.val = val
	return pack(idx, s.gen)
}

// get resolves a handle, or returns nil. A failed lookup is logged; a
// stale handle from C is a caller bug, never a crash.
func (t *handleTable) get(h uintptr, kind handleKind) any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lookup(h, kind, "handleTable.get")
}

// del resolves a handle, frees its slot and returns the value, or nil.
func (t *handleTable) del(h uintptr, kind handleKind) any {
	t.mu.Lock()
	defer t.mu.Unlock()

	val := t.lookup(h, kind, "handleTable.del")
	if val == nil {
		return nil
	}
	idx, _ := unpack(h)
	s := &t.slots[idx]
	s.gen = (s.gen + 1) & 0xFFFF
	if s.gen == 0 {
		s.gen = 1
	}
	s.kind = 0
	s.val = nil
	t.free = append(t.free, idx)
	return val
}

func (t *handleTable) lookup(h uintptr, kind handleKind, fn string) any {
	if h == 0 {
		logrus.WithFields(logrus.Fields{
			"function": fn,
			"kind":     kind.String(),
		}).Error("null handle at C boundary")
		return nil
	}
	idx, gen := unpack(h)
	if h != uintptr(uint32(h)) || int(idx) >= len(t.slots) {
		logrus.WithFields(logrus.Fields{
			"function": fn,
			"kind":     kind.String(),
			"handle":   h,
		}).Error("foreign handle at C boundary")
		return nil
	}
	s := &t.slots[idx]
	if s.gen != gen || s.kind != kind {
		logrus.WithFields(logrus.Fields{
			"function": fn,
			"kind":     kind.String(),
			"handle":   h,
		}).Error("stale or mistyped handle at C boundary")
		return nil
	}
	return s.val
}

var handles handleTable
