package core

import "sync"

type EventContext struct {
	Data struct {
		I32 [4]int32
		U32 [4]uint32
		U16 [8]uint16
	}
}

// System internal event codes.
type SystemEventCode int

const (
	// Shuts the application down before the next frame.
	EventCodeApplicationQuit SystemEventCode = 0x01

	// Keyboard key pressed.
	/* Context usage:
	 * u16 key_code = data.Data.U16[0];
	 */
	EventCodeKeyPressed SystemEventCode = 0x02

	// Keyboard key released.
	/* Context usage:
	 * u16 key_code = data.Data.U16[0];
	 */
	EventCodeKeyReleased SystemEventCode = 0x03

	// Framebuffer resized from the OS.
	/* Context usage:
	 * u32 width = data.Data.U32[0];
	 * u32 height = data.Data.U32[1];
	 */
	EventCodeResized SystemEventCode = 0x04

	maxEventCode SystemEventCode = 0xFF
)

type registeredEvent struct {
	listener interface{}
	callback FnOnEvent
}

// Should return true if handled.
type FnOnEvent func(code SystemEventCode, sender interface{}, listenerInst interface{}, data EventContext) bool

type eventBus struct {
	mu         sync.RWMutex
	registered map[SystemEventCode][]*registeredEvent
}

var bus = &eventBus{registered: make(map[SystemEventCode][]*registeredEvent)}

// EventRegister subscribes listener to code. A listener may be registered
// once per code.
func EventRegister(code SystemEventCode, listener interface{}, onEvent FnOnEvent) bool {
	if code <= 0 || code >= maxEventCode {
		return false
	}
	bus.mu.Lock()
	defer bus.mu.Unlock()
	for _, e := range bus.registered[code] {
		if e.listener == listener {
			LogWarn("listener already registered for event code %d", code)
			return false
		}
	}
	bus.registered[code] = append(bus.registered[code], &registeredEvent{
		listener: listener,
		callback: onEvent,
	})
	return true
}

func EventUnregister(code SystemEventCode, listener interface{}) bool {
	bus.mu.Lock()
	defer bus.mu.Unlock()
	events := bus.registered[code]
	for i, e := range events {
		if e.listener == listener {
			bus.registered[code] = append(events[:i], events[i+1:]...)
			return true
		}
	}
	return false
}

// EventFire delivers the event to listeners in registration order until one
// reports it handled.
func EventFire(code SystemEventCode, sender interface{}, context EventContext) bool {
	bus.mu.RLock()
	events := append([]*registeredEvent(nil), bus.registered[code]...)
	bus.mu.RUnlock()
	for _, e := range events {
		if e.callback(code, sender, e.listener, context) {
			return true
		}
	}
	return false
}

// EventReset drops every registration.
func EventReset() {
	bus.mu.Lock()
	bus.registered = make(map[SystemEventCode][]*registeredEvent)
	bus.mu.Unlock()
}
