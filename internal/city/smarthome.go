package city

import (
	"fmt"
	"sync"
	"time"

	"qala.org/internal/obs"
)

const (
	homeLogCap = 1000

	// AccessDenied is the sentinel returned to any non-owner log reader.
	AccessDenied = "Access Denied: Unauthorized Operation."
)

// SmartHomeSystem is owned by exactly one resident. It keeps a bounded
// event log (oldest evicted first) and exposes it to the owner phone only.
type SmartHomeSystem struct {
	mu         sync.Mutex
	ownerPhone string
	sink       func(string)
	logs       []string
}

// NewSmartHomeSystem registers the owner; sink may be nil, in which case
// events fall through to the shared trace log.
func NewSmartHomeSystem(ownerPhone string, sink func(string)) *SmartHomeSystem {
	return &SmartHomeSystem{ownerPhone: ownerPhone, sink: sink}
}

// setOwner follows a directory rekey so the owner check keeps matching.
func (h *SmartHomeSystem) setOwner(phone string) {
	h.mu.Lock()
	h.ownerPhone = phone
	h.mu.Unlock()
}

// SetSink replaces the raw event callback.
func (h *SmartHomeSystem) SetSink(sink func(string)) {
	h.mu.Lock()
	h.sink = sink
	h.mu.Unlock()
}

// Log appends a timestamped entry, evicting the oldest past the cap, and
// forwards the raw message to the sink or the default trace.
func (h *SmartHomeSystem) Log(event string) {
	h.mu.Lock()
	if len(h.logs) >= homeLogCap {
		h.logs = h.logs[1:]
	}
	stamp := time.Now().Format("02-01-2006 15:04")
	h.logs = append(h.logs, fmt.Sprintf("[%s] %s", stamp, event))
	sink := h.sink
	owner := h.ownerPhone
	h.mu.Unlock()

	if sink != nil {
		sink(event)
		return
	}
	obs.Trace("home.event", map[string]any{"owner": owner, "event": event})
}

// ReadLogs returns the full history iff the requester is the owner phone;
// any other requester gets the access-denied sentinel and leaves a
// security trace.
func (h *SmartHomeSystem) ReadLogs(requesterPhone string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if requesterPhone != h.ownerPhone {
		obs.Trace("home.unauthorized_read", map[string]any{
			"owner":     h.ownerPhone,
			"requester": requesterPhone,
		})
		return []string{AccessDenied}
	}
	out := make([]string, len(h.logs))
	copy(out, h.logs)
	return out
}

// Routine operations.
func (h *SmartHomeSystem) MorningRoutine() { h.Log("Morning routine started.") }
func (h *SmartHomeSystem) EveningRoutine() { h.Log("Evening routine started.") }
func (h *SmartHomeSystem) TurnOnLights()   { h.Log("Lights turned on.") }
func (h *SmartHomeSystem) TurnOffLights()  { h.Log("Lights turned off.") }
func (h *SmartHomeSystem) LockDoor()       { h.Log("Door locked.") }
