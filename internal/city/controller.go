package city

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"qala.org/internal/obs"
	"qala.org/internal/security"
)

const (
	maxObservers = 5000
	logBufferCap = 5000
	logBufferLow = 4000
)

// Controller coordinates the portal: the user directory (injected, not
// owned), the observer registry, the bounded log buffer and the single
// pending command slot. It is constructed explicitly and passed to its
// collaborators; there is no process-global instance.
type Controller struct {
	mu         sync.Mutex
	dir        Directory
	gate       *security.Gate
	obfuscator *security.Obfuscator
	observers  []Observer
	logs       []string
	command    Command

	// per-subscriber outcome of the most recent broadcast; inspectable but
	// never surfaced to the broadcaster
	lastDelivery []bool
}

// NewController wires the coordinator. Construction is refused while a
// tracer is attached to the process.
func NewController(dir Directory, gate *security.Gate, obf *security.Obfuscator) (*Controller, error) {
	if security.TracerAttached() {
		return nil, ErrTracerDetected
	}
	return &Controller{dir: dir, gate: gate, obfuscator: obf}, nil
}

// Directory exposes the injected user directory.
func (c *Controller) Directory() Directory { return c.dir }

// Gate exposes the security gate shared with the login flow.
func (c *Controller) Gate() *security.Gate { return c.gate }

// AddObserver appends to the registry unless it already holds the cap;
// past the cap the observer is dropped with no error to the caller.
func (c *Controller) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.observers) >= maxObservers {
		return
	}
	c.observers = append(c.observers, o)
}

// ObserverCount reports the registry size.
func (c *Controller) ObserverCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.observers)
}

// NotifyObservers records the broadcast and delivers it to every observer
// in registration order. A panicking observer is swallowed so it cannot
// block delivery to the rest; the broadcaster learns nothing of partial
// failures.
func (c *Controller) NotifyObservers(message string) {
	c.mu.Lock()
	c.appendLogLocked("Broadcast: " + message)
	targets := make([]Observer, len(c.observers))
	copy(targets, c.observers)
	c.mu.Unlock()

	obs.BroadcastsTotal.Inc()
	results := make([]bool, len(targets))
	for i, o := range targets {
		results[i] = deliver(o, message)
		if !results[i] {
			obs.ObserverFailuresTotal.Inc()
		}
	}

	c.mu.Lock()
	c.lastDelivery = results
	c.mu.Unlock()
}

func deliver(o Observer, message string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	o.Update(message)
	return true
}

// LastDeliveryReport returns the per-subscriber success flags of the most
// recent broadcast.
func (c *Controller) LastDeliveryReport() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]bool, len(c.lastDelivery))
	copy(out, c.lastDelivery)
	return out
}

// BroadcastEmergency truncates the description to the input cap, formats
// the alert and routes it through the fan-out.
func (c *Controller) BroadcastEmergency(kind, description string) string {
	if max := c.gate.MaxInputLength(); len(description) > max {
		description = description[:max]
	}
	full := fmt.Sprintf("EMERGENCY (%s): %s", kind, description)
	c.NotifyObservers(full)
	return full
}

// SetCommand stores a pending command. A later command silently replaces
// an unexecuted earlier one; there is no queue.
func (c *Controller) SetCommand(cmd Command) {
	c.mu.Lock()
	c.command = cmd
	c.mu.Unlock()
}

// ExecuteCommand runs and clears the pending command. The slot moves
// Empty -> Set -> Executed -> Empty, so a command runs at most once.
func (c *Controller) ExecuteCommand() (bool, string) {
	c.mu.Lock()
	cmd := c.command
	c.command = nil
	c.mu.Unlock()
	if cmd == nil {
		return false, "No command"
	}
	return cmd.Execute()
}

// Log appends to the bounded buffer, trimming to the most recent entries
// on overflow.
func (c *Controller) Log(message string) {
	c.mu.Lock()
	c.appendLogLocked(message)
	c.mu.Unlock()
}

func (c *Controller) appendLogLocked(message string) {
	if len(c.logs) >= logBufferCap {
		c.logs = c.logs[len(c.logs)-logBufferLow:]
	}
	c.logs = append(c.logs, message)
}

// LogCount reports the buffered line count.
func (c *Controller) LogCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.logs)
}

// LastLog returns the most recent buffered line.
func (c *Controller) LastLog() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.logs) == 0 {
		return ""
	}
	return c.logs[len(c.logs)-1]
}

// ExportLogs writes every buffered line obfuscated, one per line. There is
// no corresponding import path.
func (c *Controller) ExportLogs(w io.Writer) error {
	c.mu.Lock()
	lines := make([]string, len(c.logs))
	copy(lines, c.logs)
	c.mu.Unlock()

	for _, line := range lines {
		if _, err := io.WriteString(w, c.obfuscator.Obfuscate(line)+"\n"); err != nil {
			return fmt.Errorf("export logs: %w", err)
		}
	}
	return nil
}

// GetAllUsers lists every directory entry, honeypots included and flagged.
func (c *Controller) GetAllUsers() []string {
	var out []string
	c.dir.Each(func(phone string, rec *UserRecord) bool {
		res := rec.Resident
		suffix := ""
		if rec.Honeypot {
			suffix = " [HONEYPOT/FAKE]"
		}
		out = append(out, fmt.Sprintf("ID: %s | %s %s | Phone: %s | Email: %s | Address: %s | Balance: %.2f TL%s",
			rec.NationalID, res.Name, res.Surname, phone, res.Email, res.Address, rec.Balance, suffix))
		return true
	})
	return out
}

// SearchUsers gate-checks and sanitizes the query, then matches it
// case-insensitively against name, surname and phone. Honeypot accounts
// never appear in search results.
func (c *Controller) SearchUsers(query string) []string {
	if ok, msg := c.gate.ValidateInput(query, security.GuestIdentity); !ok {
		return []string{"ERROR: " + msg}
	}
	clean := strings.ToLower(security.Sanitize(query))

	var out []string
	c.dir.Each(func(phone string, rec *UserRecord) bool {
		if rec.Honeypot {
			return true
		}
		res := rec.Resident
		fullText := strings.ToLower(fmt.Sprintf("%s %s %s", res.Name, res.Surname, phone))
		if strings.Contains(fullText, clean) {
			out = append(out, fmt.Sprintf("%s %s | Phone: %s", res.Name, res.Surname, phone))
		}
		return true
	})
	return out
}
