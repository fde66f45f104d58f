package security

import (
	"os"
	"strconv"
	"strings"
)

// TracerAttached reports whether a debugger/tracer is attached to this
// process, read from the TracerPid field of /proc/self/status. On platforms
// without procfs it reports false and the anti-tamper gate stays open.
func TracerAttached() bool {
	data, err := os.ReadFile("/proc/self/status")
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if !strings.HasPrefix(line, "TracerPid:") {
			continue
		}
		pid, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "TracerPid:")))
		if err != nil {
			return false
		}
		return pid != 0
	}
	return false
}
