// Package hooks holds logrus hooks shared by the scheduler binaries.
package hooks

import (
	"runtime"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"
)

const fileLineKey = "file:line"

// contextHook tags every entry with the file:line of the code that logged it.
type contextHook struct {
	// trimmed from the front of file paths, through the last occurrence.
	pathMarker string
}

func NewContextHook() contextHook {
	return contextHook{pathMarker: "hsched/"}
}

func (hook contextHook) Levels() []log.Level {
	return log.AllLevels
}

// Fire walks the stack past logrus frames and records the first caller outside of it.
func (hook contextHook) Fire(entry *log.Entry) error {
	pcs := make([]uintptr, 16)
	n := runtime.Callers(3, pcs)
	frames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := frames.Next()
		if !strings.Contains(frame.File, "sirupsen/logrus") && !strings.Contains(frame.File, "context_hook.go") {
			entry.Data[fileLineKey] = hook.trim(frame.File) + ":" + strconv.Itoa(frame.Line)
			return nil
		}
		if !more {
			return nil
		}
	}
}

func (hook contextHook) trim(file string) string {
	if i := strings.LastIndex(file, hook.pathMarker); i >= 0 {
		return file[i+len(hook.pathMarker):]
	}
	return file
}
