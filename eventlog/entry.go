package eventlog

import (
	"time"

	"github.com/mileusna/useragent"
)

// LogEntry is one observability record. Entries are values; the buffer hands
// out clones so a buffered entry is never mutated.
type LogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Level     Level          `json:"level"`
	EventType EventType      `json:"eventType"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	SessionID string         `json:"sessionId"`
	UserID    string         `json:"userId,omitempty"`
	Environment
}

// Clone returns a copy of the entry. Nested maps and slices in the data are
// copied as well, so the clone shares no mutable state with e.
func (e LogEntry) Clone() LogEntry {
	clone := e
	if len(e.Data) > 0 {
		clone.Data = cloneMap(e.Data)
	}
	return clone
}

func cloneMap(m map[string]any) map[string]any {
	copied := make(map[string]any, len(m))
	for k, v := range m {
		copied[k] = cloneValue(v)
	}
	return copied
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneMap(val)
	case []any:
		copied := make([]any, len(val))
		for i, item := range val {
			copied[i] = cloneValue(item)
		}
		return copied
	default:
		return v
	}
}

// Environment is the read-only client context captured when an entry is made.
type Environment struct {
	UserAgent string `json:"userAgent,omitempty"`
	URL       string `json:"url,omitempty"`
	Browser   string `json:"browser,omitempty"`
	OS        string `json:"os,omitempty"`
	Device    string `json:"device,omitempty"`
}

// NewEnvironment builds a snapshot for the given user agent and URL. Browser,
// OS and device class are parsed out of the user agent.
func NewEnvironment(userAgent, url string) Environment {
	env := Environment{UserAgent: userAgent, URL: url}
	if userAgent == "" {
		return env
	}

	ua := useragent.Parse(userAgent)
	env.Browser = ua.Name
	env.OS = ua.OS

	switch {
	case ua.Mobile:
		env.Device = "mobile"
	case ua.Tablet:
		env.Device = "tablet"
	case ua.Bot:
		env.Device = "bot"
	default:
		env.Device = "desktop"
	}

	return env
}

// withURL returns a copy of the snapshot pointing at a different URL.
func (e Environment) withURL(url string) Environment {
	e.URL = url
	return e
}
