package eventlog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEnvironmentDevice(t *testing.T) {
	tests := []struct {
		name      string
		userAgent string
		want      string
	}{
		{
			name:      "desktop",
			userAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Safari/605.1.15",
			want:      "desktop",
		},
		{
			name:      "mobile",
			userAgent: "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			want:      "mobile",
		},
		{
			name:      "bot",
			userAgent: "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
			want:      "bot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := NewEnvironment(tt.userAgent, "https://app.example.com")
			assert.Equal(t, tt.want, env.Device)
			assert.Equal(t, tt.userAgent, env.UserAgent)
			assert.Equal(t, "https://app.example.com", env.URL)
		})
	}
}

func TestNewEnvironmentWithoutUserAgent(t *testing.T) {
	env := NewEnvironment("", "/home")
	assert.Equal(t, Environment{URL: "/home"}, env)
}

func TestLogEntryCloneCopiesData(t *testing.T) {
	e := LogEntry{Message: "m", Data: map[string]any{"a": 1}}
	c := e.Clone()
	c.Data["a"] = 2
	assert.Equal(t, 1, e.Data["a"])
}

func TestEventTypeValid(t *testing.T) {
	assert.True(t, EventAPITimeout.Valid())
	assert.False(t, EventType("other").Valid())
	assert.Equal(t, EventGeneral, EventType("").normalize())
}
