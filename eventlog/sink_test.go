package eventlog

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries(n int) []LogEntry {
	out := make([]LogEntry, n)
	for i := range out {
		out[i] = entryN(i)
		out[i].Timestamp = time.Date(2026, 3, 1, 12, 0, i, 0, time.UTC)
		out[i].SessionID = "session_test"
	}
	return out
}

func TestHTTPSinkPostsBatch(t *testing.T) {
	var got map[string][]map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "secret", r.Header.Get("X-Collector-Key"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sink := NewHTTPSink(server.URL, WithSinkHeader("X-Collector-Key", "secret"))
	require.NoError(t, sink.Send(context.Background(), sampleEntries(2)))

	require.Len(t, got["logs"], 2)
	first := got["logs"][0]
	assert.Equal(t, "0", first["message"])
	assert.Equal(t, "INFO", first["level"])
	assert.Equal(t, "general", first["eventType"])
	assert.Equal(t, "session_test", first["sessionId"])
	assert.Equal(t, "2026-03-01T12:00:00Z", first["timestamp"])
	assert.NotContains(t, first, "userId")
}

func TestHTTPSinkRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := NewHTTPSink(server.URL).Send(context.Background(), sampleEntries(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestHTTPSinkTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	sink := NewHTTPSink(url, WithSinkHTTPClient(&http.Client{Timeout: time.Second}))
	assert.Error(t, sink.Send(context.Background(), sampleEntries(1)))
}

func TestRedisSinkPushesAndTrims(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sink := NewRedisSink(client, "", 3)
	assert.Equal(t, DefaultRedisKey, sink.Key())

	require.NoError(t, sink.Send(context.Background(), sampleEntries(2)))
	require.NoError(t, sink.Send(context.Background(), sampleEntries(2)))

	items, err := mr.List(DefaultRedisKey)
	require.NoError(t, err)
	require.Len(t, items, 3)

	var last LogEntry
	require.NoError(t, json.Unmarshal([]byte(items[2]), &last))
	assert.Equal(t, "1", last.Message)
	assert.Equal(t, LevelInfo, last.Level)
}

func TestHTTPSinkReplacesUnencodableEntry(t *testing.T) {
	var got map[string][]map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	entries := sampleEntries(2)
	entries[0].Data = map[string]any{"ch": make(chan int)}

	require.NoError(t, NewHTTPSink(server.URL).Send(context.Background(), entries))

	require.Len(t, got["logs"], 2)
	stub := got["logs"][0]
	assert.Equal(t, "0", stub["message"])
	assert.Equal(t, "session_test", stub["sessionId"])
	assert.Contains(t, stub["data"].(map[string]any)["encodingError"], "chan")
	assert.Equal(t, "1", got["logs"][1]["message"])
}

func TestRedisSinkReplacesUnencodableEntry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	entries := sampleEntries(2)
	entries[1].Data = map[string]any{"ratio": math.Inf(1)}

	require.NoError(t, NewRedisSink(client, "logs", 0).Send(context.Background(), entries))

	items, err := mr.List("logs")
	require.NoError(t, err)
	require.Len(t, items, 2)

	var stub LogEntry
	require.NoError(t, json.Unmarshal([]byte(items[1]), &stub))
	assert.Equal(t, "1", stub.Message)
	assert.Contains(t, stub.Data, "encodingError")
}

func TestRedisSinkFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	sink, err := NewRedisSinkFromURL("redis://"+mr.Addr(), "app:logs", 0)
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Send(context.Background(), sampleEntries(1)))
	require.NoError(t, sink.Send(context.Background(), nil))

	items, err := mr.List("app:logs")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestRedisSinkBadURL(t *testing.T) {
	_, err := NewRedisSinkFromURL("://not-a-url", "", 0)
	assert.Error(t, err)
}

func TestRedisSinkAsLoggerSink(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	l, _ := newObservedLogger(t, enabledConfig(), WithSink(NewRedisSink(client, "logs", 100)))
	l.Info("to redis", EventGeneral, Fields{"token": "abc"})
	require.NoError(t, l.Flush(context.Background()))

	items, err := mr.List("logs")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Contains(t, items[0], RedactedMarker)
	assert.NotContains(t, items[0], "abc")
}
