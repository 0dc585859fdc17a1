package eventlog

import (
	"encoding/json"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeRedactsSensitiveKeys(t *testing.T) {
	out := Sanitize(map[string]any{"password": "x", "username": "u"})

	assert.Equal(t, map[string]any{"password": RedactedMarker, "username": "u"}, out)
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"password", true},
		{"Password", true},
		{"currentPassword", true},
		{"new_password", true},
		{"confirmPassword", true},
		{"apiKey", true},
		{"api_key", true},
		{"API-Key", true},
		{"token", true},
		{"accessToken", true},
		{"refresh_token", true},
		{"Authorization", true},
		{"client_secret", true},
		{"username", false},
		{"email", false},
		{"tokens_used", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSensitiveKey(tt.key))
		})
	}
}

func TestSanitizeTruncatesLongStrings(t *testing.T) {
	out := Sanitize(map[string]any{"prompt": strings.Repeat("a", 1500)})

	got, ok := out["prompt"].(string)
	require.True(t, ok)
	assert.Equal(t, strings.Repeat("a", MaxStringLength)+TruncatedMarker, got)
}

func TestSanitizeKeepsStringAtLimit(t *testing.T) {
	exact := strings.Repeat("é", MaxStringLength)
	out := Sanitize(map[string]any{"s": exact})
	assert.Equal(t, exact, out["s"])
}

func TestSanitizeRecursesIntoNestedValues(t *testing.T) {
	in := map[string]any{
		"user": map[string]any{
			"email":    "a@b.c",
			"password": "secret",
		},
		"items": []any{
			map[string]any{"token": "t", "name": "n"},
			"plain",
		},
		"headers": map[string]string{"Authorization": "Bearer x", "Accept": "json"},
	}

	out := Sanitize(in)

	user := out["user"].(map[string]any)
	assert.Equal(t, "a@b.c", user["email"])
	assert.Equal(t, RedactedMarker, user["password"])

	items := out["items"].([]any)
	assert.Equal(t, RedactedMarker, items[0].(map[string]any)["token"])
	assert.Equal(t, "n", items[0].(map[string]any)["name"])
	assert.Equal(t, "plain", items[1])

	headers := out["headers"].(map[string]any)
	assert.Equal(t, RedactedMarker, headers["Authorization"])
	assert.Equal(t, "json", headers["Accept"])
}

func TestSanitizeDoesNotModifyInput(t *testing.T) {
	nested := map[string]any{"password": "secret"}
	in := map[string]any{"password": "p", "nested": nested}

	_ = Sanitize(in)

	assert.Equal(t, "p", in["password"])
	assert.Equal(t, "secret", nested["password"])
}

func TestSanitizeStructsThroughJSON(t *testing.T) {
	type credentials struct {
		Email  string `json:"email"`
		APIKey string `json:"api_key"`
	}

	out := Sanitize(map[string]any{"creds": credentials{Email: "a@b.c", APIKey: "k"}})

	creds := out["creds"].(map[string]any)
	assert.Equal(t, "a@b.c", creds["email"])
	assert.Equal(t, RedactedMarker, creds["api_key"])
}

func TestSanitizeUnserializableValues(t *testing.T) {
	out := Sanitize(map[string]any{
		"fn": func() {},
		"ch": make(chan int),
	})

	assert.Equal(t, unserializableMarker, out["fn"])
	assert.Equal(t, unserializableMarker, out["ch"])
}

func TestSanitizeReplacesNonFiniteFloats(t *testing.T) {
	out := Sanitize(map[string]any{
		"nan":    math.NaN(),
		"inf":    math.Inf(1),
		"neg":    math.Inf(-1),
		"f32":    float32(math.Inf(1)),
		"ok":     1.5,
		"nested": map[string]any{"list": []any{math.NaN(), 2.0}},
	})

	assert.Equal(t, "NaN", out["nan"])
	assert.Equal(t, "+Inf", out["inf"])
	assert.Equal(t, "-Inf", out["neg"])
	assert.Equal(t, "+Inf", out["f32"])
	assert.Equal(t, 1.5, out["ok"])
	assert.Equal(t, []any{"NaN", 2.0}, out["nested"].(map[string]any)["list"])

	_, err := json.Marshal(out)
	assert.NoError(t, err)
}

func TestSanitizeBoundsDepth(t *testing.T) {
	root := map[string]any{}
	current := root
	for i := 0; i < 20; i++ {
		next := map[string]any{}
		current["child"] = next
		current = next
	}

	out := Sanitize(root)

	found := false
	var walk func(v any)
	walk = func(v any) {
		switch val := v.(type) {
		case map[string]any:
			for _, child := range val {
				walk(child)
			}
		case string:
			if val == maxDepthMarker {
				found = true
			}
		}
	}
	walk(out)
	assert.True(t, found, "deep nesting should be cut with %s", maxDepthMarker)
}

func TestSanitizeErrorsAndNil(t *testing.T) {
	assert.Nil(t, Sanitize(nil))

	out := Sanitize(map[string]any{"err": errors.New("boom"), "none": nil})
	assert.Equal(t, "boom", out["err"])
	assert.Nil(t, out["none"])
}
