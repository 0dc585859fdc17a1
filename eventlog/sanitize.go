package eventlog

import (
	"encoding/json"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// RedactedMarker replaces the value of every sensitive key.
	RedactedMarker = "[REDACTED]"
	// TruncatedMarker is appended to strings cut at MaxStringLength.
	TruncatedMarker = "...[TRUNCATED]"
	// MaxStringLength is the longest string value kept verbatim.
	MaxStringLength = 1000

	unserializableMarker = "[UNSERIALIZABLE]"
	maxDepthMarker       = "[MAX_DEPTH]"
	nanMarker            = "NaN"
	posInfMarker         = "+Inf"
	negInfMarker         = "-Inf"
	maxSanitizeDepth     = 10
)

// sensitiveKeys holds normalized key names; see normalizeKey.
var sensitiveKeys = map[string]struct{}{
	"password":        {},
	"currentpassword": {},
	"newpassword":     {},
	"confirmpassword": {},
	"apikey":          {},
	"token":           {},
	"accesstoken":     {},
	"refreshtoken":    {},
	"authorization":   {},
	"secret":          {},
	"clientsecret":    {},
}

var keySeparators = strings.NewReplacer("_", "", "-", "", " ", "")

func normalizeKey(key string) string {
	return keySeparators.Replace(strings.ToLower(key))
}

// IsSensitiveKey reports whether values under key must be redacted. Matching
// ignores case and the separators '_', '-' and ' ', so "api_key", "apiKey"
// and "API-Key" are all sensitive.
func IsSensitiveKey(key string) bool {
	_, ok := sensitiveKeys[normalizeKey(key)]
	return ok
}

// Sanitize returns a redacted, truncated deep copy of data. The input is not
// modified. A nil map yields nil.
func Sanitize(data map[string]any) map[string]any {
	if data == nil {
		return nil
	}
	return sanitizeMap(data, 0)
}

// SanitizeValue applies the Sanitize rules to an arbitrary value. Values that
// are not maps, slices or scalars are normalized through their JSON form.
func SanitizeValue(v any) any {
	return sanitizeValue(v, 0)
}

func sanitizeMap(m map[string]any, depth int) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if IsSensitiveKey(k) {
			out[k] = RedactedMarker
			continue
		}
		out[k] = sanitizeValue(v, depth+1)
	}
	return out
}

func sanitizeValue(v any, depth int) any {
	if depth > maxSanitizeDepth {
		return maxDepthMarker
	}

	switch val := v.(type) {
	case nil:
		return nil
	case string:
		return truncate(val)
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, json.Number:
		return val
	case float32:
		return finiteFloat(float64(val), val)
	case float64:
		return finiteFloat(val, val)
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano)
	case time.Duration:
		return val.String()
	case error:
		return truncate(val.Error())
	case map[string]any:
		return sanitizeMap(val, depth)
	case Fields:
		return sanitizeMap(val, depth)
	case Payload:
		return sanitizeMap(val.Fields(), depth)
	case map[string]string:
		m := make(map[string]any, len(val))
		for k, s := range val {
			m[k] = s
		}
		return sanitizeMap(m, depth)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = sanitizeValue(item, depth+1)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = truncate(s)
		}
		return out
	case []byte:
		return truncate(string(val))
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(val, &decoded); err != nil {
			return truncate(string(val))
		}
		return sanitizeValue(decoded, depth)
	default:
		return sanitizeViaJSON(val, depth)
	}
}

// sanitizeViaJSON normalizes structs, typed maps and slices into plain JSON
// values so their keys go through the deny-list as well.
func sanitizeViaJSON(v any, depth int) any {
	raw, err := json.Marshal(v)
	if err != nil {
		return unserializableMarker
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return unserializableMarker
	}
	return sanitizeValue(decoded, depth)
}

// finiteFloat returns v unchanged unless f is NaN or infinite, which JSON
// cannot encode.
func finiteFloat(f float64, v any) any {
	switch {
	case math.IsNaN(f):
		return nanMarker
	case math.IsInf(f, 1):
		return posInfMarker
	case math.IsInf(f, -1):
		return negInfMarker
	}
	return v
}

// truncate cuts s to MaxStringLength characters.
func truncate(s string) string {
	if len(s) <= MaxStringLength || utf8.RuneCountInString(s) <= MaxStringLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxStringLength]) + TruncatedMarker
}
