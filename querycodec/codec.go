package querycodec

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Id-list ceilings used by the upstream API. Which one applies depends on the resource.
const (
	MaxIDs20  = 20
	MaxIDs50  = 50
	MaxIDs100 = 100

	// MaxSeeds caps the combined number of recommendation seeds.
	MaxSeeds = 5
)

// Bounds describes the documented range and default of a pagination parameter.
type Bounds struct {
	Min     int
	Max     int
	Default int
}

var (
	// LimitBounds applies to page sizes.
	LimitBounds = Bounds{Min: 0, Max: 50, Default: 20}
	// OffsetBounds applies to offsets of most collection resources.
	OffsetBounds = Bounds{Min: 0, Max: 100000, Default: 0}
	// UserOffsetBounds applies to offsets of user-scoped resources such as the library.
	UserOffsetBounds = Bounds{Min: 0, Max: 1000, Default: 0}
)

// Apply clamps value into b.
func (b Bounds) Apply(value int) int {
	return Clamp(value, b.Min, b.Max, b.Default)
}

// ErrLimitExceeded indicates that a list parameter holds more entries than the resource accepts.
var ErrLimitExceeded = errors.New("querycodec: limit exceeded")

// LimitExceededError carries the offending count and the ceiling that was violated.
type LimitExceededError struct {
	Count int
	Max   int
}

// Error returns a concise message naming both values.
func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("querycodec: %d items exceed the maximum of %d", e.Count, e.Max)
}

// Is enables errors.Is(err, ErrLimitExceeded).
func (e *LimitExceededError) Is(target error) bool {
	return target == ErrLimitExceeded
}

// Clamp returns def unchanged when value equals def, otherwise value saturated into [lower, upper].
//
// A caller passing the default explicitly gets the default even if it lies outside the
// bounds; any other value is treated as a request that must be brought into range.
func Clamp(value, lower, upper, def int) int {
	if value == def {
		return value
	}
	if value < lower {
		return lower
	}
	if value > upper {
		return upper
	}
	return value
}

// JoinIDs joins ids with separator after checking them against maxCount.
func JoinIDs(ids []string, separator string, maxCount int) (string, error) {
	if len(ids) > maxCount {
		return "", &LimitExceededError{Count: len(ids), Max: maxCount}
	}
	return strings.Join(ids, separator), nil
}

// Params holds query parameters before encoding. A nil value means "absent".
type Params map[string]any

// BuildQuery encodes params as a canonical form-urlencoded query string.
//
// Keys with nil values are dropped, list values are comma-joined and keys are sorted.
// The boolean result is false when nothing remains to encode, in which case no query
// string must be attached to the URL.
func BuildQuery(params Params) (string, bool) {
	values := make(url.Values, len(params))
	for key, raw := range params {
		value, ok := formatValue(raw)
		if !ok {
			continue
		}
		values.Set(key, value)
	}
	if len(values) == 0 {
		return "", false
	}
	return values.Encode(), true
}

// formatValue renders a single parameter value. It reports false for absent values.
func formatValue(raw any) (string, bool) {
	if isNil(raw) {
		return "", false
	}

	switch v := raw.(type) {
	case string:
		return v, true
	case []string:
		return strings.Join(v, ","), true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case fmt.Stringer:
		return v.String(), true
	}

	rv := reflect.ValueOf(raw)
	if rv.Kind() == reflect.Pointer {
		return formatValue(rv.Elem().Interface())
	}
	return fmt.Sprint(raw), true
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

// JSONBody builds a JSON object from fields, skipping nil values.
// It returns a nil body when no field remains.
func JSONBody(fields map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(fields))
	for key, value := range fields {
		if isNil(value) {
			continue
		}
		keys = append(keys, key)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	sort.Strings(keys)

	body := []byte("{}")
	for _, key := range keys {
		var err error
		body, err = sjson.SetBytes(body, gjson.Escape(key), fields[key])
		if err != nil {
			return nil, fmt.Errorf("querycodec: encode field %q: %w", key, err)
		}
	}
	return body, nil
}
