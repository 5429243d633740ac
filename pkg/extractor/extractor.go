// Package extractor reads loosely typed values out of decoded JSON payloads.
//
// Order records and detection requests arrive from imports and queues where a
// field that should be text may hold a number, an object or nothing at all.
// The helpers here never fail on such values; they report "no signal" instead.
package extractor

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Ramsey-B/thistle/pkg/models"
)

// Extract walks data along a dot path. Array segments use "items[0]".
// A missing key yields nil without error.
func Extract(data any, path string) (any, error) {
	if path == "" {
		return data, nil
	}

	current := data
	for _, seg := range parsePath(path) {
		var err error
		current, err = step(current, seg)
		if err != nil {
			return nil, fmt.Errorf("extract %q: %w", path, err)
		}
		if current == nil {
			return nil, nil
		}
	}
	return current, nil
}

// Text returns the value at path only when it is a string.
func Text(data any, path string) *string {
	v, err := Extract(data, path)
	if err != nil {
		return nil
	}
	s, ok := v.(string)
	if !ok {
		return nil
	}
	return &s
}

// Int64 accepts integral JSON numbers and numeric strings.
func Int64(data any, path string) (int64, bool) {
	v, err := Extract(data, path)
	if err != nil {
		return 0, false
	}

	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// Bool accepts JSON booleans and the strings "true"/"false"/"1"/"0".
func Bool(data any, path string) bool {
	v, err := Extract(data, path)
	if err != nil {
		return false
	}

	switch b := v.(type) {
	case bool:
		return b
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(b))
		return err == nil && parsed
	}
	return false
}

// OrderPaths locates the matcher's fields inside an order payload.
type OrderPaths struct {
	ContactPhone    string
	OrdererName     string
	DetailedAddress string
	Checked         string
}

var DefaultOrderPaths = OrderPaths{
	ContactPhone:    "contact_phone",
	OrdererName:     "orderer_name",
	DetailedAddress: "detailed_address",
	Checked:         "checked",
}

// DecodeOrderView builds an OrderView from an untyped payload.
// Fields that are absent or not strings carry no signal.
func DecodeOrderView(data map[string]any, paths OrderPaths) models.OrderView {
	return models.OrderView{
		ContactPhone:    Text(data, paths.ContactPhone),
		OrdererName:     Text(data, paths.OrdererName),
		DetailedAddress: Text(data, paths.DetailedAddress),
		Checked:         Bool(data, paths.Checked),
	}
}

type segment struct {
	key   string
	index int
	array bool
}

func parsePath(path string) []segment {
	var segments []segment
	for _, raw := range strings.Split(path, ".") {
		if raw == "" {
			continue
		}

		seg := segment{key: raw}
		open := strings.IndexByte(raw, '[')
		if open != -1 && strings.HasSuffix(raw, "]") {
			if i, err := strconv.Atoi(raw[open+1 : len(raw)-1]); err == nil {
				seg.key = raw[:open]
				seg.index = i
				seg.array = true
			}
		}
		segments = append(segments, seg)
	}
	return segments
}

func step(data any, seg segment) (any, error) {
	value := data
	if seg.key != "" {
		m, ok := data.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot read key %q from %T", seg.key, data)
		}
		value = m[seg.key]
	}

	if !seg.array || value == nil {
		return value, nil
	}

	arr, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array for %q, got %T", seg.key, value)
	}
	if seg.index < 0 || seg.index >= len(arr) {
		return nil, nil
	}
	return arr[seg.index], nil
}
