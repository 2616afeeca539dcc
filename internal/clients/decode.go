package clients

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Skotchmaster/food_delivery/pkg/apierr"
)

var null = []byte("null")

// DecodeList turns every list shape the backend produces into one slice:
// a bare array, an array under one of keys, "data" or "items", or the only
// array field of an object. An empty or null payload is an empty list.
func DecodeList[T any](op string, raw json.RawMessage, keys ...string) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, null) {
		return []T{}, nil
	}

	switch trimmed[0] {
	case '[':
		var out []T
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, apierr.Decode(op, err)
		}
		if out == nil {
			out = []T{}
		}
		return out, nil
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, apierr.Decode(op, err)
		}
		for _, k := range withFallback(keys, "data", "items") {
			if v, ok := obj[k]; ok {
				return DecodeList[T](op, v)
			}
		}
		var arrays []json.RawMessage
		for _, v := range obj {
			if t := bytes.TrimSpace(v); len(t) > 0 && t[0] == '[' {
				arrays = append(arrays, t)
			}
		}
		if len(arrays) == 1 {
			return DecodeList[T](op, arrays[0])
		}
		return nil, apierr.Decode(op, fmt.Errorf("object with %d array fields is not a list", len(arrays)))
	default:
		return nil, apierr.Decode(op, fmt.Errorf("unexpected list payload starting with %q", trimmed[0]))
	}
}

// DecodeEntity reads a single object, unwrapping it first when the backend
// nests it under one of keys, "message" or "data".
func DecodeEntity[T any](op string, raw json.RawMessage, keys ...string) (T, error) {
	var out T
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, null) {
		return out, apierr.Decode(op, errors.New("empty response"))
	}
	if trimmed[0] != '{' {
		return out, apierr.Decode(op, fmt.Errorf("unexpected payload starting with %q", trimmed[0]))
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return out, apierr.Decode(op, err)
	}
	for _, k := range withFallback(keys, "message", "data") {
		if v, ok := obj[k]; ok {
			if t := bytes.TrimSpace(v); len(t) > 0 && t[0] == '{' {
				trimmed = t
				break
			}
		}
	}

	if err := json.Unmarshal(trimmed, &out); err != nil {
		return out, apierr.Decode(op, err)
	}
	return out, nil
}

func withFallback(keys []string, fallback ...string) []string {
	out := make([]string, 0, len(keys)+len(fallback))
	out = append(out, keys...)
	return append(out, fallback...)
}
