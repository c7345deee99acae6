package value

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FromJSON decodes a JSON document into a Value.
// Single-key objects of the form {"__ref": "<id>"} decode to Ref, which lets
// previously normalized result shapes round-trip through JSON.
func FromJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return FromAny(raw)
}

// FromAny converts a decoded JSON-compatible Go value (maps, slices,
// strings, numbers, bools, nil) into a Value.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case bool:
		return Bool(val), nil
	case string:
		return String(val), nil
	case float64:
		return Number(val), nil
	case int:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number out of range: %s", val)
		}
		return Number(f), nil
	case []any:
		list := make(List, len(val))
		for i, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			list[i] = conv
		}
		return list, nil
	case map[string]any:
		if id, ok := refShape(val); ok {
			return Ref{ID: id}, nil
		}
		obj := make(Object, len(val))
		for k, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = conv
		}
		return obj, nil
	case map[any]any:
		// yaml.v3 decodes nested mappings to map[any]any when keys are
		// untyped; only string keys are accepted.
		obj := make(Object, len(val))
		for k, elem := range val {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("object key %v is not a string", k)
			}
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", key, err)
			}
			obj[key] = conv
		}
		if id, ok := refShapeObject(obj); ok {
			return Ref{ID: id}, nil
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// refShape reports whether a raw map is exactly {"__ref": "<id>"}.
func refShape(m map[string]any) (string, bool) {
	if len(m) != 1 {
		return "", false
	}
	id, ok := m[RefKey].(string)
	return id, ok
}

func refShapeObject(obj Object) (string, bool) {
	if len(obj) != 1 {
		return "", false
	}
	id, ok := obj[RefKey].(String)
	return string(id), ok
}

// ToJSON encodes a Value as standard (non-canonical) JSON.
// Absent (nil) values encode as null. Refs encode as {"__ref": "<id>"}.
func ToJSON(v Value) ([]byte, error) {
	return json.Marshal(toAny(v))
}

// ToAny converts a Value back to plain Go data (map[string]any, []any,
// scalars) for interoperation with encoding/json and yaml.
func ToAny(v Value) any {
	return toAny(v)
}

func toAny(v Value) any {
	switch val := v.(type) {
	case nil:
		return nil
	case Null:
		return nil
	case String:
		return string(val)
	case Number:
		// Keep integral numbers integral through the JSON round trip.
		f := float64(val)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case Bool:
		return bool(val)
	case Ref:
		return map[string]any{RefKey: val.ID}
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = toAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = toAny(elem)
		}
		return out
	default:
		return nil
	}
}
