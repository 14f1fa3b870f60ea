package parse

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/kaptinlin/jsonrepair"
)

// ParseStringAs parses a string into the specified type T.
// For primitive types (string, bool, int, uint, float) it performs a direct
// conversion. For complex types (structs, maps, slices) it unmarshals JSON;
// if that fails, it repairs the text with jsonrepair — trailing commas,
// single quotes, unquoted keys, the usual model-generated defects — and
// retries once.
//
// Example usage:
//
//	type Verdict struct {
//	    Approved bool   `json:"approved"`
//	    Reason   string `json:"reason"`
//	}
//
//	// Valid JSON
//	verdict, err := parse.ParseStringAs[Verdict](`{"approved":true,"reason":"ok"}`)
//
//	// Defective JSON (repaired before decoding)
//	verdict, err := parse.ParseStringAs[Verdict](`{approved: true, reason: 'ok'}`)
//
//	// Primitives
//	count, err := parse.ParseStringAs[int]("42")
func ParseStringAs[T any](content string) (T, error) {
	var result T

	switch reflect.TypeFor[T]().Kind() {
	case reflect.String:
		reflect.ValueOf(&result).Elem().SetString(content)
		return result, nil

	case reflect.Bool:
		value, err := strconv.ParseBool(content)
		if err != nil {
			return result, fmt.Errorf("failed to parse content as bool: %w", err)
		}
		reflect.ValueOf(&result).Elem().SetBool(value)
		return result, nil

	case reflect.Float32, reflect.Float64:
		value, err := strconv.ParseFloat(content, 64)
		if err != nil {
			return result, fmt.Errorf("failed to parse content as float: %w", err)
		}
		reflect.ValueOf(&result).Elem().SetFloat(value)
		return result, nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		value, err := strconv.ParseInt(content, 10, 64)
		if err != nil {
			return result, fmt.Errorf("failed to parse content as int: %w", err)
		}
		reflect.ValueOf(&result).Elem().SetInt(value)
		return result, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		value, err := strconv.ParseUint(content, 10, 64)
		if err != nil {
			return result, fmt.Errorf("failed to parse content as uint: %w", err)
		}
		reflect.ValueOf(&result).Elem().SetUint(value)
		return result, nil

	default:
		err := json.Unmarshal([]byte(content), &result)
		if err == nil {
			return result, nil
		}
		repaired, repairErr := jsonrepair.JSONRepair(content)
		if repairErr != nil {
			return result, fmt.Errorf("failed to unmarshal content as %T and failed to repair JSON: unmarshal error: %w, repair error: %v", result, err, repairErr)
		}
		if err := json.Unmarshal([]byte(repaired), &result); err != nil {
			return result, fmt.Errorf("failed to unmarshal repaired JSON as %T: %w (original content: %s, repaired: %s)", result, err, content, repaired)
		}
		return result, nil
	}
}

// ValueAs converts an arbitrary value into type T. A direct type assertion
// wins; strings go through ParseStringAs; everything else takes a JSON
// round-trip, which covers the map[string]any shapes produced by graph
// plumbing and checkpoint restores.
func ValueAs[T any](value any) (T, error) {
	if typed, ok := value.(T); ok {
		return typed, nil
	}

	var result T
	switch content := value.(type) {
	case nil:
		return result, fmt.Errorf("cannot convert nil into %s", reflect.TypeFor[T]())
	case string:
		return ParseStringAs[T](content)
	case []byte:
		return ParseStringAs[T](string(content))
	default:
		encoded, err := json.Marshal(value)
		if err != nil {
			return result, fmt.Errorf("cannot convert %T into %s: %w", value, reflect.TypeFor[T](), err)
		}
		if err := json.Unmarshal(encoded, &result); err != nil {
			return result, fmt.Errorf("cannot convert %T into %s: %w", value, reflect.TypeFor[T](), err)
		}
		return result, nil
	}
}
