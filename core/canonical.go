package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// sentinel replaces any value that cannot be serialized, so trace entries
// always canonicalize.
const unserializableSentinel = "<<unserializable>>"

// Canonicalize produces the canonical byte form of v: raw text for strings,
// sorted-key JSON for everything else, with object keys sorted
// lexicographically at every depth and arrays left in their given order.
// Equal values (by semantic JSON content) always canonicalize to identical
// bytes; this is the byte form CIDs are computed over.
func Canonicalize(v any) ([]byte, error) {
	if s, ok := v.(string); ok {
		return []byte(s), nil
	}
	normalized, err := normalize(v)
	if err != nil {
		return nil, err
	}
	return encodeCanonical(normalized)
}

// normalize round-trips v through encoding/json so arbitrary Go values
// (structs, pointers, typed maps) collapse into the
// bool/json.Number/string/[]any/map[string]any/nil shapes canonicalization
// operates on. Values that cannot be marshaled at all are replaced by the
// sentinel rather than failing the whole canonicalization.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return unserializableSentinel, nil
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return unserializableSentinel, nil
	}
	return out, nil
}

// encodeCanonical writes the sorted-key, order-preserving-array JSON
// encoding of a normalized value (the output of normalize).
func encodeCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCanonical(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool, json.Number, string:
		return writeJSONScalar(buf, val)
	case []any:
		buf.WriteByte('[')
		for i, elem := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONScalar(buf, k); err != nil {
				return err
			}
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		// Unreached in practice: normalize() only ever produces the cases
		// above from a json.Decoder with UseNumber. Fall back to the
		// sentinel rather than propagate an error this deep.
		return writeJSONScalar(buf, unserializableSentinel)
	}
	return nil
}

func writeJSONScalar(buf *bytes.Buffer, v any) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("canonicalize scalar: %w", err)
	}
	b := buf.Bytes()
	if n := len(b); n > 0 && b[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
	return nil
}

// DigestCID computes the CID of v's canonical byte form under the given
// algorithm.
func DigestCID(v any, algo Algo) (CID, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return newCID(algo, b)
}

// decodeCanonical parses canonical bytes back into the generic
// bool/json.Number/string/[]any/map[string]any/nil shape Canonicalize
// would have produced them from. Bytes that are not valid JSON are assumed
// to be a raw-text value stored verbatim and are returned as a Go string
// by the caller instead of through this function.
func decodeCanonical(b []byte) (any, error) {
	var out any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}
