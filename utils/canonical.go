package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// CanonicalJSON serializes value to a compact JSON string with object keys
// sorted recursively. Arrays keep their order; elements are canonicalized.
// Equal logical content always produces an identical string regardless of the
// original key order, which is what makes snapshot hashes content-addressed.
//
// Numbers pass through unmodified (json.Number), so callers that need hashes
// stable across runtimes must serialize monetary/quantity fields as decimal
// strings before calling this.
func CanonicalJSON(value any) (string, error) {
	// A first Marshal normalizes structs/maps into plain JSON and rejects
	// cycles and unsupported types up front.
	raw, err := json.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("canonicalize: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return "", fmt.Errorf("canonicalize: %w", err)
	}

	var b strings.Builder
	if err := writeCanonical(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeCanonical(b *strings.Builder, v any) error {
	switch t := v.(type) {
	case nil:
		b.WriteString("null")
	case bool:
		if t {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case json.Number:
		b.WriteString(t.String())
	case string:
		enc, err := json.Marshal(t)
		if err != nil {
			return fmt.Errorf("canonicalize string: %w", err)
		}
		b.Write(enc)
	case []any:
		b.WriteByte('[')
		for i, el := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, el); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			enc, err := json.Marshal(k)
			if err != nil {
				return fmt.Errorf("canonicalize key: %w", err)
			}
			b.Write(enc)
			b.WriteByte(':')
			if err := writeCanonical(b, t[k]); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	default:
		return fmt.Errorf("canonicalize: unsupported value of type %T", v)
	}
	return nil
}

// SHA256Hex returns the lowercase hex SHA-256 digest of payload.
func SHA256Hex(payload string) string {
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// CanonicalHash canonicalizes value and hashes the result in one step.
func CanonicalHash(value any) (canonical string, hash string, err error) {
	canonical, err = CanonicalJSON(value)
	if err != nil {
		return "", "", err
	}
	return canonical, SHA256Hex(canonical), nil
}
