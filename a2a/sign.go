package a2a

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Canonical produces the deterministic byte representation of a message
// used as the HMAC signing input. It covers every field except the
// signature itself. Map keys are emitted in sorted order, timestamps as
// RFC 3339 UTC strings and decimals as their fixed textual form, so two
// structurally equal messages canonicalize identically regardless of how
// their payloads were assembled.
//
// A payload value that cannot be represented deterministically is an
// error, never a silent coercion.
func Canonical(m Message) ([]byte, error) {
	payload, err := canonicalValue(m.Payload)
	if err != nil {
		return nil, fmt.Errorf("canonicalize payload: %w", err)
	}
	doc := map[string]any{
		"message_id":     m.MessageID,
		"trace_id":       m.TraceID,
		"correlation_id": m.CorrelationID,
		"message_type":   string(m.MessageType),
		"version":        m.Version,
		"timestamp":      m.Timestamp.UTC().Format(time.RFC3339Nano),
		"payload":        payload,
		"meta": map[string]any{
			"sender":   m.Meta.Sender,
			"receiver": m.Meta.Receiver,
			"priority": m.Meta.Priority,
			"ttl":      m.Meta.TTL,
		},
	}
	// encoding/json sorts map keys, which supplies the stable ordering.
	return json.Marshal(doc)
}

// canonicalValue normalizes a payload value into a JSON-representable form
// with fixed textual renderings for decimals and timestamps.
func canonicalValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, json.Number:
		return val, nil
	case decimal.Decimal:
		return val.String(), nil
	case time.Time:
		return val.UTC().Format(time.RFC3339Nano), nil
	case MessageType:
		return string(val), nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			norm, err := canonicalValue(item)
			if err != nil {
				return nil, fmt.Errorf("key %q: %w", k, err)
			}
			out[k] = norm
		}
		return out, nil
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			norm, err := canonicalValue(item)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = norm
		}
		return out, nil
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(val))
		for i, mm := range val {
			norm, err := canonicalValue(mm)
			if err != nil {
				return nil, fmt.Errorf("index %d: %w", i, err)
			}
			out[i] = norm
		}
		return out, nil
	default:
		return nil, fmt.Errorf("value of type %T has no deterministic representation", v)
	}
}

// ComputeSignature returns the hex HMAC-SHA256 of the canonical form under
// the shared secret.
func ComputeSignature(m Message, secret string) (string, error) {
	canonical, err := Canonical(m)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Sign returns a copy of the message with its signature set. The input is
// not mutated.
func Sign(m Message, secret string) (Message, error) {
	sig, err := ComputeSignature(m, secret)
	if err != nil {
		return Message{}, err
	}
	m.Signature = sig
	return m, nil
}

// Verify recomputes the signature and compares it in constant time. A
// message without a signature, or one mutated after signing, verifies
// false.
func Verify(m Message, secret string) bool {
	if m.Signature == "" {
		return false
	}
	expected, err := ComputeSignature(m, secret)
	if err != nil {
		return false
	}
	return hmac.Equal([]byte(m.Signature), []byte(expected))
}
