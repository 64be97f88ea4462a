package a2a

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

const testSecret = "test-secret"

func testMessage(payload map[string]any) Message {
	m := New(TypeProposal, payload, "trace-1", "corr-1", "sender-a", WithReceiver("receiver-b"))
	// Pin generated fields so canonical comparisons are stable.
	m.MessageID = "msg-1"
	m.Timestamp = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return m
}

func TestSignVerifyRoundtrip(t *testing.T) {
	msg := testMessage(map[string]any{"destination": "Goa", "days": 3})
	signed, err := Sign(msg, testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if signed.Signature == "" {
		t.Fatal("expected non-empty signature")
	}
	if msg.Signature != "" {
		t.Fatal("Sign mutated its input")
	}
	if !Verify(signed, testSecret) {
		t.Fatal("expected signature to verify")
	}
	if Verify(signed, "other-secret") {
		t.Fatal("expected verification to fail under a different secret")
	}
}

func TestVerifyDetectsTampering(t *testing.T) {
	msg := testMessage(map[string]any{"total": 1200.50})
	signed, err := Sign(msg, testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tampered := signed
	tampered.Payload = map[string]any{"total": 99.99}
	if Verify(tampered, testSecret) {
		t.Fatal("payload tampering went undetected")
	}

	tampered = signed
	tampered.Meta.Receiver = "attacker"
	if Verify(tampered, testSecret) {
		t.Fatal("metadata tampering went undetected")
	}
}

func TestVerifyUnsignedMessage(t *testing.T) {
	if Verify(testMessage(nil), testSecret) {
		t.Fatal("unsigned message must not verify")
	}
}

func TestCanonicalIsOrderIndependent(t *testing.T) {
	a := testMessage(map[string]any{
		"flights": []any{map[string]any{"provider": "x", "total": 100.0}},
		"hotels":  []any{},
		"budget":  decimal.RequireFromString("1500.00"),
	})
	b := testMessage(map[string]any{
		"budget":  decimal.RequireFromString("1500.00"),
		"hotels":  []any{},
		"flights": []any{map[string]any{"total": 100.0, "provider": "x"}},
	})

	ca, err := Canonical(a)
	if err != nil {
		t.Fatalf("canonical a: %v", err)
	}
	cb, err := Canonical(b)
	if err != nil {
		t.Fatalf("canonical b: %v", err)
	}
	if !bytes.Equal(ca, cb) {
		t.Fatalf("canonical forms differ:\n%s\n%s", ca, cb)
	}
}

func TestCanonicalNormalizesDecimalsAndTimes(t *testing.T) {
	when := time.Date(2026, 3, 2, 9, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))
	msg := testMessage(map[string]any{
		"amount": decimal.RequireFromString("74.50"),
		"at":     when,
	})
	data, err := Canonical(msg)
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	if !strings.Contains(string(data), `"74.5"`) {
		t.Fatalf("decimal not rendered as fixed text: %s", data)
	}
	if !strings.Contains(string(data), `"2026-03-02T04:00:00Z"`) {
		t.Fatalf("timestamp not normalized to UTC: %s", data)
	}
}

func TestCanonicalRejectsUnrepresentableValues(t *testing.T) {
	msg := testMessage(map[string]any{"fn": func() {}})
	if _, err := Canonical(msg); err == nil {
		t.Fatal("expected error for unrepresentable payload value")
	}
}

func TestCanonicalDoesNotCoverSignature(t *testing.T) {
	msg := testMessage(map[string]any{"k": "v"})
	unsigned, err := Canonical(msg)
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	msg.Signature = "deadbeef"
	signed, err := Canonical(msg)
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	if !bytes.Equal(unsigned, signed) {
		t.Fatal("signature field leaked into the canonical form")
	}
}
