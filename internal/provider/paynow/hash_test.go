package paynow

import (
	"strings"
	"testing"
)

const testKey = "3e9fed89-60e1-4ce5-ab6e-6b1eb2d4f977"

func TestHashValuesShape(t *testing.T) {
	h := hashValues([]string{"LP-1", "50.00"}, testKey)

	if len(h) != 128 {
		t.Fatalf("hash length = %d, want 128", len(h))
	}
	if h != strings.ToUpper(h) {
		t.Error("hash is not uppercase")
	}
	if again := hashValues([]string{"LP-1", "50.00"}, testKey); again != h {
		t.Error("hash is not deterministic")
	}
}

func TestHashValuesKeySensitivity(t *testing.T) {
	values := []string{"LP-1", "50.00"}

	if hashValues(values, testKey) == hashValues(values, "another-key") {
		t.Error("different integration keys must produce different hashes")
	}
	// The key is lowercased before hashing, so case must not matter.
	if hashValues(values, testKey) != hashValues(values, strings.ToUpper(testKey)) {
		t.Error("integration key casing must not affect the hash")
	}
}

func TestHashValuesOrderSensitivity(t *testing.T) {
	if hashValues([]string{"a", "b"}, testKey) == hashValues([]string{"b", "a"}, testKey) {
		t.Error("value order must affect the hash")
	}
}

func TestParseFieldsPreservesOrder(t *testing.T) {
	fields, err := parseFields("reference=LP-1&amount=50.00&status=Paid&note=a%20b")
	if err != nil {
		t.Fatalf("parseFields: %v", err)
	}

	wantKeys := []string{"reference", "amount", "status", "note"}
	if len(fields) != len(wantKeys) {
		t.Fatalf("got %d fields, want %d", len(fields), len(wantKeys))
	}
	for i, k := range wantKeys {
		if fields[i].key != k {
			t.Errorf("field[%d].key = %q, want %q", i, fields[i].key, k)
		}
	}
	if fields[3].value != "a b" {
		t.Errorf("url-decoded value = %q, want %q", fields[3].value, "a b")
	}
}

func TestParseFieldsMalformed(t *testing.T) {
	if _, err := parseFields("reference=%zz"); err == nil {
		t.Error("expected error for malformed percent escape")
	}
}

func TestEncodeWithHashRoundTrip(t *testing.T) {
	fields := []field{
		{"reference", "LP-1"},
		{"amount", "50.00"},
		{"status", "Paid"},
	}

	encoded := encodeWithHash(fields, testKey)
	parsed, err := parseFields(encoded)
	if err != nil {
		t.Fatalf("parseFields: %v", err)
	}
	if !verifyHash(parsed, testKey) {
		t.Error("hash on encoded message failed to verify")
	}
}

func TestVerifyHashRejectsTamper(t *testing.T) {
	fields := []field{
		{"reference", "LP-1"},
		{"amount", "50.00"},
		{"status", "Cancelled"},
	}
	encoded := encodeWithHash(fields, testKey)

	tampered := strings.Replace(encoded, "Cancelled", "Paid", 1)
	parsed, err := parseFields(tampered)
	if err != nil {
		t.Fatalf("parseFields: %v", err)
	}
	if verifyHash(parsed, testKey) {
		t.Error("tampered message must not verify")
	}
}

func TestVerifyHashRejectsWrongKey(t *testing.T) {
	encoded := encodeWithHash([]field{{"reference", "LP-1"}}, testKey)
	parsed, err := parseFields(encoded)
	if err != nil {
		t.Fatalf("parseFields: %v", err)
	}
	if verifyHash(parsed, "another-key") {
		t.Error("message hashed with a different key must not verify")
	}
}

func TestVerifyHashRejectsMissingHash(t *testing.T) {
	parsed, err := parseFields("reference=LP-1&status=Paid")
	if err != nil {
		t.Fatalf("parseFields: %v", err)
	}
	if verifyHash(parsed, testKey) {
		t.Error("message without a hash field must not verify")
	}
}
