// internal/provider/paynow/hash.go
package paynow

import (
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
)

// field is one key/value pair from a url-encoded Paynow message. Pair order
// matters: the hash covers field values in transmission order.
type field struct {
	key   string
	value string
}

// hashValues computes the Paynow message hash: SHA-512 over the concatenated
// field values followed by the lowercased integration key, as uppercase hex.
func hashValues(values []string, integrationKey string) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(v)
	}
	b.WriteString(strings.ToLower(integrationKey))
	sum := sha512.Sum512([]byte(b.String()))
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}

// parseFields decodes a url-encoded body preserving pair order.
func parseFields(raw string) ([]field, error) {
	var fields []field
	for _, pair := range strings.Split(strings.TrimSpace(raw), "&") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		key, err := url.QueryUnescape(k)
		if err != nil {
			return nil, fmt.Errorf("malformed field key %q: %w", k, err)
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, fmt.Errorf("malformed field value for %q: %w", key, err)
		}
		fields = append(fields, field{key: key, value: value})
	}
	return fields, nil
}

func valuesMap(fields []field) map[string]string {
	m := make(map[string]string, len(fields))
	for _, f := range fields {
		m[strings.ToLower(f.key)] = f.value
	}
	return m
}

// verifyHash recomputes the hash over all non-hash values in order and
// compares it to the transmitted hash field.
func verifyHash(fields []field, integrationKey string) bool {
	var values []string
	var got string
	for _, f := range fields {
		if strings.EqualFold(f.key, "hash") {
			got = f.value
			continue
		}
		values = append(values, f.value)
	}
	if got == "" {
		return false
	}
	return hashValues(values, integrationKey) == strings.ToUpper(got)
}

// encodeWithHash url-encodes the fields in order and appends the hash field.
func encodeWithHash(fields []field, integrationKey string) string {
	values := make([]string, 0, len(fields))
	for _, f := range fields {
		values = append(values, f.value)
	}
	h := hashValues(values, integrationKey)

	var b strings.Builder
	for _, f := range fields {
		b.WriteString(url.QueryEscape(f.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(f.value))
		b.WriteByte('&')
	}
	b.WriteString("hash=")
	b.WriteString(h)
	return b.String()
}
