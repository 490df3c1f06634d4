package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainRecord = "nmlc/record/v1"
	DomainStream = "nmlc/stream/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalRecord returns the canonical object form of a record at a stream
// position. The json sink and RecordHash share this layout.
func CanonicalRecord(position int, r Record) map[string]any {
	return map[string]any{
		"position": position,
		"kind":     r.Kind.String(),
		"label":    r.Label,
		"data":     hex.EncodeToString(r.Data),
	}
}

// RecordHash computes the content address of a record at a stream position.
func RecordHash(position int, r Record) (string, error) {
	canonical, err := MarshalCanonical(CanonicalRecord(position, r))
	if err != nil {
		return "", fmt.Errorf("RecordHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRecord, canonical), nil
}

// StreamHash computes the content address of a whole stream from the hashes
// of its records, in order.
func StreamHash(recordHashes []string) string {
	data := make([]byte, 0, len(recordHashes)*65)
	for _, h := range recordHashes {
		data = append(data, h...)
		data = append(data, '\n')
	}
	return hashWithDomain(DomainStream, data)
}

// MustRecordHash is like RecordHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustRecordHash(position int, r Record) string {
	h, err := RecordHash(position, r)
	if err != nil {
		panic(err)
	}
	return h
}
