package model

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainDocument prefixes document fingerprints. The version suffix allows
// the canonical form to change without colliding with old fingerprints.
const DomainDocument = "servicegraph/document/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint computes the content hash of a document. Two documents with
// the same fingerprint serialize to byte-identical canonical JSON.
func Fingerprint(d *Document) (string, error) {
	canonical, err := MarshalCanonical(d)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when the document is known to be valid.
func MustFingerprint(d *Document) string {
	fp, err := Fingerprint(d)
	if err != nil {
		panic(err)
	}
	return fp
}
