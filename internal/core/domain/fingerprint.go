package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint is the content digest used as the uniqueness key for duplicate
// detection. Identical bytes always produce the identical fingerprint.
type Fingerprint string

func ComputeFingerprint(raw []byte) Fingerprint {
	sum := sha256.Sum256(raw)
	return Fingerprint(hex.EncodeToString(sum[:]))
}

func (f Fingerprint) String() string {
	return string(f)
}
