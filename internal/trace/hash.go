package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for hashing. The version suffix leaves room for a future
// change of algorithm without colliding with stored hashes.
const (
	DomainEvent  = "chrona/event/v1"
	DomainDigest = "chrona/digest/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the content hash of a single event.
func Hash(e Event) (string, error) {
	canonical, err := MarshalCanonical(e)
	if err != nil {
		return "", fmt.Errorf("hash event %d: %w", e.Seq, err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}

// MustHash is like Hash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustHash(e Event) string {
	h, err := Hash(e)
	if err != nil {
		panic(err)
	}
	return h
}

// Chain folds one event hash into a running digest.
func Chain(prev, eventHash string) string {
	return hashWithDomain(DomainDigest, []byte(prev+eventHash))
}

// Digest returns the chained digest of a whole timeline. Any change to an
// event, or to the order of events, changes the digest.
func Digest(events []Event) (string, error) {
	digest := ""
	for _, e := range events {
		h, err := Hash(e)
		if err != nil {
			return "", err
		}
		digest = Chain(digest, h)
	}
	return digest, nil
}
