package hashutil

import (
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

type HashAlgo string

const HashAlgoBLAKE3 HashAlgo = "blake3"

// DigestAlgo is the algorithm used for stored response digests.
const DigestAlgo = HashAlgoBLAKE3

// HashBytes returns the hash of bytes as a hex string using the specified algorithm.
// Only "blake3" is supported.
func HashBytes(data []byte, algo HashAlgo) (string, error) {
	switch algo {
	case HashAlgoBLAKE3:
		return hashBytesBlake3(data), nil
	default:
		return "", fmt.Errorf("unsupported hash algorithm: %s", algo)
	}
}

// Digest returns a self-describing digest of data in the form "<algo>:<hex>".
// Digests are informational: they identify a stored body, they are never
// used to validate or evict it.
func Digest(data []byte) string {
	// DigestAlgo is always supported
	value, _ := HashBytes(data, DigestAlgo)
	return string(DigestAlgo) + ":" + value
}

func hashBytesBlake3(data []byte) string {
	hash := blake3.Sum256(data)
	return hex.EncodeToString(hash[:])
}
