package core

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Hash represents a cryptographic hash
type Hash string

// NewHash creates a new hash from data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

// String returns the string representation
func (h Hash) String() string {
	return string(h)
}

// IsEmpty checks if the hash is empty
func (h Hash) IsEmpty() bool {
	return h == ""
}

// Equals checks if two hashes are equal
func (h Hash) Equals(other Hash) bool {
	return h == other
}

// DatasetFingerprint identifies the exact dataset a calibration run saw
type DatasetFingerprint Hash

// NewDatasetFingerprint creates a fingerprint from raw data
func NewDatasetFingerprint(data []byte) DatasetFingerprint {
	return DatasetFingerprint(NewHash(data))
}

// String returns the string representation
func (f DatasetFingerprint) String() string { return Hash(f).String() }

// IsEmpty checks if the fingerprint is empty
func (f DatasetFingerprint) IsEmpty() bool { return Hash(f).IsEmpty() }

// ComputeDatasetFingerprint hashes a dataset source name and its
// generation parameters into a stable fingerprint. Parameter order
// does not affect the result.
func ComputeDatasetFingerprint(source string, params map[string]interface{}) DatasetFingerprint {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var data strings.Builder
	data.WriteString(source)
	for _, key := range keys {
		data.WriteString(key)
		data.WriteString(fmt.Sprintf("%v", params[key]))
	}

	return NewDatasetFingerprint([]byte(data.String()))
}
