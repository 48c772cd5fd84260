package types

import (
	"crypto/sha1"
	"encoding/hex"
)

// Signature is a named fixed byte pattern with metadata.
type Signature struct {
	ID           string `json:"id"`   // e.g., "proto.http.1"
	Name         string `json:"name"` // human-readable name
	Pattern      []byte `json:"-"`
	StructuralID string `json:"structural_id"`
	Description  string `json:"description,omitempty"`

	// Examples must contain Pattern; NegativeExamples must not.
	Examples         [][]byte `json:"-"`
	NegativeExamples [][]byte `json:"-"`

	References []string `json:"references,omitempty"`
	Categories []string `json:"categories,omitempty"`
}

// ComputeStructuralID computes the SHA-1 of the pattern bytes.
// Two signatures with the same pattern share a structural ID.
func (s *Signature) ComputeStructuralID() string {
	h := sha1.Sum(s.Pattern)
	return hex.EncodeToString(h[:])
}

// PatternHex returns the pattern as lowercase hex.
func (s *Signature) PatternHex() string {
	return hex.EncodeToString(s.Pattern)
}
