package types

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
)

// Match is a single signature occurrence in a payload or stream.
type Match struct {
	StructuralID  string     `json:"structural_id"` // SHA-1(signature_structural_id + '\0' + start + '\0' + end)
	SignatureID   string     `json:"signature_id"`  // e.g., "proto.http.1"
	SignatureName string     `json:"signature_name"`
	Offset        OffsetSpan `json:"offset"`
}

// ComputeStructuralID computes a location-based unique ID.
// Format: SHA-1(signature_structural_id + '\0' + start + '\0' + end)
func (m *Match) ComputeStructuralID(signatureStructuralID string) string {
	h := sha1.New()

	h.Write([]byte(signatureStructuralID))
	h.Write([]byte{0})

	h.Write(strconv.AppendInt(nil, m.Offset.Start, 10))
	h.Write([]byte{0})

	h.Write(strconv.AppendInt(nil, m.Offset.End, 10))

	return hex.EncodeToString(h.Sum(nil))
}

// NewMatch builds a match for sig starting at offset and fills in its
// structural ID.
func NewMatch(sig *Signature, offset int64) *Match {
	m := &Match{
		SignatureID:   sig.ID,
		SignatureName: sig.Name,
		Offset: OffsetSpan{
			Start: offset,
			End:   offset + int64(len(sig.Pattern)),
		},
	}
	m.StructuralID = m.ComputeStructuralID(sig.StructuralID)
	return m
}
