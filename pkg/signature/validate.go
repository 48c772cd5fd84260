package signature

import (
	"fmt"

	"github.com/praetorian-inc/pktmatch/pkg/kmp"
	"github.com/praetorian-inc/pktmatch/pkg/types"
)

// Validate checks signature consistency and required fields, and runs the
// signature's examples through an exact matcher.
// Returns error if signature is invalid.
func Validate(s *types.Signature) error {
	if s == nil {
		return fmt.Errorf("signature is nil")
	}

	// Check required fields
	if s.ID == "" {
		return fmt.Errorf("signature ID is required")
	}
	if s.Name == "" {
		return fmt.Errorf("signature name is required")
	}

	m, err := kmp.New(s.Pattern)
	if err != nil {
		return fmt.Errorf("signature %s: %w", s.ID, err)
	}

	// Validate StructuralID matches computed value
	expectedID := s.ComputeStructuralID()
	if s.StructuralID != "" && s.StructuralID != expectedID {
		return fmt.Errorf("signature %s has inconsistent StructuralID: got %s, expected %s",
			s.ID, s.StructuralID, expectedID)
	}

	for i, ex := range s.Examples {
		if !m.Contains(ex) {
			return fmt.Errorf("signature %s: example %d does not contain pattern", s.ID, i)
		}
	}
	for i, ex := range s.NegativeExamples {
		if m.Contains(ex) {
			return fmt.Errorf("signature %s: negative example %d contains pattern", s.ID, i)
		}
	}

	return nil
}

// ValidateAll validates every signature and rejects duplicate IDs.
func ValidateAll(sigs []*types.Signature) error {
	seen := make(map[string]bool, len(sigs))
	for _, s := range sigs {
		if err := Validate(s); err != nil {
			return err
		}
		if seen[s.ID] {
			return fmt.Errorf("duplicate signature ID: %s", s.ID)
		}
		seen[s.ID] = true
	}
	return nil
}
