// Package signature loads, validates and filters byte signatures.
package signature

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/praetorian-inc/pktmatch/pkg/types"
	"gopkg.in/yaml.v3"
)

// ErrPatternSource is returned when a signature sets both or neither of
// pattern and hex.
var ErrPatternSource = errors.New("exactly one of pattern or hex is required")

// Loader handles loading signatures from YAML files.
type Loader struct {
	fs fs.FS // embedded filesystem for built-in signatures
}

// NewLoader creates a loader with built-in signatures from the embedded
// filesystem.
func NewLoader() *Loader {
	return &Loader{
		fs: builtinSignaturesFS,
	}
}

// NewLoaderWithFS creates a loader with a custom filesystem. The filesystem
// must hold its YAML files under a "signatures" directory.
func NewLoaderWithFS(fsys fs.FS) *Loader {
	return &Loader{
		fs: fsys,
	}
}

// Load parses every signature in a YAML document.
func (l *Loader) Load(data []byte) ([]*types.Signature, error) {
	var yamlFile yamlSignaturesFile
	if err := yaml.Unmarshal(data, &yamlFile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(yamlFile.Signatures) == 0 {
		return nil, fmt.Errorf("no signatures found in YAML")
	}

	sigs := make([]*types.Signature, 0, len(yamlFile.Signatures))
	for _, ys := range yamlFile.Signatures {
		sig, err := convertYAMLSignature(ys)
		if err != nil {
			return nil, err
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// LoadFile loads signatures from a YAML file path.
func (l *Loader) LoadFile(path string) ([]*types.Signature, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	sigs, err := l.Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sigs, nil
}

// LoadPath loads signatures from a YAML file, or from every .yml and .yaml
// file below a directory.
func (l *Loader) LoadPath(path string) ([]*types.Signature, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return l.LoadFile(path)
	}
	return loadFS(os.DirFS(path), ".")
}

// LoadBuiltin loads all built-in signatures.
func (l *Loader) LoadBuiltin() ([]*types.Signature, error) {
	return loadFS(l.fs, "signatures")
}

func loadFS(fsys fs.FS, root string) ([]*types.Signature, error) {
	var sigs []*types.Signature

	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		var yamlFile yamlSignaturesFile
		if err := yaml.Unmarshal(data, &yamlFile); err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}

		for _, ys := range yamlFile.Signatures {
			sig, err := convertYAMLSignature(ys)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			sigs = append(sigs, sig)
		}

		return nil
	})

	if err != nil {
		return nil, err
	}

	return sigs, nil
}

func isYAML(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yml" || ext == ".yaml"
}

// convertYAMLSignature converts yamlSignature to types.Signature and
// computes StructuralID.
func convertYAMLSignature(ys yamlSignature) (*types.Signature, error) {
	if (ys.Pattern == "") == (ys.Hex == "") {
		return nil, fmt.Errorf("signature %q: %w", ys.ID, ErrPatternSource)
	}

	pattern := []byte(ys.Pattern)
	if ys.Hex != "" {
		var err error
		if pattern, err = DecodeHex(ys.Hex); err != nil {
			return nil, fmt.Errorf("signature %q: invalid hex pattern: %w", ys.ID, err)
		}
	}

	examples, err := collectExamples(ys.Examples, ys.HexExamples)
	if err != nil {
		return nil, fmt.Errorf("signature %q: invalid hex example: %w", ys.ID, err)
	}
	negatives, err := collectExamples(ys.NegativeExamples, ys.HexNegativeExamples)
	if err != nil {
		return nil, fmt.Errorf("signature %q: invalid hex negative example: %w", ys.ID, err)
	}

	s := &types.Signature{
		ID:               ys.ID,
		Name:             ys.Name,
		Pattern:          pattern,
		Description:      strings.TrimSpace(ys.Description),
		Examples:         examples,
		NegativeExamples: negatives,
		References:       ys.References,
		Categories:       ys.Categories,
	}
	s.StructuralID = s.ComputeStructuralID()
	return s, nil
}

func collectExamples(text, hexed []string) ([][]byte, error) {
	var out [][]byte
	for _, e := range text {
		out = append(out, []byte(e))
	}
	for _, h := range hexed {
		b, err := DecodeHex(h)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// DecodeHex decodes a hex string, ignoring whitespace and ':' separators
// so that "aa aa 03" and "aa:aa:03" are accepted.
func DecodeHex(s string) ([]byte, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', ':':
			return -1
		}
		return r
	}, s)
	return hex.DecodeString(cleaned)
}
