package fuzz

import (
	"fmt"
	"strings"
)

// Strategy is one kind of single-byte-level edit applied to a payload.
type Strategy int

const (
	// BitFlip XORs one random bit of one random byte.
	BitFlip Strategy = iota
	// ByteReplace overwrites a random byte with a random value.
	ByteReplace
	// ByteInsert inserts a random byte at a random position.
	ByteInsert
	// ByteDelete removes a random byte.
	ByteDelete
	// ChunkShuffle swaps the bytes at two random positions.
	ChunkShuffle
)

var strategyNames = [...]string{
	BitFlip:      "bit-flip",
	ByteReplace:  "byte-replace",
	ByteInsert:   "byte-insert",
	ByteDelete:   "byte-delete",
	ChunkShuffle: "chunk-shuffle",
}

// AllStrategies returns every defined strategy.
func AllStrategies() []Strategy {
	return []Strategy{BitFlip, ByteReplace, ByteInsert, ByteDelete, ChunkShuffle}
}

// String returns the strategy name used on the command line.
func (s Strategy) String() string {
	if !s.Valid() {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return strategyNames[s]
}

// Valid reports whether s is one of the defined strategies.
func (s Strategy) Valid() bool {
	return s >= BitFlip && s <= ChunkShuffle
}

// PreservesLength reports whether applying s never changes payload length.
func (s Strategy) PreservesLength() bool {
	switch s {
	case ByteInsert, ByteDelete:
		return false
	default:
		return true
	}
}

// ParseStrategy maps a name such as "bit-flip" to its Strategy.
func ParseStrategy(name string) (Strategy, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for s, n := range strategyNames {
		if n == name {
			return Strategy(s), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStrategy, name)
}

// ParseStrategies parses a comma-separated strategy list.
// An empty string selects all strategies.
func ParseStrategies(list string) ([]Strategy, error) {
	if strings.TrimSpace(list) == "" {
		return AllStrategies(), nil
	}

	var out []Strategy
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		s, err := ParseStrategy(part)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil, ErrNoStrategies
	}
	return out, nil
}
