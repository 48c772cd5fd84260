// Package kmp implements exact byte-pattern matching with the
// Knuth-Morris-Pratt algorithm.
//
// A Matcher precomputes the failure table for its pattern once and then
// scans any number of inputs in time linear in the input length. Matchers
// hold no mutable state and are safe for concurrent use.
package kmp

import "errors"

// ErrEmptyPattern is returned when a matcher is built from a zero-length pattern.
var ErrEmptyPattern = errors.New("pattern must not be empty")

// Matcher finds every occurrence of a fixed byte pattern.
type Matcher struct {
	pattern []byte
	failure []int
}

// New builds a matcher for pattern. The pattern is copied.
func New(pattern []byte) (*Matcher, error) {
	if len(pattern) == 0 {
		return nil, ErrEmptyPattern
	}
	p := append([]byte(nil), pattern...)
	return &Matcher{
		pattern: p,
		failure: BuildFailureTable(p),
	}, nil
}

// MustNew is like New but panics on an empty pattern.
// Intended for package-level signatures known at compile time.
func MustNew(pattern []byte) *Matcher {
	m, err := New(pattern)
	if err != nil {
		panic(err)
	}
	return m
}

// BuildFailureTable computes the KMP prefix function of pattern.
// table[i] is the length of the longest proper prefix of pattern[:i+1]
// that is also a suffix of it.
func BuildFailureTable(pattern []byte) []int {
	table := make([]int, len(pattern))
	n := 0
	for i := 1; i < len(pattern); i++ {
		for n > 0 && pattern[n] != pattern[i] {
			n = table[n-1]
		}
		if pattern[n] == pattern[i] {
			n++
		}
		table[i] = n
	}
	return table
}

// FindAll returns the start offset of every occurrence of the pattern in
// text, in increasing order. Overlapping occurrences are reported.
func (m *Matcher) FindAll(text []byte) []int {
	var matches []int
	j := 0
	for i, b := range text {
		j = m.Step(j, b)
		if j == len(m.pattern) {
			matches = append(matches, i+1-j)
			j = m.failure[j-1]
		}
	}
	return matches
}

// FindFirst returns the offset of the first occurrence of the pattern.
func (m *Matcher) FindFirst(text []byte) (int, bool) {
	j := 0
	for i, b := range text {
		j = m.Step(j, b)
		if j == len(m.pattern) {
			return i + 1 - j, true
		}
	}
	return 0, false
}

// Contains reports whether the pattern occurs anywhere in text.
func (m *Matcher) Contains(text []byte) bool {
	_, ok := m.FindFirst(text)
	return ok
}

// Step advances match progress j (0 <= j < Len()) by one input byte and
// returns the new progress. A return value of Len() means a full match ended
// at b; callers must fall back with Fallback before the next Step.
func (m *Matcher) Step(j int, b byte) int {
	for j > 0 && m.pattern[j] != b {
		j = m.failure[j-1]
	}
	if m.pattern[j] == b {
		j++
	}
	return j
}

// Fallback returns the progress to resume from after a full match.
func (m *Matcher) Fallback() int {
	return m.failure[len(m.pattern)-1]
}

// Len returns the pattern length.
func (m *Matcher) Len() int {
	return len(m.pattern)
}

// Pattern returns a copy of the pattern.
func (m *Matcher) Pattern() []byte {
	return append([]byte(nil), m.pattern...)
}

// FailureTable returns a copy of the precomputed failure table.
func (m *Matcher) FailureTable() []int {
	return append([]int(nil), m.failure...)
}
