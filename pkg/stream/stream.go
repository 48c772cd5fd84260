// Package stream matches a fixed byte pattern over data that arrives in
// independent chunks.
//
// A Matcher carries partial-match progress and a running byte count across
// Feed calls, so an occurrence split between two chunks is still reported,
// at its offset from the start of the logical stream. A Matcher belongs to a
// single stream; build one per stream with FromMatcher to share the
// precomputed failure table.
package stream

import (
	"github.com/praetorian-inc/pktmatch/pkg/kmp"
)

// Matcher is a stateful KMP matcher for one logical byte stream.
type Matcher struct {
	inner *kmp.Matcher

	// progress is the number of pattern bytes matched against the tail of
	// everything fed so far.
	progress int

	// offset is the total number of bytes fed since construction or Reset.
	offset int64
}

// New creates a stream matcher for pattern.
func New(pattern []byte) (*Matcher, error) {
	inner, err := kmp.New(pattern)
	if err != nil {
		return nil, err
	}
	return FromMatcher(inner), nil
}

// FromMatcher creates a stream matcher sharing m's pattern and failure table.
func FromMatcher(m *kmp.Matcher) *Matcher {
	return &Matcher{inner: m}
}

// Feed consumes the next chunk of the stream and returns the global start
// offset of every match that ends inside it, including matches that began
// in earlier chunks. An empty chunk returns no matches.
func (s *Matcher) Feed(chunk []byte) []int64 {
	var matches []int64
	n := s.inner.Len()
	j := s.progress

	for i, b := range chunk {
		j = s.inner.Step(j, b)
		if j == n {
			matches = append(matches, s.offset+int64(i+1-n))
			j = s.inner.Fallback()
		}
	}

	s.progress = j
	s.offset += int64(len(chunk))
	return matches
}

// Reset forgets any partial match and zeroes the byte count.
func (s *Matcher) Reset() {
	s.progress = 0
	s.offset = 0
}

// BytesProcessed returns the number of bytes fed since construction or the
// last Reset.
func (s *Matcher) BytesProcessed() int64 {
	return s.offset
}

// Progress returns how many leading pattern bytes are currently matched.
// Zero means no partial match is pending.
func (s *Matcher) Progress() int {
	return s.progress
}

// Pattern returns a copy of the pattern.
func (s *Matcher) Pattern() []byte {
	return s.inner.Pattern()
}

// Exact returns the underlying stateless matcher.
func (s *Matcher) Exact() *kmp.Matcher {
	return s.inner
}
