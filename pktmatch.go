// Package pktmatch locates fixed binary signatures inside payloads and
// byte streams.
//
// Each signature is matched with its own Knuth-Morris-Pratt matcher, so
// scanning is linear in the input length. Streams may be fed in chunks of
// any size; signatures split across chunk boundaries are still found, at
// their offset from the start of the stream.
//
// # Basic Usage
//
// Create a scanner with builtin signatures and scan a payload:
//
//	scanner, err := pktmatch.NewScanner()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	for _, match := range scanner.ScanString("GET / HTTP/1.1\r\n") {
//	    fmt.Printf("Found %s at offset %d\n", match.SignatureName, match.Offset.Start)
//	}
//
// # Streaming
//
// Feed chunks as they arrive, one Stream per logical stream:
//
//	s := scanner.NewStream()
//	for pkt := range packets {
//	    for _, match := range s.Feed(pkt) {
//	        fmt.Printf("%s at %d\n", match.SignatureID, match.Offset.Start)
//	    }
//	}
package pktmatch

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/praetorian-inc/pktmatch/pkg/kmp"
	"github.com/praetorian-inc/pktmatch/pkg/signature"
	"github.com/praetorian-inc/pktmatch/pkg/stream"
	"github.com/praetorian-inc/pktmatch/pkg/types"
)

// Re-export commonly used types for convenience.
// Users can import just "github.com/praetorian-inc/pktmatch" without subpackages.
type (
	// Match is a single signature occurrence.
	Match = types.Match

	// Signature is a named fixed byte pattern.
	Signature = types.Signature

	// OffsetSpan is the byte range covered by a match.
	OffsetSpan = types.OffsetSpan
)

// ErrNoSignatures is returned when a scanner would have nothing to match.
var ErrNoSignatures = errors.New("no signatures selected")

// Scanner matches a fixed set of signatures. It holds no per-scan state and
// is safe for concurrent use; per-stream state lives in Stream.
type Scanner struct {
	entries []entry
	config  *scannerConfig
}

type entry struct {
	sig     *types.Signature
	matcher *kmp.Matcher
}

// scannerConfig holds scanner configuration.
type scannerConfig struct {
	signatures []*types.Signature
	filter     signature.FilterConfig
	chunkSize  int
}

// Option configures a Scanner.
type Option func(*scannerConfig)

// WithSignatures uses custom signatures instead of the builtin catalogue.
func WithSignatures(sigs []*Signature) Option {
	return func(c *scannerConfig) {
		c.signatures = sigs
	}
}

// WithFilter narrows the signature set by ID and category.
func WithFilter(filter signature.FilterConfig) Option {
	return func(c *scannerConfig) {
		c.filter = filter
	}
}

// WithChunkSize sets the read size used by ScanReader and ScanFile.
// Default is stream.DefaultBufSize.
func WithChunkSize(n int) Option {
	return func(c *scannerConfig) {
		c.chunkSize = n
	}
}

// NewScanner creates a new Scanner with the given options.
//
// By default, the scanner uses every builtin signature. Signatures are
// validated (including their examples) before any matcher is built.
func NewScanner(opts ...Option) (*Scanner, error) {
	config := &scannerConfig{
		chunkSize: stream.DefaultBufSize,
	}

	for _, opt := range opts {
		opt(config)
	}
	if config.chunkSize <= 0 {
		config.chunkSize = stream.DefaultBufSize
	}

	// Load signatures if not provided
	if config.signatures == nil {
		sigs, err := signature.NewLoader().LoadBuiltin()
		if err != nil {
			return nil, fmt.Errorf("loading builtin signatures: %w", err)
		}
		config.signatures = sigs
	}

	sigs, err := signature.Filter(config.signatures, config.filter)
	if err != nil {
		return nil, fmt.Errorf("filtering signatures: %w", err)
	}
	if len(sigs) == 0 {
		return nil, ErrNoSignatures
	}
	if err := signature.ValidateAll(sigs); err != nil {
		return nil, fmt.Errorf("validating signatures: %w", err)
	}
	config.signatures = sigs

	entries := make([]entry, len(sigs))
	for i, s := range sigs {
		m, err := kmp.New(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("signature %s: %w", s.ID, err)
		}
		entries[i] = entry{sig: s, matcher: m}
	}

	return &Scanner{
		entries: entries,
		config:  config,
	}, nil
}

// ScanString scans a string and returns all matches.
func (s *Scanner) ScanString(content string) []*Match {
	return s.ScanBytes([]byte(content))
}

// ScanBytes scans a complete payload and returns all matches ordered by
// offset, then signature ID.
func (s *Scanner) ScanBytes(content []byte) []*Match {
	var matches []*Match
	for _, e := range s.entries {
		for _, off := range e.matcher.FindAll(content) {
			matches = append(matches, types.NewMatch(e.sig, int64(off)))
		}
	}
	sortMatches(matches)
	return matches
}

// ScanFile streams a file through the scanner without reading it into
// memory at once.
func (s *Scanner) ScanFile(ctx context.Context, path string) ([]*Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()
	return s.ScanReader(ctx, f)
}

// ScanReader reads r to EOF in chunks and returns all matches. The result
// equals ScanBytes over the full content.
func (s *Scanner) ScanReader(ctx context.Context, r io.Reader) ([]*Match, error) {
	st := s.NewStream()
	var matches []*Match

	err := stream.ReadChunks(ctx, r, s.config.chunkSize, func(chunk []byte) error {
		matches = append(matches, st.Feed(chunk)...)
		return nil
	})
	// A long signature can end in a later chunk than a short one that
	// starts after it.
	sortMatches(matches)
	return matches, err
}

// NewStream returns a fresh per-stream matcher set. Streams share the
// scanner's failure tables but not its progress.
func (s *Scanner) NewStream() *Stream {
	matchers := make([]*stream.Matcher, len(s.entries))
	for i, e := range s.entries {
		matchers[i] = stream.FromMatcher(e.matcher)
	}
	return &Stream{entries: s.entries, matchers: matchers}
}

// SignatureCount returns the number of signatures loaded.
func (s *Scanner) SignatureCount() int {
	return len(s.entries)
}

// Signatures returns a copy of the loaded signatures.
func (s *Scanner) Signatures() []*Signature {
	return slices.Clone(s.config.signatures)
}

// Stream carries match progress for one logical byte stream. It is not safe
// for concurrent use.
type Stream struct {
	entries  []entry
	matchers []*stream.Matcher
}

// Feed consumes the next chunk and returns the matches that end inside it,
// ordered by offset, then signature ID.
func (st *Stream) Feed(chunk []byte) []*Match {
	var matches []*Match
	for i, m := range st.matchers {
		for _, off := range m.Feed(chunk) {
			matches = append(matches, types.NewMatch(st.entries[i].sig, off))
		}
	}
	sortMatches(matches)
	return matches
}

// Reset returns the stream to its initial state.
func (st *Stream) Reset() {
	for _, m := range st.matchers {
		m.Reset()
	}
}

// BytesProcessed returns the number of bytes fed since creation or Reset.
func (st *Stream) BytesProcessed() int64 {
	if len(st.matchers) == 0 {
		return 0
	}
	return st.matchers[0].BytesProcessed()
}

func sortMatches(matches []*Match) {
	slices.SortFunc(matches, func(a, b *Match) int {
		return cmp.Or(
			cmp.Compare(a.Offset.Start, b.Offset.Start),
			cmp.Compare(a.SignatureID, b.SignatureID),
		)
	})
}

// LoadSignaturesFromPath loads signatures from a YAML file or directory.
// Use this with WithSignatures to create a scanner with custom signatures.
func LoadSignaturesFromPath(path string) ([]*Signature, error) {
	return signature.NewLoader().LoadPath(path)
}

// LoadBuiltinSignatures returns all builtin signatures.
func LoadBuiltinSignatures() ([]*Signature, error) {
	return signature.NewLoader().LoadBuiltin()
}
