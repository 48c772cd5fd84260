// Package stress drives mutated payloads through the exact and streaming
// matchers and checks that both agree.
package stress

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/praetorian-inc/pktmatch/pkg/fuzz"
	"github.com/praetorian-inc/pktmatch/pkg/kmp"
	"github.com/praetorian-inc/pktmatch/pkg/stream"
)

var (
	// ErrMismatch is returned when streamed offsets differ from a whole-buffer scan.
	ErrMismatch = errors.New("stream matcher disagrees with exact matcher")

	// ErrLengthChanged is returned when a fuzzer configured with only
	// length-preserving strategies produced a variant of a different length.
	ErrLengthChanged = errors.New("variant length differs from seed")
)

// Config controls a stress run.
type Config struct {
	Pattern   []byte
	Fuzzer    *fuzz.Fuzzer
	Variants  int    // number of payload variants to generate
	Splits    int    // chunk boundaries per variant (random positions)
	ChunkSize int    // if > 0, also feed each variant in fixed-size chunks
	Workers   int    // generation workers (0 = GOMAXPROCS)
	Seed      uint64 // rng seed; equal seeds reproduce a run
}

// Failure describes one variant on which the matchers disagreed.
type Failure struct {
	Index   int     // variant index within the run
	Payload []byte  // the mutated payload
	Cuts    []int   // chunk boundaries used
	Want    []int   // offsets from the exact matcher
	Got     []int64 // offsets from the stream matcher
}

// Report summarizes a stress run.
type Report struct {
	Variants      int       // variants checked
	Bytes         int64     // total payload bytes checked
	Matches       int       // total exact matches across variants
	WithMatch     int       // variants containing at least one match
	DiffersSeed   int       // variants that differ from the seed
	LengthChanged int       // variants whose length differs from the seed
	Failures      []Failure // variants where the matchers disagreed
}

// Run generates variants and checks each one with CheckStreamEquivalence.
// Mismatches are collected in the report rather than returned as errors;
// the error result is reserved for configuration problems and cancellation.
func Run(ctx context.Context, cfg Config) (*Report, error) {
	m, err := kmp.New(cfg.Pattern)
	if err != nil {
		return nil, fmt.Errorf("building matcher: %w", err)
	}
	if cfg.Fuzzer == nil {
		return nil, errors.New("fuzzer is required")
	}

	rng := fuzz.NewRand(cfg.Seed)
	variants, err := cfg.Fuzzer.GenerateParallel(ctx, rng, cfg.Variants, cfg.Workers)
	if err != nil {
		return nil, fmt.Errorf("generating variants: %w", err)
	}

	seed := cfg.Fuzzer.Seed()
	fixedLength := cfg.Fuzzer.PreservesLength()
	report := &Report{}
	for i, v := range variants {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		cuts := RandomCuts(rng, len(v), cfg.Splits)
		want := m.FindAll(v)
		got := feed(stream.FromMatcher(m), stream.SplitAt(v, cuts))

		report.Variants++
		report.Bytes += int64(len(v))
		report.Matches += len(want)
		if len(want) > 0 {
			report.WithMatch++
		}
		if !slices.Equal(v, seed) {
			report.DiffersSeed++
		}
		if len(v) != len(seed) {
			if fixedLength {
				return report, fmt.Errorf("%w: variant %d has %d bytes, seed has %d",
					ErrLengthChanged, i, len(v), len(seed))
			}
			report.LengthChanged++
		}

		if !sameOffsets(want, got) {
			report.Failures = append(report.Failures, Failure{
				Index:   i,
				Payload: v,
				Cuts:    cuts,
				Want:    want,
				Got:     got,
			})
			continue
		}
		if cfg.ChunkSize > 0 {
			chunks := stream.SplitChunks(v, cfg.ChunkSize)
			if got := feed(stream.FromMatcher(m), chunks); !sameOffsets(want, got) {
				report.Failures = append(report.Failures, Failure{
					Index:   i,
					Payload: v,
					Cuts:    chunkCuts(chunks),
					Want:    want,
					Got:     got,
				})
			}
		}
	}
	return report, nil
}

// CheckStreamEquivalence feeds payload to a fresh stream matcher in chunks
// split at cuts and compares the offsets with m.FindAll(payload).
func CheckStreamEquivalence(m *kmp.Matcher, payload []byte, cuts []int) error {
	want := m.FindAll(payload)
	got := feed(stream.FromMatcher(m), stream.SplitAt(payload, cuts))
	if !sameOffsets(want, got) {
		return fmt.Errorf("%w: cuts=%v exact=%v stream=%v", ErrMismatch, cuts, want, got)
	}
	return nil
}

// RandomCuts returns n sorted chunk boundaries in [0, length].
func RandomCuts(rng *rand.Rand, length, n int) []int {
	cuts := make([]int, max(n, 0))
	for i := range cuts {
		cuts[i] = rng.IntN(length + 1)
	}
	slices.Sort(cuts)
	return cuts
}

func feed(s *stream.Matcher, chunks [][]byte) []int64 {
	var out []int64
	for _, chunk := range chunks {
		out = append(out, s.Feed(chunk)...)
	}
	return out
}

// chunkCuts returns the boundaries between consecutive chunks.
func chunkCuts(chunks [][]byte) []int {
	var cuts []int
	end := 0
	for _, c := range chunks[:max(len(chunks)-1, 0)] {
		end += len(c)
		cuts = append(cuts, end)
	}
	return cuts
}

func sameOffsets(want []int, got []int64) bool {
	if len(want) != len(got) {
		return false
	}
	for i := range want {
		if int64(want[i]) != got[i] {
			return false
		}
	}
	return true
}
