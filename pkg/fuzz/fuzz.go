// Package fuzz generates mutated variants of a seed payload.
//
// Variants are adversarial inputs for byte matchers: truncated or
// duplicated signatures, shifted alignment, near-empty buffers. All
// randomness comes from an explicit *rand.Rand, so a fixed seed reproduces
// the same variants byte for byte.
package fuzz

import (
	"context"
	"errors"
	"math/rand/v2"
	"runtime"
	"slices"

	"golang.org/x/sync/errgroup"
)

// DefaultMutationsPerRound is the number of edits applied to each variant
// unless configured otherwise.
const DefaultMutationsPerRound = 3

var (
	// ErrNoStrategies is reported when a fuzzer is configured with an empty
	// strategy set.
	ErrNoStrategies = errors.New("at least one mutation strategy is required")

	// ErrUnknownStrategy is reported for a strategy value or name that is not
	// defined.
	ErrUnknownStrategy = errors.New("unknown mutation strategy")
)

// Fuzzer holds an immutable mutation configuration. The With* methods
// return modified copies; a Fuzzer is never changed by generating from it
// and may be shared between goroutines.
type Fuzzer struct {
	seed       []byte
	strategies []Strategy
	rounds     int
	err        error
}

// New creates a fuzzer for seed using all strategies and
// DefaultMutationsPerRound edits per variant. The seed is copied.
func New(seed []byte) *Fuzzer {
	return &Fuzzer{
		seed:       append([]byte{}, seed...),
		strategies: AllStrategies(),
		rounds:     DefaultMutationsPerRound,
	}
}

// NewRand returns a deterministic random source for reproducible runs.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// WithStrategies returns a copy restricted to the given strategies.
// An empty or invalid set marks the copy as misconfigured; see Err.
func (f *Fuzzer) WithStrategies(strategies ...Strategy) *Fuzzer {
	c := f.clone()
	c.strategies = slices.Clone(strategies)
	switch {
	case len(strategies) == 0:
		c.err = ErrNoStrategies
	case slices.ContainsFunc(strategies, func(s Strategy) bool { return !s.Valid() }):
		c.err = ErrUnknownStrategy
	default:
		c.err = nil
	}
	return c
}

// WithMutationsPerRound returns a copy applying n edits per variant.
// Values below 1 are raised to 1.
func (f *Fuzzer) WithMutationsPerRound(n int) *Fuzzer {
	c := f.clone()
	c.rounds = max(n, 1)
	return c
}

// Err returns the configuration error, if any.
func (f *Fuzzer) Err() error {
	return f.err
}

// Seed returns a copy of the seed payload.
func (f *Fuzzer) Seed() []byte {
	return append([]byte{}, f.seed...)
}

// Strategies returns the configured strategies.
func (f *Fuzzer) Strategies() []Strategy {
	return slices.Clone(f.strategies)
}

// MutationsPerRound returns the number of edits applied per variant.
func (f *Fuzzer) MutationsPerRound() int {
	return f.rounds
}

// PreservesLength reports whether every variant is guaranteed to have the
// seed's length: the seed is non-empty and no configured strategy inserts
// or deletes.
func (f *Fuzzer) PreservesLength() bool {
	if len(f.seed) == 0 {
		return false
	}
	for _, s := range f.strategies {
		if !s.PreservesLength() {
			return false
		}
	}
	return true
}

// Generate returns count independently mutated variants of the seed.
//
// Each variant draws its own child source from rng, so the result depends
// only on the configuration and the state of rng. A nil rng uses a randomly
// seeded source and the run is not reproducible.
func (f *Fuzzer) Generate(rng *rand.Rand, count int) ([][]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if rng == nil {
		rng = randomRand()
	}

	variants := make([][]byte, max(count, 0))
	for i := range variants {
		variants[i] = f.mutate(childRand(rng))
	}
	return variants, nil
}

// GenerateParallel is Generate spread over workers goroutines. For the same
// rng state it returns exactly what Generate would. workers <= 0 uses
// GOMAXPROCS. A nil rng behaves as in Generate.
func (f *Fuzzer) GenerateParallel(ctx context.Context, rng *rand.Rand, count, workers int) ([][]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	if rng == nil {
		rng = randomRand()
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Child sources are drawn up front so the assignment of variants to
	// goroutines cannot change the output.
	sources := make([]*rand.Rand, max(count, 0))
	for i := range sources {
		sources[i] = childRand(rng)
	}

	variants := make([][]byte, len(sources))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, src := range sources {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			variants[i] = f.mutate(src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return variants, nil
}

// mutate produces a single variant: a fresh copy of the seed with the
// configured number of edits applied in sequence.
func (f *Fuzzer) mutate(rng *rand.Rand) []byte {
	data := append([]byte{}, f.seed...)
	for range f.rounds {
		if len(data) == 0 {
			// Insertion is the only edit defined on an empty buffer.
			data = append(data, randByte(rng))
			continue
		}
		data = apply(f.strategies[rng.IntN(len(f.strategies))], data, rng)
	}
	return data
}

// apply performs one edit on a non-empty buffer.
func apply(s Strategy, data []byte, rng *rand.Rand) []byte {
	switch s {
	case BitFlip:
		data[rng.IntN(len(data))] ^= 1 << rng.IntN(8)
	case ByteReplace:
		data[rng.IntN(len(data))] = randByte(rng)
	case ByteInsert:
		data = slices.Insert(data, rng.IntN(len(data)+1), randByte(rng))
	case ByteDelete:
		i := rng.IntN(len(data))
		data = slices.Delete(data, i, i+1)
	case ChunkShuffle:
		a, b := rng.IntN(len(data)), rng.IntN(len(data))
		data[a], data[b] = data[b], data[a]
	}
	return data
}

func (f *Fuzzer) clone() *Fuzzer {
	return &Fuzzer{
		seed:       f.seed,
		strategies: slices.Clone(f.strategies),
		rounds:     f.rounds,
		err:        f.err,
	}
}

func childRand(rng *rand.Rand) *rand.Rand {
	return rand.New(rand.NewPCG(rng.Uint64(), rng.Uint64()))
}

func randByte(rng *rand.Rand) byte {
	return byte(rng.Uint32())
}

func randomRand() *rand.Rand {
	return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
}
