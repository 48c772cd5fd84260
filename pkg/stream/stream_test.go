package stream

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/praetorian-inc/pktmatch/pkg/kmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feedAll(s *Matcher, chunks [][]byte) []int64 {
	var out []int64
	for _, c := range chunks {
		out = append(out, s.Feed(c)...)
	}
	return out
}

func toInt64(offsets []int) []int64 {
	if offsets == nil {
		return nil
	}
	out := make([]int64, len(offsets))
	for i, o := range offsets {
		out[i] = int64(o)
	}
	return out
}

func TestNew_EmptyPattern(t *testing.T) {
	_, err := New(nil)
	assert.ErrorIs(t, err, kmp.ErrEmptyPattern)
}

func TestFeed_SingleChunk(t *testing.T) {
	s, err := New([]byte("AB"))
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, s.Feed([]byte("xxAByy")))
}

func TestFeed_PatternSpansChunks(t *testing.T) {
	s, err := New([]byte("ABCD"))
	require.NoError(t, err)

	assert.Empty(t, s.Feed([]byte("xxAB")))
	assert.Equal(t, 2, s.Progress())
	assert.Equal(t, []int64{2}, s.Feed([]byte("CDyy")))
}

func TestFeed_MultipleMatchesAcrossChunks(t *testing.T) {
	s, err := New([]byte("XX"))
	require.NoError(t, err)

	assert.Equal(t, []int64{1}, s.Feed([]byte("aXX")))
	assert.Equal(t, []int64{4}, s.Feed([]byte("bXXc")))
	assert.Equal(t, int64(7), s.BytesProcessed())
}

func TestFeed_OneByteChunks(t *testing.T) {
	s, err := New([]byte("AA"))
	require.NoError(t, err)

	var got []int64
	for _, b := range []byte("AAAA") {
		got = append(got, s.Feed([]byte{b})...)
	}
	assert.Equal(t, []int64{0, 1, 2}, got)
}

func TestFeed_EmptyChunk(t *testing.T) {
	s, err := New([]byte("AB"))
	require.NoError(t, err)

	s.Feed([]byte("xA"))
	assert.Empty(t, s.Feed(nil))
	assert.Empty(t, s.Feed([]byte{}))
	assert.Equal(t, int64(2), s.BytesProcessed())
	assert.Equal(t, 1, s.Progress())
	assert.Equal(t, []int64{1}, s.Feed([]byte("B")))
}

func TestReset_ClearsState(t *testing.T) {
	s, err := New([]byte("AB"))
	require.NoError(t, err)

	s.Feed([]byte("A"))
	s.Reset()

	// The trailing 'A' is forgotten.
	assert.Empty(t, s.Feed([]byte("Bxx")))
	assert.Equal(t, int64(3), s.BytesProcessed())
}

func TestReset_BehavesLikeFresh(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	pattern := []byte("ABAB")

	for n := 0; n < 200; n++ {
		used, err := New(pattern)
		require.NoError(t, err)
		for k := rng.IntN(5); k > 0; k-- {
			used.Feed(randomText(rng, rng.IntN(10), 2))
		}
		used.Reset()

		fresh, err := New(pattern)
		require.NoError(t, err)

		chunk := randomText(rng, rng.IntN(20), 2)
		assert.Equal(t, fresh.Feed(chunk), used.Feed(chunk))
		assert.Equal(t, fresh.BytesProcessed(), used.BytesProcessed())
	}
}

func TestBytesProcessed_SumsChunkLengths(t *testing.T) {
	s, err := New([]byte("Z"))
	require.NoError(t, err)

	total := int64(0)
	for _, n := range []int{0, 5, 1, 0, 17} {
		s.Feed(make([]byte, n))
		total += int64(n)
		assert.Equal(t, total, s.BytesProcessed())
	}
}

func TestFeed_EquivalentToFindAll_EveryTwoWaySplit(t *testing.T) {
	patterns := []string{"A", "AA", "ABCD", "ABAB", "AABAAA"}
	text := []byte("AABAAAABABCDABABAAAAABCDAABAAABA")

	for _, p := range patterns {
		m := kmp.MustNew([]byte(p))
		want := toInt64(m.FindAll(text))

		for cut := 0; cut <= len(text); cut++ {
			s := FromMatcher(m)
			got := feedAll(s, SplitAt(text, []int{cut}))
			assert.Equal(t, want, got, "pattern=%q cut=%d", p, cut)
		}
	}
}

func TestFeed_EquivalentToFindAll_RandomPartitions(t *testing.T) {
	rng := rand.New(rand.NewPCG(42, 99))

	for n := 0; n < 1000; n++ {
		alphabet := 2 + rng.IntN(2)
		pattern := randomText(rng, 1+rng.IntN(5), alphabet)
		text := randomText(rng, rng.IntN(80), alphabet)

		cuts := make([]int, rng.IntN(8))
		for i := range cuts {
			cuts[i] = rng.IntN(len(text) + 1)
		}
		slices.Sort(cuts)

		m := kmp.MustNew(pattern)
		s := FromMatcher(m)
		got := feedAll(s, SplitAt(text, cuts))

		assert.Equal(t, toInt64(m.FindAll(text)), got, "pattern=%q text=%q cuts=%v", pattern, text, cuts)
		assert.Equal(t, int64(len(text)), s.BytesProcessed())
	}
}

func TestFromMatcher_IndependentState(t *testing.T) {
	m := kmp.MustNew([]byte("AB"))
	a := FromMatcher(m)
	b := FromMatcher(m)

	a.Feed([]byte("A"))
	assert.Empty(t, b.Feed([]byte("B")))
	assert.Equal(t, []int64{0}, a.Feed([]byte("B")))
	assert.Same(t, m, a.Exact())
}

func randomText(rng *rand.Rand, n, alphabet int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'A' + byte(rng.IntN(alphabet))
	}
	return b
}
