package signature

import (
	"testing"

	"github.com/praetorian-inc/pktmatch/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePatterns(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string returns empty slice",
			input:    "",
			expected: []string{},
		},
		{
			name:     "single pattern",
			input:    "proto.*",
			expected: []string{"proto.*"},
		},
		{
			name:     "multiple patterns comma-separated",
			input:    "proto.http.*,file.*,tls",
			expected: []string{"proto.http.*", "file.*", "tls"},
		},
		{
			name:     "patterns with spaces are trimmed",
			input:    " proto.* , file.* ,, ",
			expected: []string{"proto.*", "file.*"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParsePatterns(tt.input))
		})
	}
}

func testSignatures() []*types.Signature {
	return []*types.Signature{
		{ID: "proto.http.1", Categories: []string{"protocol", "http"}},
		{ID: "proto.tls.1", Categories: []string{"protocol", "tls"}},
		{ID: "proto.eapol.1", Categories: []string{"protocol", "wifi"}},
		{ID: "file.gzip.1", Categories: []string{"file", "compression"}},
	}
}

func ids(sigs []*types.Signature) []string {
	out := make([]string, 0, len(sigs))
	for _, s := range sigs {
		out = append(out, s.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		config   FilterConfig
		expected []string
	}{
		{
			name:     "no filters returns all",
			config:   FilterConfig{},
			expected: []string{"proto.http.1", "proto.tls.1", "proto.eapol.1", "file.gzip.1"},
		},
		{
			name:     "include by prefix",
			config:   FilterConfig{Include: []string{"^proto\\."}},
			expected: []string{"proto.http.1", "proto.tls.1", "proto.eapol.1"},
		},
		{
			name:     "exclude after include",
			config:   FilterConfig{Include: []string{"^proto\\."}, Exclude: []string{"tls"}},
			expected: []string{"proto.http.1", "proto.eapol.1"},
		},
		{
			name:     "category selection",
			config:   FilterConfig{Categories: []string{"wifi", "compression"}},
			expected: []string{"proto.eapol.1", "file.gzip.1"},
		},
		{
			name:     "include matching nothing",
			config:   FilterConfig{Include: []string{"^nope$"}},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Filter(testSignatures(), tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(got))
		})
	}
}

func TestFilter_InvalidRegex(t *testing.T) {
	_, err := Filter(testSignatures(), FilterConfig{Include: []string{"("}})
	assert.ErrorContains(t, err, "invalid regex pattern")

	_, err = Filter(testSignatures(), FilterConfig{Exclude: []string{"[z-a]"}})
	assert.Error(t, err)
}
