package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/praetorian-inc/pktmatch/pkg/types"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetScanFlags() {
	scanPattern = ""
	scanHex = ""
	scanSignaturesPath = ""
	scanInclude = ""
	scanExclude = ""
	scanCategories = ""
	scanChunkSize = 32 * 1024
	scanFormat = "human"
	scanColor = "never"
	scanIncludeHidden = false
	scanMaxFileSize = 0
	scanFollowSymlinks = false
	scanDecompress = false
}

func TestRunScan(t *testing.T) {
	resetScanFlags()
	testFile := filepath.Join(t.TempDir(), "capture.bin")
	require.NoError(t, os.WriteFile(testFile, []byte("GET / HTTP/1.1\r\n\r\n"), 0644))

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	err := runScan(cmd, []string{testFile})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "6-14")
	assert.Contains(t, output, "[proto.http.1]")
	assert.Contains(t, output, "Scan complete: 1 matches")
}

func TestRunScanStdinHexJSON(t *testing.T) {
	resetScanFlags()
	scanHex = "88 8e"
	scanFormat = "json"
	scanChunkSize = 1

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetIn(bytes.NewReader([]byte{0x88, 0x8e, 0x88, 0x8e, 0x00, 0x88, 0x8e}))

	err := runScan(cmd, []string{"-"})
	require.NoError(t, err)

	var matches []*types.Match
	require.NoError(t, json.Unmarshal(buf.Bytes(), &matches))
	require.Len(t, matches, 3)
	assert.Equal(t, "cli.pattern", matches[0].SignatureID)
	assert.Equal(t, int64(0), matches[0].Offset.Start)
	assert.Equal(t, int64(2), matches[1].Offset.Start)
	assert.Equal(t, int64(5), matches[2].Offset.Start)
}

func TestRunScanJSONNoMatches(t *testing.T) {
	resetScanFlags()
	scanPattern = "needle"
	scanFormat = "json"

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetIn(strings.NewReader("haystack"))

	require.NoError(t, runScan(cmd, nil))
	assert.Equal(t, "[]\n", buf.String())
}

func TestRunScanCategories(t *testing.T) {
	resetScanFlags()
	scanCategories = "file"

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetIn(bytes.NewReader([]byte("HTTP/1.1 PK\x03\x04")))

	require.NoError(t, runScan(cmd, nil))
	output := buf.String()
	assert.Contains(t, output, "[file.zip.1]")
	assert.NotContains(t, output, "proto.http.1")
}

func TestRunScanCustomSignatures(t *testing.T) {
	resetScanFlags()
	dir := t.TempDir()
	scanSignaturesPath = filepath.Join(dir, "custom.yml")
	require.NoError(t, os.WriteFile(scanSignaturesPath, []byte(`signatures:
  - id: custom.1
    name: Custom Marker
    pattern: "MARK"
`), 0644))

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetIn(strings.NewReader("xxMARKxxMARK"))

	require.NoError(t, runScan(cmd, nil))
	assert.Contains(t, buf.String(), "Scan complete: 2 matches")
}

func TestRunScanErrors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func()
		args    []string
		wantErr string
	}{
		{
			name:    "missing file",
			args:    []string{"/nonexistent/capture.bin"},
			wantErr: "opening input",
		},
		{
			name:    "unknown format",
			setup:   func() { scanFormat = "xml" },
			wantErr: "unknown output format",
		},
		{
			name:    "pattern and hex",
			setup:   func() { scanPattern = "a"; scanHex = "61" },
			wantErr: "mutually exclusive",
		},
		{
			name:    "filter selects nothing",
			setup:   func() { scanInclude = "^nothing$" },
			wantErr: "no signatures selected",
		},
		{
			name:    "bad signatures path",
			setup:   func() { scanSignaturesPath = "/nonexistent/sigs.yml" },
			wantErr: "loading signatures",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetScanFlags()
			if tt.setup != nil {
				tt.setup()
			}

			cmd := &cobra.Command{}
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetIn(strings.NewReader(""))

			err := runScan(cmd, tt.args)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestRunScanSARIF(t *testing.T) {
	resetScanFlags()
	scanFormat = "sarif"
	scanCategories = "wifi"

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	cmd.SetIn(bytes.NewReader([]byte{0x01, 0xaa, 0xaa, 0x03, 0x00, 0x00, 0x00, 0x88, 0x8e}))

	require.NoError(t, runScan(cmd, nil))

	var log struct {
		Runs []struct {
			Tool struct {
				Driver struct {
					Rules []struct {
						ID string `json:"id"`
					} `json:"rules"`
				} `json:"driver"`
			} `json:"tool"`
			Results []struct {
				RuleID    string `json:"ruleId"`
				Locations []struct {
					PhysicalLocation struct {
						ArtifactLocation struct {
							URI string `json:"uri"`
						} `json:"artifactLocation"`
						Region struct {
							ByteOffset int64 `json:"byteOffset"`
							ByteLength int64 `json:"byteLength"`
						} `json:"region"`
					} `json:"physicalLocation"`
				} `json:"locations"`
			} `json:"results"`
		} `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &log))
	require.Len(t, log.Runs, 1)
	require.Len(t, log.Runs[0].Tool.Driver.Rules, 1)
	require.Len(t, log.Runs[0].Results, 1)

	result := log.Runs[0].Results[0]
	assert.Equal(t, "proto.eapol.1", result.RuleID)
	assert.Equal(t, "stdin", result.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, int64(1), result.Locations[0].PhysicalLocation.Region.ByteOffset)
	assert.Equal(t, int64(8), result.Locations[0].PhysicalLocation.Region.ByteLength)
}

func TestRunScanDirectory(t *testing.T) {
	resetScanFlags()
	scanFormat = "json"

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "day2"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "day1.bin"), []byte("xxSSH-2.0-OpenSSH"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "day2", "b.bin"), []byte{0x1f, 0x8b, 0x08, 0x00}, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.tmp"), []byte("HTTP/1.1"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".pktmatchignore"), []byte("*.tmp\n"), 0644))

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runScan(cmd, []string{dir}))

	var matches []struct {
		Path        string `json:"path"`
		SignatureID string `json:"signature_id"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &matches))
	require.Len(t, matches, 2)
	assert.Equal(t, filepath.Join(dir, "day1.bin"), matches[0].Path)
	assert.Equal(t, "proto.ssh.1", matches[0].SignatureID)
	assert.Equal(t, filepath.Join(dir, "day2", "b.bin"), matches[1].Path)
	assert.Equal(t, "file.gzip.1", matches[1].SignatureID)
}

func TestRunScanDirectoryHuman(t *testing.T) {
	resetScanFlags()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.bin"), []byte("PK\x03\x04"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.bin"), []byte("nothing"), 0644))

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runScan(cmd, []string{dir}))
	output := buf.String()
	assert.Contains(t, output, filepath.Join(dir, "a.bin")+":0-4")
	assert.Contains(t, output, "Scan complete: 1 matches in 2 files")
}

func TestRunScanDecompress(t *testing.T) {
	var gz bytes.Buffer
	w := gzip.NewWriter(&gz)
	_, err := w.Write([]byte("xxxxSSH-2.0-OpenSSH_9.6"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	path := filepath.Join(t.TempDir(), "session.bin.gz")
	require.NoError(t, os.WriteFile(path, gz.Bytes(), 0644))

	// Without --decompress the gzip header itself is what matches. Short
	// inputs may be stored verbatim, so the banner can still appear in the
	// raw file, but never at its decompressed offset.
	resetScanFlags()
	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	require.NoError(t, runScan(cmd, []string{path}))
	assert.Contains(t, buf.String(), path+":0-3 ")
	assert.Contains(t, buf.String(), "[file.gzip.1]")
	assert.NotContains(t, buf.String(), path+":4-12")

	resetScanFlags()
	scanDecompress = true
	buf.Reset()
	require.NoError(t, runScan(cmd, []string{path}))
	assert.Contains(t, buf.String(), path+":4-12")
	assert.Contains(t, buf.String(), "[proto.ssh.1]")
}
