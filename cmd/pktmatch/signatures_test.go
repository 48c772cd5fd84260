package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetSignaturesFlags() {
	signaturesPath = ""
	signaturesCategories = ""
	outputFormat = "table"
}

func TestRunSignaturesList(t *testing.T) {
	resetSignaturesFlags()

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	err := runSignaturesList(cmd, []string{})
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "Pattern")
	assert.Contains(t, output, "proto.eapol.1")
	assert.Contains(t, output, "aaaa03000000888e")
}

func TestRunSignaturesListJSON(t *testing.T) {
	resetSignaturesFlags()
	outputFormat = "json"
	signaturesCategories = "wifi"

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runSignaturesList(cmd, []string{}))

	var views []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "proto.eapol.1", views[0]["id"])
	assert.Equal(t, "aaaa03000000888e", views[0]["pattern_hex"])
	assert.EqualValues(t, 8, views[0]["length"])
}

func TestRunSignaturesListCustom(t *testing.T) {
	resetSignaturesFlags()
	signaturesPath = filepath.Join(t.TempDir(), "custom.yml")
	require.NoError(t, os.WriteFile(signaturesPath, []byte("signatures:\n  - id: custom.1\n    name: Custom\n    hex: \"cafe\"\n"), 0644))

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	require.NoError(t, runSignaturesList(cmd, []string{}))
	assert.Contains(t, buf.String(), "custom.1")
	assert.Contains(t, buf.String(), "cafe")
	assert.NotContains(t, buf.String(), "proto.http.1")
}

func TestRunSignaturesListErrors(t *testing.T) {
	resetSignaturesFlags()
	outputFormat = "xml"
	cmd := &cobra.Command{}
	cmd.SetOut(&bytes.Buffer{})
	assert.ErrorContains(t, runSignaturesList(cmd, nil), "unknown output format")

	resetSignaturesFlags()
	signaturesPath = "/nonexistent/sigs"
	assert.ErrorContains(t, runSignaturesList(cmd, nil), "loading signatures")
}
