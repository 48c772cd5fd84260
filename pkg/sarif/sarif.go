// Package sarif renders signature matches as a SARIF 2.1.0 log. Matches
// are binary, so every region is expressed as a byte offset and length.
package sarif

import (
	"cmp"
	"encoding/base64"
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/praetorian-inc/pktmatch/pkg/types"
)

// SARIF 2.1.0 constants
const (
	SchemaURI = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"
	Version   = "2.1.0"
	ToolName  = "pktmatch"
)

// Report is the top-level SARIF log.
type Report struct {
	Schema  string `json:"$schema"`
	Version string `json:"version"`
	Runs    []Run  `json:"runs"`

	patterns map[string][]byte // signature ID -> pattern, for snippets
}

// Run represents a single invocation of the tool
type Run struct {
	Tool    Tool     `json:"tool"`
	Results []Result `json:"results"`
}

// Tool describes the analysis tool
type Tool struct {
	Driver Driver `json:"driver"`
}

// Driver contains tool metadata
type Driver struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Rules   []Rule `json:"rules,omitempty"`
}

// Rule is the SARIF reportingDescriptor for one signature.
type Rule struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	ShortDescription Text           `json:"shortDescription"`
	HelpURI          string         `json:"helpUri,omitempty"`
	Properties       RuleProperties `json:"properties"`
}

// RuleProperties carries signature metadata SARIF has no field for.
type RuleProperties struct {
	PatternHex string   `json:"patternHex"`
	Tags       []string `json:"tags,omitempty"`
}

// Text is a SARIF message string.
type Text struct {
	Text string `json:"text"`
}

// Result represents a single match
type Result struct {
	RuleID    string     `json:"ruleId"`
	Level     string     `json:"level"`
	Message   Text       `json:"message"`
	Locations []Location `json:"locations"`
}

// Location describes where a result was found
type Location struct {
	PhysicalLocation PhysicalLocation `json:"physicalLocation"`
}

// PhysicalLocation specifies file location
type PhysicalLocation struct {
	ArtifactLocation ArtifactLocation `json:"artifactLocation"`
	Region           Region           `json:"region"`
}

// ArtifactLocation identifies the scanned input
type ArtifactLocation struct {
	URI string `json:"uri"`
}

// Region is a byte range within the artifact.
type Region struct {
	ByteOffset int64    `json:"byteOffset"`
	ByteLength int64    `json:"byteLength"`
	Snippet    *Snippet `json:"snippet,omitempty"`
}

// Snippet holds the matched bytes, base64 encoded.
type Snippet struct {
	Binary string `json:"binary"`
}

// NewReport creates a new SARIF report with initialized structure
func NewReport(toolVersion string) *Report {
	return &Report{
		Schema:  SchemaURI,
		Version: Version,
		Runs: []Run{
			{
				Tool: Tool{
					Driver: Driver{
						Name:    ToolName,
						Version: toolVersion,
						Rules:   []Rule{},
					},
				},
				Results: []Result{},
			},
		},
		patterns: make(map[string][]byte),
	}
}

// AddSignature registers a signature as a SARIF rule.
func (r *Report) AddSignature(sig *types.Signature) {
	rule := Rule{
		ID:               sig.ID,
		Name:             sig.Name,
		ShortDescription: Text{Text: cmp.Or(sig.Description, sig.Name)},
		Properties: RuleProperties{
			PatternHex: sig.PatternHex(),
			Tags:       sig.Categories,
		},
	}
	if len(sig.References) > 0 {
		rule.HelpURI = sig.References[0]
	}

	r.patterns[sig.ID] = sig.Pattern
	r.Runs[0].Tool.Driver.Rules = append(r.Runs[0].Tool.Driver.Rules, rule)
}

// AddResult adds a match found in the artifact at path. When the match's
// signature was registered, the matched bytes are attached as a snippet.
func (r *Report) AddResult(match *types.Match, path string) {
	region := Region{
		ByteOffset: match.Offset.Start,
		ByteLength: match.Offset.Len(),
	}
	if pattern, ok := r.patterns[match.SignatureID]; ok {
		region.Snippet = &Snippet{Binary: base64.StdEncoding.EncodeToString(pattern)}
	}

	r.Runs[0].Results = append(r.Runs[0].Results, Result{
		RuleID:  match.SignatureID,
		Level:   "note",
		Message: Text{Text: match.SignatureName},
		Locations: []Location{
			{
				PhysicalLocation: PhysicalLocation{
					ArtifactLocation: ArtifactLocation{URI: formatFileURI(path)},
					Region:           region,
				},
			},
		},
	})
}

// ToJSON serializes the report to JSON bytes
func (r *Report) ToJSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}

// formatFileURI converts a file path to SARIF URI format
// Absolute paths get file:// prefix, relative paths stay as-is
func formatFileURI(path string) string {
	if filepath.IsAbs(path) {
		path = filepath.ToSlash(path)
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		return "file://" + path
	}
	return filepath.ToSlash(path)
}
