package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/praetorian-inc/pktmatch"
	"github.com/praetorian-inc/pktmatch/pkg/enum"
	"github.com/praetorian-inc/pktmatch/pkg/sarif"
	"github.com/praetorian-inc/pktmatch/pkg/signature"
	"github.com/praetorian-inc/pktmatch/pkg/types"
	"github.com/praetorian-inc/pktmatch/pkg/unpack"
	"github.com/spf13/cobra"
)

var (
	scanPattern        string
	scanHex            string
	scanSignaturesPath string
	scanInclude        string
	scanExclude        string
	scanCategories     string
	scanChunkSize      int
	scanFormat         string
	scanColor          string
	scanIncludeHidden  bool
	scanMaxFileSize    int64
	scanFollowSymlinks bool
	scanDecompress     bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [path|-]",
	Short: "Scan files, directories, or stdin for signatures",
	Long: `Stream a file, every file below a directory, or stdin (when the argument is
"-" or omitted) through the signature matchers and report every occurrence
with its byte offset.

Directory scans honour .gitignore and .pktmatchignore files at the root.
With --decompress, gzip, zstd, and lz4 inputs are matched after
decompression and offsets refer to the decompressed bytes.

Use --pattern or --hex to search for a single ad-hoc byte sequence instead of
the signature catalogue.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanPattern, "pattern", "", "Search for a literal text pattern")
	scanCmd.Flags().StringVar(&scanHex, "hex", "", "Search for a hex byte pattern (e.g. \"aa aa 03\")")
	scanCmd.Flags().StringVar(&scanSignaturesPath, "signatures", "", "Path to custom signatures file or directory")
	scanCmd.Flags().StringVar(&scanInclude, "include", "", "Comma-separated regex patterns of signature IDs to include")
	scanCmd.Flags().StringVar(&scanExclude, "exclude", "", "Comma-separated regex patterns of signature IDs to exclude")
	scanCmd.Flags().StringVar(&scanCategories, "categories", "", "Comma-separated signature categories to include")
	scanCmd.Flags().IntVar(&scanChunkSize, "chunk-size", 32*1024, "Read size in bytes")
	scanCmd.Flags().StringVar(&scanFormat, "format", "human", "Output format: human, json, sarif")
	scanCmd.Flags().StringVar(&scanColor, "color", "auto", "Color output: auto, always, never")
	scanCmd.Flags().BoolVar(&scanIncludeHidden, "include-hidden", false, "Include hidden files and directories")
	scanCmd.Flags().Int64Var(&scanMaxFileSize, "max-file-size", 0, "Skip files larger than this many bytes (0 = no limit)")
	scanCmd.Flags().BoolVar(&scanFollowSymlinks, "follow-symlinks", false, "Follow symbolic links to files")
	scanCmd.Flags().BoolVar(&scanDecompress, "decompress", false, "Scan the contents of gzip, zstd, and lz4 inputs")
}

func runScan(cmd *cobra.Command, args []string) error {
	switch scanFormat {
	case "human", "json", "sarif":
	default:
		return fmt.Errorf("unknown output format: %s", scanFormat)
	}

	scanner, err := buildScanner()
	if err != nil {
		return err
	}
	slog.Debug("scanner ready", "signatures", scanner.SignatureCount(), "chunk_size", scanChunkSize)

	input := "-"
	if len(args) > 0 {
		input = args[0]
	}

	results, err := scanTarget(commandContext(cmd), scanner, input, cmd.InOrStdin())
	if err != nil {
		return err
	}
	slog.Info("scan complete", "input", input, "files", len(results), "matches", countMatches(results))

	switch scanFormat {
	case "json":
		return outputMatchesJSON(cmd, results)
	case "sarif":
		return outputMatchesSARIF(cmd, scanner.Signatures(), results)
	default:
		return outputMatchesHuman(cmd, results)
	}
}

// fileMatches holds the matches found in one input.
type fileMatches struct {
	path    string
	matches []*types.Match
}

// scanTarget scans stdin ("-"), a single file, or every file below a
// directory. Directory results are ordered by path.
func scanTarget(ctx context.Context, scanner *pktmatch.Scanner, input string, stdin io.Reader) ([]fileMatches, error) {
	if input == "-" {
		matches, err := scanStream(ctx, scanner, stdin)
		if err != nil {
			return nil, fmt.Errorf("scanning stdin: %w", err)
		}
		return []fileMatches{{path: "stdin", matches: matches}}, nil
	}

	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("opening input: %w", err)
	}
	if !info.IsDir() {
		f, err := os.Open(input)
		if err != nil {
			return nil, fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()

		matches, err := scanStream(ctx, scanner, f)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", input, err)
		}
		return []fileMatches{{path: input, matches: matches}}, nil
	}

	var (
		mu      sync.Mutex
		results []fileMatches
	)
	enumerator := enum.NewFilesystemEnumerator(enum.Config{
		Root:           input,
		IncludeHidden:  scanIncludeHidden,
		MaxFileSize:    scanMaxFileSize,
		FollowSymlinks: scanFollowSymlinks,
	})
	err = enumerator.Enumerate(ctx, func(ctx context.Context, path string, r io.Reader) error {
		matches, err := scanStream(ctx, scanner, r)
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		slog.Debug("scanned file", "path", path, "matches", len(matches))

		mu.Lock()
		defer mu.Unlock()
		results = append(results, fileMatches{path: path, matches: matches})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b fileMatches) int {
		return strings.Compare(a.path, b.path)
	})
	return results, nil
}

// scanStream scans r, first unwrapping gzip/zstd/lz4 when --decompress is
// set.
func scanStream(ctx context.Context, scanner *pktmatch.Scanner, r io.Reader) ([]*types.Match, error) {
	if !scanDecompress {
		return scanner.ScanReader(ctx, r)
	}

	rc, format, err := unpack.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	if format != unpack.None {
		slog.Debug("decompressing input", "format", format.String())
	}
	return scanner.ScanReader(ctx, rc)
}

func countMatches(results []fileMatches) int {
	n := 0
	for _, r := range results {
		n += len(r.matches)
	}
	return n
}

// buildScanner selects the signatures for a scan: the ad-hoc pattern when
// one was given, otherwise the catalogue narrowed by the filter flags.
func buildScanner() (*pktmatch.Scanner, error) {
	pattern, err := resolveBytes(scanPattern, scanHex, "pattern", "hex")
	if err != nil {
		return nil, err
	}

	opts := []pktmatch.Option{pktmatch.WithChunkSize(scanChunkSize)}

	switch {
	case pattern != nil:
		sig := &types.Signature{
			ID:      "cli.pattern",
			Name:    "Command-line pattern",
			Pattern: pattern,
		}
		sig.StructuralID = sig.ComputeStructuralID()
		opts = append(opts, pktmatch.WithSignatures([]*types.Signature{sig}))
	default:
		if scanSignaturesPath != "" {
			sigs, err := pktmatch.LoadSignaturesFromPath(scanSignaturesPath)
			if err != nil {
				return nil, fmt.Errorf("loading signatures from %s: %w", scanSignaturesPath, err)
			}
			opts = append(opts, pktmatch.WithSignatures(sigs))
		}
		opts = append(opts, pktmatch.WithFilter(signature.FilterConfig{
			Include:    signature.ParsePatterns(scanInclude),
			Exclude:    signature.ParsePatterns(scanExclude),
			Categories: signature.ParsePatterns(scanCategories),
		}))
	}

	scanner, err := pktmatch.NewScanner(opts...)
	if err != nil {
		return nil, fmt.Errorf("creating scanner: %w", err)
	}
	return scanner, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// pathMatch is the JSON form of a match: the match fields plus its input.
type pathMatch struct {
	Path string `json:"path"`
	*types.Match
}

func outputMatchesJSON(cmd *cobra.Command, results []fileMatches) error {
	out := make([]pathMatch, 0, countMatches(results))
	for _, r := range results {
		for _, m := range r.matches {
			out = append(out, pathMatch{Path: r.path, Match: m})
		}
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

func outputMatchesSARIF(cmd *cobra.Command, sigs []*types.Signature, results []fileMatches) error {
	report := sarif.NewReport(version)
	for _, sig := range sigs {
		report.AddSignature(sig)
	}
	for _, r := range results {
		for _, m := range r.matches {
			report.AddResult(m, r.path)
		}
	}

	data, err := report.ToJSON()
	if err != nil {
		return fmt.Errorf("encoding SARIF: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func outputMatchesHuman(cmd *cobra.Command, results []fileMatches) error {
	out := cmd.OutOrStdout()

	enabled, err := colorEnabled(scanColor, out)
	if err != nil {
		return err
	}
	s := newStyles(enabled)

	for _, r := range results {
		for _, m := range r.matches {
			fmt.Fprintf(out, "%s:%s %s %s\n",
				r.path,
				s.offset.Sprintf("%d-%d", m.Offset.Start, m.Offset.End),
				s.name.Sprint(m.SignatureName),
				s.id.Sprintf("[%s]", m.SignatureID),
			)
		}
	}

	fmt.Fprintf(out, "%s %d matches in %d files\n", s.heading.Sprint("Scan complete:"), countMatches(results), len(results))
	return nil
}
