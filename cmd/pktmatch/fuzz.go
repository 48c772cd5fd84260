package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/praetorian-inc/pktmatch/pkg/fuzz"
	"github.com/praetorian-inc/pktmatch/pkg/stress"
	"github.com/spf13/cobra"
)

var (
	fuzzSeed       string
	fuzzSeedHex    string
	fuzzPattern    string
	fuzzHex        string
	fuzzCount      int
	fuzzRounds     int
	fuzzStrategies string
	fuzzRNGSeed    uint64
	fuzzSplits     int
	fuzzChunkSize  int
	fuzzWorkers    int
	fuzzFormat     string
	fuzzOutput     string
)

var fuzzCmd = &cobra.Command{
	Use:   "fuzz",
	Short: "Stress the streaming matcher with mutated payloads",
	Long: `Generate mutated variants of a seed payload, split each variant at random
chunk boundaries, and check that streaming matches equal whole-buffer matches.

The pattern defaults to the seed itself. Runs are reproducible: the same
--rng-seed and flags always produce the same variants and cuts.`,
	Args: cobra.NoArgs,
	RunE: runFuzz,
}

func init() {
	fuzzCmd.Flags().StringVar(&fuzzSeed, "seed", "", "Seed payload as text")
	fuzzCmd.Flags().StringVar(&fuzzSeedHex, "seed-hex", "", "Seed payload as hex bytes")
	fuzzCmd.Flags().StringVar(&fuzzPattern, "pattern", "", "Pattern as text (default: the seed)")
	fuzzCmd.Flags().StringVar(&fuzzHex, "hex", "", "Pattern as hex bytes (default: the seed)")
	fuzzCmd.Flags().IntVar(&fuzzCount, "count", 1000, "Number of variants to generate")
	fuzzCmd.Flags().IntVar(&fuzzRounds, "rounds", fuzz.DefaultMutationsPerRound, "Mutations applied to each variant")
	fuzzCmd.Flags().StringVar(&fuzzStrategies, "strategies", "", "Comma-separated strategies (default: all)")
	fuzzCmd.Flags().Uint64Var(&fuzzRNGSeed, "rng-seed", 1, "Random number generator seed")
	fuzzCmd.Flags().IntVar(&fuzzSplits, "splits", 4, "Chunk boundaries per variant")
	fuzzCmd.Flags().IntVar(&fuzzChunkSize, "chunk-size", 0, "Also feed each variant in chunks of this size (0 = off)")
	fuzzCmd.Flags().IntVar(&fuzzWorkers, "workers", 0, "Generation workers (0 = GOMAXPROCS)")
	fuzzCmd.Flags().StringVar(&fuzzFormat, "format", "human", "Output format: human, json")
	fuzzCmd.Flags().StringVar(&fuzzOutput, "output", "", "Directory to write failing payloads to")
}

func runFuzz(cmd *cobra.Command, args []string) error {
	if fuzzFormat != "human" && fuzzFormat != "json" {
		return fmt.Errorf("unknown output format: %s", fuzzFormat)
	}
	if fuzzCount < 0 {
		return fmt.Errorf("--count must not be negative: %d", fuzzCount)
	}

	seed, err := resolveBytes(fuzzSeed, fuzzSeedHex, "seed", "seed-hex")
	if err != nil {
		return err
	}
	pattern, err := resolveBytes(fuzzPattern, fuzzHex, "pattern", "hex")
	if err != nil {
		return err
	}
	if pattern == nil {
		pattern = seed
	}
	if len(pattern) == 0 {
		return errors.New("a pattern is required: use --pattern, --hex, or a non-empty seed")
	}

	strategies, err := fuzz.ParseStrategies(fuzzStrategies)
	if err != nil {
		return err
	}
	fuzzer := fuzz.New(seed).
		WithStrategies(strategies...).
		WithMutationsPerRound(fuzzRounds)

	slog.Debug("starting stress run",
		"seed_len", len(seed),
		"pattern_len", len(pattern),
		"variants", fuzzCount,
		"strategies", fmt.Sprint(fuzzer.Strategies()),
		"rounds", fuzzer.MutationsPerRound(),
		"rng_seed", fuzzRNGSeed,
	)

	report, err := stress.Run(commandContext(cmd), stress.Config{
		Pattern:   pattern,
		Fuzzer:    fuzzer,
		Variants:  fuzzCount,
		Splits:    fuzzSplits,
		ChunkSize: fuzzChunkSize,
		Workers:   fuzzWorkers,
		Seed:      fuzzRNGSeed,
	})
	if err != nil {
		return fmt.Errorf("stress run: %w", err)
	}

	if fuzzOutput != "" && len(report.Failures) > 0 {
		if err := writeFailures(fuzzOutput, report.Failures); err != nil {
			return err
		}
		slog.Info("wrote failing payloads", "dir", fuzzOutput, "count", len(report.Failures))
	}

	if fuzzFormat == "json" {
		err = outputReportJSON(cmd, report)
	} else {
		err = outputReportHuman(cmd, report)
	}
	if err != nil {
		return err
	}

	if n := len(report.Failures); n > 0 {
		return fmt.Errorf("%w: %d of %d variants", stress.ErrMismatch, n, report.Variants)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

// failureView is the JSON form of a stress.Failure.
type failureView struct {
	Index   int     `json:"index"`
	Payload string  `json:"payload_hex"`
	Cuts    []int   `json:"cuts"`
	Want    []int   `json:"exact_offsets"`
	Got     []int64 `json:"stream_offsets"`
}

type reportView struct {
	Variants      int           `json:"variants"`
	Bytes         int64         `json:"bytes"`
	Matches       int           `json:"matches"`
	WithMatch     int           `json:"variants_with_match"`
	DiffersSeed   int           `json:"variants_differing_from_seed"`
	LengthChanged int           `json:"variants_length_changed"`
	Failures      []failureView `json:"failures"`
}

func outputReportJSON(cmd *cobra.Command, report *stress.Report) error {
	view := reportView{
		Variants:      report.Variants,
		Bytes:         report.Bytes,
		Matches:       report.Matches,
		WithMatch:     report.WithMatch,
		DiffersSeed:   report.DiffersSeed,
		LengthChanged: report.LengthChanged,
		Failures:      make([]failureView, 0, len(report.Failures)),
	}
	for _, f := range report.Failures {
		view.Failures = append(view.Failures, failureView{
			Index:   f.Index,
			Payload: hex.EncodeToString(f.Payload),
			Cuts:    f.Cuts,
			Want:    f.Want,
			Got:     f.Got,
		})
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(view)
}

func outputReportHuman(cmd *cobra.Command, report *stress.Report) error {
	out := cmd.OutOrStdout()

	enabled, err := colorEnabled("auto", out)
	if err != nil {
		return err
	}
	s := newStyles(enabled)

	fmt.Fprintf(out, "%s\n", s.heading.Sprint("Stress run"))
	fmt.Fprintf(out, "  Variants:            %d (%d bytes)\n", report.Variants, report.Bytes)
	fmt.Fprintf(out, "  Differ from seed:    %d\n", report.DiffersSeed)
	fmt.Fprintf(out, "  Length changed:      %d\n", report.LengthChanged)
	fmt.Fprintf(out, "  Variants with match: %d\n", report.WithMatch)
	fmt.Fprintf(out, "  Total matches:       %d\n", report.Matches)

	for _, f := range report.Failures {
		fmt.Fprintf(out, "  %s variant %d cuts=%v exact=%v stream=%v\n",
			s.fail.Sprint("MISMATCH"), f.Index, f.Cuts, f.Want, f.Got)
	}

	if len(report.Failures) > 0 {
		fmt.Fprintf(out, "%s %d mismatches\n", s.fail.Sprint("FAIL"), len(report.Failures))
	} else {
		fmt.Fprintf(out, "%s streaming matches agree on every variant\n", s.pass.Sprint("PASS"))
	}
	return nil
}

// writeFailures stores each failing payload as <dir>/failure-<index>.bin.
func writeFailures(dir string, failures []stress.Failure) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	for _, f := range failures {
		path := filepath.Join(dir, fmt.Sprintf("failure-%06d.bin", f.Index))
		if err := os.WriteFile(path, f.Payload, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	return nil
}
