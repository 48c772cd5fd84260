package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/praetorian-inc/pktmatch"
	"github.com/praetorian-inc/pktmatch/pkg/signature"
	"github.com/praetorian-inc/pktmatch/pkg/types"
	"github.com/spf13/cobra"
)

var (
	signaturesPath       string
	signaturesCategories string
	outputFormat         string
)

var signaturesCmd = &cobra.Command{
	Use:   "signatures",
	Short: "Manage signatures",
	Long:  "Commands for listing and inspecting signatures",
}

var signaturesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available signatures",
	Long:  "Display all available signatures with their IDs, names, and patterns",
	RunE:  runSignaturesList,
}

func init() {
	signaturesCmd.AddCommand(signaturesListCmd)
	signaturesListCmd.Flags().StringVar(&signaturesPath, "signatures", "", "Path to custom signatures file or directory")
	signaturesListCmd.Flags().StringVar(&signaturesCategories, "categories", "", "Comma-separated signature categories to include")
	signaturesListCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format: table, json")
}

func runSignaturesList(cmd *cobra.Command, args []string) error {
	var sigs []*types.Signature
	var err error

	if signaturesPath != "" {
		sigs, err = pktmatch.LoadSignaturesFromPath(signaturesPath)
		if err != nil {
			return fmt.Errorf("loading signatures from %s: %w", signaturesPath, err)
		}
	} else {
		sigs, err = pktmatch.LoadBuiltinSignatures()
		if err != nil {
			return fmt.Errorf("loading builtin signatures: %w", err)
		}
	}

	sigs, err = signature.Filter(sigs, signature.FilterConfig{
		Categories: signature.ParsePatterns(signaturesCategories),
	})
	if err != nil {
		return err
	}

	switch outputFormat {
	case "json":
		return outputSignaturesJSON(cmd, sigs)
	case "table":
		return outputSignaturesTable(cmd, sigs)
	default:
		return fmt.Errorf("unknown output format: %s", outputFormat)
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// signatureView is the JSON form of a signature. Patterns are raw bytes, so
// they are listed as hex.
type signatureView struct {
	*types.Signature
	PatternHex string `json:"pattern_hex"`
	Length     int    `json:"length"`
}

func outputSignaturesJSON(cmd *cobra.Command, sigs []*types.Signature) error {
	views := make([]signatureView, 0, len(sigs))
	for _, s := range sigs {
		views = append(views, signatureView{
			Signature:  s,
			PatternHex: s.PatternHex(),
			Length:     len(s.Pattern),
		})
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(views)
}

func outputSignaturesTable(cmd *cobra.Command, sigs []*types.Signature) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "ID\tName\tLength\tPattern\tCategories\n")
	fmt.Fprintf(w, "--\t----\t------\t-------\t----------\n")

	for _, s := range sigs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", s.ID, s.Name, len(s.Pattern), s.PatternHex(), strings.Join(s.Categories, ","))
	}

	return nil
}
