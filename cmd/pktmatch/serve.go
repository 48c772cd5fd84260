package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/praetorian-inc/pktmatch"
	"github.com/praetorian-inc/pktmatch/pkg/serve"
	"github.com/praetorian-inc/pktmatch/pkg/signature"
	"github.com/spf13/cobra"
)

var (
	serveSignaturesPath string
	serveCategories     string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run as a streaming match server over stdin/stdout",
	Long: `Run pktmatch as a long-lived server that accepts requests on stdin and
writes responses to stdout, one JSON object per line.

Clients open named streams and feed them base64 chunks as packets arrive;
match state is kept per stream between feeds. Signatures are loaded once at
startup. The server exits when stdin closes, on a "close" request, or on
SIGTERM/SIGINT.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveSignaturesPath, "signatures", "", "Path to custom signatures file or directory")
	serveCmd.Flags().StringVar(&serveCategories, "categories", "", "Comma-separated signature categories to include")
}

func runServe(cmd *cobra.Command, args []string) error {
	opts := []pktmatch.Option{
		pktmatch.WithFilter(signature.FilterConfig{
			Categories: signature.ParsePatterns(serveCategories),
		}),
	}
	if serveSignaturesPath != "" {
		sigs, err := pktmatch.LoadSignaturesFromPath(serveSignaturesPath)
		if err != nil {
			return fmt.Errorf("loading signatures from %s: %w", serveSignaturesPath, err)
		}
		opts = append(opts, pktmatch.WithSignatures(sigs))
	}

	scanner, err := pktmatch.NewScanner(opts...)
	if err != nil {
		return fmt.Errorf("creating scanner: %w", err)
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Debug("serving", "signatures", scanner.SignatureCount(), "protocol", serve.Version)
	return serve.NewServer(scanner, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
}
