package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/scansage/scansage/internal/audit"
	"github.com/scansage/scansage/internal/config"
	"github.com/scansage/scansage/internal/ingest"
	"github.com/scansage/scansage/internal/logging"
	"github.com/scansage/scansage/internal/store"
)

var (
	ingestFile   string
	ingestFormat string
	ingestParser string
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a scan payload locally",
	Long: `Ingest one payload through the sanitization pipeline without running
the API server. The resulting envelope is printed to stdout and the
record is retained in the configured storage directory.

Raw payload content never appears in the output; the envelope carries
only the payload digest, counts, and sanitized findings.`,
	Example: `  scansage ingest --file scan.xml
  scansage ingest --file scan.xml --parser real_minimal
  scansage ingest --file - --format nmap_xml < scan.xml
  scansage ingest --file lab.txt --format synthetic_v1 --parser synthetic_v1`,
	Run: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	// Define flags
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "Payload file to ingest ('-' reads stdin)")
	ingestCmd.Flags().StringVar(&ingestFormat, "format", ingest.FormatNmapXML, "Payload format: nmap_xml, synthetic_v1")
	ingestCmd.Flags().StringVar(&ingestParser, "parser", "", "Parser selection: safe_xml, real_minimal (nmap_xml), synthetic_v1 (synthetic)")

	if err := ingestCmd.MarkFlagRequired("file"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to mark file flag required: %v\n", err)
	}
}

func runIngest(cmd *cobra.Command, _ []string) {
	if err := validateIngestFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		_ = cmd.Help()
		os.Exit(1)
	}

	payload, err := readPayload(ingestFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading payload: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	service := buildIngestService(cfg)
	req := buildIngestRequest(payload)

	response, errResponse := service.IngestPublic(context.Background(), req)
	if errResponse != nil {
		printEnvelope(errResponse)
		os.Exit(1)
	}

	printEnvelope(response)
}

// validateIngestFlags checks format and parser flag combinations.
func validateIngestFlags() error {
	validFormats := map[string]bool{
		ingest.FormatNmapXML:   true,
		ingest.FormatSynthetic: true,
	}
	if !validFormats[ingestFormat] {
		return fmt.Errorf("invalid format '%s' (valid: %s, %s)",
			ingestFormat, ingest.FormatNmapXML, ingest.FormatSynthetic)
	}

	if ingestParser == "" {
		return nil
	}

	switch ingestFormat {
	case ingest.FormatSynthetic:
		if ingestParser != ingest.FormatSynthetic {
			return fmt.Errorf("synthetic payloads require --parser %s", ingest.FormatSynthetic)
		}
	default:
		validParsers := map[string]bool{
			ingest.ParserSafeXML:     true,
			ingest.ParserRealMinimal: true,
		}
		if !validParsers[ingestParser] {
			return fmt.Errorf("invalid parser '%s' (valid: %s, %s)",
				ingestParser, ingest.ParserSafeXML, ingest.ParserRealMinimal)
		}
	}
	return nil
}

// readPayload reads the payload file, or stdin when the path is "-".
func readPayload(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path) //nolint:gosec // path comes from the operator, not remote input
}

// buildIngestService wires a service against the configured store and
// audit sink, honoring the parser flag over file and environment
// settings.
func buildIngestService(cfg *config.Config) *ingest.Service {
	logger := logging.Default()
	records := store.New(cfg.Storage.Directory, logger, nil)
	auditSink := audit.NewSink(cfg.GetAuditConfig(), logger, nil)

	lookup := cfg.GetIngestLookup()
	if ingestParser != "" && ingestFormat == ingest.FormatNmapXML {
		base := lookup
		lookup = func(key string) (string, bool) {
			if key == ingest.EnvParserOverride {
				return ingestParser, true
			}
			return base(key)
		}
	}

	return ingest.NewService(records, auditSink, logger, lookup)
}

// buildIngestRequest assembles the ingestion request from flags.
func buildIngestRequest(payload []byte) ingest.IngestRequest {
	req := ingest.IngestRequest{
		Format:  ingestFormat,
		Payload: string(payload),
	}
	if ingestFormat == ingest.FormatSynthetic && ingestParser != "" {
		req.Meta = map[string]string{"parser": ingestParser}
	}
	return req
}

// printEnvelope writes an operation envelope as indented JSON.
func printEnvelope(envelope interface{}) {
	data, err := json.MarshalIndent(envelope, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding envelope: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
