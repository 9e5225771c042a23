package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/scansage/scansage/internal/config"
	"github.com/scansage/scansage/internal/ingest"
	"github.com/scansage/scansage/internal/logging"
	"github.com/scansage/scansage/internal/store"
)

const (
	// Record display constants.
	recordIDDisplayLength = 12 // leading ingest ID characters shown in tables
	digestDisplayLength   = 12 // leading digest characters shown in tables
)

var (
	recordsLimit  int
	recordsOutput string
	recordsForce  bool
)

// recordsCmd represents the records command.
var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Manage retained ingestion records",
	Long: `View and manage the bounded ring of retained ingestion records.
Records hold only sanitized metadata: the ingest ID, payload digest,
byte count, and finding counts. Raw payload content is never retained.`,
	Example: `  scansage records list
  scansage records list --limit 5 --output json
  scansage records show 1f8b3c9e2d4a46f0b1c2d3e4f5a60718
  scansage records clear --force`,
}

// recordsListCmd represents the records list command.
var recordsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List retained records",
	Long:  "List retained ingestion records, newest first.",
	Example: `  scansage records list
  scansage records list --limit 5
  scansage records list --output json`,
	Run: runRecordsList,
}

// recordsShowCmd represents the records show command.
var recordsShowCmd = &cobra.Command{
	Use:     "show [ID]",
	Short:   "Show one retained record",
	Long:    "Display a single retained ingestion record by its ingest ID.",
	Example: `  scansage records show 1f8b3c9e2d4a46f0b1c2d3e4f5a60718`,
	Args:    cobra.ExactArgs(1),
	Run:     runRecordsShow,
}

// recordsClearCmd represents the records clear command.
var recordsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear all retained records",
	Long:  "Remove every retained ingestion record from the storage directory.",
	Example: `  scansage records clear
  scansage records clear --force`,
	Run: runRecordsClear,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsShowCmd)
	recordsCmd.AddCommand(recordsClearCmd)

	recordsListCmd.Flags().IntVar(&recordsLimit, "limit", store.MaxRecords, "Maximum records to list")
	recordsListCmd.Flags().StringVarP(&recordsOutput, "output", "o", "table", "Output format (table, json)")

	recordsClearCmd.Flags().BoolVarP(&recordsForce, "force", "f", false, "Clear without confirmation")
}

// openRecordsService builds an ingestion service over the configured
// storage directory for record retrieval.
func openRecordsService() (*ingest.Service, *store.Store, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading config: %w", err)
	}

	logger := logging.Default()
	records := store.New(cfg.Storage.Directory, logger, nil)
	service := ingest.NewService(records, nil, logger, cfg.GetIngestLookup())
	return service, records, nil
}

func runRecordsList(_ *cobra.Command, _ []string) {
	if recordsOutput != "table" && recordsOutput != "json" {
		fmt.Fprintf(os.Stderr, "Error: invalid output format '%s'. Valid formats: table, json\n", recordsOutput)
		os.Exit(1)
	}

	service, _, err := openRecordsService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	response, errResponse := service.ListIngests(context.Background(), recordsLimit)
	if errResponse != nil {
		printEnvelope(errResponse)
		os.Exit(1)
	}

	if recordsOutput == "json" {
		printEnvelope(response)
		return
	}

	if response.Count == 0 {
		fmt.Println("No retained records")
		return
	}

	displayRecordsTable(response.Ingests)
	fmt.Printf("\n%d of at most %d retained records\n", response.Count, response.MaxRecords)
}

func runRecordsShow(_ *cobra.Command, args []string) {
	service, _, err := openRecordsService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	response, errResponse := service.GetIngest(context.Background(), args[0])
	if errResponse != nil {
		printEnvelope(errResponse)
		os.Exit(1)
	}

	printEnvelope(response)
}

func runRecordsClear(_ *cobra.Command, _ []string) {
	_, records, err := openRecordsService()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	count := records.Count()
	if count == 0 {
		fmt.Println("No retained records to clear")
		return
	}

	if !recordsForce {
		fmt.Printf("This removes all %d retained records and cannot be undone.\n", count)
		fmt.Printf("Type 'yes' to confirm: ")

		var confirmation string
		_, _ = fmt.Scanln(&confirmation)
		if !strings.EqualFold(confirmation, "yes") {
			fmt.Println("Clear cancelled")
			return
		}
	}

	if err := records.Clear(); err != nil {
		fmt.Fprintf(os.Stderr, "Error clearing records: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Cleared %d retained records\n", count)
}

// displayRecordsTable renders retained records in table form.
func displayRecordsTable(records []store.IngestRecord) {
	table := tablewriter.NewWriter(os.Stdout)
	table.Header("Ingest ID", "Format", "Created", "Bytes", "Digest", "Parsed", "Findings")

	for i := range records {
		record := &records[i]

		parsed := "no"
		if record.Parsed {
			parsed = "yes"
		}

		_ = table.Append([]string{
			truncateField(record.IngestID, recordIDDisplayLength),
			record.Format,
			record.CreatedAt,
			fmt.Sprintf("%d", record.PayloadBytes),
			truncateField(record.PayloadSHA256, digestDisplayLength),
			parsed,
			fmt.Sprintf("%d", record.FindingsCount),
		})
	}

	_ = table.Render()
}

// truncateField shortens long identifier fields for table display.
func truncateField(value string, length int) string {
	if len(value) <= length {
		return value
	}
	return value[:length] + "..."
}
