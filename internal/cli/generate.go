package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"formfill-poc/internal/config"
	"formfill-poc/internal/datastore"
	"formfill-poc/internal/mapping"
)

// GenerateCommand creates the generate command: map one source record
// through a form configuration, validate it, and print the target record
// plus the validation report. Document generation is refused when the
// record is invalid; rendering itself belongs to a downstream collaborator.
func GenerateCommand() *cobra.Command {
	var (
		configPath string
		recordID   string
		asJSON     bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Map and validate a source record against a form configuration",
		Long: `Map a source record through a declarative form configuration and
validate the result.

The record is fetched from the configured source store (FORM_STORE_TYPE,
DB_CONN_STRING / FORM_MOCK_DATA_PATH), every target field is derived per
the configuration's transformation rules, and the validation report is
printed. The command exits non-zero when the record fails validation, so
downstream document rendering is never fed an invalid record.

Examples:
  # Validate a purchase agreement record
  ./formfill generate --config configs/purchase_agreement.yaml --record 7b0c...

  # Machine-readable output
  ./formfill generate --config configs/purchase_agreement.yaml --record 7b0c... --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, configPath, recordID, asJSON)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the form mapping configuration (YAML)")
	cmd.Flags().StringVar(&recordID, "record", "", "Source record identifier")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the target record and report as JSON")
	cmd.MarkFlagRequired("config")
	cmd.MarkFlagRequired("record")

	return cmd
}

func runGenerate(cmd *cobra.Command, configPath, recordID string, asJSON bool) error {
	cfg, err := mapping.LoadFile(configPath)
	if err != nil {
		return err
	}

	store, err := openSourceStore()
	if err != nil {
		return err
	}
	defer store.Close()

	mapper := mapping.NewRecordMapper(store)
	target, err := mapper.Map(context.Background(), recordID, cfg)
	if err != nil {
		return err
	}

	report := mapping.NewValidator().Validate(target, cfg)

	if asJSON {
		out := struct {
			Target *mapping.TargetRecord     `json:"target_record"`
			Report *mapping.ValidationReport `json:"validation_report"`
		}{target, report}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		printTarget(cmd, target)
		printReport(cmd, report)
	}

	if !report.IsValid {
		return fmt.Errorf("record %s failed validation: %d error(s), compliance %s",
			recordID, len(report.Errors), report.LegalComplianceStatus)
	}
	return nil
}

func printTarget(cmd *cobra.Command, target *mapping.TargetRecord) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Target record for %s:\n", target.RecordID)
	for _, name := range target.FieldOrder {
		f := target.Fields[name]
		switch {
		case f.Failed:
			fmt.Fprintf(out, "  %-24s <failed: %s>\n", name, f.FailureReason)
		case f.Value == "":
			fmt.Fprintf(out, "  %-24s <empty>\n", name)
		default:
			fmt.Fprintf(out, "  %-24s %s\n", name, f.Value)
		}
	}
}

func printReport(cmd *cobra.Command, report *mapping.ValidationReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nValidation: valid=%t compliance=%s completion=%.1f%%\n",
		report.IsValid, report.LegalComplianceStatus, report.FieldCompletionRate)
	for _, issue := range report.Errors {
		fmt.Fprintf(out, "  ERROR   [%s] %s\n", issue.Rule, issue.Message)
	}
	for _, issue := range report.Warnings {
		fmt.Fprintf(out, "  WARNING [%s] %s\n", issue.Rule, issue.Message)
	}
}

// openSourceStore builds the source store from environment configuration,
// announcing mock mode the way the store selection is meant to be visible
// during local development.
func openSourceStore() (datastore.SourceStore, error) {
	cfg := config.GetSourceStoreConfig()
	store, err := datastore.NewSourceStore(cfg)
	if err != nil {
		return nil, err
	}
	if config.IsMockMode() {
		fmt.Fprintf(os.Stderr, "Running in MOCK mode (data from: %s)\n", cfg.MockDataPath)
	}
	return store, nil
}
