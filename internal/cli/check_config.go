package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"formfill-poc/internal/mapping"
)

// CheckConfigCommand creates the check-config command: load a form mapping
// configuration and report its shape, failing on any structural violation.
func CheckConfigCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Validate a form mapping configuration document",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := mapping.LoadFile(configPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Configuration OK")
			if cfg.Form != "" {
				fmt.Fprintf(out, " (%s)", cfg.Form)
			}
			fmt.Fprintf(out, "\n  source fields:     %d\n", len(cfg.SourceFields))
			fmt.Fprintf(out, "  target fields:     %d\n", len(cfg.Fields))
			fmt.Fprintf(out, "  required fields:   %d\n", len(cfg.Rules.RequiredFields))
			fmt.Fprintf(out, "  legal rules:       %d\n", len(cfg.Rules.LegalRules))
			fmt.Fprintf(out, "  cross-field rules: %d\n", len(cfg.Rules.CrossFieldRules))
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the form mapping configuration (YAML)")
	cmd.MarkFlagRequired("config")

	return cmd
}
