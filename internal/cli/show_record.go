package cli

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"
)

// ShowRecordCommand creates the show-record command: dump the raw source
// record as assembled by the store, useful when a mapping produces
// unexpected output.
func ShowRecordCommand() *cobra.Command {
	var recordID string

	cmd := &cobra.Command{
		Use:   "show-record",
		Short: "Print a raw source record from the configured store",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openSourceStore()
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.FetchRecord(context.Background(), recordID)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}

	cmd.Flags().StringVar(&recordID, "record", "", "Source record identifier")
	cmd.MarkFlagRequired("record")

	return cmd
}
