package main

import (
	"log"

	"github.com/spf13/cobra"

	"formfill-poc/internal/cli"
)

func main() {
	root := &cobra.Command{
		Use:           "formfill",
		Short:         "Declarative record mapping and validation for real-estate forms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		cli.GenerateCommand(),
		cli.CheckConfigCommand(),
		cli.ShowRecordCommand(),
	)

	if err := root.Execute(); err != nil {
		log.Fatal(err)
	}
}
