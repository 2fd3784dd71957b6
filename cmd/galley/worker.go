package main

import (
	"os"

	"github.com/spf13/cobra"

	"galley/internal/worker"
)

// workerCmd is the analysis worker the language server spawns; it is not
// meant to be run by hand. It speaks the line protocol on stdio until
// its input closes.
var workerCmd = &cobra.Command{
	Use:          "worker",
	Short:        "Run the analysis worker over stdio",
	Hidden:       true,
	SilenceUsage: true,
	RunE:         runWorker,
}

func runWorker(cmd *cobra.Command, _ []string) error {
	log, closeLog, err := setupLogger(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	return worker.NewHost(os.Stdin, os.Stdout, log).Run(cmd.Context())
}
