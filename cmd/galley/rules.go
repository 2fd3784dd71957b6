package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"galley/internal/rules"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the rules with their effective settings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		local, remote := rules.Configure(cfg.Lint.Rules)
		enabled := make(map[string]*rules.Rule)
		for _, r := range append(local, remote...) {
			enabled[r.ID] = r
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSEVERITY\tKIND\tENABLED\tDESCRIPTION")
		for _, r := range rules.All() {
			kind := "local"
			if r.Remote {
				kind = "worker"
			}
			severity := r.Severity
			state := "off"
			if eff, on := enabled[r.ID]; on {
				state = "on"
				severity = eff.Severity
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ID, severity, kind, state, r.Description)
		}
		return w.Flush()
	},
}
