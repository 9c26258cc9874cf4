package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/KennyGael/Hazard-Atlas/internal/openfda"
)

var diagnoseCmd = &cobra.Command{
	Use:   "diagnose",
	Short: "Probe openFDA reachability",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := openfda.NewClient(cfg.OpenFDA)

		probe, err := client.Probe(cmd.Context())
		if err != nil {
			probe = &openfda.ProbeResult{OK: false, Info: err.Error()}
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(probe), "diagnose: encode output")
	},
}

func init() {
	rootCmd.AddCommand(diagnoseCmd)
}
