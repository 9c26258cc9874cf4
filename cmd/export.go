package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KennyGael/Hazard-Atlas/internal/export"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Run one aggregation pass and write the records to a spreadsheet",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.agg.Fetch(cmd.Context())
		if err != nil {
			return err
		}

		if err := export.SaveXLSX(exportOut, res.Results); err != nil {
			return err
		}
		zap.L().Info("exported recalls",
			zap.String("path", exportOut),
			zap.Int("records", res.Count),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "recalls.xlsx", "output spreadsheet path")
	rootCmd.AddCommand(exportCmd)
}
