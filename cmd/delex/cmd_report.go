package main

import (
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/delex/internal/report"
)

var reportFlags struct {
	extended bool
}

var reportCmd = &cobra.Command{
	Use:   "report <sessions-dir> <domain>",
	Short: "Summarize per-session evaluation reports for one domain",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := report.Gather(args[0], args[1])
		if err != nil {
			return err
		}
		return report.Write(cmd.OutOrStdout(), s, reportFlags.extended)
	},
}

func init() {
	reportCmd.Flags().BoolVar(&reportFlags.extended, "extended", false, "Also print min..max per metric")
}
