package main

import (
	"github.com/spf13/cobra"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Force a discovery refresh of the candidate pool",
	RunE:  runRefresh,
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	return printValue(cmd, a.refresher.Refresh(cmd.Context()))
}
