package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var scansListLimit int

var scansCmd = &cobra.Command{
	Use:   "scans",
	Short: "Inspect scan history",
}

var scansListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent scans",
	Run: func(cmd *cobra.Command, args []string) {
		repo, err := openRepo()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		logs, err := repo.ListRecentScanLogs(scansListLimit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "list scans:", err)
			os.Exit(1)
		}
		for _, l := range logs {
			fmt.Printf("#%d\t%s\t%s\tobjects=%d changes=%d errors=%d\n",
				l.ID, l.StartedAt.Format("2006-01-02T15:04:05"), l.Status,
				l.TotalObjectsScanned, l.TotalChangesDetected, l.TotalErrors)
		}
	},
}

func init() {
	scansListCmd.Flags().IntVar(&scansListLimit, "limit", 20, "maximum number of scans to list")
	scansCmd.AddCommand(scansListCmd)
	rootCmd.AddCommand(scansCmd)
}
