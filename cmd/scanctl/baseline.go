package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snapshotengine/dbsync/internal/baseline"
	"github.com/snapshotengine/dbsync/internal/domain"
)

var (
	baselineName        string
	baselineDescription string
	baselineTenant       uint
	baselineEnv          string
)

var baselineCmd = &cobra.Command{
	Use:   "baseline",
	Short: "Manage immutable baselines",
}

var baselineFreezeCmd = &cobra.Command{
	Use:   "freeze",
	Short: "Freeze the current latest snapshots of a target into a named baseline",
	Run: func(cmd *cobra.Command, args []string) {
		repo, err := openRepo()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		mgr := baseline.New(repo)

		var desc *string
		if baselineDescription != "" {
			desc = &baselineDescription
		}
		target := domain.Target{TenantID: baselineTenant, Environment: domain.Environment(baselineEnv)}
		id, count, err := mgr.Create(baseline.Meta{Name: baselineName, Description: desc}, target)
		if err != nil {
			fmt.Fprintln(os.Stderr, "freeze baseline:", err)
			os.Exit(1)
		}
		fmt.Printf("baseline #%d %q frozen with %d objects\n", id, baselineName, count)
	},
}

var baselineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List baselines",
	Run: func(cmd *cobra.Command, args []string) {
		repo, err := openRepo()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		mgr := baseline.New(repo)
		baselines, err := mgr.List()
		if err != nil {
			fmt.Fprintln(os.Stderr, "list baselines:", err)
			os.Exit(1)
		}
		for _, b := range baselines {
			fmt.Printf("#%d\t%s\t%s/%s\tobjects=%d\n", b.ID, b.Name, b.SourceTenantCode, b.SourceEnvironment, b.TotalObjects)
		}
	},
}

func init() {
	baselineFreezeCmd.Flags().StringVar(&baselineName, "name", "", "baseline name")
	baselineFreezeCmd.Flags().StringVar(&baselineDescription, "description", "", "baseline description")
	baselineFreezeCmd.Flags().UintVar(&baselineTenant, "tenant", 0, "source tenant id")
	baselineFreezeCmd.Flags().StringVar(&baselineEnv, "env", "", "source environment")
	baselineFreezeCmd.MarkFlagRequired("name")
	baselineFreezeCmd.MarkFlagRequired("tenant")
	baselineFreezeCmd.MarkFlagRequired("env")

	baselineCmd.AddCommand(baselineFreezeCmd, baselineListCmd)
	rootCmd.AddCommand(baselineCmd)
}
