package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snapshotengine/dbsync/internal/comparator"
)

var (
	compareATenant uint
	compareAEnv    string
	compareBTenant uint
	compareBEnv    string
	compareKind    string
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare the latest snapshots of two targets",
	Run: func(cmd *cobra.Command, args []string) {
		repo, err := openRepo()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		cmp := comparator.New(repo)
		result, err := cmp.Compare(compareATenant, compareAEnv, compareBTenant, compareBEnv, compareKind)
		if err != nil {
			fmt.Fprintln(os.Stderr, "compare:", err)
			os.Exit(1)
		}
		for _, item := range result.Items {
			fmt.Printf("%s\t%s\t%s\n", item.Status, item.Kind, item.FullName)
		}
	},
}

func init() {
	compareCmd.Flags().UintVar(&compareATenant, "a-tenant", 0, "source tenant id")
	compareCmd.Flags().StringVar(&compareAEnv, "a-env", "", "source environment")
	compareCmd.Flags().UintVar(&compareBTenant, "b-tenant", 0, "target tenant id")
	compareCmd.Flags().StringVar(&compareBEnv, "b-env", "", "target environment")
	compareCmd.Flags().StringVar(&compareKind, "kind", "", "restrict to one object kind short code (P, V, FN, TF, IF)")
	compareCmd.MarkFlagRequired("a-tenant")
	compareCmd.MarkFlagRequired("a-env")
	compareCmd.MarkFlagRequired("b-tenant")
	compareCmd.MarkFlagRequired("b-env")
	rootCmd.AddCommand(compareCmd)
}
