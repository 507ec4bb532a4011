package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gengirish/database-connection-pool/internal/poolmanager"
)

// statsCmd displays a pool's statistics.
var statsCmd = &cobra.Command{
	Use:   "stats [pool-name]",
	Short: "Display pool statistics",
	Long: `Display a point-in-time snapshot of a pool: connection counts,
waiting borrowers, and accumulated operation counters.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		poolName := args[0]

		snapshot, err := GetPoolService().PoolStats(poolName)
		if err != nil {
			return fmt.Errorf("failed to get pool statistics: %w", err)
		}

		fmt.Printf("Statistics for pool '%s':\n\n", poolName)
		fmt.Print(poolmanager.FormatSnapshot(snapshot))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
