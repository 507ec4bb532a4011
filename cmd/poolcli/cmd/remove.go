package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// removeCmd shuts down and removes a pool.
var removeCmd = &cobra.Command{
	Use:     "remove [pool-name]",
	Short:   "Shut down and remove a pool",
	Aliases: []string{"rm", "delete"},
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		poolName := args[0]

		if err := GetPoolService().RemovePool(poolName); err != nil {
			return fmt.Errorf("failed to remove pool: %w", err)
		}

		fmt.Printf("Pool '%s' shut down and removed\n", poolName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(removeCmd)
}
