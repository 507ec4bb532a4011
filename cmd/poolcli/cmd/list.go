package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gengirish/database-connection-pool/internal/poolmanager"
)

// listCmd lists all registered pools.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all connection pools",
	RunE: func(cmd *cobra.Command, args []string) error {
		pools := GetPoolService().ListPools()
		if len(pools) == 0 {
			fmt.Println("No pools exist. Create one with 'create'.")
			return nil
		}

		for i, info := range pools {
			if i > 0 {
				fmt.Println()
			}
			fmt.Print(poolmanager.FormatPoolInfo(info))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
