package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// healthCmd runs a pool's health check.
var healthCmd = &cobra.Command{
	Use:   "health [pool-name]",
	Short: "Check pool health",
	Long: `Run a health check against a pool: a trial acquire-and-release
through the ordinary borrowing path. Reports healthy, degraded
(saturated with queued borrowers), or unhealthy.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		poolName := args[0]

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		verdict, err := GetPoolService().PoolHealth(ctx, poolName)
		if err != nil {
			return fmt.Errorf("failed to check pool health: %w", err)
		}

		fmt.Printf("Pool '%s': %s\n", poolName, verdict)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
