package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gengirish/database-connection-pool/internal/poolmanager"
)

// createCmd creates a new named pool.
var createCmd = &cobra.Command{
	Use:   "create [name]",
	Short: "Create a new connection pool",
	Long: `Create a new connection pool with the specified options.
The memory backend needs no external service; sql, redis, and grpc
backends require a target (a driver://dsn for sql, an address for
redis and grpc).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		backend, _ := cmd.Flags().GetString("backend")
		target, _ := cmd.Flags().GetString("target")
		maxSize, _ := cmd.Flags().GetInt("max-size")
		minIdle, _ := cmd.Flags().GetInt("min-idle")
		acquireTimeout, _ := cmd.Flags().GetDuration("acquire-timeout")
		idleTimeout, _ := cmd.Flags().GetDuration("idle-timeout")
		maxLifetime, _ := cmd.Flags().GetDuration("max-lifetime")
		leakThreshold, _ := cmd.Flags().GetDuration("leak-threshold")
		testOnBorrow, _ := cmd.Flags().GetBool("test-on-borrow")
		openDelay, _ := cmd.Flags().GetDuration("open-delay")
		failEvery, _ := cmd.Flags().GetInt("fail-every")

		opts := poolmanager.PoolOptions{
			Backend:        poolmanager.Backend(backend),
			Target:         target,
			MaxPoolSize:    maxSize,
			MinIdle:        minIdle,
			AcquireTimeout: acquireTimeout,
			IdleTimeout:    idleTimeout,
			MaxLifetime:    maxLifetime,
			LeakThreshold:  leakThreshold,
			TestOnBorrow:   testOnBorrow,
			OpenDelay:      openDelay,
			FailEvery:      failEvery,
		}

		service := GetPoolService()
		if err := service.CreatePool(name, opts); err != nil {
			return fmt.Errorf("failed to create pool: %w", err)
		}

		fmt.Printf("Pool '%s' created (backend: %s, max size: %d)\n", name, backend, maxSize)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)

	createCmd.Flags().StringP("backend", "b", "memory", "Backend type: memory, sql, redis, grpc")
	createCmd.Flags().StringP("target", "t", "", "Backend target (driver://dsn or address)")
	createCmd.Flags().Int("max-size", 10, "Maximum pool size")
	createCmd.Flags().Int("min-idle", 0, "Idle connections to keep warm")
	createCmd.Flags().Duration("acquire-timeout", 30*time.Second, "Default acquire timeout")
	createCmd.Flags().Duration("idle-timeout", 5*time.Minute, "Idle eviction threshold (0 disables)")
	createCmd.Flags().Duration("max-lifetime", 30*time.Minute, "Connection lifetime limit (0 disables)")
	createCmd.Flags().Duration("leak-threshold", 0, "Leak detection threshold (0 disables)")
	createCmd.Flags().Bool("test-on-borrow", false, "Validate connections before handing them out")
	createCmd.Flags().Duration("open-delay", 0, "Memory backend: artificial dial latency")
	createCmd.Flags().Int("fail-every", 0, "Memory backend: fail every n-th open")
}
