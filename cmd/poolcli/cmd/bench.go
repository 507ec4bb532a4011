package cmd

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/gengirish/database-connection-pool/internal/poolmanager"
)

// benchCmd generates acquire/release load against a pool.
var benchCmd = &cobra.Command{
	Use:   "bench [pool-name]",
	Short: "Run an acquire/release load test against a pool",
	Long: `Run concurrent workers that acquire a connection, hold it for the
configured duration, and release it. Reports throughput and error
counts when the run completes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		poolName := args[0]

		workers, _ := cmd.Flags().GetInt("workers")
		duration, _ := cmd.Flags().GetDuration("duration")
		holdTime, _ := cmd.Flags().GetDuration("hold")

		p, err := GetPoolService().GetPool(poolName)
		if err != nil {
			return fmt.Errorf("pool '%s' not found", poolName)
		}

		fmt.Printf("Benchmarking pool '%s': %d workers for %v (hold %v)...\n",
			poolName, workers, duration, holdTime)

		ctx, cancel := context.WithTimeout(context.Background(), duration)
		defer cancel()

		var ops, failures int64
		var wg sync.WaitGroup
		wg.Add(workers)

		start := time.Now()
		for i := 0; i < workers; i++ {
			go func() {
				defer wg.Done()
				for ctx.Err() == nil {
					c, err := p.Acquire(ctx)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						atomic.AddInt64(&failures, 1)
						continue
					}
					if holdTime > 0 {
						time.Sleep(holdTime)
					}
					if err := c.Close(); err != nil {
						atomic.AddInt64(&failures, 1)
						return
					}
					atomic.AddInt64(&ops, 1)
				}
			}()
		}
		wg.Wait()
		elapsed := time.Since(start)

		snapshot := p.Snapshot()

		fmt.Printf("\nCompleted %d acquire/release cycles in %v (%.0f ops/s)\n",
			ops, elapsed.Round(time.Millisecond), float64(ops)/elapsed.Seconds())
		if failures > 0 {
			fmt.Printf("Failures: %d\n", failures)
		}
		fmt.Println()
		fmt.Print(poolmanager.FormatSnapshot(snapshot))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(benchCmd)

	benchCmd.Flags().IntP("workers", "w", 10, "Concurrent workers")
	benchCmd.Flags().DurationP("duration", "d", 5*time.Second, "Benchmark duration")
	benchCmd.Flags().Duration("hold", time.Millisecond, "How long each worker holds a connection")
}
