package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

// monitorCmd watches a pool's statistics in real time.
var monitorCmd = &cobra.Command{
	Use:   "monitor [pool-name]",
	Short: "Monitor pool activity in real-time",
	Long: `Watch pool statistics update in real-time.
Press Ctrl+C to stop monitoring.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		poolName := args[0]

		interval, _ := cmd.Flags().GetInt("interval")
		refreshDuration := time.Duration(interval) * time.Millisecond

		service := GetPoolService()
		if _, err := service.GetPool(poolName); err != nil {
			return fmt.Errorf("pool '%s' not found", poolName)
		}

		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

		fmt.Printf("Monitoring pool '%s' (refresh: %v, press Ctrl+C to stop)...\n\n",
			poolName, refreshDuration)

		var prev struct {
			Acquired int64
			Released int64
			Time     time.Time
		}
		prev.Time = time.Now()

		ticker := time.NewTicker(refreshDuration)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				stats, err := service.PoolStats(poolName)
				if err != nil {
					return fmt.Errorf("failed to get pool statistics: %w", err)
				}

				now := time.Now()
				elapsed := now.Sub(prev.Time).Seconds()
				acquireRate := float64(stats.Acquired-prev.Acquired) / elapsed
				releaseRate := float64(stats.Released-prev.Released) / elapsed

				// Clear the screen and move the cursor to the top left.
				fmt.Print("\033[H\033[2J")

				fmt.Printf("Time: %s\n\n", now.Format("15:04:05"))
				fmt.Printf("Pool: %s\n", poolName)
				fmt.Printf("Connections: %d/%d (%.1f%% utilized)\n",
					stats.Total, stats.MaxPoolSize, stats.Utilization*100)
				fmt.Printf("Idle: %d, in use: %d, waiting: %d\n",
					stats.Idle, stats.InUse, stats.Waiting)
				fmt.Printf("Rate: %.2f acq/s, %.2f rel/s\n", acquireRate, releaseRate)

				if stats.Timeouts > 0 {
					fmt.Printf("Acquire timeouts: %d\n", stats.Timeouts)
				}
				if stats.CreationFailures > 0 || stats.ValidationFailures > 0 {
					fmt.Printf("Failures: %d creation, %d validation\n",
						stats.CreationFailures, stats.ValidationFailures)
				}
				if stats.LeaksDetected > 0 {
					fmt.Printf("Suspected leaks: %d\n", stats.LeaksDetected)
				}

				prev.Acquired = stats.Acquired
				prev.Released = stats.Released
				prev.Time = now

			case <-sigChan:
				fmt.Println("\nMonitoring stopped.")
				return nil
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(monitorCmd)

	monitorCmd.Flags().IntP("interval", "i", 1000, "Refresh interval in milliseconds")
}
