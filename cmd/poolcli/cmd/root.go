package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gengirish/database-connection-pool/internal/poolmanager"
)

// poolSvc is the pool manager shared by all commands.
var poolSvc poolmanager.Service

// rootCmd is the CLI entry point.
var rootCmd = &cobra.Command{
	Use:   "poolcli",
	Short: "A CLI tool for managing connection pools",
	Long: `Pool CLI (poolcli) is a command line interface for creating and
inspecting connection pools. It supports in-memory loopback pools for
demos and benchmarks, as well as SQL, Redis, and gRPC backed pools,
with live statistics, health checks, and load generation.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command.
func Execute() {
	poolSvc = poolmanager.NewInMemoryService()
	defer poolSvc.Close()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// GetPoolService returns the pool manager, for use by subcommands.
func GetPoolService() poolmanager.Service {
	return poolSvc
}
