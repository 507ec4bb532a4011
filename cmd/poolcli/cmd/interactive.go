package cmd

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"
)

// interactiveCmd starts a REPL so pools created in one command are
// still around for the next one.
var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Start an interactive session",
	Long: `Start an interactive session with the pool CLI.
Commands can be entered directly at the prompt.
Type 'exit' or 'quit' to exit, or press Ctrl+C.`,
	Aliases: []string{"i", "shell"},
	Run: func(cmd *cobra.Command, args []string) {
		runInteractiveMode()
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

func runInteractiveMode() {
	fmt.Println("Pool CLI Interactive Mode")
	fmt.Println("Type 'help' for available commands or 'exit' to quit")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	doneChan := make(chan struct{})
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal, exiting...")
		close(doneChan)
	}()

	scanner := bufio.NewScanner(os.Stdin)

	for {
		select {
		case <-doneChan:
			return
		default:
		}

		fmt.Print("> ")

		if !scanner.Scan() {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			fmt.Println("Exiting...")
			return
		}

		executeCommand(input)
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
	}
}

// executeCommand parses one REPL line and dispatches it through the
// root command without exiting on error.
func executeCommand(input string) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing command: %v\n", err)
		return
	}

	if len(args) == 0 {
		return
	}

	rootCmd.SetArgs(args)
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
}
