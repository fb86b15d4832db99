package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	appName    = "weakbus"
	appVersion = "0.1.0"
)

var (
	// Global flags
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "weakbus",
		Short: "weakbus in-process message bus demo tool",
		Long: `weakbus exercises the weak-reference, type-keyed in-process message bus.
It provides a guided demo of key-routed, type-routed and asynchronous
publishing, and a benchmark for concurrent publish throughput.`,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging from the bus")

	rootCmd.AddCommand(newDemoCommand())
	rootCmd.AddCommand(newBenchCommand())
	rootCmd.AddCommand(newVersionCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%s v%s\n", appName, appVersion)
		},
	}
}
