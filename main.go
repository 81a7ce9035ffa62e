package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const appName = "model-router"

var rootFlags struct {
	configPath string
	logLevel   string
	output     string
}

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Adaptive candidate selection for interchangeable text-generation backends",
	Long: "model-router discovers text-generation candidates, remembers how each one performed,\n" +
		"and tries them in weighted-random order until one succeeds.",
	SilenceUsage: true,
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.configPath, "config", "c", "", "Path to config file (default: ./config/config.yaml if present)")
	pf.StringVar(&rootFlags.logLevel, "log-level", "", "Override the configured log level")
	pf.StringVarP(&rootFlags.output, "output", "o", "json", "Output format: json or yaml")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
