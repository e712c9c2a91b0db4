package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "policyai",
	Short: "PolicyAI - LLM-adjudicated policy application over structured types",
	Long: `PolicyAI lets you declare a PolicyType schema, write policies against it in
plain language, and apply the accumulated policy set to free-text input.
An LLM decides which policies match; PolicyAI reconciles their contributions
into a single, schema-validated action.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (yaml)")
}
