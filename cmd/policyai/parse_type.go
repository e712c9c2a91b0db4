package main

import (
	"fmt"
	"os"

	"github.com/policyai/core/policytype"
	"github.com/spf13/cobra"
)

var parseTypeFlags struct {
	file string
}

var parseTypeCmd = &cobra.Command{
	Use:   "parse-type",
	Short: "Parse and validate a PolicyType DSL file",
	Long: `Parse a PolicyType declaration and print its canonical rendering along
with the opaque identifier PolicyAI assigned to each field.

Examples:
  policyai parse-type --file emailpolicy.pt`,
	RunE: runParseType,
}

func init() {
	rootCmd.AddCommand(parseTypeCmd)
	parseTypeCmd.Flags().StringVarP(&parseTypeFlags.file, "file", "f", "", "path to the PolicyType DSL file")
	_ = parseTypeCmd.MarkFlagRequired("file")
}

func runParseType(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(parseTypeFlags.file)
	if err != nil {
		return fmt.Errorf("read %q: %w", parseTypeFlags.file, err)
	}

	pt, err := policytype.Parse(string(data))
	if err != nil {
		return fmt.Errorf("parse-type: %w", err)
	}

	fmt.Println(pt.String())
	fmt.Println()
	fmt.Println("identifiers:")
	for name, id := range pt.Identifiers() {
		fmt.Printf("  %-20s %s\n", name, id)
	}
	return nil
}
