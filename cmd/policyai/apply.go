package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/policyai/core/llm"
	"github.com/policyai/core/model"
	"github.com/policyai/core/policy"
	"github.com/policyai/core/policytype"
	"github.com/policyai/core/store"
	"github.com/spf13/cobra"
)

var applyFlags struct {
	typeFile       string
	policies       string
	glob           string
	registryFile   string
	input          string
	timeout        time.Duration
	failOnConflict bool
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a policy store's policies against one input",
	Long: `Load a PolicyType and its JSONL policy store, ask the LLM which policies
match the given input, and print the merged, conflict-resolved Report as JSON.
--input accepts either literal text or a path to a file containing it.

Examples:
  policyai apply --type emailpolicy.pt --policies policies.jsonl \
      --input "Fantasy league standings are out"`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)
	applyCmd.Flags().StringVar(&applyFlags.typeFile, "type", "", "path to the PolicyType DSL file")
	applyCmd.Flags().StringVar(&applyFlags.policies, "policies", "", "path to the JSONL policy store or directory")
	applyCmd.Flags().StringVar(&applyFlags.glob, "glob", "*.jsonl", "glob matched under --policies when it is a directory")
	applyCmd.Flags().StringVar(&applyFlags.registryFile, "registry", "", "path to a model endpoint registry JSON file")
	applyCmd.Flags().StringVarP(&applyFlags.input, "input", "i", "", "free-text input, or a path to a file containing it")
	applyCmd.Flags().DurationVar(&applyFlags.timeout, "timeout", 30*time.Second, "deadline for the apply call")
	applyCmd.Flags().BoolVar(&applyFlags.failOnConflict, "fail-on-conflict", false, "return a nonzero exit status on an unresolved Agreement conflict")
	_ = applyCmd.MarkFlagRequired("type")
	_ = applyCmd.MarkFlagRequired("policies")
	_ = applyCmd.MarkFlagRequired("input")
}

func runApply(cmd *cobra.Command, args []string) error {
	_, manager, err := loadTypeAndManager(applyFlags.typeFile, applyFlags.policies, applyFlags.glob)
	if err != nil {
		return err
	}

	registry, err := loadRegistry(applyFlags.registryFile)
	if err != nil {
		return err
	}
	client := llm.NewClient(registry)

	input := applyFlags.input
	if data, err := os.ReadFile(input); err == nil {
		input = string(data)
	}

	ctx, cancel := context.WithTimeout(context.Background(), applyFlags.timeout)
	defer cancel()

	report, err := manager.Apply(ctx, client, input, policy.ApplyOptions{
		FailOnConflict: applyFlags.failOnConflict,
	})
	if err != nil {
		return fmt.Errorf("apply: %w", err)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// loadTypeAndManager parses the PolicyType DSL file and loads storePath
// (a single JSONL file or a directory matched by glob) into a fresh
// Manager over it.
func loadTypeAndManager(typeFile, storePath, glob string) (*policytype.PolicyType, *policy.Manager, error) {
	typeData, err := os.ReadFile(typeFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read %q: %w", typeFile, err)
	}
	pt, err := policytype.Parse(string(typeData))
	if err != nil {
		return nil, nil, fmt.Errorf("parse-type: %w", err)
	}

	manager := policy.NewManager(pt)

	dir, pattern := storePath, glob
	if info, err := os.Stat(storePath); err == nil && !info.IsDir() {
		dir, pattern = filepath.Split(storePath)
		if dir == "" {
			dir = "."
		}
	}

	s := store.New(dir, pattern, pt, manager, slog.Default())
	if _, err := s.Load(); err != nil {
		return nil, nil, fmt.Errorf("load store %q: %w", storePath, err)
	}
	return pt, manager, nil
}

func loadRegistry(path string) (*model.Registry, error) {
	if path == "" {
		return model.NewDefaultRegistry(), nil
	}
	return model.LoadFromFile(path)
}
