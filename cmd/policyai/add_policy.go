package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/policyai/core/action"
	"github.com/policyai/core/generation"
	"github.com/policyai/core/llm"
	"github.com/policyai/core/policy"
	"github.com/policyai/core/policytype"
	"github.com/spf13/cobra"
)

var addPolicyFlags struct {
	typeFile     string
	policies     string
	prompt       string
	action       string
	injection    string
	registryFile string
	timeout      time.Duration
}

var addPolicyCmd = &cobra.Command{
	Use:   "add-policy",
	Short: "Validate and append a policy to a JSONL store",
	Long: `Append one policy to the JSONL store consumed by "apply" and "serve".

Supply --prompt and --action directly, or --injection to have the LLM derive
both via generation.WithSemanticInjection from a natural-language
description of the desired behavior.

Examples:
  policyai add-policy --type emailpolicy.pt --policies policies.jsonl \
      --prompt "about football" --action '{"unread": false}'

  policyai add-policy --type emailpolicy.pt --policies policies.jsonl \
      --injection "mark unread messages about football as read"`,
	RunE: runAddPolicy,
}

func init() {
	rootCmd.AddCommand(addPolicyCmd)
	addPolicyCmd.Flags().StringVar(&addPolicyFlags.typeFile, "type", "", "path to the PolicyType DSL file")
	addPolicyCmd.Flags().StringVar(&addPolicyFlags.policies, "policies", "", "path to the JSONL policy store")
	addPolicyCmd.Flags().StringVarP(&addPolicyFlags.prompt, "prompt", "p", "", "natural-language match condition")
	addPolicyCmd.Flags().StringVarP(&addPolicyFlags.action, "action", "a", "", "JSON object mapping field names to values")
	addPolicyCmd.Flags().StringVar(&addPolicyFlags.injection, "injection", "", "natural-language description; generates prompt+action via the LLM instead of --prompt/--action")
	addPolicyCmd.Flags().StringVar(&addPolicyFlags.registryFile, "registry", "", "path to a model endpoint registry JSON file (used with --injection)")
	addPolicyCmd.Flags().DurationVar(&addPolicyFlags.timeout, "timeout", 30*time.Second, "deadline for the generation call (used with --injection)")
	_ = addPolicyCmd.MarkFlagRequired("type")
	_ = addPolicyCmd.MarkFlagRequired("policies")
}

// policyLine is the JSONL record shape store.Store reads: one PolicyType
// per file, so the type itself is not repeated on every line.
type policyLine struct {
	Prompt string        `json:"prompt"`
	Action action.Action `json:"action"`
}

func runAddPolicy(cmd *cobra.Command, args []string) error {
	typeData, err := os.ReadFile(addPolicyFlags.typeFile)
	if err != nil {
		return fmt.Errorf("read %q: %w", addPolicyFlags.typeFile, err)
	}
	pt, err := policytype.Parse(string(typeData))
	if err != nil {
		return fmt.Errorf("parse-type: %w", err)
	}

	var prompt string
	var act action.Action

	switch {
	case addPolicyFlags.injection != "":
		registry, err := loadRegistry(addPolicyFlags.registryFile)
		if err != nil {
			return err
		}
		client := llm.NewClient(registry)

		ctx, cancel := context.WithTimeout(context.Background(), addPolicyFlags.timeout)
		defer cancel()

		p, err := generation.WithSemanticInjection(ctx, client, pt, addPolicyFlags.injection)
		if err != nil {
			return fmt.Errorf("add-policy: %w", err)
		}
		prompt, act = p.Prompt, p.Action

	case addPolicyFlags.prompt != "" && addPolicyFlags.action != "":
		if err := json.Unmarshal([]byte(addPolicyFlags.action), &act); err != nil {
			return fmt.Errorf("parse --action: %w", err)
		}
		if _, err := policy.New(pt, addPolicyFlags.prompt, act); err != nil {
			return fmt.Errorf("add-policy: %w", err)
		}
		prompt = addPolicyFlags.prompt

	default:
		return fmt.Errorf("add-policy: either --injection or both --prompt and --action are required")
	}

	line, err := json.Marshal(policyLine{Prompt: prompt, Action: act})
	if err != nil {
		return fmt.Errorf("encode policy line: %w", err)
	}

	f, err := os.OpenFile(addPolicyFlags.policies, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open store %q: %w", addPolicyFlags.policies, err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write to store %q: %w", addPolicyFlags.policies, err)
	}

	fmt.Printf("added policy to %s\n", addPolicyFlags.policies)
	return nil
}
