// PolicyAI turns declared PolicyType schemas and natural-language policy
// prompts into a merged, conflict-resolved action against free-text input.
//
// Usage:
//
//	# Validate a PolicyType DSL file
//	policyai parse-type --file emailpolicy.pt
//
//	# Append a policy line to a JSONL store
//	policyai add-policy --type emailpolicy.pt --policies policies.jsonl \
//	    --prompt "about football" --action '{"unread": false}'
//
//	# Apply a store's policies against one input
//	policyai apply --type emailpolicy.pt --policies policies.jsonl \
//	    --input "Fantasy league standings are out"
//
//	# Serve apply requests over HTTP, hot-reloading the store
//	policyai serve --type emailpolicy.pt --config policyai.yaml
package main

import (
	// Registers the anthropic, ollama, and openai providers with the llm
	// package's provider registry.
	_ "github.com/policyai/core/llm/providers"
)

func main() {
	Execute()
}
