// Package store loads policies from JSONL files on disk and feeds a
// policy.Manager, optionally watching the source directory for changes
// so a running process picks up edits without a restart. This
// serializes policies as newline-delimited JSON, one PolicyType's rules
// per file, and is the module's own consumer of that on-disk format.
package store

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/policyai/core/action"
	"github.com/policyai/core/policy"
	"github.com/policyai/core/policytype"
)

// Store loads *.jsonl policy files matching a glob under a directory
// into a policy.Manager bound to a fixed PolicyType.
type Store struct {
	dir     string
	glob    string
	typeRef *policytype.PolicyType
	manager *policy.Manager
	logger  *slog.Logger
}

// New creates a Store that loads policies over typeRef into manager.
// glob is matched relative to dir using doublestar (so "**/*.jsonl"
// recurses); manager and typeRef must agree (manager.TypeRef() ==
// typeRef) or Load will fail every record.
func New(dir, glob string, typeRef *policytype.PolicyType, manager *policy.Manager, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{dir: dir, glob: glob, typeRef: typeRef, manager: manager, logger: logger}
}

// policyRecord is the on-disk shape of one JSONL line. It intentionally
// ignores the embedded "type" field of Policy's wire schema: a JSONL
// file holds policies for exactly one PolicyType, supplied
// out of band as the Store's typeRef, so re-parsing and re-minting a
// PolicyType per line would only produce identifiers the Manager's
// canonical type doesn't share.
type policyRecord struct {
	Prompt string        `json:"prompt"`
	Action action.Action `json:"action"`
}

// Load reads every file matching the Store's glob and adds their
// policies to the Manager. It returns the number of policies loaded and
// the first error encountered, but keeps loading remaining files after
// a single bad line so one malformed record doesn't block the rest.
func (s *Store) Load() (int, error) {
	pattern := filepath.Join(s.dir, s.glob)
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return 0, fmt.Errorf("store: glob %q: %w", pattern, err)
	}

	total := 0
	var firstErr error
	for _, path := range paths {
		n, err := s.loadFile(path)
		total += n
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return total, firstErr
}

func (s *Store) loadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("store: open %q: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	loaded := 0
	line := 0
	var firstErr error
	for scanner.Scan() {
		line++
		text := scanner.Text()
		if text == "" {
			continue
		}

		var rec policyRecord
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			s.logger.Warn("store: skipping malformed line", "path", path, "line", line, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s:%d: %w", path, line, err)
			}
			continue
		}

		p, err := policy.New(s.typeRef, rec.Prompt, rec.Action)
		if err != nil {
			s.logger.Warn("store: skipping invalid policy", "path", path, "line", line, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s:%d: %w", path, line, err)
			}
			continue
		}

		if err := s.manager.Add(p); err != nil {
			return loaded, fmt.Errorf("store: adding policy from %s:%d: %w", path, line, err)
		}
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return loaded, fmt.Errorf("store: scanning %q: %w", path, err)
	}
	return loaded, firstErr
}
