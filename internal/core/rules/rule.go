// Package rules turns declarative YAML fold rules into an accumulator.
//
// A rule watches one event type and keeps a running count, sum, min or max of
// a numeric payload field. The rule set of a deployment is the state shape the
// HTTP projection folds aggregates into.
package rules

import (
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule defines a single fold rule.
// Rules are loaded at startup from YAML files and fingerprinted so clients can
// tell when the definition behind a value changed.
type Rule struct {
	Name        string `yaml:"name"`
	SourceEvent string `yaml:"source_event"`
	Operator    string `yaml:"operator"` // count, sum, min, max
	Field       string `yaml:"field"`    // event data field to fold; empty for count
	Fingerprint string `yaml:"-"`        // SHA-256 of the raw YAML file; computed at load time
}

// Validate checks a rule definition.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule name must not be empty")
	}
	if r.SourceEvent == "" {
		return fmt.Errorf("rule %q: source_event must not be empty", r.Name)
	}
	op, ok := Operators[r.Operator]
	if !ok {
		return fmt.Errorf("rule %q: unsupported operator %q", r.Name, r.Operator)
	}
	if op.NeedsField() && r.Field == "" {
		return fmt.Errorf("rule %q: operator %q requires field", r.Name, r.Operator)
	}
	return nil
}

// FileSystemRepository loads rules from *.yaml files in a directory.
// Each file contains exactly one rule at the top level. Rules are loaded once at
// startup and cached in memory; there is no hot reload.
type FileSystemRepository struct {
	dir   string
	rules map[string]Rule // keyed by Name
}

// NewFileSystemRepository creates a new repository and eagerly loads all rules
// from dir. Returns an error if any rule file is malformed or invalid.
func NewFileSystemRepository(dir string) (*FileSystemRepository, error) {
	repo := &FileSystemRepository{
		dir:   dir,
		rules: make(map[string]Rule),
	}
	if err := repo.load(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *FileSystemRepository) load() error {
	info, err := os.Stat(r.dir)
	if os.IsNotExist(err) {
		return nil // no rules directory: valid, zero rules configured
	}
	if err != nil {
		return fmt.Errorf("rule dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("rule path %q is not a directory", r.dir)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading rule dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(r.dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading rule file %s: %w", path, err)
		}

		var rule Rule
		if err := yaml.Unmarshal(data, &rule); err != nil {
			return fmt.Errorf("parsing rule file %s: %w", path, err)
		}
		if rule.Name == "" {
			continue // skip empty / comment-only files
		}
		if err := rule.Validate(); err != nil {
			return err
		}

		if _, exists := r.rules[rule.Name]; exists {
			return fmt.Errorf("rule %q: duplicate rule name (check multiple YAML files)", rule.Name)
		}

		rule.Fingerprint = fmt.Sprintf("%x", sha256.Sum256(data))
		r.rules[rule.Name] = rule
	}
	return nil
}

// GetRules returns all rules sorted by name.
func (r *FileSystemRepository) GetRules() []Rule {
	rules := make([]Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })
	return rules
}
