package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule table file names looked up under RulesDir.
const (
	RulesExtractor = "extractor.yaml"
	RulesAnalyzer  = "analyzer.yaml"
	RulesLanguage  = "language.yaml"
	RulesTemplates = "templates.yaml"
)

// ReadRuleOverride returns the raw YAML of name under dir. The boolean is false
// when no override directory is configured or the file does not exist, in which
// case callers keep their embedded defaults.
func ReadRuleOverride(dir, name string) ([]byte, bool, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, false, nil
	}
	absPath, err := filepath.Abs(filepath.Join(dir, filepath.Base(name)))
	if err != nil {
		return nil, false, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return nil, false, nil
	}
	// #nosec G304 -- rule files come from operator-controlled configuration
	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read rule file: %w", err)
	}
	// Reject files that are not YAML before handing them to a parser that
	// expects a specific schema.
	var doc map[string]any
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, false, fmt.Errorf("failed to parse YAML %s: %w", name, err)
	}
	return content, true, nil
}
