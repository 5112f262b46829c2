// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package metainfo

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// LexicalRules rewrites a raw title before parsing and reports which
// rules fired. Implementations must be safe for concurrent use.
type LexicalRules interface {
	Apply(text string) (string, []AppliedRule)
}

// AppliedRule is one fired rewrite, kept on ParsedTitle for auditing.
type AppliedRule struct {
	Name          string
	EpisodeOffset int
}

// WordRule is a single user-maintained rewrite entry.
//
//   - ignore: drop the matched text entirely
//   - replace: substitute the matched text
//   - offset: shift parsed episode numbers when the rule matches,
//     used for sources that number episodes across seasons
type WordRule struct {
	Name    string `yaml:"name"`
	Match   string `yaml:"match"`
	Replace string `yaml:"replace"`
	Ignore  bool   `yaml:"ignore"`
	Offset  int    `yaml:"offset"`
	Regex   bool   `yaml:"regex"`
}

type compiledRule struct {
	rule WordRule
	re   *regexp.Regexp
}

// WordTable is the default LexicalRules implementation: a built-in
// denylist of tracker boilerplate plus user rules loaded from YAML.
type WordTable struct {
	rules []compiledRule
}

// Boilerplate that appears in release titles from CJK trackers but never
// belongs to the media name.
var builtinIgnores = []string{
	`(?i)www\.[^\s\[\]]+\.(?:com|net|org|me|cc|vip)`,
	`(?i)\b(?:mp4ba|bt天堂|电影天堂|阳光电影)\b`,
	`【?(?:更多|首发|限时|禁转|自购|压制)[^【】\[\]]*】?`,
	`(?i)\[?独家(?:字幕|压制)?\]?`,
}

// NewWordTable compiles the built-in denylist plus the supplied rules.
func NewWordTable(rules []WordRule) (*WordTable, error) {
	t := &WordTable{}

	for i, pattern := range builtinIgnores {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("builtin ignore %d: %w", i, err)
		}
		t.rules = append(t.rules, compiledRule{
			rule: WordRule{Name: fmt.Sprintf("builtin-%d", i), Ignore: true},
			re:   re,
		})
	}

	for _, rule := range rules {
		if rule.Match == "" {
			continue
		}
		pattern := rule.Match
		if !rule.Regex {
			pattern = regexp.QuoteMeta(pattern)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.Name, err)
		}
		if rule.Name == "" {
			rule.Name = rule.Match
		}
		t.rules = append(t.rules, compiledRule{rule: rule, re: re})
	}

	return t, nil
}

// LoadWordTable reads user rules from a YAML file. A missing file yields
// a table with only the built-in denylist.
func LoadWordTable(path string) (*WordTable, error) {
	if path == "" {
		return NewWordTable(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewWordTable(nil)
		}
		return nil, fmt.Errorf("read word table: %w", err)
	}

	var rules []WordRule
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse word table: %w", err)
	}

	return NewWordTable(rules)
}

func (t *WordTable) Apply(text string) (string, []AppliedRule) {
	var fired []AppliedRule

	for _, cr := range t.rules {
		if !cr.re.MatchString(text) {
			continue
		}
		switch {
		case cr.rule.Ignore:
			text = cr.re.ReplaceAllString(text, " ")
		case cr.rule.Replace != "" || cr.rule.Regex:
			text = cr.re.ReplaceAllString(text, cr.rule.Replace)
		}
		fired = append(fired, AppliedRule{
			Name:          cr.rule.Name,
			EpisodeOffset: cr.rule.Offset,
		})
	}

	text = strings.TrimSpace(strings.Join(strings.Fields(text), " "))
	return text, fired
}
