// Copyright (c) 2025, s0up and the aggregarr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package filter

import (
	"fmt"
	"os"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/aggregarr/aggregarr/internal/metainfo"
)

// Factors carries the promotion multipliers of a listing, exposed to
// rule expressions so users can restrict to freeleech releases.
type Factors struct {
	Upload   float64 `json:"upload"`
	Download float64 `json:"download"`
}

// Evaluator scores a parsed release against the active rule set.
// matched=false means the release violates the rules and is rejected;
// priority orders accepted releases, lower is better.
type Evaluator interface {
	Evaluate(parsed *metainfo.ParsedTitle, args *Args, factors Factors) (matched bool, priority int, message string)
}

// RuleConfig is one user-defined quality rule inside a rule set. The
// expressions are expr-lang programs over the release environment; all
// include expressions must hold and no exclude expression may hold.
type RuleConfig struct {
	Name     string   `yaml:"name" json:"name"`
	Priority int      `yaml:"priority" json:"priority"`
	Include  []string `yaml:"include,omitempty" json:"include,omitempty"`
	Exclude  []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// RuleSetConfig is a named, ordered collection of rules. The first rule
// a release satisfies decides its priority.
type RuleSetConfig struct {
	ID    string       `yaml:"id" json:"id"`
	Rules []RuleConfig `yaml:"rules" json:"rules"`
}

// ruleEnv is the expression environment one release is evaluated in.
type ruleEnv struct {
	Title          string  `expr:"title"`
	Name           string  `expr:"name"`
	Year           string  `expr:"year"`
	Type           string  `expr:"type"`
	Pix            string  `expr:"pix"`
	Video          string  `expr:"video"`
	Audio          string  `expr:"audio"`
	Team           string  `expr:"team"`
	Part           string  `expr:"part"`
	UploadFactor   float64 `expr:"upload_factor"`
	DownloadFactor float64 `expr:"download_factor"`
	Free           bool    `expr:"free"`
}

func buildEnv(parsed *metainfo.ParsedTitle, factors Factors) ruleEnv {
	return ruleEnv{
		Title:          strings.ToLower(parsed.Original),
		Name:           strings.ToLower(parsed.Name()),
		Year:           parsed.Year,
		Type:           parsed.Type.String(),
		Pix:            strings.ToLower(parsed.ResourcePix),
		Video:          strings.ToLower(parsed.VideoEncode),
		Audio:          strings.ToLower(parsed.AudioEncode),
		Team:           strings.ToLower(parsed.ResourceTeam),
		Part:           strings.ToLower(parsed.Part),
		UploadFactor:   factors.Upload,
		DownloadFactor: factors.Download,
		Free:           factors.Download == 0,
	}
}

type compiledRule struct {
	name     string
	priority int
	include  []*vm.Program
	exclude  []*vm.Program
}

type compiledSet struct {
	id    string
	rules []compiledRule
}

// ExprEvaluator is the default Evaluator. Rule sets are compiled once
// at construction; evaluation is allocation-light and safe for
// concurrent use.
type ExprEvaluator struct {
	sets map[string]*compiledSet
	log  zerolog.Logger
}

// NewExprEvaluator compiles the given rule sets. A malformed expression
// fails construction rather than silently matching nothing at runtime.
func NewExprEvaluator(configs []RuleSetConfig) (*ExprEvaluator, error) {
	e := &ExprEvaluator{
		sets: make(map[string]*compiledSet, len(configs)),
		log:  log.Logger.With().Str("module", "filter").Logger(),
	}
	for _, cfg := range configs {
		set := &compiledSet{id: cfg.ID}
		for _, rule := range cfg.Rules {
			compiled := compiledRule{name: rule.Name, priority: rule.Priority}
			for _, src := range rule.Include {
				program, err := compileRuleExpr(src)
				if err != nil {
					return nil, fmt.Errorf("rule set %q rule %q: %w", cfg.ID, rule.Name, err)
				}
				compiled.include = append(compiled.include, program)
			}
			for _, src := range rule.Exclude {
				program, err := compileRuleExpr(src)
				if err != nil {
					return nil, fmt.Errorf("rule set %q rule %q: %w", cfg.ID, rule.Name, err)
				}
				compiled.exclude = append(compiled.exclude, program)
			}
			set.rules = append(set.rules, compiled)
		}
		e.sets[cfg.ID] = set
	}
	return e, nil
}

func compileRuleExpr(src string) (*vm.Program, error) {
	return expr.Compile(src, expr.Env(ruleEnv{}), expr.AsBool())
}

// Evaluate implements Evaluator. An empty or unknown rule id accepts
// every release at priority 0, so searches without a configured rule
// set degrade to unfiltered aggregation.
func (e *ExprEvaluator) Evaluate(parsed *metainfo.ParsedTitle, args *Args, factors Factors) (bool, int, string) {
	var ruleID string
	if args != nil {
		ruleID = args.RuleID
	}
	if ruleID == "" {
		return true, 0, ""
	}
	set, ok := e.sets[ruleID]
	if !ok {
		e.log.Warn().Str("ruleId", ruleID).Msg("unknown filter rule set, accepting")
		return true, 0, ""
	}

	env := buildEnv(parsed, factors)
	for _, rule := range set.rules {
		matched, err := e.ruleMatches(rule, env)
		if err != nil {
			e.log.Error().Err(err).Str("ruleId", ruleID).Str("rule", rule.name).Msg("rule evaluation failed")
			continue
		}
		if matched {
			return true, rule.priority, rule.name
		}
	}
	return false, 0, fmt.Sprintf("no rule in set %q matched", ruleID)
}

func (e *ExprEvaluator) ruleMatches(rule compiledRule, env ruleEnv) (bool, error) {
	for _, program := range rule.include {
		out, err := expr.Run(program, env)
		if err != nil {
			return false, err
		}
		if ok, _ := out.(bool); !ok {
			return false, nil
		}
	}
	for _, program := range rule.exclude {
		out, err := expr.Run(program, env)
		if err != nil {
			return false, err
		}
		if ok, _ := out.(bool); ok {
			return false, nil
		}
	}
	return true, nil
}

// LoadRuleSets reads rule sets from a YAML file. A missing or empty
// path yields the built-in defaults.
func LoadRuleSets(path string) ([]RuleSetConfig, error) {
	if path == "" {
		return DefaultRuleSets(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultRuleSets(), nil
		}
		return nil, fmt.Errorf("read rule sets: %w", err)
	}

	var configs []RuleSetConfig
	if err := yaml.Unmarshal(data, &configs); err != nil {
		return nil, fmt.Errorf("parse rule sets: %w", err)
	}
	if len(configs) == 0 {
		return DefaultRuleSets(), nil
	}
	return configs, nil
}

// DefaultRuleSets returns the built-in quality ladder used when the
// config file carries none of its own.
func DefaultRuleSets() []RuleSetConfig {
	return []RuleSetConfig{
		{
			ID: "quality",
			Rules: []RuleConfig{
				{Name: "remux-2160p", Priority: 1, Include: []string{`pix == "2160p"`, `title contains "remux"`}},
				{Name: "web-2160p", Priority: 2, Include: []string{`pix == "2160p"`}, Exclude: []string{`title contains "hdtv"`}},
				{Name: "remux-1080p", Priority: 3, Include: []string{`pix == "1080p"`, `title contains "remux"`}},
				{Name: "web-1080p", Priority: 4, Include: []string{`pix == "1080p"`}},
				{Name: "any-720p", Priority: 5, Include: []string{`pix == "720p"`}},
			},
		},
		{
			ID: "freeleech",
			Rules: []RuleConfig{
				{Name: "free-only", Priority: 1, Include: []string{`free`}},
			},
		},
	}
}
