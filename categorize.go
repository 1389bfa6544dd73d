package florin

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/goliatone/go-florin/core"
)

// RuleField values a category rule may target. An empty field matches
// against both.
const (
	RuleFieldDescription = "description"
	RuleFieldMerchant    = "merchant"
)

// Categorizer assigns categories to transaction text from ordered pattern
// rules. Rules compile once at construction; lower priority wins when
// several rules match.
type Categorizer struct {
	rules    []compiledRule
	fallback string
}

type compiledRule struct {
	rule    core.CategoryRule
	pattern *regexp.Regexp
}

// CategorizerOption adjusts categorizer construction.
type CategorizerOption func(*Categorizer)

// WithFallbackCategory sets the category returned when no rule matches.
func WithFallbackCategory(category string) CategorizerOption {
	return func(c *Categorizer) {
		c.fallback = strings.TrimSpace(category)
	}
}

// NewCategorizer compiles rules into a matcher. Patterns are regular
// expressions, matched case-insensitively. Rules with an empty pattern or
// category are rejected.
func NewCategorizer(rules []core.CategoryRule, options ...CategorizerOption) (*Categorizer, error) {
	categorizer := &Categorizer{}
	for _, option := range options {
		if option != nil {
			option(categorizer)
		}
	}

	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		if strings.TrimSpace(rule.Pattern) == "" {
			return nil, fmt.Errorf("florin: category rule %q has no pattern", rule.ID)
		}
		if strings.TrimSpace(rule.Category) == "" {
			return nil, fmt.Errorf("florin: category rule %q has no category", rule.ID)
		}
		switch strings.ToLower(strings.TrimSpace(rule.Field)) {
		case "", RuleFieldDescription, RuleFieldMerchant:
		default:
			return nil, fmt.Errorf("florin: category rule %q targets unknown field %q", rule.ID, rule.Field)
		}
		pattern, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return nil, fmt.Errorf("florin: category rule %q: %w", rule.ID, err)
		}
		compiled = append(compiled, compiledRule{rule: rule, pattern: pattern})
	}
	if len(compiled) == 0 && categorizer.fallback == "" {
		return nil, errors.New("florin: categorizer requires rules or a fallback category")
	}

	sort.SliceStable(compiled, func(i, j int) bool {
		return compiled[i].rule.Priority < compiled[j].rule.Priority
	})
	categorizer.rules = compiled
	return categorizer, nil
}

// Match returns the category of the first rule, in priority order, whose
// pattern matches the targeted field. When no rule matches it falls back
// to the configured fallback category, if any.
func (c *Categorizer) Match(description string, merchant string) (string, bool) {
	if c == nil {
		return "", false
	}
	for _, candidate := range c.rules {
		if candidate.matches(description, merchant) {
			return candidate.rule.Category, true
		}
	}
	if c.fallback != "" {
		return c.fallback, true
	}
	return "", false
}

// Categorize matches a transaction's own text fields.
func (c *Categorizer) Categorize(tx core.Transaction) (string, bool) {
	return c.Match(tx.Description, tx.Merchant)
}

// Rules returns the compiled rules in evaluation order.
func (c *Categorizer) Rules() []core.CategoryRule {
	if c == nil {
		return nil
	}
	rules := make([]core.CategoryRule, 0, len(c.rules))
	for _, candidate := range c.rules {
		rules = append(rules, candidate.rule)
	}
	return rules
}

func (r compiledRule) matches(description string, merchant string) bool {
	switch strings.ToLower(strings.TrimSpace(r.rule.Field)) {
	case RuleFieldDescription:
		return r.pattern.MatchString(description)
	case RuleFieldMerchant:
		return r.pattern.MatchString(merchant)
	default:
		return r.pattern.MatchString(description) || r.pattern.MatchString(merchant)
	}
}
