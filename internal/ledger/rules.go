package ledger

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Rule is one token-bucket constraint: at most Limit calls per Interval.
type Rule struct {
	Limit    int
	Interval time.Duration
}

// DefaultKey is the catch-all ruleset for backends with no entry of their own.
const DefaultKey = "default"

// defaultRules is the built-in budget table, keyed by physical backend key.
// Values mirror the documented quotas of the upstreams, with headroom.
func defaultRules() map[string][]Rule {
	return map[string][]Rule{
		"adzuna":         {{Limit: 25, Interval: time.Minute}, {Limit: 250, Interval: 24 * time.Hour}},
		"authentic_jobs": {{Limit: 100, Interval: time.Hour}},
		"usajobs":        {{Limit: 50, Interval: time.Minute}},
		"indeed":         {{Limit: 100, Interval: 24 * time.Hour}},
		"remoteok":       {{Limit: 60, Interval: time.Hour}},
		"weworkremotely": {{Limit: 60, Interval: time.Hour}},
		"email":          {{Limit: 30, Interval: time.Hour}},
		DefaultKey:       {{Limit: 100, Interval: time.Hour}},
	}
}

// rawRule is the override document shape: interval is in seconds, so the
// same file works as YAML or JSON, e.g. {"adzuna":[{"limit":200,"interval":60}]}.
type rawRule struct {
	Limit    int `yaml:"limit" json:"limit"`
	Interval int `yaml:"interval" json:"interval"`
}

// LoadRules returns the effective ruleset: built-in defaults overlaid with
// the optional override document at path. A malformed or out-of-range entry
// is skipped with a warning and that backend keeps its default; a bad config
// value never takes the process down.
func LoadRules(path string) map[string][]Rule {
	rules := defaultRules()
	if path == "" {
		return rules
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Printf("[ledger] rate override file %s unreadable: %v (using defaults)", path, err)
		}
		return rules
	}

	// Decode per entry so one bad value doesn't reject its neighbors.
	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		log.Printf("[ledger] rate override file %s not a mapping: %v (using defaults)", path, err)
		return rules
	}

	for key, node := range doc {
		parsed, err := parseOverride(key, node)
		if err != nil {
			log.Printf("[ledger] ignoring rate override for %q: %v", key, err)
			continue
		}
		rules[key] = parsed
	}
	return rules
}

func parseOverride(key string, node yaml.Node) ([]Rule, error) {
	var raws []rawRule
	if err := node.Decode(&raws); err != nil {
		return nil, fmt.Errorf("wrong shape: %w", err)
	}
	if len(raws) == 0 {
		return nil, fmt.Errorf("empty rule list")
	}

	out := make([]Rule, 0, len(raws))
	for i, r := range raws {
		if r.Limit <= 0 {
			return nil, fmt.Errorf("rule %d: limit must be positive, got %d", i, r.Limit)
		}
		if r.Interval <= 0 {
			return nil, fmt.Errorf("rule %d: interval must be positive seconds, got %d", i, r.Interval)
		}
		out = append(out, Rule{Limit: r.Limit, Interval: time.Duration(r.Interval) * time.Second})
	}
	return out, nil
}

// rulesFor picks the backend's ruleset, falling back to the catch-all.
func rulesFor(rules map[string][]Rule, backendKey string) []Rule {
	if rs, ok := rules[backendKey]; ok {
		return rs
	}
	return rules[DefaultKey]
}
