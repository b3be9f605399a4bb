package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ScoringPolicy holds the point deltas applied to the score ledger for each
// lead outcome. Values are tunable per deployment; an expiry must always
// cost strictly more than an explicit rejection.
type ScoringPolicy struct {
	AcceptPoints int `yaml:"acceptPoints"`
	RejectPoints int `yaml:"rejectPoints"`
	ExpirePoints int `yaml:"expirePoints"`
	// MaxActiveLeads caps simultaneous reservations per agent. 0 = no cap.
	MaxActiveLeads int `yaml:"maxActiveLeads"`
}

// DefaultScoringPolicy returns the built-in point deltas used when no policy
// file is configured.
func DefaultScoringPolicy() ScoringPolicy {
	return ScoringPolicy{
		AcceptPoints:   10,
		RejectPoints:   -2,
		ExpirePoints:   -5,
		MaxActiveLeads: 0,
	}
}

// Validate checks the policy invariants.
func (p ScoringPolicy) Validate() error {
	if p.AcceptPoints <= 0 {
		return fmt.Errorf("scoring policy: acceptPoints must be positive")
	}
	if p.RejectPoints > 0 || p.ExpirePoints > 0 {
		return fmt.Errorf("scoring policy: reject/expire points must not be positive")
	}
	if p.ExpirePoints >= p.RejectPoints {
		return fmt.Errorf("scoring policy: expirePoints must be a larger penalty than rejectPoints")
	}
	if p.MaxActiveLeads < 0 {
		return fmt.Errorf("scoring policy: maxActiveLeads must not be negative")
	}
	return nil
}

// loadScoringPolicy reads the YAML policy file when configured, falling back
// to the built-in defaults otherwise. Fields absent from the file keep their
// default values.
func loadScoringPolicy(path string) (ScoringPolicy, error) {
	policy := DefaultScoringPolicy()
	if path == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ScoringPolicy{}, fmt.Errorf("scoring policy file: %w", err)
	}

	if err := yaml.Unmarshal(data, &policy); err != nil {
		return ScoringPolicy{}, fmt.Errorf("scoring policy file: %w", err)
	}

	return policy, nil
}
