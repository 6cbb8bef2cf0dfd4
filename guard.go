package showrunner

import (
	"fmt"
	"regexp"
	"strings"

	"showrunner/experiment"
)

// Rule represents a single filtering rule in the guard system.
// It contains a compiled regular expression and the type of matching to perform.
type Rule struct {
	Pattern   *regexp.Regexp // Compiled regular expression pattern
	MatchType string         // Type of matching: "key" or "value"
}

// Guard represents the inclusion/exclusion rules and default behavior for
// gating config overrides before they reach the driver. It manages sets of
// rules and determines whether an override should be forwarded based on its
// dotted key or raw value.
type Guard struct {
	IncludeRules map[string]Rule // Map of inclusion rules, key format: "pattern|matchType"
	ExcludeRules map[string]Rule // Map of exclusion rules, key format: "pattern|matchType"
	DefaultAllow bool            // Default behavior for overrides not matching any rule
}

// NewGuard creates a new Guard with the specified default behavior.
//
// Parameters:
//   - defaultAllow: Whether to allow overrides that don't match any rules
//
// Returns:
//   - *Guard: New guard instance with empty rule sets
func NewGuard(defaultAllow bool) *Guard {
	return &Guard{
		IncludeRules: make(map[string]Rule),
		ExcludeRules: make(map[string]Rule),
		DefaultAllow: defaultAllow,
	}
}

// MatchesString determines if a given string is allowed based on matchType
func (g *Guard) MatchesString(input string, matchType string) bool {
	matchType = strings.ToLower(matchType)

	// Validate matchType
	if matchType != "key" && matchType != "value" {
		return g.DefaultAllow
	}

	target := input

	// Check exclusion rules first
	for _, rule := range g.ExcludeRules {
		if rule.MatchType != matchType {
			continue
		}
		if rule.Pattern.MatchString(target) {
			return false // Denied by exclude rule
		}
	}

	// Check inclusion rules
	for _, rule := range g.IncludeRules {
		if rule.MatchType != matchType {
			continue
		}
		if rule.Pattern.MatchString(target) {
			return true // Allowed by include rule
		}
	}

	// Default behavior
	return g.DefaultAllow
}

// ClearRules clears all inclusion and exclusion rules from the guard
func (g *Guard) ClearRules() {
	g.IncludeRules = make(map[string]Rule)
	g.ExcludeRules = make(map[string]Rule)
}

// AddRule adds a rule to the guard
func (g *Guard) AddRule(pattern, matchType string, exclude bool) error {
	matchType = strings.ToLower(matchType)
	if matchType != "key" && matchType != "value" {
		return fmt.Errorf("invalid match type: %s", matchType)
	}

	trimmedPattern := strings.TrimPrefix(pattern, "-")
	compiled, err := regexp.Compile(trimmedPattern)
	if err != nil {
		return fmt.Errorf("invalid regex pattern: %w", err)
	}
	rule := Rule{
		Pattern:   compiled,
		MatchType: matchType,
	}
	key := fmt.Sprintf("%s|%s", compiled.String(), matchType)

	if exclude {
		if _, exists := g.ExcludeRules[key]; exists {
			return fmt.Errorf("rule already exists in exclude list")
		}
		g.ExcludeRules[key] = rule
	} else {
		if _, exists := g.IncludeRules[key]; exists {
			return fmt.Errorf("rule already exists in include list")
		}
		g.IncludeRules[key] = rule
	}

	return nil
}

// RemoveRule removes a rule from the guard
func (g *Guard) RemoveRule(pattern, matchType string, exclude bool) error {
	matchType = strings.ToLower(matchType)
	key := fmt.Sprintf("%s|%s", strings.TrimPrefix(pattern, "-"), matchType)

	if exclude {
		if _, exists := g.ExcludeRules[key]; !exists {
			return fmt.Errorf("rule not found in exclude list")
		}
		delete(g.ExcludeRules, key)
	} else {
		if _, exists := g.IncludeRules[key]; !exists {
			return fmt.Errorf("rule not found in include list")
		}
		delete(g.IncludeRules, key)
	}

	return nil
}

// Allows determines if a single override may be forwarded to the driver.
// Exclusion rules on either the key or the value deny the override; inclusion
// rules on either allow it; otherwise the default applies.
func (g *Guard) Allows(key, value string) bool {
	// Check exclusion rules first
	for _, rule := range g.ExcludeRules {
		var target string
		switch rule.MatchType {
		case "key":
			target = key
		case "value":
			target = value
		default:
			continue // Skip unknown match types
		}
		if rule.Pattern.MatchString(target) {
			return false // Denied by exclude rule
		}
	}

	// Check inclusion rules
	for _, rule := range g.IncludeRules {
		var target string
		switch rule.MatchType {
		case "key":
			target = key
		case "value":
			target = value
		default:
			continue // Skip unknown match types
		}
		if rule.Pattern.MatchString(target) {
			return true // Allowed by include rule
		}
	}

	// Default behavior
	return g.DefaultAllow
}

// Check runs every override through the guard and returns the first one that
// is denied.
func (g *Guard) Check(overrides []experiment.Override) error {
	for _, override := range overrides {
		if !g.Allows(override.Key, override.Value) {
			return fmt.Errorf("override %s is blocked by the guard", override.Key)
		}
	}
	return nil
}
