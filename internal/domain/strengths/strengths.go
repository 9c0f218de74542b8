// Package strengths holds the fixed CliftonStrengths vocabulary and its four domains.
package strengths

import (
	"fmt"
	"math"
	"strings"
)

// MaxTop is the number of signature themes a person reports.
const MaxTop = 5

// Domain groups themes into one of the four leadership domains.
type Domain string

const (
	DomainExecuting            Domain = "Executing"
	DomainInfluencing          Domain = "Influencing"
	DomainRelationshipBuilding Domain = "Relationship Building"
	DomainStrategicThinking    Domain = "Strategic Thinking"
)

// Domains lists the domains in display order.
var Domains = []Domain{
	DomainExecuting,
	DomainInfluencing,
	DomainRelationshipBuilding,
	DomainStrategicThinking,
}

var themesByDomain = map[Domain][]string{
	DomainExecuting:            {"Achiever", "Arranger", "Belief", "Consistency", "Deliberative", "Discipline", "Focus", "Responsibility", "Restorative"},
	DomainInfluencing:          {"Activator", "Command", "Communication", "Competition", "Maximizer", "Self-Assurance", "Significance", "Woo"},
	DomainRelationshipBuilding: {"Adaptability", "Connectedness", "Developer", "Empathy", "Harmony", "Includer", "Individualization", "Positivity", "Relator"},
	DomainStrategicThinking:    {"Analytical", "Context", "Futuristic", "Ideation", "Input", "Intellection", "Learner", "Strategic"},
}

// domainOf maps lower-cased theme names to their domain and canonical spelling.
var domainOf = func() map[string]struct {
	domain Domain
	name   string
} {
	m := make(map[string]struct {
		domain Domain
		name   string
	}, 34)
	for d, names := range themesByDomain {
		for _, n := range names {
			m[strings.ToLower(n)] = struct {
				domain Domain
				name   string
			}{d, n}
		}
	}
	return m
}()

// All returns the 34 themes grouped by domain, in display order.
func All() []string {
	out := make([]string, 0, len(domainOf))
	for _, d := range Domains {
		out = append(out, themesByDomain[d]...)
	}
	return out
}

// Canonical returns the canonical spelling of a theme and whether it is known.
func Canonical(name string) (string, bool) {
	t, ok := domainOf[strings.ToLower(strings.TrimSpace(name))]
	return t.name, ok
}

// IsValid reports whether name is one of the 34 themes (case-insensitive).
func IsValid(name string) bool {
	_, ok := Canonical(name)
	return ok
}

// DomainOf returns the domain of a theme.
func DomainOf(name string) (Domain, bool) {
	t, ok := domainOf[strings.ToLower(strings.TrimSpace(name))]
	return t.domain, ok
}

// Normalize trims, canonicalises known names and drops blanks and duplicates, keeping order.
// Unknown names are kept as trimmed so validation can report them.
func Normalize(list []string) []string {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if c, ok := Canonical(s); ok {
			s = c
		}
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

// ValidateTop checks that list holds between 1 and MaxTop known themes.
func ValidateTop(list []string) error {
	if len(list) == 0 {
		return fmt.Errorf("at least one strength is required")
	}
	if len(list) > MaxTop {
		return fmt.Errorf("at most %d strengths are allowed, got %d", MaxTop, len(list))
	}
	for _, s := range list {
		if !IsValid(s) {
			return fmt.Errorf("unknown strength %q", s)
		}
	}
	return nil
}

// DomainDistribution returns, for every domain, the rounded percentage of distinct themes in
// list that belong to it. Unknown themes are ignored.
func DomainDistribution(list []string) map[Domain]int {
	counts := make(map[Domain]int, len(Domains))
	present := make(map[string]bool)
	for _, s := range list {
		t, ok := domainOf[strings.ToLower(strings.TrimSpace(s))]
		if !ok || present[t.name] {
			continue
		}
		present[t.name] = true
		counts[t.domain]++
	}

	total := len(present)
	out := make(map[Domain]int, len(Domains))
	for _, d := range Domains {
		if total == 0 {
			out[d] = 0
			continue
		}
		out[d] = int(math.Round(float64(counts[d]) / float64(total) * 100))
	}
	return out
}

// FormatDistribution renders a distribution as "Executing: 40%, Influencing: 20%, ...".
func FormatDistribution(dist map[Domain]int) string {
	parts := make([]string, 0, len(Domains))
	for _, d := range Domains {
		parts = append(parts, fmt.Sprintf("%s: %d%%", d, dist[d]))
	}
	return strings.Join(parts, ", ")
}
