package extract

import (
	"fmt"
	"os"
	"strings"

	"github.com/a3tai/hblib/internal/library"
	"gopkg.in/yaml.v3"
)

// PhaseRule maps a set of lower-case title keywords to a phase
type PhaseRule struct {
	Phase    library.Phase `yaml:"phase"`
	Keywords []string      `yaml:"keywords"`
}

// PhaseRules is an ordered keyword table; the first rule with a matching
// keyword wins, so order is the tie-break
type PhaseRules []PhaseRule

// DefaultPhase is assigned when no rule matches
const DefaultPhase = library.PhaseOffense

// DefaultPhaseRules returns the built-in keyword table
func DefaultPhaseRules() PhaseRules {
	return PhaseRules{
		{Phase: library.PhaseWarmUp, Keywords: []string{"einlaufen", "aufwärmen", "warm", "dehnen"}},
		{Phase: library.PhaseCoordination, Keywords: []string{"koordination", "lauf"}},
		{Phase: library.PhaseBallHandling, Keywords: []string{"ballgewöhnung", "ballhandling", "passen"}},
		{Phase: library.PhaseGoalkeeper, Keywords: []string{"torhüter", "torwart", "einwerfen"}},
		{Phase: library.PhaseShootingSeries, Keywords: []string{"wurfserie", "werfen"}},
		{Phase: library.PhaseOffense, Keywords: []string{"angriff", "offensive"}},
		{Phase: library.PhaseDefense, Keywords: []string{"abwehr", "defensive"}},
		{Phase: library.PhaseGame, Keywords: []string{"spiel", "abschluss"}},
	}
}

// Classify returns the phase of a drill title
func (r PhaseRules) Classify(title string) library.Phase {
	lower := strings.ToLower(title)
	for _, rule := range r {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Phase
			}
		}
	}
	return DefaultPhase
}

var knownPhases = map[library.Phase]bool{
	library.PhaseWarmUp:         true,
	library.PhaseCoordination:   true,
	library.PhaseBallHandling:   true,
	library.PhaseGoalkeeper:     true,
	library.PhaseShootingSeries: true,
	library.PhaseOffense:        true,
	library.PhaseDefense:        true,
	library.PhaseGame:           true,
}

type phaseRulesFile struct {
	Phases PhaseRules `yaml:"phases"`
}

// ParsePhaseRules reads a YAML keyword table of the form
//
//	phases:
//	  - phase: Warm-up
//	    keywords: [einlaufen, dehnen]
//
// Rule order is kept exactly as written.
func ParsePhaseRules(data []byte) (PhaseRules, error) {
	var file phaseRulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse phase rules: %w", err)
	}
	if len(file.Phases) == 0 {
		return nil, fmt.Errorf("phase rules: no phases defined")
	}

	rules := make(PhaseRules, 0, len(file.Phases))
	for i, rule := range file.Phases {
		if !knownPhases[rule.Phase] {
			return nil, fmt.Errorf("phase rules: entry %d: unknown phase %q", i+1, rule.Phase)
		}
		if len(rule.Keywords) == 0 {
			return nil, fmt.Errorf("phase rules: entry %d (%s): no keywords", i+1, rule.Phase)
		}
		keywords := make([]string, 0, len(rule.Keywords))
		for _, kw := range rule.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				keywords = append(keywords, kw)
			}
		}
		rules = append(rules, PhaseRule{Phase: rule.Phase, Keywords: keywords})
	}
	return rules, nil
}

// LoadPhaseRules reads a rules file; an empty path yields the defaults
func LoadPhaseRules(path string) (PhaseRules, error) {
	if path == "" {
		return DefaultPhaseRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read phase rules: %w", err)
	}
	return ParsePhaseRules(data)
}
