package critic

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Policy is the safety configuration the critic evaluates against. It is
// loaded once at startup and treated as immutable for the process
// lifetime; the critic re-reads nothing per request.
type Policy struct {
	EmergencyKeywords []string `toml:"emergency_keywords"`
	BlockedPhrases    []string `toml:"blocked_phrases"`
	Disclaimer        string   `toml:"disclaimer"`
	EmergencyBanner   string   `toml:"emergency_banner"`
	CitationRequired  bool     `toml:"citation_required"`
}

// DefaultPolicy returns the built-in safety policy. The keyword sets err
// on the side of matching too much: a false positive blocks or banners a
// benign answer, which is the accepted safer failure mode.
func DefaultPolicy() Policy {
	return Policy{
		EmergencyKeywords: []string{
			"unconscious", "unconsciousness", "not breathing", "no pulse",
			"chest pain", "heart attack", "cardiac arrest", "stroke",
			"severe bleeding", "hemorrhage", "anaphylaxis", "allergic reaction",
			"suicide", "suicidal", "overdose", "poisoning", "electric shock",
			"electrocution", "choking", "airway obstruction", "seizure",
			"head injury", "spinal injury", "broken bone", "fracture",
			"severe burn", "hypothermia", "heat stroke",
		},
		BlockedPhrases: []string{
			"diagnose", "diagnosis", "prescribe", "prescription", "medication",
			"drug", "surgery", "operate", "medical treatment", "cure",
			"disease", "disorder", "syndrome",
		},
		Disclaimer:       "Not medical advice. For emergencies, call local emergency services.",
		EmergencyBanner:  "This may be a life-threatening emergency. Call your local emergency number NOW before following any steps.",
		CitationRequired: true,
	}
}

// policyFile mirrors Policy for decoding. CitationRequired is a pointer
// so an absent key keeps the default while an explicit false disables
// the check.
type policyFile struct {
	EmergencyKeywords []string `toml:"emergency_keywords"`
	BlockedPhrases    []string `toml:"blocked_phrases"`
	Disclaimer        string   `toml:"disclaimer"`
	EmergencyBanner   string   `toml:"emergency_banner"`
	CitationRequired  *bool    `toml:"citation_required"`
}

// LoadPolicy overlays a TOML policy file onto the defaults. A missing
// file yields the defaults; a malformed file is a startup error rather
// than a silently weakened policy.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if strings.TrimSpace(path) == "" {
		return policy, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return policy, nil
		}
		return Policy{}, fmt.Errorf("read policy %s: %w", path, err)
	}

	var overlay policyFile
	if err := toml.Unmarshal(data, &overlay); err != nil {
		return Policy{}, fmt.Errorf("parse policy %s: %w", path, err)
	}

	if len(overlay.EmergencyKeywords) > 0 {
		policy.EmergencyKeywords = normalizeTerms(overlay.EmergencyKeywords)
	}
	if len(overlay.BlockedPhrases) > 0 {
		policy.BlockedPhrases = normalizeTerms(overlay.BlockedPhrases)
	}
	if strings.TrimSpace(overlay.Disclaimer) != "" {
		policy.Disclaimer = strings.TrimSpace(overlay.Disclaimer)
	}
	if strings.TrimSpace(overlay.EmergencyBanner) != "" {
		policy.EmergencyBanner = strings.TrimSpace(overlay.EmergencyBanner)
	}
	if overlay.CitationRequired != nil {
		policy.CitationRequired = *overlay.CitationRequired
	}

	return policy, nil
}

// EmergencyMatches returns the configured emergency keywords present in
// the text, lowercase substring match.
func (p Policy) EmergencyMatches(text string) []string {
	return matchTerms(text, p.EmergencyKeywords)
}

// BlockedMatches returns the configured blocked phrases present in the
// text.
func (p Policy) BlockedMatches(text string) []string {
	return matchTerms(text, p.BlockedPhrases)
}

func matchTerms(text string, terms []string) []string {
	lowered := strings.ToLower(text)
	var matched []string
	for _, term := range terms {
		if term == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(term)) {
			matched = append(matched, term)
		}
	}
	return matched
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
