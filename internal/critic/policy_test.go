package critic

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadPolicyMissingFileYieldsDefaults(t *testing.T) {
	policy, err := LoadPolicy(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if len(policy.EmergencyKeywords) == 0 || !policy.CitationRequired {
		t.Fatalf("defaults not applied: %+v", policy)
	}
}

func TestLoadPolicyOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.toml")
	content := `
emergency_keywords = ["Flooding", "  gas leak  "]
disclaimer = "Local guidance only."
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	policy, err := LoadPolicy(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(policy.EmergencyKeywords) != 2 || policy.EmergencyKeywords[0] != "flooding" || policy.EmergencyKeywords[1] != "gas leak" {
		t.Fatalf("keywords not normalized: %v", policy.EmergencyKeywords)
	}
	if policy.Disclaimer != "Local guidance only." {
		t.Fatalf("disclaimer %q", policy.Disclaimer)
	}
	// untouched fields keep their defaults
	if len(policy.BlockedPhrases) == 0 {
		t.Fatal("blocked phrases lost in overlay")
	}
	if !policy.CitationRequired {
		t.Fatal("overlay without the key weakened citation_required")
	}
}

func TestLoadPolicyCitationRequiredTriState(t *testing.T) {
	dir := t.TempDir()

	disabled := filepath.Join(dir, "disabled.toml")
	if err := os.WriteFile(disabled, []byte("citation_required = false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	policy, err := LoadPolicy(disabled)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if policy.CitationRequired {
		t.Fatal("explicit citation_required = false not honored")
	}

	absent := filepath.Join(dir, "absent-key.toml")
	if err := os.WriteFile(absent, []byte(`disclaimer = "x"`+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	policy, err = LoadPolicy(absent)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !policy.CitationRequired {
		t.Fatal("absent key must keep the default")
	}
}

func TestLoadPolicyMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.toml")
	if err := os.WriteFile(path, []byte("emergency_keywords = [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadPolicy(path); err == nil {
		t.Fatal("malformed policy must be a startup error")
	}
}

func TestMatchTermsSubstring(t *testing.T) {
	policy := DefaultPolicy()
	matched := policy.EmergencyMatches("My father is UNCONSCIOUS and not breathing!")
	if len(matched) < 2 {
		t.Fatalf("matches: %v", matched)
	}
	if got := policy.BlockedMatches("keep the area clean and covered"); len(got) != 0 {
		t.Fatalf("false positives: %v", got)
	}
}
