package personality

import (
	"strings"
	"testing"
)

func TestNewPersonaProviderSeedsOrchestrationRoles(t *testing.T) {
	p := NewPersonaProvider(DefaultConfig(), "", nil, nil)

	for _, id := range []string{"coordinator", "planner", "builder", "reviewer", "researcher"} {
		if p.Profile(id) == nil {
			t.Errorf("built-in persona %q missing", id)
		}
	}
	if got := p.PersonaForPhase("anything"); got == nil || got.ID != "coordinator" {
		t.Errorf("default persona should be the coordinator, got %+v", got)
	}
}

func TestPersonaForPhaseOverride(t *testing.T) {
	p := NewPersonaProvider(DefaultConfig(), "coordinator", map[string]string{"review": "reviewer"}, nil)

	if got := p.PersonaForPhase("review"); got == nil || got.ID != "reviewer" {
		t.Errorf("review phase should resolve to reviewer, got %+v", got)
	}
	if got := p.PersonaForPhase("execution"); got == nil || got.ID != "coordinator" {
		t.Errorf("unoverridden phase should use the default, got %+v", got)
	}
}

func TestSetRuntimeOverride(t *testing.T) {
	p := NewPersonaProvider(DefaultConfig(), "coordinator", nil, nil)

	if err := p.SetRuntimeOverride("execution", "builder"); err != nil {
		t.Fatalf("SetRuntimeOverride: %v", err)
	}
	if got := p.PersonaForPhase("execution"); got.ID != "builder" {
		t.Errorf("runtime override ignored, got %s", got.ID)
	}
	if err := p.SetRuntimeOverride("execution", "nope"); err == nil {
		t.Error("unknown persona must be rejected")
	}
	if err := p.SetRuntimeOverride("execution", ""); err != nil {
		t.Fatalf("clearing override: %v", err)
	}
	if got := p.PersonaForPhase("execution"); got.ID != "coordinator" {
		t.Errorf("cleared override should restore default, got %s", got.ID)
	}
}

func TestSectionForPhaseRendersVoice(t *testing.T) {
	p := NewPersonaProvider(DefaultConfig(), "builder", nil, nil)

	section := p.SectionForPhase("execution")
	if !strings.Contains(section, "Persona: Builder") {
		t.Errorf("section missing persona header: %q", section)
	}
	if !strings.Contains(section, "Voice:") {
		t.Errorf("section missing phase voice: %q", section)
	}
}

func TestTitleFromID(t *testing.T) {
	tests := map[string]string{
		"code-reviewer": "Code Reviewer",
		"builder":       "Builder",
		"deep_research": "Deep Research",
	}
	for in, want := range tests {
		if got := titleFromID(in); got != want {
			t.Errorf("titleFromID(%q) = %q, want %q", in, got, want)
		}
	}
}
