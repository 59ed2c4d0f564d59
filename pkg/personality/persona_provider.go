package personality

import (
	"fmt"
	"sort"
	"strings"
)

// PersonaProvider resolves which persona profile speaks in each workflow
// phase. Profiles come from config and persona files; when nothing is
// configured, the built-in orchestration roles below apply.
type PersonaProvider struct {
	personas        map[string]*PersonaProfile
	defaultID       string
	phaseOverride   map[string]string
	runtimeOverride map[string]string
}

// NewPersonaProvider builds a provider from supplied definitions.
func NewPersonaProvider(
	base Config,
	defaultID string,
	overrides map[string]string,
	definitions map[string]PersonaDefinition,
) *PersonaProvider {
	provider := &PersonaProvider{
		personas:        make(map[string]*PersonaProfile),
		defaultID:       strings.TrimSpace(defaultID),
		phaseOverride:   make(map[string]string),
		runtimeOverride: make(map[string]string),
	}

	for key, value := range overrides {
		if trimmed := strings.TrimSpace(strings.ToLower(key)); trimmed != "" {
			provider.phaseOverride[trimmed] = strings.TrimSpace(value)
		}
	}

	if len(definitions) == 0 {
		definitions = builtinPersonaDefinitions()
	}

	for id, def := range definitions {
		profile := provider.buildProfile(id, def, base)
		provider.personas[profile.ID] = profile
	}

	if provider.defaultID == "" {
		provider.defaultID = provider.pickFirstPersonaID()
	}
	if _, ok := provider.personas[provider.defaultID]; !ok {
		if _, ok := provider.personas["coordinator"]; ok {
			provider.defaultID = "coordinator"
		} else {
			provider.defaultID = provider.pickFirstPersonaID()
		}
	}

	return provider
}

func (p *PersonaProvider) pickFirstPersonaID() string {
	if len(p.personas) == 0 {
		return ""
	}
	ids := make([]string, 0, len(p.personas))
	for id := range p.personas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids[0]
}

func (p *PersonaProvider) buildProfile(id string, def PersonaDefinition, base Config) *PersonaProfile {
	profile := &PersonaProfile{
		ID:                strings.TrimSpace(id),
		PersonaDefinition: def,
	}
	if profile.ID == "" {
		profile.ID = fmt.Sprintf("persona-%d", len(p.personas)+1)
	}

	if profile.Name == "" {
		profile.Name = titleFromID(profile.ID)
	}
	if profile.Summary == "" {
		profile.Summary = def.Description
	}
	if profile.Style.Tone == "" {
		if def.Style.Tone != "" {
			profile.Style.Tone = def.Style.Tone
		} else {
			profile.Style.Tone = base.Tone
		}
	}
	if profile.Style.QuirkProbability == 0 {
		if def.Style.QuirkProbability > 0 {
			profile.Style.QuirkProbability = def.Style.QuirkProbability
		} else {
			profile.Style.QuirkProbability = base.QuirkProbability
		}
	}
	if profile.Voice == nil {
		profile.Voice = map[string]string{}
	}
	return profile
}

// titleFromID turns a persona id like "code-reviewer" into "Code Reviewer".
func titleFromID(id string) string {
	words := strings.FieldsFunc(id, func(r rune) bool { return r == '-' || r == '_' })
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// PersonaForPhase resolves the persona profile for a workflow phase.
func (p *PersonaProvider) PersonaForPhase(phase string) *PersonaProfile {
	if p == nil || len(p.personas) == 0 {
		return nil
	}
	target := p.defaultID
	if runtime, ok := p.runtimeOverride[strings.ToLower(strings.TrimSpace(phase))]; ok {
		if profile, exists := p.personas[runtime]; exists {
			target = profile.ID
		}
	}
	if override, ok := p.phaseOverride[strings.ToLower(strings.TrimSpace(phase))]; ok {
		if _, exists := p.personas[override]; exists {
			target = override
		}
	}
	return p.personas[target]
}

// SectionForPhase renders a markdown snippet describing the persona.
func (p *PersonaProvider) SectionForPhase(phase string) string {
	profile := p.PersonaForPhase(phase)
	if profile == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Persona: %s\n", profile.Name))
	if profile.Summary != "" {
		b.WriteString(fmt.Sprintf("Summary: %s\n", profile.Summary))
	}
	if len(profile.Traits) > 0 {
		b.WriteString("\nTraits:\n")
		for _, trait := range profile.Traits {
			b.WriteString("- " + trait + "\n")
		}
	}
	if len(profile.Directives) > 0 {
		b.WriteString("\nDirectives:\n")
		for _, directive := range profile.Directives {
			b.WriteString("- " + directive + "\n")
		}
	}
	voiceKey := strings.ToLower(strings.TrimSpace(phase))
	voice := profile.Voice[voiceKey]
	if voice == "" {
		voice = profile.Voice["default"]
	}
	if voice != "" {
		b.WriteString("\nVoice:\n- " + voice + "\n")
	}
	return strings.TrimSpace(b.String())
}

// builtinPersonaDefinitions supplies one persona per orchestration role.
// Each maps onto an agent the coordinator can assign subtasks to; the
// coordinator persona is the default voice for phases without an override.
func builtinPersonaDefinitions() map[string]PersonaDefinition {
	return map[string]PersonaDefinition{
		"coordinator": {
			Name:    "Coordinator",
			Summary: "Planner-first orchestrator that decomposes requests and sequences agents.",
			Description: "The coordinator owns the request end to end: it asks the planner for a " +
				"decomposition, dispatches each subtask to its assigned agent, threads results " +
				"forward, and reports failures inline instead of hiding them.",
			Traits: []string{
				"Decomposes before acting",
				"Sequences subtasks and threads context between them",
				"Reports per-task status honestly, including failures",
			},
			Directives: []string{
				"Name which agent handles each subtask and why",
				"Carry earlier subtask results into later ones",
				"Stop the run only for fatal errors, never for a single failed subtask",
			},
			Voice: map[string]string{
				"default":  "Steady operator narrating dispatch decisions and aggregate progress.",
				"planning": "Delegates structure questions to the planner and validates its output.",
			},
			Style: PersonaStyle{Tone: "friendly", QuirkProbability: 0.15, ResponseLength: "concise"},
		},
		"planner": {
			Name:    "Planner",
			Summary: "Turns a request into a strategy tag and an ordered subtask list.",
			Description: "The planner reads the request and the workspace, decides between a " +
				"single task and a decomposition, and emits the JSON plan contract with an " +
				"assigned agent per subtask. It never executes work itself.",
			Traits: []string{
				"Reads before deciding",
				"Keeps subtasks independently dispatchable",
				"Assigns each subtask to the agent best suited for it",
			},
			Directives: []string{
				"Answer with the strategy/subtasks JSON contract only",
				"Prefer a single task when decomposition adds no leverage",
				"Never assign a subtask to yourself",
			},
			Voice: map[string]string{
				"default": "Structural thinker weighing dependencies, risk, and ordering.",
			},
			Style: PersonaStyle{Tone: "professional", QuirkProbability: 0, ResponseLength: "minimal"},
		},
		"builder": {
			Name:    "Builder",
			Summary: "Executes implementation subtasks through workspace tools.",
			Description: "The builder works one subtask at a time inside the iteration budget: " +
				"inspect, edit, verify, and account for every tool call. When the budget runs " +
				"short it requests an extension with a concrete justification rather than stalling.",
			Traits: []string{
				"Inspects before editing",
				"Verifies edits with the tools at hand",
				"Budget-aware: wraps up or requests extension explicitly",
			},
			Directives: []string{
				"State the edit before making it",
				"Surface tool failures in the result instead of retrying blindly",
				"Leave the workspace consistent even when stopping early",
			},
			Voice: map[string]string{
				"default":   "Hands-on implementer describing concrete edits and their checks.",
				"execution": "Terse per-step narration: what changed, what validated it.",
			},
			Style: PersonaStyle{Tone: "friendly", QuirkProbability: 0.1, ResponseLength: "concise"},
		},
		"reviewer": {
			Name:    "Reviewer",
			Summary: "Checks completed subtasks for regressions and unmet requirements.",
			Description: "The reviewer reads diffs and results after the builder finishes, " +
				"hunting for correctness gaps, missing error paths, and untested claims, and " +
				"reports findings with enough context to act on.",
			Traits: []string{
				"Skeptical of untested claims",
				"Reads the diff, not the description",
				"Ranks findings by consequence",
			},
			Directives: []string{
				"Cite the file and line for every finding",
				"Distinguish defects from preferences",
				"Approve explicitly when nothing blocks",
			},
			Voice: map[string]string{
				"default": "Calm examiner pointing at specific risks and gaps.",
				"review":  "Finding-by-finding walkthrough, most severe first.",
			},
			Style: PersonaStyle{Tone: "professional", QuirkProbability: 0, ResponseLength: "concise"},
		},
		"researcher": {
			Name:    "Researcher",
			Summary: "Gathers workspace context before planning or building starts.",
			Description: "The researcher maps the code that matters for a request: entry points, " +
				"owning packages, existing conventions, and prior art, summarized tightly enough " +
				"to seed another agent's context window.",
			Traits: []string{
				"Breadth first, then depth where it pays",
				"Quotes real paths and symbols, never from memory",
				"Compresses findings for downstream agents",
			},
			Directives: []string{
				"Name the files and symbols that anchor each finding",
				"Flag open questions rather than guessing",
				"Keep the brief short enough to inject into a prompt",
			},
			Voice: map[string]string{
				"default": "Field notes: terse, sourced, organized by subsystem.",
			},
			Style: PersonaStyle{Tone: "professional", QuirkProbability: 0, ResponseLength: "concise"},
		},
	}
}

// Profiles returns all persona profiles for inspection.
func (p *PersonaProvider) Profiles() []*PersonaProfile {
	if p == nil {
		return nil
	}
	result := make([]*PersonaProfile, 0, len(p.personas))
	for _, profile := range p.personas {
		result = append(result, profile)
	}
	return result
}

// Profile returns a profile by ID.
func (p *PersonaProvider) Profile(id string) *PersonaProfile {
	if p == nil {
		return nil
	}
	return p.personas[strings.TrimSpace(id)]
}

// SetRuntimeOverride assigns a persona override for the given phase at runtime.
func (p *PersonaProvider) SetRuntimeOverride(phase, personaID string) error {
	if p == nil {
		return fmt.Errorf("persona provider unavailable")
	}
	stage := strings.ToLower(strings.TrimSpace(phase))
	if stage == "" {
		return fmt.Errorf("phase required")
	}
	personaID = strings.TrimSpace(personaID)
	if personaID != "" {
		if _, ok := p.personas[personaID]; !ok {
			return fmt.Errorf("persona %s not found", personaID)
		}
		p.runtimeOverride[stage] = personaID
	} else {
		delete(p.runtimeOverride, stage)
	}
	return nil
}

// RuntimeOverrides returns a copy of current overrides.
func (p *PersonaProvider) RuntimeOverrides() map[string]string {
	out := make(map[string]string, len(p.runtimeOverride))
	for k, v := range p.runtimeOverride {
		out[k] = v
	}
	return out
}
