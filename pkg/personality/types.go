package personality

// Config tunes how much voice the engine's status surface carries. The
// persona system itself (profiles woven into agent system prompts) is
// always on; Config only governs the short annotations on progress lines.
type Config struct {
	Enabled          bool
	QuirkProbability float64 // 0.0-1.0, chance a status line gets an annotation
	Tone             string  // "professional", "friendly", "quirky"
}

// DefaultConfig returns the baseline voice settings.
func DefaultConfig() Config {
	return Config{
		Enabled:          true,
		QuirkProbability: 0.15,
		Tone:             "friendly",
	}
}

// Context names the moment a status line belongs to, so annotations can
// match what the coordinator is actually doing.
type Context string

const (
	ContextSuccess  Context = "success"  // an operation landed
	ContextError    Context = "error"    // something failed
	ContextInfo     Context = "info"     // neutral information
	ContextThinking Context = "thinking" // a model call is in flight
	ContextComplete Context = "complete" // a task or plan finished
	ContextWaiting  Context = "waiting"  // blocked on the user
	ContextGreeting Context = "greeting" // session opening
	ContextHelp     Context = "help"     // answering a usage question
)

// Quirk is one candidate annotation for a context. Weight biases the pick
// within a context; it is not an independent probability gate.
type Quirk struct {
	Text     string
	Contexts []Context
	Weight   float64
}

// PersonaDefinition describes a persona profile loaded from config: the
// role an agent plays in the orchestration (planner, builder, reviewer...),
// how it reasons, and how it should sound in each workflow phase.
type PersonaDefinition struct {
	Name        string            `yaml:"name"`
	Summary     string            `yaml:"summary"`
	Description string            `yaml:"description"`
	Traits      []string          `yaml:"traits"`
	Goals       []string          `yaml:"goals"`
	Directives  []string          `yaml:"directives"`
	Voice       map[string]string `yaml:"voice"`
	Style       PersonaStyle      `yaml:"style"`
}

// PersonaStyle controls tone and delivery preferences.
type PersonaStyle struct {
	Tone             string  `yaml:"tone"`
	QuirkProbability float64 `yaml:"quirk_probability"`
	ResponseLength   string  `yaml:"response_length"`
}

// PersonaProfile is a runtime persona with defaults applied.
type PersonaProfile struct {
	ID string
	PersonaDefinition
}
