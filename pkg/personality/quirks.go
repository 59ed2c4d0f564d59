package personality

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/big"
	"strings"
)

func cryptoRandFloat64() float64 {
	var b [8]byte
	if _, err := cryptorand.Read(b[:]); err != nil {
		return 0.5
	}
	n := binary.BigEndian.Uint64(b[:]) >> 11 // 53 bits
	return float64(n) / float64(uint64(1)<<53)
}

func cryptoRandIntn(n int) int {
	if n <= 0 {
		return 0
	}
	value, err := cryptorand.Int(cryptorand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(value.Int64())
}

// voiceBank holds the candidate annotations per context. The lines speak in
// the coordinator's own vocabulary (plans, subtasks, dispatch, review) so
// an annotated status line still reads like the engine talking about its
// work.
var voiceBank = map[Context][]Quirk{
	ContextSuccess: {
		{Text: "Clean pass.", Weight: 1.0},
		{Text: "That subtask went down without a fight.", Weight: 0.6},
		{Text: "Landed on the first attempt.", Weight: 0.5},
	},
	ContextComplete: {
		{Text: "Plan complete; every subtask accounted for.", Weight: 1.0},
		{Text: "Wrapping up - results aggregated.", Weight: 0.7},
		{Text: "All agents idle. Queue is empty.", Weight: 0.5},
	},
	ContextError: {
		{Text: "Logging it and moving to the next subtask.", Weight: 0.6},
		{Text: "That one fought back.", Weight: 0.4},
		{Text: "Filed under lessons learned.", Weight: 0.3},
	},
	ContextThinking: {
		{Text: "Consulting the planner...", Weight: 1.0},
		{Text: "Weighing the decomposition...", Weight: 0.7},
		{Text: "Reading before writing...", Weight: 0.5},
	},
	ContextGreeting: {
		{Text: "Coordinator online. Agents standing by.", Weight: 1.0},
		{Text: "Session open - what are we building?", Weight: 0.7},
	},
	ContextHelp: {
		{Text: "Here's the short version:", Weight: 0.6},
		{Text: "The relevant piece:", Weight: 0.5},
	},
	ContextInfo: {
		{Text: "For the record:", Weight: 0.4},
		{Text: "Worth noting:", Weight: 0.5},
	},
	ContextWaiting: {
		{Text: "Paused until you weigh in.", Weight: 0.8},
		{Text: "Holding the queue for your answer.", Weight: 0.5},
	},
}

// Manager decides when and how to annotate a status line.
type Manager struct {
	config Config
}

// NewManager creates a voice manager with the given settings.
func NewManager(config Config) *Manager {
	return &Manager{config: config}
}

// ApplyQuirk rolls once against the configured probability and, on a hit,
// appends (or prepends, for the quirky tone) a weighted-random annotation
// for the context. Misses and unknown contexts return the message verbatim.
func (m *Manager) ApplyQuirk(message string, ctx Context) string {
	if !m.config.Enabled {
		return message
	}
	if cryptoRandFloat64() > m.config.QuirkProbability {
		return message
	}

	quirk, ok := pickWeighted(voiceBank[ctx])
	if !ok {
		return message
	}
	return m.attach(message, quirk)
}

// pickWeighted selects one quirk with probability proportional to its
// weight.
func pickWeighted(quirks []Quirk) (Quirk, bool) {
	if len(quirks) == 0 {
		return Quirk{}, false
	}
	total := 0.0
	for _, q := range quirks {
		if q.Weight > 0 {
			total += q.Weight
		}
	}
	if total <= 0 {
		return quirks[cryptoRandIntn(len(quirks))], true
	}
	roll := cryptoRandFloat64() * total
	for _, q := range quirks {
		if q.Weight <= 0 {
			continue
		}
		roll -= q.Weight
		if roll <= 0 {
			return q, true
		}
	}
	return quirks[len(quirks)-1], true
}

func (m *Manager) attach(message string, quirk Quirk) string {
	switch m.config.Tone {
	case "professional":
		// No annotations at all in professional tone.
		return message
	case "quirky":
		return quirk.Text + "\n\n" + message
	default: // friendly
		if strings.HasSuffix(message, "\n") {
			return message + quirk.Text + "\n"
		}
		return message + "\n\n" + quirk.Text
	}
}

// GetTonePrefix returns the status sigil for a context, tone permitting.
func (m *Manager) GetTonePrefix(ctx Context) string {
	if !m.config.Enabled || m.config.Tone == "professional" {
		return ""
	}
	switch ctx {
	case ContextSuccess, ContextComplete:
		return "+ "
	case ContextError:
		return "! "
	case ContextInfo:
		return "- "
	default:
		return ""
	}
}

// WrapError renders an error for the status surface. Errors never get
// decorative annotations; at most a neutral lead-in under the quirky tone.
func (m *Manager) WrapError(err error) string {
	if err == nil {
		return ""
	}
	message := err.Error()
	if !m.config.Enabled || m.config.Tone != "quirky" {
		return message
	}
	if cryptoRandFloat64() <= 0.3 {
		return "Hit a snag: " + message
	}
	return message
}

// Greeting returns the session-opening line for the configured tone.
func (m *Manager) Greeting() string {
	if !m.config.Enabled || m.config.Tone == "professional" {
		return "Loom - agent orchestration engine"
	}
	quirk, ok := pickWeighted(voiceBank[ContextGreeting])
	if !ok {
		return "Loom - agent orchestration engine"
	}
	return quirk.Text
}

// Farewell returns the session-closing line for the configured tone.
func (m *Manager) Farewell() string {
	if !m.config.Enabled || m.config.Tone == "professional" {
		return "Session ended."
	}
	return "Session closed. Agents dismissed."
}
