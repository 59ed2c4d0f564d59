package model

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	"github.com/relaycode/loom/pkg/config"
)

// Colour is an abstract logical model identity. Agents and conversations
// name a colour, never a concrete model: the colour resolves at run time to
// a (model-id, backend, endpoint, credential) binding, so swapping the
// concrete model behind a colour never touches agent configuration.
type Colour string

const (
	ColourBlu Colour = "blu"
	ColourGrn Colour = "grn"
	ColourRed Colour = "red"
)

// ParseColour validates a colour name.
func ParseColour(s string) (Colour, error) {
	switch Colour(strings.ToLower(strings.TrimSpace(s))) {
	case ColourBlu:
		return ColourBlu, nil
	case ColourGrn:
		return ColourGrn, nil
	case ColourRed:
		return ColourRed, nil
	}
	return "", fmt.Errorf("unknown model colour %q (want blu, grn, or red)", s)
}

// ModelSpec is one parsed "model@backend(url)" binding. Backend and URL are
// optional: "llama3" names just a model, "llama3@ollama" adds the backend,
// "llama3@ollama(http://localhost:11434)" pins the endpoint too.
type ModelSpec struct {
	Model    string
	Backend  string
	Endpoint string
}

var modelSpecPattern = regexp.MustCompile(`^([^@()]+)(?:@([^()]+))?(?:\(([^()]+)\))?$`)

// ParseModelSpec parses the model@backend(url) grammar.
func ParseModelSpec(s string) (ModelSpec, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ModelSpec{}, fmt.Errorf("empty model spec")
	}
	m := modelSpecPattern.FindStringSubmatch(s)
	if m == nil {
		return ModelSpec{}, fmt.Errorf("invalid model spec %q (want model@backend(url))", s)
	}
	return ModelSpec{
		Model:    strings.TrimSpace(m[1]),
		Backend:  strings.TrimSpace(m[2]),
		Endpoint: strings.TrimSpace(m[3]),
	}, nil
}

func (s ModelSpec) String() string {
	out := s.Model
	if s.Backend != "" {
		out += "@" + s.Backend
	}
	if s.Endpoint != "" {
		out += "(" + s.Endpoint + ")"
	}
	return out
}

// ColourBinding resolves one colour: the model spec plus the name of the
// environment variable holding that colour's credential.
type ColourBinding struct {
	Spec          ModelSpec
	CredentialEnv string
}

// Credential reads the binding's credential from the environment. Empty
// when the variable is unset.
func (b ColourBinding) Credential() string {
	if b.CredentialEnv == "" {
		return ""
	}
	return os.Getenv(b.CredentialEnv)
}

// colourModelEnv and colourCredentialEnv name the per-colour override
// variables: LOOM_MODEL_BLU holds a model@backend(url) spec,
// LOOM_API_KEY_BLU the credential.
func colourModelEnv(c Colour) string      { return "LOOM_MODEL_" + strings.ToUpper(string(c)) }
func colourCredentialEnv(c Colour) string { return "LOOM_API_KEY_" + strings.ToUpper(string(c)) }

// ColourSelector owns the colour→binding table and the current selection
// for one conversation. Switches are serialized; reads see the most recent
// switch.
type ColourSelector struct {
	mu       sync.RWMutex
	bindings map[Colour]ColourBinding
	current  Colour
	fallback Colour
}

// NewColourSelector builds the colour table from config, overlaid with
// per-colour environment overrides. Colours the config leaves unbound
// default to the role models: blu→planning, grn→execution, red→review.
func NewColourSelector(cfg *config.Config) *ColourSelector {
	defaults := map[Colour]string{}
	if cfg != nil {
		defaults[ColourBlu] = firstNonEmpty(cfg.Models.Colours.Blu, cfg.Models.Planning)
		defaults[ColourGrn] = firstNonEmpty(cfg.Models.Colours.Grn, cfg.Models.Execution)
		defaults[ColourRed] = firstNonEmpty(cfg.Models.Colours.Red, cfg.Models.Review)
	}

	bindings := make(map[Colour]ColourBinding, 3)
	for _, c := range []Colour{ColourBlu, ColourGrn, ColourRed} {
		raw := defaults[c]
		if env := os.Getenv(colourModelEnv(c)); env != "" {
			raw = env
		}
		spec, err := ParseModelSpec(raw)
		if err != nil {
			spec = ModelSpec{Model: raw}
		}
		bindings[c] = ColourBinding{
			Spec:          spec,
			CredentialEnv: colourCredentialEnv(c),
		}
	}

	current := ColourGrn
	fallback := ColourBlu
	if cfg != nil {
		if c, err := ParseColour(cfg.Models.Colours.Default); err == nil {
			current = c
		}
		if c, err := ParseColour(cfg.Models.Colours.Fallback); err == nil {
			fallback = c
		}
	}

	return &ColourSelector{
		bindings: bindings,
		current:  current,
		fallback: fallback,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// Current returns the selected colour.
func (s *ColourSelector) Current() Colour {
	if s == nil {
		return ColourGrn
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// CurrentModel returns the model id the selected colour resolves to.
func (s *ColourSelector) CurrentModel() string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.bindings[s.current].Spec.Model
}

// Resolve returns the binding for a colour.
func (s *ColourSelector) Resolve(c Colour) (ColourBinding, error) {
	if s == nil {
		return ColourBinding{}, fmt.Errorf("no colour selector configured")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bindings[c]
	if !ok {
		return ColourBinding{}, fmt.Errorf("unknown model colour %q", c)
	}
	return b, nil
}

// Switch changes the current colour and returns a record line suitable for
// a system message, e.g. "model switched grn→blu (user request)". Switching
// to the already-current colour is a no-op with an empty record.
func (s *ColourSelector) Switch(to Colour, reason string) (string, error) {
	if s == nil {
		return "", fmt.Errorf("no colour selector configured")
	}
	if _, err := ParseColour(string(to)); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if to == s.current {
		return "", nil
	}
	from := s.current
	s.current = to
	if reason == "" {
		reason = "switch requested"
	}
	return fmt.Sprintf("model switched %s→%s (%s)", from, to, reason), nil
}

// SwitchToFallback switches to the configured fallback colour, used when
// the current colour's upstream persistently rejects requests. Returns the
// record line, or "" when already on the fallback.
func (s *ColourSelector) SwitchToFallback(reason string) string {
	if s == nil {
		return ""
	}
	s.mu.RLock()
	fallback := s.fallback
	s.mu.RUnlock()
	record, _ := s.Switch(fallback, reason)
	return record
}

// IsUpstreamRejection reports whether err is a non-retryable upstream
// rejection (auth failure, bad request) rather than a transient outage -
// the condition that justifies an automatic colour fallback.
func IsUpstreamRejection(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && !apiErr.IsRateLimitError()
}
