package personality

// ConfigFromYAML normalizes raw YAML values into a Config: an unknown tone
// falls back to friendly, the probability clamps into [0, 1].
func ConfigFromYAML(enabled bool, quirkProbability float64, tone string) Config {
	switch tone {
	case "professional", "friendly", "quirky":
	default:
		tone = "friendly"
	}

	if quirkProbability < 0 {
		quirkProbability = 0
	} else if quirkProbability > 1 {
		quirkProbability = 1
	}

	return Config{
		Enabled:          enabled,
		QuirkProbability: quirkProbability,
		Tone:             tone,
	}
}
