package builtin

import (
	"fmt"

	"github.com/relaycode/loom/pkg/model"
)

// SwitchModelTool changes the conversation's current model colour for
// subsequent turns. The colour is a logical identity (blu, grn, red) that
// resolves to a concrete model at request time, so the agent never needs
// to know model ids.
type SwitchModelTool struct {
	Selector *model.ColourSelector
}

const SwitchModelToolName = "switch_model"

func (t *SwitchModelTool) Name() string { return SwitchModelToolName }

func (t *SwitchModelTool) Description() string {
	return "Switch the model colour used for subsequent turns in this conversation. Colours: blu, grn, red."
}

func (t *SwitchModelTool) Parameters() ParameterSchema {
	return ParameterSchema{
		Type: "object",
		Properties: map[string]PropertySchema{
			"colour": {
				Type:        "string",
				Description: "The colour to switch to.",
				Enum:        []string{"blu", "grn", "red"},
			},
			"reason": {
				Type:        "string",
				Description: "Why the switch is needed.",
			},
		},
		Required: []string{"colour"},
	}
}

func (t *SwitchModelTool) Execute(params map[string]any) (*Result, error) {
	if t.Selector == nil {
		return &Result{Success: false, Error: "model switching is not available"}, nil
	}

	colourArg, _ := params["colour"].(string)
	colour, err := model.ParseColour(colourArg)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	reason, _ := params["reason"].(string)

	record, err := t.Selector.Switch(colour, reason)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	binding, err := t.Selector.Resolve(colour)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}

	data := map[string]any{
		"colour": string(colour),
		"model":  binding.Spec.Model,
	}
	if record == "" {
		data["note"] = fmt.Sprintf("already using colour %s", colour)
	} else {
		data["record"] = record
	}
	return &Result{Success: true, Data: data}, nil
}
