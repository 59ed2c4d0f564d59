package builtin

import (
	"testing"

	"github.com/relaycode/loom/pkg/config"
	"github.com/relaycode/loom/pkg/model"
)

func switchToolForTest() *SwitchModelTool {
	cfg := config.DefaultConfig()
	cfg.Models.Planning = "planning-model"
	cfg.Models.Execution = "execution-model"
	cfg.Models.Review = "review-model"
	return &SwitchModelTool{Selector: model.NewColourSelector(cfg)}
}

func TestSwitchModelToolSwitches(t *testing.T) {
	tool := switchToolForTest()

	result, err := tool.Execute(map[string]any{"colour": "red", "reason": "review pass"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("switch failed: %s", result.Error)
	}
	if result.Data["colour"] != "red" {
		t.Errorf("colour = %v", result.Data["colour"])
	}
	if result.Data["model"] != "review-model" {
		t.Errorf("model = %v", result.Data["model"])
	}
	if record, _ := result.Data["record"].(string); record == "" {
		t.Error("switch should carry a record line")
	}
	if tool.Selector.Current() != model.ColourRed {
		t.Errorf("selector current = %s", tool.Selector.Current())
	}
}

func TestSwitchModelToolNoOp(t *testing.T) {
	tool := switchToolForTest()

	result, err := tool.Execute(map[string]any{"colour": "grn"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !result.Success {
		t.Fatalf("no-op switch failed: %s", result.Error)
	}
	if _, hasRecord := result.Data["record"]; hasRecord {
		t.Error("switching to the current colour must not produce a record")
	}
}

func TestSwitchModelToolRejectsUnknownColour(t *testing.T) {
	tool := switchToolForTest()

	result, err := tool.Execute(map[string]any{"colour": "chartreuse"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Success {
		t.Error("unknown colour must fail the call")
	}
}

func TestSwitchModelToolWithoutSelector(t *testing.T) {
	tool := &SwitchModelTool{}
	result, err := tool.Execute(map[string]any{"colour": "blu"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Success {
		t.Error("missing selector must report unavailable")
	}
}
