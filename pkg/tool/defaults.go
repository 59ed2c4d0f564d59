package tool

import (
	"time"

	"github.com/relaycode/loom/pkg/filewatch"
	"github.com/relaycode/loom/pkg/giturl"
	"github.com/relaycode/loom/pkg/model"
	"github.com/relaycode/loom/pkg/policy"
	"github.com/relaycode/loom/pkg/pty"
	"github.com/relaycode/loom/pkg/telemetry"
	"github.com/relaycode/loom/pkg/ui/progress"
	"github.com/relaycode/loom/pkg/ui/toast"
)

const (
	DefaultToolTimeout      = 2 * time.Minute
	DefaultToolMaxResult    = 100_000
	DefaultRetryMaxAttempts = 2
	DefaultRetryInitial     = 200 * time.Millisecond
	DefaultRetryMax         = 2 * time.Second
	DefaultRetryMultiplier  = 2
	DefaultRetryJitter      = 0.2
)

// MiddlewareConfig configures the default middleware stack.
type MiddlewareConfig struct {
	ToastManager    *toast.ToastManager
	ProgressManager *progress.ProgressManager
	FileWatcher     *filewatch.FileWatcher

	DefaultTimeout  time.Duration
	PerToolTimeouts map[string]time.Duration
	RetryConfig     RetryConfig
	MaxResultBytes  int
	LongRunningTools map[string]string

	ValidationConfig ValidationConfig
	OnValidationError func(tool, param, msg string)
}

// RegistryConfig configures registry defaults and middleware options.
type RegistryConfig struct {
	TelemetryHub       *telemetry.Hub
	TelemetrySessionID string
	HookRegistry       *HookRegistry

	PolicyEngine    *policy.Engine
	PolicySessionID string

	PTYManager *pty.Manager

	ColourSelector *model.ColourSelector

	ClonePolicy *giturl.ClonePolicy

	MaxOutputBytes int
	Middleware     MiddlewareConfig
}

// DefaultMiddlewareStack returns the default middleware chain.
func DefaultMiddlewareStack(cfg MiddlewareConfig) []Middleware {
	longRunning := cfg.LongRunningTools
	if longRunning == nil {
		longRunning = DefaultLongRunningTools
	}

	chain := []Middleware{
		PanicRecovery(),
		ToastNotifications(cfg.ToastManager),
		Validation(cfg.ValidationConfig, cfg.OnValidationError),
		ResultSizeLimit(cfg.MaxResultBytes, "\n...[truncated]"),
		Retry(cfg.RetryConfig),
		Timeout(cfg.DefaultTimeout, cfg.PerToolTimeouts),
		Progress(cfg.ProgressManager, longRunning),
		FileChangeTracking(cfg.FileWatcher),
	}
	return chain
}

// DefaultRegistryConfig returns baseline defaults for registry setup.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		MaxOutputBytes: DefaultToolMaxResult,
		Middleware: MiddlewareConfig{
			DefaultTimeout: DefaultToolTimeout,
			RetryConfig: RetryConfig{
				MaxAttempts:  DefaultRetryMaxAttempts,
				InitialDelay: DefaultRetryInitial,
				MaxDelay:     DefaultRetryMax,
				Multiplier:   DefaultRetryMultiplier,
				Jitter:       DefaultRetryJitter,
			},
			MaxResultBytes:  DefaultToolMaxResult,
			LongRunningTools: DefaultLongRunningTools,
		},
	}
}

// ApplyRegistryConfig applies registry defaults and middleware settings.
func ApplyRegistryConfig(registry *Registry, cfg RegistryConfig) {
	if registry == nil {
		return
	}
	if cfg.HookRegistry != nil {
		registry.mu.Lock()
		registry.hooks = cfg.HookRegistry
		registry.mu.Unlock()
	}
	if cfg.MaxOutputBytes > 0 {
		registry.SetMaxOutputBytes(cfg.MaxOutputBytes)
	}
	if cfg.TelemetryHub != nil {
		registry.EnableTelemetry(cfg.TelemetryHub, cfg.TelemetrySessionID)
	}
	if cfg.PolicyEngine != nil {
		registry.EnablePolicyGating(cfg.PolicyEngine, cfg.PolicySessionID)
	}
	if cfg.PTYManager != nil {
		registry.EnablePTY(cfg.PTYManager)
	}
	if cfg.ColourSelector != nil {
		registry.EnableModelSwitching(cfg.ColourSelector)
	}
	if cfg.ClonePolicy != nil {
		registry.EnableRepositoryCloning(*cfg.ClonePolicy)
	}

	for _, mw := range DefaultMiddlewareStack(cfg.Middleware) {
		registry.Use(mw)
	}
}
