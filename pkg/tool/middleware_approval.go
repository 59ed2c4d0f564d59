package tool

import (
	"strings"

	"github.com/relaycode/loom/pkg/tool/builtin"
)

// approvalMiddleware gates mutating tool calls through the Policy Manager
// before they reach the underlying tool, inline in the call
// path rather than blocking on an external approval queue.
func (r *Registry) approvalMiddleware() Middleware {
	return func(next Executor) Executor {
		return func(ctx *ExecutionContext) (*builtin.Result, error) {
			if r == nil || ctx == nil || !r.shouldGateChanges() {
				return next(ctx)
			}

			switch strings.TrimSpace(ctx.ToolName) {
			case "write_file":
				return r.executeWithMissionWrite(ctx.Context, ctx.Params, func(params map[string]any) (*builtin.Result, error) {
					ctx.Params = params
					return next(ctx)
				})
			case "apply_patch":
				return r.executeWithMissionPatch(ctx.Context, ctx.Params, func(params map[string]any) (*builtin.Result, error) {
					ctx.Params = params
					return next(ctx)
				})
			case "pty_launch", "pty_kill":
				return r.executeWithPTYGate(ctx.Context, ctx.ToolName, ctx.Params, func(params map[string]any) (*builtin.Result, error) {
					ctx.Params = params
					return next(ctx)
				})
			default:
				return next(ctx)
			}
		}
	}
}
