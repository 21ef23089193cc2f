package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// toolTimeoutMiddleware bounds tool calls so a stalled DAW cannot hang the
// operator's client.
func toolTimeoutMiddleware(timeout time.Duration) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if method != "tools/call" {
				return next(ctx, method, req)
			}
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()
			return next(ctx, method, req)
		}
	}
}

// recoverMiddleware turns a panic in a handler into an error response.
func recoverMiddleware(logger *slog.Logger) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (result sdkmcp.Result, err error) {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("mcp handler panic", "method", method, "panic", r, "stack", string(debug.Stack()))
					result, err = nil, fmt.Errorf("internal error handling %s", method)
				}
			}()
			return next(ctx, method, req)
		}
	}
}
