// Package tracing creates the tracers reporting the spans of the rounds to a
// Jaeger agent.
package tracing

import (
	"io"

	opentracing "github.com/opentracing/opentracing-go"
	jaegercfg "github.com/uber/jaeger-client-go/config"
	"golang.org/x/xerrors"
)

// EnvAgentHost is the environment variable that enables the reporting when it
// is set.
const EnvAgentHost = "JAEGER_AGENT_HOST"

// NewTracer returns a tracer for the service configured from the standard
// Jaeger environment variables. The closer must be called to flush the spans.
func NewTracer(service string) (opentracing.Tracer, io.Closer, error) {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to parse jaeger configuration: %v", err)
	}

	cfg.ServiceName = service

	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, nil, xerrors.Errorf("failed to create tracer: %v", err)
	}

	return tracer, closer, nil
}
