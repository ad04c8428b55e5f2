package llm

import (
	"context"
	"log"
	"strings"
)

// ClientSource yields a client handle for a given model/complexity/format
// combination. Implemented by cache.ClientCache.
type ClientSource interface {
	GetClient(model string, complex bool, format string) (LLMProvider, error)
	Invalidate()
}

// InvokeOptions describes one model call at the gateway level.
type InvokeOptions struct {
	Model      string
	Structured bool // ask for JSON-only output
	Complex    bool // reasoning-heavy call
}

// Gateway implements the call contract the orchestrator depends on: a
// structured call whose output comes back empty is retried once in free
// format before the call counts as failed.
type Gateway struct {
	source ClientSource
	logger *log.Logger
}

func NewGateway(source ClientSource, logger *log.Logger) *Gateway {
	return &Gateway{source: source, logger: logger}
}

func (g *Gateway) Invoke(ctx context.Context, prompt string, opts InvokeOptions) (string, error) {
	return g.InvokeChat(ctx, []Message{{Role: "user", Content: prompt}}, opts)
}

func (g *Gateway) InvokeChat(ctx context.Context, history []Message, opts InvokeOptions) (string, error) {
	format := FormatFree
	if opts.Structured {
		format = FormatStructured
	}

	client, err := g.source.GetClient(opts.Model, opts.Complex, format)
	if err != nil {
		return "", err
	}

	out, err := client.Chat(ctx, history,
		WithModel(opts.Model),
		WithFormat(format),
		WithComplexity(opts.Complex),
	)

	// Some local models return empty content (or fail outright) in JSON
	// mode. Fall back to a free-format call before reporting failure.
	if opts.Structured && (err != nil || strings.TrimSpace(out) == "") {
		if g.logger != nil {
			if err != nil {
				g.logger.Printf("[LLM] structured call failed (%v), retrying in free format", err)
			} else {
				g.logger.Printf("[LLM] structured call returned empty content, retrying in free format")
			}
		}
		freeClient, ferr := g.source.GetClient(opts.Model, opts.Complex, FormatFree)
		if ferr != nil {
			return "", ferr
		}
		return freeClient.Chat(ctx, history,
			WithModel(opts.Model),
			WithFormat(FormatFree),
			WithComplexity(opts.Complex),
		)
	}

	return out, err
}

// InvalidateClients evicts every cached model handle. Used by the turn retry
// path to force client reinitialization.
func (g *Gateway) InvalidateClients() {
	g.source.Invalidate()
}
