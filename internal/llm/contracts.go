package llm

import "context"

// GenerateRequest is one document-to-JSON call against a multimodal model.
type GenerateRequest struct {
	Name     string // for logs only
	Document []byte
	MIMEType string
	Prompt   string
	Schema   map[string]any // JSON Schema of the expected response
}

// Generator is the provider-agnostic model contract the extractor depends on.
// It returns the raw response text, which may be empty.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// GeneratorFunc adapts a plain function to Generator.
type GeneratorFunc func(ctx context.Context, req GenerateRequest) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	return f(ctx, req)
}
