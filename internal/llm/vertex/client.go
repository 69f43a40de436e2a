package vertex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/joseph-ayodele/kk-extractor/internal/llm"
)

// Config for the Vertex AI client.
type Config struct {
	ProjectID   string
	Region      string
	Model       string
	Temperature float32
}

// Client implements llm.Generator on top of the Vertex AI Gemini SDK.
type Client struct {
	cfg    Config
	base   *genai.Client
	logger *slog.Logger
}

// NewClient creates a Vertex client using application default credentials.
func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.ProjectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("vertex: projectID and region cannot be empty")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	if logger == nil {
		logger = slog.Default()
	}
	base, err := genai.NewClient(ctx, cfg.ProjectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &Client{cfg: cfg, base: base, logger: logger}, nil
}

// Generate sends the document as an inline blob followed by the prompt.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	start := time.Now()
	c.logger.Info("llm.generate.start",
		"provider", "vertex",
		"model", c.cfg.Model,
		"name", req.Name,
		"mime_type", req.MIMEType,
		"document_bytes", len(req.Document),
	)

	// A fresh model handle per call keeps the per-request schema off shared state.
	model := c.base.GenerativeModel(c.cfg.Model)
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](c.cfg.Temperature),
	}
	if req.Schema != nil {
		model.GenerationConfig.ResponseSchema = ToSchema(req.Schema)
	}

	resp, err := model.GenerateContent(ctx,
		genai.Blob{MIMEType: req.MIMEType, Data: req.Document},
		genai.Text(req.Prompt),
	)
	if err != nil {
		c.logger.Error("llm.generate.error",
			"provider", "vertex", "name", req.Name, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	text := responseText(resp)
	c.logger.Info("llm.generate.ok",
		"provider", "vertex",
		"name", req.Name,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// Close releases the underlying SDK client.
func (c *Client) Close() error {
	if c.base != nil {
		return c.base.Close()
	}
	return nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if txt, ok := p.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

// ToSchema converts a JSON Schema map into the SDK's schema type.
func ToSchema(m map[string]any) *genai.Schema {
	s := &genai.Schema{}
	if t, ok := m["type"].(string); ok {
		s.Type = schemaType(t)
	}
	if d, ok := m["description"].(string); ok {
		s.Description = d
	}
	s.Required = stringList(m["required"])
	s.Enum = stringList(m["enum"])
	if items, ok := m["items"].(map[string]any); ok {
		s.Items = ToSchema(items)
	}
	if props, ok := m["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.Properties[name] = ToSchema(pm)
			}
		}
	}
	return s
}

func schemaType(t string) genai.Type {
	switch strings.ToLower(t) {
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeUnspecified
	}
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return append([]string(nil), t...)
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
