package gemini

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/kk-extractor/internal/llm"
)

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMIMEType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
	Temperature      float32        `json:"temperature"`
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

// Generate implements llm.Generator against the generateContent endpoint,
// sending the document inline next to the prompt.
func (c *Client) Generate(ctx context.Context, req llm.GenerateRequest) (string, error) {
	start := time.Now()
	c.logger.Info("llm.generate.start",
		"provider", "gemini",
		"model", c.cfg.Model,
		"name", req.Name,
		"mime_type", req.MIMEType,
		"document_bytes", len(req.Document),
	)

	body := generateContentRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{MIMEType: req.MIMEType, Data: base64.StdEncoding.EncodeToString(req.Document)}},
				{Text: req.Prompt},
			},
		}},
		GenerationConfig: generationConfig{
			ResponseMIMEType: "application/json",
			Temperature:      c.cfg.Temperature,
		},
	}
	if req.Schema != nil {
		body.GenerationConfig.ResponseSchema = ToResponseSchema(req.Schema)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/models/" + c.cfg.Model + ":generateContent"
	headers := map[string]string{"x-goog-api-key": c.cfg.APIKey}

	raw, _, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.generate.http_error",
			"name", req.Name, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	var resp generateContentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		c.logger.Error("llm.generate.decode_error",
			"name", req.Name, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("decode gemini response: %w", err)
	}

	if len(resp.Candidates) == 0 {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini blocked prompt: %s", resp.PromptFeedback.BlockReason)
		}
		c.logger.Warn("llm.generate.no_candidates", "name", req.Name)
		return "", nil
	}

	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := b.String()

	c.logger.Info("llm.generate.ok",
		"provider", "gemini",
		"name", req.Name,
		"finish_reason", resp.Candidates[0].FinishReason,
		"text_len", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return text, nil
}

// ToResponseSchema converts a JSON Schema map into the OpenAPI subset the
// Gemini API accepts for responseSchema. Unsupported keywords are dropped and
// type names are upper-cased.
func ToResponseSchema(schema map[string]any) map[string]any {
	out := make(map[string]any, len(schema))
	for k, v := range schema {
		switch k {
		case "type":
			if s, ok := v.(string); ok {
				out[k] = strings.ToUpper(s)
			}
		case "description", "format", "enum", "nullable", "required", "propertyOrdering", "minItems", "maxItems":
			out[k] = v
		case "items":
			if m, ok := v.(map[string]any); ok {
				out[k] = ToResponseSchema(m)
			}
		case "properties":
			if props, ok := v.(map[string]any); ok {
				converted := make(map[string]any, len(props))
				for name, p := range props {
					if m, ok := p.(map[string]any); ok {
						converted[name] = ToResponseSchema(m)
					}
				}
				out[k] = converted
			}
		}
	}
	return out
}
