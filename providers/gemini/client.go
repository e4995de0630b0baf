// Package gemini adapts the Gemini API to the agent invoker contract.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/prodflowhq/prodflow/agent"
	"github.com/prodflowhq/prodflow/types"
)

const defaultModel = "gemini-2.5-flash"

type Client struct {
	client *genai.Client
	model  string
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	c := &Client{model: defaultModel}
	for _, opt := range opts {
		opt(c)
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	c.client = gc
	return c, nil
}

func (c *Client) Name() string { return "gemini" }

// Invoke sends one generation request and returns the raw JSON the model
// produced. The response MIME type is pinned to JSON so the model does not
// wrap the payload in prose.
func (c *Client) Invoke(ctx context.Context, agentName string, prompt types.PromptPayload) (json.RawMessage, error) {
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}
	if prompt.Role != "" {
		config.SystemInstruction = genai.NewContentFromText(prompt.Role, genai.RoleUser)
	}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(composeUserPrompt(agentName, prompt)), config)
	if err != nil {
		return nil, &agent.InvocationError{Agent: agentName, Err: fmt.Errorf("gemini generation failed: %w", err)}
	}

	text := collectText(resp)
	if text == "" {
		return nil, &agent.InvocationError{Agent: agentName, Err: fmt.Errorf("gemini returned no text")}
	}
	return json.RawMessage(stripFences(text)), nil
}

func collectText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Text == "" || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return strings.TrimSpace(sb.String())
}

func composeUserPrompt(agentName string, prompt types.PromptPayload) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are acting as the %q agent.\n\n", agentName)
	fmt.Fprintf(&sb, "Task: %s\n", prompt.Task)
	if prompt.Context != "" {
		fmt.Fprintf(&sb, "\nContext:\n%s\n", prompt.Context)
	}
	if len(prompt.Instructions) > 0 {
		sb.WriteString("\nInstructions:\n")
		for _, instruction := range prompt.Instructions {
			fmt.Fprintf(&sb, "- %s\n", instruction)
		}
	}
	if prompt.OutputFormat != "" {
		fmt.Fprintf(&sb, "\nOutput format: %s\n", prompt.OutputFormat)
	}
	return sb.String()
}

// stripFences removes a markdown code fence if the model wrapped its JSON
// in one anyway.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
