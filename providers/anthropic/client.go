// Package anthropic adapts the Anthropic messages API to the agent
// invoker contract.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/prodflowhq/prodflow/agent"
	"github.com/prodflowhq/prodflow/types"
)

const (
	defaultModel      = "claude-3-5-sonnet-latest"
	anthropicVersion  = "2023-06-01"
	defaultMaxTokens  = 4096
	defaultAPIBaseURL = "https://api.anthropic.com"
)

type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

func WithBaseURL(baseURL string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

func New(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is required")
	}
	c := &Client{
		apiKey:  strings.TrimSpace(apiKey),
		model:   defaultModel,
		baseURL: defaultAPIBaseURL,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) Name() string { return "anthropic" }

type anthropicRequest struct {
	Model     string             `json:"model"`
	System    string             `json:"system,omitempty"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Invoke sends one messages-API request and returns the raw JSON the model
// produced.
func (c *Client) Invoke(ctx context.Context, agentName string, prompt types.PromptPayload) (json.RawMessage, error) {
	payload := anthropicRequest{
		Model:     c.model,
		System:    prompt.Role,
		MaxTokens: defaultMaxTokens,
		Messages: []anthropicMessage{
			{Role: "user", Content: composeUserPrompt(agentName, prompt)},
		},
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &agent.InvocationError{Agent: agentName, Err: fmt.Errorf("failed to marshal anthropic request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(raw))
	if err != nil {
		return nil, &agent.InvocationError{Agent: agentName, Err: fmt.Errorf("failed to create anthropic request: %w", err)}
	}
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", anthropicVersion)
	httpReq.Header.Set("content-type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &agent.InvocationError{Agent: agentName, Err: fmt.Errorf("anthropic request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &agent.InvocationError{Agent: agentName, Err: fmt.Errorf("failed to read anthropic response: %w", err)}
	}

	var parsed anthropicResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &agent.InvocationError{Agent: agentName, Err: fmt.Errorf("failed to decode anthropic response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		message := string(body)
		if parsed.Error != nil {
			message = parsed.Error.Message
		}
		return nil, &agent.InvocationError{Agent: agentName, Err: fmt.Errorf("anthropic API error (%d): %s", resp.StatusCode, message)}
	}

	var sb strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return nil, &agent.InvocationError{Agent: agentName, Err: fmt.Errorf("anthropic returned no text")}
	}
	return json.RawMessage(stripFences(text)), nil
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
	sb.WriteString("\nRespond with JSON only, no surrounding prose.\n")
	return sb.String()
}

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
