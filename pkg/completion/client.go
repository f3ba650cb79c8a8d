// Package completion talks to the external chat-completion endpoint
// consumed by the executor (§6.6). The endpoint is OpenAI-shaped, so
// requests are built with github.com/sashabaranov/go-openai; responses
// are decoded leniently because the contract explicitly allows
// choices[0].message.content to be either a string or an array of
// {text} parts, which go-openai's strict response struct cannot always
// unmarshal — flattening that shape is part of the contract, not client
// leniency (§9 "Duck-typed JSON at boundaries").
package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/swarmrouter/core/pkg/models"
)

// Client issues chat-completion requests against a single OpenAI-compatible
// base URL.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// New returns a Client pointed at baseURL (e.g. an OpenRouter-compatible
// gateway) authenticating with apiKey.
func New(baseURL, apiKey string) *Client {
	return &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
	}
}

// Result is the flattened, usage-defaulted outcome of one completion call.
type Result struct {
	Content string
	Usage   models.TokenUsage
}

// Complete calls POST /chat/completions with the given model and a single
// user-role message containing prompt, honoring ctx's deadline as the
// per-node timeout (§4.3.2 step 4).
func (c *Client) Complete(ctx context.Context, model, prompt string) (*Result, error) {
	reqBody := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   4096,
		Temperature: 0.7,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("completion call timed out after %s: %w", configuredTimeout(ctx, start), ctx.Err())
		}
		return nil, fmt.Errorf("completion call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading completion response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("completion endpoint returned %d: %s", resp.StatusCode, truncate(string(body), 500))
	}

	return parseResponse(body)
}

// rawResponse mirrors the subset of the OpenAI response envelope we need,
// keeping content as json.RawMessage so it can be either a string or an
// array of {text} parts.
type rawResponse struct {
	Choices []struct {
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func parseResponse(body []byte) (*Result, error) {
	var raw rawResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decoding completion response: %w", err)
	}
	if len(raw.Choices) == 0 {
		return nil, fmt.Errorf("completion response carried no choices")
	}

	content, err := flattenContent(raw.Choices[0].Message.Content)
	if err != nil {
		return nil, fmt.Errorf("flattening completion content: %w", err)
	}

	usage := models.TokenUsage{
		Prompt:     raw.Usage.PromptTokens,
		Completion: raw.Usage.CompletionTokens,
		Total:      raw.Usage.TotalTokens,
	}
	if usage.Total == 0 {
		usage.Total = usage.Prompt + usage.Completion
	}

	return &Result{Content: content, Usage: usage}, nil
}

// flattenContent implements the §6.6 content contract: a plain string
// passes through; an array of {text} parts is concatenated in order.
func flattenContent(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}

	var parts []struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("content was neither a string nor a part array: %w", err)
	}

	var sb strings.Builder
	for _, part := range parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// configuredTimeout reports the per-node timeout ctx was built with,
// rounded to the nearest second (§8 scenario 5 expects the error message
// to carry the configured duration, e.g. "1s", not the measured elapsed
// time up to the deadline firing).
func configuredTimeout(ctx context.Context, callStartedAt time.Time) string {
	deadline, ok := ctx.Deadline()
	if !ok {
		return "unknown duration"
	}
	return deadline.Sub(callStartedAt).Round(time.Second).String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
