package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"recsys-orchestrator/internal/domain"
)

const keepAlive = "10m"

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string         `json:"model"`
	Messages  []chatMessage  `json:"messages"`
	Stream    bool           `json:"stream"`
	KeepAlive string         `json:"keep_alive,omitempty"`
	Format    map[string]any `json:"format,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done bool `json:"done"`
}

// GeneratorOptions are sampling options forwarded to Ollama.
type GeneratorOptions struct {
	Temperature float64
	NumPredict  int
}

// Generator sends prompts to Ollama's chat endpoint, optionally constrained to a
// JSON schema through the format field.
type Generator struct {
	BaseURL string
	Model   string
	Client  *http.Client
	Options GeneratorOptions
}

// NewGenerator constructs a generator for the given endpoint and model.
func NewGenerator(baseURL, model string, client *http.Client, opts GeneratorOptions) *Generator {
	return &Generator{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		Client:  client,
		Options: opts,
	}
}

// Complete sends the prompt and returns the assistant message. Network failures
// and non-200 answers wrap domain.ErrTransport.
func (g *Generator) Complete(ctx context.Context, prompt string, format map[string]any) (*domain.CompletionResponse, error) {
	reqBody := chatRequest{
		Model:     g.Model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		Stream:    false,
		KeepAlive: keepAlive,
		Format:    format,
		Options: map[string]any{
			"temperature": g.Options.Temperature,
		},
	}
	if g.Options.NumPredict > 0 {
		reqBody.Options["num_predict"] = g.Options.NumPredict
	}

	jsonPayload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/api/chat", bytes.NewReader(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call generation endpoint: %v: %w", err, domain.ErrTransport)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("generation endpoint returned %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(body)), domain.ErrTransport)
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode generation response: %v: %w", err, domain.ErrTransport)
	}

	return &domain.CompletionResponse{
		Text: strings.TrimSpace(chatResp.Message.Content),
		Done: chatResp.Done,
	}, nil
}

// Version returns the wrapped model name.
func (g *Generator) Version() string {
	return g.Model
}

var _ domain.Completer = (*Generator)(nil)
