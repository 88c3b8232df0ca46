package structured_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"recsys-orchestrator/internal/domain"
	"recsys-orchestrator/internal/usecase/structured"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	mu      sync.Mutex
	reply   string
	err     error
	delay   time.Duration
	prompts []string
	formats []map[string]any
}

func (f *fakeCompleter) Complete(ctx context.Context, prompt string, format map[string]any) (*domain.CompletionResponse, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.formats = append(f.formats, format)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &domain.CompletionResponse{Text: f.reply, Done: true}, nil
}

func (f *fakeCompleter) Version() string { return "fake" }

var relevanceSchema = domain.Schema{
	Name: "relevance",
	Definition: map[string]any{
		"type":     "object",
		"required": []string{"score", "evidences"},
	},
}

func TestClient_Invoke_DecodesReply(t *testing.T) {
	fc := &fakeCompleter{reply: "```json\n{\"score\": 10, \"evidences\": [\" USD \", \"\"]}\n```"}
	client := structured.NewClient(fc, structured.Options{})

	var out domain.RelevanceResult
	err := client.Invoke(context.Background(), "Client trades {{ currencies }}", map[string]any{"currencies": "USD"}, relevanceSchema, &out)

	require.NoError(t, err)
	assert.Equal(t, 10, out.Score)
	assert.Equal(t, []string{"USD"}, out.Evidences)
	assert.Equal(t, []string{"Client trades USD"}, fc.prompts)
	assert.Equal(t, relevanceSchema.Definition, fc.formats[0])
}

func TestClient_Invoke_SchemaViolation(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"not json", "I think it is relevant"},
		{"missing required field", `{"score": 5}`},
		{"score outside enumeration", `{"score": 7, "evidences": []}`},
		{"wrong type", `{"score": "high", "evidences": []}`},
		{"empty", "   "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := structured.NewClient(&fakeCompleter{reply: tt.reply}, structured.Options{})
			var out domain.RelevanceResult
			err := client.Invoke(context.Background(), "x", nil, relevanceSchema, &out)
			assert.ErrorIs(t, err, domain.ErrSchemaViolation)
			assert.NotErrorIs(t, err, domain.ErrTransport)
		})
	}
}

func TestClient_Invoke_TransportError(t *testing.T) {
	client := structured.NewClient(&fakeCompleter{err: errors.New("connection refused")}, structured.Options{})

	var out domain.RelevanceResult
	err := client.Invoke(context.Background(), "x", nil, relevanceSchema, &out)

	assert.ErrorIs(t, err, domain.ErrTransport)
	assert.Contains(t, err.Error(), "relevance")
}

func TestClient_Invoke_Timeout(t *testing.T) {
	client := structured.NewClient(&fakeCompleter{reply: `{}`, delay: time.Second}, structured.Options{Timeout: 10 * time.Millisecond})

	var out domain.RelevanceResult
	err := client.Invoke(context.Background(), "x", nil, relevanceSchema, &out)

	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_Invoke_PrecisionBounds(t *testing.T) {
	schema := domain.Schema{Name: "precision"}
	client := structured.NewClient(&fakeCompleter{reply: `{"score": 5, "relation_match": true, "relation_confidence": 1.4, "evidences": []}`}, structured.Options{})

	var out domain.PrecisionResult
	err := client.Invoke(context.Background(), "x", nil, schema, &out)

	assert.ErrorIs(t, err, domain.ErrSchemaViolation)
}

func TestClient_Invoke_ConcurrentUse(t *testing.T) {
	client := structured.NewClient(&fakeCompleter{reply: `{"score": 5, "evidences": ["a"]}`}, structured.Options{RequestsPerSecond: 1000, Burst: 10})

	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var out domain.RelevanceResult
			errs[i] = client.Invoke(context.Background(), "{{ n }}", map[string]any{"n": i}, relevanceSchema, &out)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}

func TestRender(t *testing.T) {
	out, err := structured.Render("{{ a }} and {{ b }}", map[string]any{"a": "USD", "b": "options"})
	require.NoError(t, err)
	assert.Equal(t, "USD and options", out)

	_, err = structured.Render("{{ a", nil)
	assert.Error(t, err)
}
