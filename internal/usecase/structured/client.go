// Package structured invokes the completion service with a jinja template and a
// reply schema, and decodes the reply into a validated Go value.
package structured

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"recsys-orchestrator/internal/domain"

	"github.com/go-playground/validator/v10"
	"github.com/nikolalohinski/gonja"
	"golang.org/x/time/rate"
)

// Normalizer is implemented by reply types that clean themselves up after
// decoding and before validation.
type Normalizer interface {
	Normalize()
}

// Options tunes a Client. Zero values disable the limit and the deadline.
type Options struct {
	// RequestsPerSecond caps outgoing completion calls. Zero means unlimited.
	RequestsPerSecond float64
	// Burst is the limiter burst size. Defaults to 1.
	Burst int
	// Timeout bounds a single completion call.
	Timeout time.Duration
}

// Client is safe for concurrent use. It holds no per-call state.
type Client struct {
	completer domain.Completer
	validate  *validator.Validate
	limiter   *rate.Limiter
	timeout   time.Duration
}

var _ domain.StructuredCompleter = (*Client)(nil)

// NewClient creates a structured completion client on top of completer.
func NewClient(completer domain.Completer, opts Options) *Client {
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Client{
		completer: completer,
		validate:  validate,
		limiter:   rate.NewLimiter(limit, burst),
		timeout:   opts.Timeout,
	}
}

// Invoke renders template with inputs, sends it with schema as the reply format,
// and decodes the reply into out, which must be a pointer to a struct.
func (c *Client) Invoke(ctx context.Context, template string, inputs map[string]any, schema domain.Schema, out any) error {
	prompt, err := Render(template, inputs)
	if err != nil {
		return fmt.Errorf("%s: %w", schema.Name, err)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%s: rate limiter: %v: %w", schema.Name, err, domain.ErrTransport)
	}

	resp, err := c.completer.Complete(ctx, prompt, schema.Definition)
	if err != nil {
		if errors.Is(err, domain.ErrTransport) {
			return fmt.Errorf("%s: %w", schema.Name, err)
		}
		return fmt.Errorf("%s: %v: %w", schema.Name, err, domain.ErrTransport)
	}

	if err := c.decode(resp.Text, schema, out); err != nil {
		return fmt.Errorf("%s: %v: %w", schema.Name, err, domain.ErrSchemaViolation)
	}
	return nil
}

func (c *Client) decode(raw string, schema domain.Schema, out any) error {
	body := extractJSON(raw)
	if body == "" {
		return errors.New("empty reply")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		return fmt.Errorf("reply is not a JSON object: %v", err)
	}
	for _, name := range schema.Required() {
		if _, ok := fields[name]; !ok {
			return fmt.Errorf("missing required field %q", name)
		}
	}

	if err := json.Unmarshal([]byte(body), out); err != nil {
		return fmt.Errorf("decode reply: %v", err)
	}
	if n, ok := out.(Normalizer); ok {
		n.Normalize()
	}
	if err := c.validate.Struct(out); err != nil {
		return fmt.Errorf("validate reply: %v", err)
	}
	return nil
}

// Render executes a jinja template with inputs.
func Render(template string, inputs map[string]any) (string, error) {
	tpl, err := gonja.FromString(template)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}
	out, err := tpl.Execute(inputs)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

// extractJSON strips markdown fences and any prose around the outermost object.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
		s = strings.TrimSpace(s)
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}
