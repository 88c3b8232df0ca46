package domain

import "context"

// Completer sends a rendered prompt to a text-generation service. A non-nil
// format asks the service to constrain its reply to that JSON schema.
type Completer interface {
	Complete(ctx context.Context, prompt string, format map[string]any) (*CompletionResponse, error)
	Version() string
}

// CompletionResponse carries the raw model output.
type CompletionResponse struct {
	Text string
	Done bool
}

// Schema names a structured reply contract. Definition is a JSON schema object
// handed to the completion service; field level rules live on the Go type the
// reply decodes into.
type Schema struct {
	Name       string
	Definition map[string]any
}

// Required returns the property names the schema marks as required.
func (s Schema) Required() []string {
	switch req := s.Definition["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if name, ok := r.(string); ok {
				out = append(out, name)
			}
		}
		return out
	}
	return nil
}

// StructuredCompleter renders template with inputs, asks for a reply matching
// schema and decodes it into out. Errors wrap ErrTransport or ErrSchemaViolation.
type StructuredCompleter interface {
	Invoke(ctx context.Context, template string, inputs map[string]any, schema Schema, out any) error
}
