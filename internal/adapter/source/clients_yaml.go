// Package source reads the file-based collaborators of a run: the client
// registry, chat transcripts and raw publications.
package source

import (
	"context"
	"fmt"
	"os"

	"recsys-orchestrator/internal/domain"

	"gopkg.in/yaml.v3"
)

// ClientFile loads the client registry from a YAML list.
type ClientFile struct {
	path string
}

func NewClientFile(path string) *ClientFile {
	return &ClientFile{path: path}
}

var _ domain.ClientSource = (*ClientFile)(nil)

// Clients returns every registry entry. added_to_pipeline defaults to true
// when the key is absent.
func (f *ClientFile) Clients(_ context.Context) ([]domain.ClientInput, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read clients file: %w", err)
	}
	return ParseClients(data)
}

// ParseClients decodes a YAML list of client entries.
func ParseClients(data []byte) ([]domain.ClientInput, error) {
	var nodes []yaml.Node
	if err := yaml.Unmarshal(data, &nodes); err != nil {
		return nil, fmt.Errorf("decode clients: %w", err)
	}

	clients := make([]domain.ClientInput, 0, len(nodes))
	for i := range nodes {
		c := domain.ClientInput{AddedToPipeline: true}
		if err := nodes[i].Decode(&c); err != nil {
			return nil, fmt.Errorf("decode client %d: %w", i, err)
		}
		clients = append(clients, c)
	}
	return clients, nil
}

// Scheduled keeps the clients added to the pipeline whose schedule region
// matches region. An empty region keeps every pipeline client.
func Scheduled(clients []domain.ClientInput, region string) []domain.ClientInput {
	var out []domain.ClientInput
	for _, c := range clients {
		if !c.AddedToPipeline {
			continue
		}
		if region != "" && c.ScheduleRegion != region {
			continue
		}
		out = append(out, c)
	}
	return out
}
