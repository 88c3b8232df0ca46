package source

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"recsys-orchestrator/internal/domain"
)

// PublicationFile reads raw publications from a JSON array.
type PublicationFile struct {
	path string
}

func NewPublicationFile(path string) *PublicationFile {
	return &PublicationFile{path: path}
}

var _ domain.PublicationSource = (*PublicationFile)(nil)

func (f *PublicationFile) Publications(_ context.Context) ([]domain.Publication, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read publications file: %w", err)
	}
	var pubs []domain.Publication
	if err := json.Unmarshal(data, &pubs); err != nil {
		return nil, fmt.Errorf("decode publications: %w", err)
	}
	return pubs, nil
}
