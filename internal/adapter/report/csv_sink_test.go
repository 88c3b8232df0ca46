package report_test

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"recsys-orchestrator/internal/adapter/report"
	"recsys-orchestrator/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Acme Capital", "acme-capital"},
		{"  Beta & Co. (HK) ", "beta-co-hk"},
		{"", "client"},
		{"***", "client"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, report.Slug(tt.in))
		})
	}
}

func TestCSVSink_Write(t *testing.T) {
	dir := t.TempDir()
	sink := report.NewCSVSink(filepath.Join(dir, "out", "recsys_{client}_{date}.csv"))
	client := domain.ClientInput{Company: "Acme Capital"}
	runDate := time.Date(2025, 8, 22, 0, 0, 0, 0, time.UTC)

	rows := []domain.Recommendation{{
		Key:                  "h1",
		Title:                "USD options, weekly",
		CurrencyRelevance:    domain.RelevanceResult{Score: 10, Evidences: []string{"USD"}},
		ChatTopicRelevance:   domain.NeutralRelevance(),
		ChatProductRelevance: domain.RelevanceResult{Score: 5, Evidences: []string{"options"}},
		WeightedAverageScore: 5,
		Evidences:            []string{"USD", "options"},
	}}

	path, err := sink.Write(context.Background(), client, runDate, rows)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "recsys_acme-capital_2025-08-22.csv"), path)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "rank", records[0][0])
	assert.Equal(t, []string{
		"1",
		"h1",
		"USD options, weekly",
		`{"score":10,"evidences":["USD"]}`,
		`{"score":0,"evidences":[]}`,
		`{"score":5,"evidences":["options"]}`,
		"5",
		`["USD","options"]`,
	}, records[1])
}

func TestCSVSink_WriteEmpty(t *testing.T) {
	sink := report.NewCSVSink(filepath.Join(t.TempDir(), "{date}.csv"))

	path, err := sink.Write(context.Background(), domain.ClientInput{}, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), nil)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02.csv", filepath.Base(path))
}
