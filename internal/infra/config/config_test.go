package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_PipelineParameters_Defaults(t *testing.T) {
	envVars := []string{
		"RECSYS_WORKERS",
		"RECSYS_CALL_TIMEOUT",
		"RECSYS_RECALL_K",
		"RECSYS_HISTORY_THRESHOLD",
		"RECSYS_PASSAGES_PER_PUBLICATION",
		"RECSYS_PRECISION_MIN_SCORE",
		"RECSYS_PRECISION_MIN_CONFIDENCE",
		"RECSYS_PRECISION_TOP_N",
		"RECSYS_QUERIES_PER_FACET",
	}
	for _, key := range envVars {
		_ = os.Unsetenv(key)
	}

	cfg := Load()

	assert.Equal(t, 10, cfg.Pipeline.Workers, "workers should default to 10")
	assert.Equal(t, 120*time.Second, cfg.Pipeline.CallTimeout)
	assert.Equal(t, 20, cfg.Pipeline.RecallK)
	assert.Equal(t, 20, cfg.Pipeline.HistoryK)
	assert.Equal(t, 200, cfg.Pipeline.HistoryFetchK)
	assert.Equal(t, 0.5, cfg.Pipeline.HistoryThreshold)
	assert.Equal(t, 3, cfg.Pipeline.PassagesPerPublication)
	assert.Equal(t, 5, cfg.Pipeline.PrecisionMinScore)
	assert.Equal(t, 0.5, cfg.Pipeline.PrecisionMinConfidence)
	assert.Equal(t, 30, cfg.Pipeline.PrecisionTopN)
	assert.Equal(t, 2, cfg.Pipeline.QueriesPerFacet)
}

func TestLoad_PipelineParameters_FromEnv(t *testing.T) {
	t.Setenv("RECSYS_WORKERS", "4")
	t.Setenv("RECSYS_CALL_TIMEOUT", "45")
	t.Setenv("RECSYS_PRECISION_MIN_CONFIDENCE", "0.7")
	t.Setenv("RECSYS_PRECISION_TOP_N", "not-a-number")

	cfg := Load()

	assert.Equal(t, 4, cfg.Pipeline.Workers)
	assert.Equal(t, 45*time.Second, cfg.Pipeline.CallTimeout)
	assert.Equal(t, 0.7, cfg.Pipeline.PrecisionMinConfidence)
	assert.Equal(t, 30, cfg.Pipeline.PrecisionTopN, "invalid values fall back to the default")
}

func TestLoad_IndexAndReport_Defaults(t *testing.T) {
	_ = os.Unsetenv("INDEX_BACKEND")
	_ = os.Unsetenv("REPORT_OUTPUT_PATH")
	_ = os.Unsetenv("HISTORY_ENABLED")

	cfg := Load()

	assert.Equal(t, "memory", cfg.Index.Backend)
	assert.Equal(t, 1000, cfg.Index.ChunkSize)
	assert.Equal(t, 100, cfg.Index.ChunkOverlap)
	assert.Equal(t, "results/recsys_output_{client}_{date}.csv", cfg.Report.OutputPath)
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, 30, cfg.Sources.ChatCoverageDays)
}

func TestLoad_DurationAcceptsGoSyntax(t *testing.T) {
	t.Setenv("EMBEDDER_TIMEOUT", "1m30s")

	cfg := Load()

	assert.Equal(t, 90*time.Second, cfg.Embedder.Timeout)
}

func TestLoad_CompletionURLFallsBackToOllamaURL(t *testing.T) {
	_ = os.Unsetenv("COMPLETION_URL")
	t.Setenv("OLLAMA_URL", "http://gpu-box:11434")

	cfg := Load()

	assert.Equal(t, "http://gpu-box:11434", cfg.Completion.URL)
}

func TestLoad_DBPasswordFromFile(t *testing.T) {
	_ = os.Unsetenv("DB_PASSWORD")
	path := filepath.Join(t.TempDir(), "pw")
	require.NoError(t, os.WriteFile(path, []byte("s3cret\n"), 0o600))
	t.Setenv("DB_PASSWORD_FILE", path)
	t.Setenv("DB_ENABLED", "true")

	cfg := Load()

	assert.True(t, cfg.DB.Enabled)
	assert.Equal(t, "s3cret", cfg.DB.Password)
	assert.Contains(t, cfg.DB.DSN(), "recsys_user:s3cret@")
}
