// Package report writes ranked recommendations as a dated CSV artifact.
package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"recsys-orchestrator/internal/domain"
)

var header = []string{
	"rank",
	"key",
	"title",
	"currency_relevance",
	"chat_topic_relevance",
	"chat_product_relevance",
	"weighted_average_score",
	"evidences",
}

// CSVSink writes one file per client and run date. The path template may
// contain {client} and {date}.
type CSVSink struct {
	pathTemplate string
}

// NewCSVSink creates a sink writing to paths built from pathTemplate.
func NewCSVSink(pathTemplate string) *CSVSink {
	return &CSVSink{pathTemplate: pathTemplate}
}

var _ domain.ReportSink = (*CSVSink)(nil)

// Path resolves the artifact path for client and runDate.
func (s *CSVSink) Path(client domain.ClientInput, runDate time.Time) string {
	return strings.NewReplacer(
		"{client}", Slug(client.Company),
		"{date}", runDate.Format("2006-01-02"),
	).Replace(s.pathTemplate)
}

func (s *CSVSink) Write(_ context.Context, client domain.ClientInput, runDate time.Time, rows []domain.Recommendation) (string, error) {
	path := s.Path(client, runDate)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create report: %w", err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return "", fmt.Errorf("write report header: %w", err)
	}
	for i, r := range rows {
		record, err := toRecord(i+1, r)
		if err != nil {
			f.Close()
			return "", err
		}
		if err := w.Write(record); err != nil {
			f.Close()
			return "", fmt.Errorf("write report row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return "", fmt.Errorf("flush report: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close report: %w", err)
	}
	return path, nil
}

func toRecord(rank int, r domain.Recommendation) ([]string, error) {
	cells := make([]string, 0, 3)
	for _, v := range []any{r.CurrencyRelevance, r.ChatTopicRelevance, r.ChatProductRelevance} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode relevance for %s: %w", r.Key, err)
		}
		cells = append(cells, string(b))
	}
	evidences := r.Evidences
	if evidences == nil {
		evidences = []string{}
	}
	ev, err := json.Marshal(evidences)
	if err != nil {
		return nil, fmt.Errorf("encode evidences for %s: %w", r.Key, err)
	}

	return []string{
		strconv.Itoa(rank),
		r.Key,
		r.Title,
		cells[0],
		cells[1],
		cells[2],
		strconv.Itoa(r.WeightedAverageScore),
		string(ev),
	}, nil
}

// Slug lowercases s and replaces runs of non alphanumerics with a dash.
func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "client"
	}
	return out
}
