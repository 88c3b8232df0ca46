package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"recsys-orchestrator/internal/domain"
)

var requiredChatColumns = []string{"msg", "name", "company_name", "type"}

type chatRow struct {
	msg  domain.ChatMessage
	date time.Time
}

// ChatFile serves client transcripts from a CSV export. The file is read on
// every call so a new export is picked up without a restart.
type ChatFile struct {
	path         string
	coverageDays int
}

// NewChatFile creates a chat source. coverageDays bounds dated rows to the
// window ending on the run date; zero disables the window.
func NewChatFile(path string, coverageDays int) *ChatFile {
	return &ChatFile{path: path, coverageDays: coverageDays}
}

var _ domain.ChatSource = (*ChatFile)(nil)

func (f *ChatFile) Transcript(_ context.Context, client domain.ClientInput, runDate time.Time) ([]domain.ChatMessage, error) {
	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("open chat file: %w", err)
	}
	defer file.Close()

	rows, err := readChatRows(file)
	if err != nil {
		return nil, err
	}
	return filterTranscript(rows, client, runDate, f.coverageDays), nil
}

func readChatRows(r io.Reader) ([]chatRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chat header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range requiredChatColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("chat file missing column %q", name)
		}
	}
	dateCol, hasDate := cols["date"]

	field := func(record []string, name string) string {
		i := cols[name]
		if i >= len(record) {
			return ""
		}
		return record[i]
	}

	var rows []chatRow
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read chat line %d: %w", line, err)
		}

		row := chatRow{msg: domain.ChatMessage{
			Msg:         field(record, "msg"),
			Name:        field(record, "name"),
			CompanyName: field(record, "company_name"),
			Type:        field(record, "type"),
		}}
		if hasDate && dateCol < len(record) {
			if d, ok := parseChatDate(record[dateCol]); ok {
				row.date = d
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseChatDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func filterTranscript(rows []chatRow, client domain.ClientInput, runDate time.Time, coverageDays int) []domain.ChatMessage {
	companies := make(map[string]struct{}, len(client.BBGChatCompanyNames))
	for _, n := range client.BBGChatCompanyNames {
		companies[strings.ToLower(strings.TrimSpace(n))] = struct{}{}
	}

	end := runDate.Truncate(24*time.Hour).AddDate(0, 0, 1)
	start := end.AddDate(0, 0, -coverageDays-1)

	var out []domain.ChatMessage
	for _, r := range rows {
		if len(companies) > 0 {
			if _, ok := companies[strings.ToLower(strings.TrimSpace(r.msg.CompanyName))]; !ok {
				continue
			}
		}
		if coverageDays > 0 && !r.date.IsZero() {
			if r.date.Before(start) || !r.date.Before(end) {
				continue
			}
		}
		out = append(out, r.msg)
	}
	return out
}
