package report

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/nao1215/swiftguard/internal/model"
)

// Writer renders a History.
type Writer interface {
	// Write outputs h and returns the number of bytes written.
	Write(h *History) (int, error)
}

// Record is a page record together with its PageKey.
type Record struct {
	Key string `json:"key"`
	model.PageRecord
}

// History is everything the history command prints.
type History struct {
	GeneratedAt      time.Time                    `json:"generatedAt"`
	Records          []Record                     `json:"records"`
	LLMLogs          []model.LLMLogEntry          `json:"llmLogs"`
	FamilyCenterLogs []model.FamilyCenterLogEntry `json:"familyCenterLogs"`
}

// Source is the read side of the record cache. cache.Store implements it.
type Source interface {
	All(ctx context.Context) (map[string]*model.PageRecord, error)
	LLMLogs(ctx context.Context) ([]model.LLMLogEntry, error)
	FamilyCenterLogs(ctx context.Context) ([]model.FamilyCenterLogEntry, error)
}

// Collect reads src into a History. Records are ordered newest first, ties
// broken by key.
func Collect(ctx context.Context, src Source, now time.Time) (*History, error) {
	all, err := src.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read page records: %w", err)
	}
	llmLogs, err := src.LLMLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read model log: %w", err)
	}
	familyLogs, err := src.FamilyCenterLogs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read family center log: %w", err)
	}

	records := make([]Record, 0, len(all))
	for key, rec := range all {
		if rec == nil {
			continue
		}
		records = append(records, Record{Key: key, PageRecord: *rec})
	}
	SortRecords(records)

	return &History{
		GeneratedAt:      now,
		Records:          records,
		LLMLogs:          llmLogs,
		FamilyCenterLogs: familyLogs,
	}, nil
}

// SortRecords orders records newest first, then by key.
func SortRecords(records []Record) {
	slices.SortFunc(records, func(a, b Record) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
