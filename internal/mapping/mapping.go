// Package mapping flattens detections into CSV rows.
package mapping

import (
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/sbenjam1n/validb/internal/detection"
)

// OutputMapper maps one detection to one output row.
type OutputMapper interface {
	Row(d *detection.Detection) []any
}

// Headed is implemented by mappers that emit a header row.
type Headed interface {
	Header() []string
}

// SimpleParams configures Simple.
type SimpleParams struct {
	Header bool `mapstructure:"header"`
}

// Simple emits id, level, detection type and message.
type Simple struct {
	header bool
}

// NewSimple creates a Simple mapper.
func NewSimple(p SimpleParams) (*Simple, error) {
	return &Simple{header: p.Header}, nil
}

// Row implements OutputMapper.
func (*Simple) Row(d *detection.Detection) []any {
	return []any{d.ID(), d.Level(), d.DetectionType(), d.Message()}
}

// Header implements Headed. It returns nil unless the header is enabled.
func (s *Simple) Header() []string {
	if !s.header {
		return nil
	}
	return []string{"id", "level", "detection_type", "message"}
}

// WriteCSV writes one record per detection, preceded by the mapper's header
// when it has one.
func WriteCSV(w io.Writer, m OutputMapper, dets []*detection.Detection) error {
	cw := csv.NewWriter(w)
	if h, ok := m.(Headed); ok {
		if header := h.Header(); len(header) > 0 {
			if err := cw.Write(header); err != nil {
				return fmt.Errorf("write header: %w", err)
			}
		}
	}
	for i, d := range dets {
		row := m.Row(d)
		record := make([]string, len(row))
		for j, v := range row {
			record[j] = cell(v)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record %d: %w", i, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func cell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
