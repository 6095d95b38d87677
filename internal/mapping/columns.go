package mapping

import (
	"fmt"

	"github.com/sbenjam1n/validb/internal/detection"
)

// Detection fields a column can refer to.
const (
	FieldID            = "id"
	FieldLevel         = "level"
	FieldDetectionType = "detection_type"
	FieldMessage       = "message"
)

// Column is one output column. Exactly one of Field and Var is set; Var names
// a named variable of the detection and renders empty when absent.
type Column struct {
	Name  string `mapstructure:"name"`
	Field string `mapstructure:"field"`
	Var   string `mapstructure:"var"`
}

// ColumnsParams configures Columns.
type ColumnsParams struct {
	Columns []Column `mapstructure:"columns"`
	Header  bool     `mapstructure:"header"`
}

// Columns emits a configured selection of detection fields and variables.
type Columns struct {
	columns []Column
	header  bool
}

// NewColumns validates the column list.
func NewColumns(p ColumnsParams) (*Columns, error) {
	if len(p.Columns) == 0 {
		return nil, fmt.Errorf("columns must not be empty")
	}
	for i, c := range p.Columns {
		switch {
		case c.Field != "" && c.Var != "":
			return nil, fmt.Errorf("columns[%d]: field and var are mutually exclusive", i)
		case c.Var != "":
		case c.Field == FieldID, c.Field == FieldLevel, c.Field == FieldDetectionType, c.Field == FieldMessage:
		case c.Field == "":
			return nil, fmt.Errorf("columns[%d]: one of field or var is required", i)
		default:
			return nil, fmt.Errorf("columns[%d]: unknown field %q", i, c.Field)
		}
	}
	return &Columns{columns: append([]Column(nil), p.Columns...), header: p.Header}, nil
}

// Row implements OutputMapper.
func (m *Columns) Row(d *detection.Detection) []any {
	row := make([]any, len(m.columns))
	for i, c := range m.columns {
		switch c.Field {
		case FieldID:
			row[i] = d.ID()
		case FieldLevel:
			row[i] = d.Level()
		case FieldDetectionType:
			row[i] = d.DetectionType()
		case FieldMessage:
			row[i] = d.Message()
		default:
			v, err := d.Vars().Get(c.Var)
			if err == nil {
				row[i] = v
			}
		}
	}
	return row
}

// Header implements Headed. A column without a name is headed by its field or variable.
func (m *Columns) Header() []string {
	if !m.header {
		return nil
	}
	h := make([]string, len(m.columns))
	for i, c := range m.columns {
		switch {
		case c.Name != "":
			h[i] = c.Name
		case c.Field != "":
			h[i] = c.Field
		default:
			h[i] = c.Var
		}
	}
	return h
}
