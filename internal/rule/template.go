package rule

import (
	"fmt"

	"github.com/sbenjam1n/validb/internal/format"
	"github.com/sbenjam1n/validb/internal/vars"
)

// TemplateParams are the fields of a rule entry in the configuration document.
type TemplateParams struct {
	Name          string   `mapstructure:"name"`
	SQL           string   `mapstructure:"sql"`
	ID            string   `mapstructure:"id"`
	Level         int      `mapstructure:"level"`
	DetectionType string   `mapstructure:"detection_type"`
	Msg           string   `mapstructure:"msg"`
	DataSource    string   `mapstructure:"datasource"`
	Embedders     []string `mapstructure:"embedders"`
	Lenient       bool     `mapstructure:"lenient"`
}

// TemplateRule is a SQLRule whose id and message are brace templates over the
// row variables, e.g. id "{0}" and msg "population of {Code} is {Population}".
type TemplateRule struct {
	*SQLRule
	idTemplate  *format.Template
	msgTemplate *format.Template
	mode        format.Mode
}

// NewTemplateRule parses both templates up front, so a malformed template
// fails at load time rather than on the first row.
func NewTemplateRule(p TemplateParams) (*TemplateRule, error) {
	if p.ID == "" {
		return nil, fmt.Errorf("id is required")
	}
	if p.DetectionType == "" {
		return nil, fmt.Errorf("detection_type is required")
	}
	if p.Msg == "" {
		return nil, fmt.Errorf("msg is required")
	}
	idTmpl, err := format.Parse(p.ID)
	if err != nil {
		return nil, fmt.Errorf("id: %w", err)
	}
	msgTmpl, err := format.Parse(p.Msg)
	if err != nil {
		return nil, fmt.Errorf("msg: %w", err)
	}

	r := &TemplateRule{idTemplate: idTmpl, msgTemplate: msgTmpl, mode: format.Strict}
	if p.Lenient {
		r.mode = format.Lenient
	}

	base, err := NewSQLRule(SQLRuleConfig{
		Name:          p.Name,
		SQL:           p.SQL,
		ID:            r.render(idTmpl),
		Level:         p.Level,
		DetectionType: p.DetectionType,
		Message:       r.render(msgTmpl),
		DataSource:    p.DataSource,
		Embedders:     p.Embedders,
	})
	if err != nil {
		return nil, err
	}
	r.SQLRule = base
	return r, nil
}

func (r *TemplateRule) render(t *format.Template) BagFunc {
	return func(b vars.Bag) (string, error) {
		return t.Execute(b, r.mode)
	}
}

// IDTemplate returns the id template source.
func (r *TemplateRule) IDTemplate() string { return r.idTemplate.String() }

// MessageTemplate returns the message template source.
func (r *TemplateRule) MessageTemplate() string { return r.msgTemplate.String() }

// Lenient reports whether unresolved placeholders render as empty strings.
func (r *TemplateRule) Lenient() bool { return r.mode == format.Lenient }
