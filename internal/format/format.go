// Package format substitutes row variables into id and message templates.
//
// Placeholders follow the brace syntax rule authors already write in YAML:
// "{0}" selects a positional variable, "{Code}" a named one and "{}" the next
// positional one. "{{" and "}}" produce literal braces. A placeholder may carry
// a conversion ("!s", "!r") and a format spec after a colon, e.g. "{rate:.2f}"
// or "{code:>8}".
package format

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sbenjam1n/validb/internal/vars"
)

var (
	// ErrMissingVariable is returned in Strict mode when a placeholder has no value.
	ErrMissingVariable = errors.New("missing variable")
	// ErrSyntax is returned when a template cannot be parsed.
	ErrSyntax = errors.New("malformed template")
)

// Mode selects how unresolved placeholders are handled.
type Mode int

const (
	// Strict fails on any unresolved placeholder.
	Strict Mode = iota
	// Lenient renders unresolved placeholders as an empty string.
	Lenient
)

func (m Mode) String() string {
	if m == Lenient {
		return "lenient"
	}
	return "strict"
}

type part struct {
	literal string
	field   bool
	index   int // -1 for named fields
	name    string
	conv    byte
	spec    string
}

// Template is a parsed template, safe for concurrent use.
type Template struct {
	raw   string
	parts []part
}

// Parse compiles a template.
func Parse(raw string) (*Template, error) {
	t := &Template{raw: raw}
	var lit strings.Builder
	auto, manual := 0, false
	autoUsed := false

	flush := func() {
		if lit.Len() > 0 {
			t.parts = append(t.parts, part{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch c {
		case '{':
			if i+1 < len(raw) && raw[i+1] == '{' {
				lit.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexByte(raw[i+1:], '}')
			if end < 0 {
				return nil, fmt.Errorf("%w: unclosed '{' at offset %d in %q", ErrSyntax, i, raw)
			}
			p, err := parseField(raw[i+1 : i+1+end])
			if err != nil {
				return nil, fmt.Errorf("%w in %q", err, raw)
			}
			if p.index < 0 && p.name == "" {
				p.index = auto
				auto++
				autoUsed = true
			} else if p.index >= 0 {
				manual = true
			}
			if autoUsed && manual {
				return nil, fmt.Errorf("%w: cannot mix automatic and manual field numbering in %q", ErrSyntax, raw)
			}
			flush()
			t.parts = append(t.parts, p)
			i += end + 1
		case '}':
			if i+1 < len(raw) && raw[i+1] == '}' {
				lit.WriteByte('}')
				i++
				continue
			}
			return nil, fmt.Errorf("%w: single '}' at offset %d in %q", ErrSyntax, i, raw)
		default:
			lit.WriteByte(c)
		}
	}
	flush()
	return t, nil
}

func parseField(s string) (part, error) {
	p := part{field: true, index: -1}

	if j := strings.IndexByte(s, ':'); j >= 0 {
		p.spec = s[j+1:]
		s = s[:j]
		if err := checkSpec(p.spec); err != nil {
			return p, err
		}
	}
	if j := strings.IndexByte(s, '!'); j >= 0 {
		conv := s[j+1:]
		if conv != "s" && conv != "r" {
			return p, fmt.Errorf("%w: unknown conversion %q", ErrSyntax, conv)
		}
		p.conv = conv[0]
		s = s[:j]
	}
	if s == "" {
		return p, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return p, fmt.Errorf("%w: negative index %d", ErrSyntax, n)
		}
		p.index = n
		return p, nil
	}
	p.name = s
	return p, nil
}

const specVerbs = "bcdoxXeEfFgGsqv"

func checkSpec(spec string) error {
	if spec == "" {
		return nil
	}
	body := strings.TrimLeft(spec, "<>^")
	if n := len(body); n > 0 && strings.IndexByte(specVerbs, body[n-1]) >= 0 {
		body = body[:n-1]
	}
	for _, r := range body {
		if !strings.ContainsRune("-+ #0123456789.", r) {
			return fmt.Errorf("%w: unsupported format spec %q", ErrSyntax, spec)
		}
	}
	return nil
}

// String returns the source text of the template.
func (t *Template) String() string {
	return t.raw
}

// Execute substitutes the variables of b.
func (t *Template) Execute(b vars.Bag, mode Mode) (string, error) {
	var out strings.Builder
	for _, p := range t.parts {
		if !p.field {
			out.WriteString(p.literal)
			continue
		}

		var (
			v   any
			err error
		)
		if p.index >= 0 {
			v, err = b.At(p.index)
		} else {
			v, err = b.Get(p.name)
		}
		if err != nil {
			if mode == Lenient {
				continue
			}
			return "", fmt.Errorf("template %q: %w: %w", t.raw, ErrMissingVariable, err)
		}
		out.WriteString(render(v, p.conv, p.spec))
	}
	return out.String(), nil
}

// Format parses raw and executes it against b.
func Format(raw string, b vars.Bag, mode Mode) (string, error) {
	t, err := Parse(raw)
	if err != nil {
		return "", err
	}
	return t.Execute(b, mode)
}

func render(v any, conv byte, spec string) string {
	v = normalize(v)
	if conv == 'r' {
		if s, ok := v.(string); ok {
			v = strconv.Quote(s)
		}
	}
	if spec == "" {
		return fmt.Sprint(v)
	}

	flags := ""
	body := spec
	switch body[0] {
	case '<':
		flags = "-"
		body = body[1:]
	case '>', '^':
		body = body[1:]
	}
	verb := "v"
	if n := len(body); n > 0 && strings.IndexByte(specVerbs, body[n-1]) >= 0 {
		verb = body[n-1:]
		body = body[:n-1]
	}
	if strings.Contains("eEfFgG", verb) {
		v = toFloat(v)
	}
	return fmt.Sprintf("%"+flags+body+verb, v)
}

// toFloat converts integers so float verbs print them as numbers.
func toFloat(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int8:
		return float64(x)
	case int16:
		return float64(x)
	case int32:
		return float64(x)
	case int64:
		return float64(x)
	case uint:
		return float64(x)
	case uint8:
		return float64(x)
	case uint16:
		return float64(x)
	case uint32:
		return float64(x)
	case uint64:
		return float64(x)
	}
	return v
}

func normalize(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case time.Time:
		if x.Hour() == 0 && x.Minute() == 0 && x.Second() == 0 && x.Nanosecond() == 0 {
			return x.Format(time.DateOnly)
		}
		return x.Format(time.RFC3339)
	}
	return v
}
