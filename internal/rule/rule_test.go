package rule

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbenjam1n/validb/internal/datasource"
	"github.com/sbenjam1n/validb/internal/datasource/datasourcetest"
	"github.com/sbenjam1n/validb/internal/detection"
	"github.com/sbenjam1n/validb/internal/errs"
	"github.com/sbenjam1n/validb/internal/format"
	"github.com/sbenjam1n/validb/internal/vars"
)

type kvSource struct{}

func (kvSource) Close() error { return nil }

func sources(t *testing.T, ex *datasourcetest.Executor) *datasource.Set {
	t.Helper()
	s := datasource.NewSet(nil)
	require.NoError(t, s.Add("d1", ex))
	require.NoError(t, s.Add("kv", kvSource{}))
	return s
}

func TestTemplateRuleEndToEnd(t *testing.T) {
	const query = "SELECT code FROM t WHERE x IS NULL"
	ex := datasourcetest.New().Result(query, []string{"code"}, []any{"A"}, []any{"B"})

	r, err := NewTemplateRule(TemplateParams{
		SQL:           query,
		ID:            "{0}",
		DetectionType: "NULL_X",
		Msg:           "null x",
		DataSource:    "d1",
		Level:         2,
	})
	require.NoError(t, err)

	dets, err := r.Exec(context.Background(), sources(t, ex), nil, detection.New)
	require.NoError(t, err)
	require.Len(t, dets, 2)

	for i, want := range []string{"A", "B"} {
		assert.Equal(t, want, dets[i].ID())
		assert.Equal(t, 2, dets[i].Level())
		assert.Equal(t, "NULL_X", dets[i].DetectionType())
		assert.Equal(t, "null x", dets[i].Message())
	}

	data := detection.NewData(detection.Unlimited())
	require.NoError(t, data.Extend(dets))
	got, err := data.ByLevelAndType(2, "NULL_X")
	require.NoError(t, err)
	assert.Equal(t, dets, got)
	assert.Equal(t, []string{query}, ex.Queries())
}

func TestTemplateRuleEmbedders(t *testing.T) {
	ex := datasourcetest.New().Result("q", []string{"Code", "Population"}, []any{"JPN", int64(0)})
	r, err := NewTemplateRule(TemplateParams{
		SQL:           "q",
		ID:            "{Code}",
		DetectionType: "EMPTY",
		Msg:           "{Code} checked by {owner}",
		DataSource:    "d1",
		Embedders:     []string{"owner"},
	})
	require.NoError(t, err)

	owner := vars.ExtenderFunc(func(_ []any, named map[string]any) map[string]any {
		named["owner"] = "dba"
		return named
	})

	dets, err := r.Exec(context.Background(), sources(t, ex), map[string]vars.Extender{"owner": owner}, nil)
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Equal(t, "JPN", dets[0].ID())
	assert.Equal(t, "JPN checked by dba", dets[0].Message())
	assert.Equal(t, detection.DefaultLevel, dets[0].Level())

	_, err = r.Exec(context.Background(), sources(t, ex), nil, nil)
	assert.ErrorContains(t, err, `embedder "owner" is not defined`)
}

func TestTemplateRuleStrictAndLenient(t *testing.T) {
	ex := datasourcetest.New().Result("q", []string{"Code"}, []any{"JPN"})
	params := TemplateParams{SQL: "q", ID: "{Code}", DetectionType: "T", Msg: "{Code}/{Name}", DataSource: "d1"}

	strict, err := NewTemplateRule(params)
	require.NoError(t, err)
	assert.False(t, strict.Lenient())
	_, err = strict.Exec(context.Background(), sources(t, ex), nil, nil)
	assert.ErrorIs(t, err, format.ErrMissingVariable)
	assert.False(t, errs.IsDataAccess(err))

	params.Lenient = true
	lenient, err := NewTemplateRule(params)
	require.NoError(t, err)
	dets, err := lenient.Exec(context.Background(), sources(t, ex), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "JPN/", dets[0].Message())
}

func TestTemplateRuleValidation(t *testing.T) {
	valid := TemplateParams{SQL: "q", ID: "{0}", DetectionType: "T", Msg: "m", DataSource: "d1"}

	tests := []struct {
		name   string
		mutate func(*TemplateParams)
	}{
		{"no sql", func(p *TemplateParams) { p.SQL = "" }},
		{"no id", func(p *TemplateParams) { p.ID = "" }},
		{"no type", func(p *TemplateParams) { p.DetectionType = "" }},
		{"no msg", func(p *TemplateParams) { p.Msg = "" }},
		{"no datasource", func(p *TemplateParams) { p.DataSource = "" }},
		{"bad template", func(p *TemplateParams) { p.Msg = "{unclosed" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			_, err := NewTemplateRule(p)
			assert.Error(t, err)
		})
	}
}

func TestExecDataAccessErrors(t *testing.T) {
	ex := datasourcetest.New().Fail("broken", errors.New("syntax error at or near"))
	set := sources(t, ex)

	tests := []struct {
		name       string
		datasource string
		sql        string
		target     error
	}{
		{"unknown source", "nope", "q", datasource.ErrUnknownDataSource},
		{"not an executor", "kv", "q", datasource.ErrTypeMismatch},
		{"query failure", "d1", "broken", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewTemplateRule(TemplateParams{
				Name: "check", SQL: tt.sql, ID: "{0}", DetectionType: "T", Msg: "m", DataSource: tt.datasource,
			})
			require.NoError(t, err)

			_, err = r.Exec(context.Background(), set, nil, nil)
			require.Error(t, err)

			var dae *errs.DataAccessError
			require.ErrorAs(t, err, &dae)
			assert.Equal(t, "check", dae.Rule)
			assert.Equal(t, tt.datasource, dae.DataSource)
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestSQLRuleCustomFunctions(t *testing.T) {
	ex := datasourcetest.New().Result("q", []string{"a", "b"}, []any{int64(1), int64(2)})
	r, err := NewSQLRule(SQLRuleConfig{
		SQL:           "q",
		DataSource:    "d1",
		Level:         3,
		DetectionType: "SUM",
		ID: func(b vars.Bag) (string, error) {
			return format.Format("{a}-{b}", b, format.Strict)
		},
		Message: func(vars.Bag) (string, error) { return "", errors.New("boom") },
	})
	require.NoError(t, err)

	_, err = r.Exec(context.Background(), sources(t, ex), nil, nil)
	assert.ErrorContains(t, err, "message: boom")

	_, err = NewSQLRule(SQLRuleConfig{SQL: "q", DataSource: "d1"})
	assert.Error(t, err)
}

func TestSortByLevel(t *testing.T) {
	mk := func(name string, level int) Rule {
		r, err := NewTemplateRule(TemplateParams{Name: name, SQL: "q", ID: "{0}", DetectionType: name, Msg: "m", DataSource: "d1", Level: level})
		require.NoError(t, err)
		return r
	}
	rules := []Rule{mk("a", 1), mk("b", 5), mk("c", 1), mk("d", 5), mk("e", 0)}

	var names []string
	for _, r := range SortByLevel(rules) {
		names = append(names, Describe(r))
	}
	assert.Equal(t, []string{"b", "d", "a", "c", "e"}, names)
	assert.Equal(t, "a", Describe(rules[0]), "input is not reordered")
}
