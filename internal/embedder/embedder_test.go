package embedder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbenjam1n/validb/internal/format"
	"github.com/sbenjam1n/validb/internal/vars"
)

func TestToday(t *testing.T) {
	fixed := func() time.Time { return time.Date(2024, 2, 28, 15, 4, 5, 0, time.Local) }

	tests := []struct {
		name   string
		params TodayParams
		key    string
		want   string
	}{
		{"default key", TodayParams{}, "today", "2024-02-28"},
		{"shift forward", TodayParams{KeyName: "due", Shift: 2}, "due", "2024-03-01"},
		{"shift back", TodayParams{KeyName: "yesterday", Shift: -1}, "yesterday", "2024-02-27"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewToday(tt.params)
			e.now = fixed

			bag := vars.FromRow([]string{"Code"}, []any{"JPN"}).Extended(e)
			got, err := format.Format("{"+tt.key+"}", bag, format.Strict)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConst(t *testing.T) {
	_, err := NewConst(ConstParams{})
	assert.Error(t, err)

	e, err := NewConst(ConstParams{Values: map[string]any{"owner": "dba", "Code": "override"}})
	require.NoError(t, err)

	bag := vars.FromRow([]string{"Code"}, []any{"JPN"}).Extended(e)
	owner, err := bag.Get("owner")
	require.NoError(t, err)
	assert.Equal(t, "dba", owner)

	code, err := bag.Get("Code")
	require.NoError(t, err)
	assert.Equal(t, "override", code, "last write wins")

	first, err := bag.At(0)
	require.NoError(t, err)
	assert.Equal(t, "JPN", first, "positional variables are untouched")
}

func TestEnv(t *testing.T) {
	t.Setenv("VALIDB_TEST_STAGE", "staging")

	e, err := NewEnv(EnvParams{Vars: map[string]string{"stage": "VALIDB_TEST_STAGE", "missing": "VALIDB_TEST_UNSET"}})
	require.NoError(t, err)

	bag := vars.New(nil, nil).Extended(e)
	stage, err := bag.Get("stage")
	require.NoError(t, err)
	assert.Equal(t, "staging", stage)

	missing, err := bag.Get("missing")
	require.NoError(t, err)
	assert.Equal(t, "", missing)

	_, err = NewEnv(EnvParams{Vars: map[string]string{"missing": "VALIDB_TEST_UNSET"}, Required: true})
	assert.ErrorContains(t, err, "VALIDB_TEST_UNSET")
}
