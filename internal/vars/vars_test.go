package vars

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromRow(t *testing.T) {
	b := FromRow([]string{"Code", "Population"}, []any{"JPN", 125})

	assert.Equal(t, 2, b.Len())

	v, err := b.At(0)
	require.NoError(t, err)
	assert.Equal(t, "JPN", v)

	v, err = b.Get("Population")
	require.NoError(t, err)
	assert.Equal(t, 125, v)
}

func TestLookupMissing(t *testing.T) {
	b := FromRow([]string{"Code"}, []any{"JPN"})

	tests := []struct {
		name string
		get  func() (any, error)
	}{
		{"negative index", func() (any, error) { return b.At(-1) }},
		{"index out of range", func() (any, error) { return b.At(1) }},
		{"unknown name", func() (any, error) { return b.Get("Name") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.get()
			assert.ErrorIs(t, err, ErrKeyNotFound)
		})
	}
}

func TestExtendedWithoutExtenders(t *testing.T) {
	b := FromRow([]string{"Code"}, []any{"JPN"})
	got := b.Extended()

	assert.Equal(t, b.Positional(), got.Positional())
	assert.Equal(t, b.Named(), got.Named())
}

func TestExtendedFoldsInOrder(t *testing.T) {
	b := FromRow([]string{"Code"}, []any{"JPN"})

	first := ExtenderFunc(func(pos []any, named map[string]any) map[string]any {
		named["label"] = "first"
		named["first_seen"] = pos[0]
		return named
	})
	second := ExtenderFunc(func(pos []any, named map[string]any) map[string]any {
		// sees the earlier addition, overwrites it
		named["label"] = named["label"].(string) + "+second"
		return named
	})

	got := b.Extended(first, second)

	label, err := got.Get("label")
	require.NoError(t, err)
	assert.Equal(t, "first+second", label)

	seen, err := got.Get("first_seen")
	require.NoError(t, err)
	assert.Equal(t, "JPN", seen)

	_, err = b.Get("label")
	assert.ErrorIs(t, err, ErrKeyNotFound, "original bag must not change")
	assert.Equal(t, b.Positional(), got.Positional())
}

func TestExtendedNilResult(t *testing.T) {
	b := FromRow([]string{"Code"}, []any{"JPN"})
	drop := ExtenderFunc(func([]any, map[string]any) map[string]any { return nil })

	got := b.Extended(drop)
	_, err := got.Get("Code")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	assert.Equal(t, 1, got.Len())
}
