package detection

import (
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sbenjam1n/validb/internal/vars"
)

func det(id string, level int, typ string) *Detection {
	return New(id, level, typ, "msg "+id, vars.New(nil, nil))
}

func TestIndexesAgree(t *testing.T) {
	d := NewData(Unlimited())
	input := []*Detection{
		det("A", 2, "NULL_X"),
		det("B", 2, "NULL_X"),
		det("A", 1, "TOO_SMALL"),
		det("C", 5, "DUP"),
		det("A", 2, "DUP"),
	}
	require.NoError(t, d.Extend(input))

	assert.Equal(t, len(input), d.Count())
	assert.False(t, d.TooManyDetection())

	sum := func(keys []string, get func(string) ([]*Detection, error)) int {
		n := 0
		for _, k := range keys {
			got, err := get(k)
			require.NoError(t, err)
			n += len(got)
		}
		return n
	}
	assert.Equal(t, d.Count(), sum(d.IDs(), d.ByID))
	assert.Equal(t, d.Count(), sum(d.DetectionTypes(), d.ByDetectionType))

	n := 0
	for lt := range d.LevelsAndTypes() {
		got, err := d.ByLevelAndType(lt.Level, lt.DetectionType)
		require.NoError(t, err)
		n += len(got)
	}
	assert.Equal(t, d.Count(), n)
}

func TestByIDKeepsAppendOrder(t *testing.T) {
	d := NewData(Unlimited())
	first := det("A", 0, "T1")
	second := det("A", 3, "T2")
	third := det("A", 1, "T1")
	for _, x := range []*Detection{first, det("B", 0, "T1"), second, third} {
		require.NoError(t, d.Append(x))
	}

	got, err := d.ByID("A")
	require.NoError(t, err)
	assert.Equal(t, []*Detection{first, second, third}, got)

	assert.Equal(t, []string{"A", "B"}, d.IDs())
	assert.Equal(t, []string{"T1", "T2"}, d.DetectionTypes())
}

func TestLookupUnpopulatedKey(t *testing.T) {
	d := NewData(Unlimited())
	require.NoError(t, d.Append(det("A", 2, "NULL_X")))

	_, err := d.ByID("Z")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = d.ByDetectionType("OTHER")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = d.ByLevelAndType(1, "NULL_X")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOverflow(t *testing.T) {
	const n = 3
	d := NewData(MaxDetections(n))

	for i := 0; i < n; i++ {
		require.NoError(t, d.Append(det(fmt.Sprint(i), 0, "T")))
	}
	assert.False(t, d.TooManyDetection())

	err := d.Append(det("overflow", 0, "T"))
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, n, d.Count())
	assert.True(t, d.TooManyDetection())

	_, err = d.ByID("overflow")
	assert.ErrorIs(t, err, ErrNotFound)

	// the flag is sticky
	_ = d.Append(det("again", 0, "T"))
	assert.True(t, d.TooManyDetection())
	assert.Equal(t, n, d.Count())
}

func TestZeroLimit(t *testing.T) {
	d := NewData(MaxDetections(0))
	assert.ErrorIs(t, d.Append(det("A", 0, "T")), ErrCapacityExceeded)
	assert.Equal(t, 0, d.Count())
	assert.True(t, d.TooManyDetection())
}

func TestExtendStopsAtCapacity(t *testing.T) {
	d := NewData(MaxDetections(2))
	err := d.Extend([]*Detection{det("A", 0, "T"), det("B", 0, "T"), det("C", 0, "T")})
	assert.ErrorIs(t, err, ErrCapacityExceeded)
	assert.Equal(t, []string{"A", "B"}, d.IDs())
}

func TestLevelsAndTypes(t *testing.T) {
	d := NewData(Unlimited())
	for _, x := range []*Detection{
		det("1", 0, "LOW"),
		det("2", 5, "HIGH_B"),
		det("3", 2, "MID"),
		det("4", 5, "HIGH_A"),
		det("5", 5, "HIGH_B"),
	} {
		require.NoError(t, d.Append(x))
	}

	want := []LevelType{
		{5, "HIGH_B"},
		{5, "HIGH_A"},
		{2, "MID"},
		{0, "LOW"},
	}
	assert.Equal(t, want, slices.Collect(d.LevelsAndTypes()))
	// restartable
	assert.Equal(t, want, slices.Collect(d.LevelsAndTypes()))
}

func TestLimitString(t *testing.T) {
	assert.Equal(t, "unlimited", Unlimited().String())
	assert.Equal(t, "10", MaxDetections(10).String())

	n, ok := MaxDetections(-4).Bounded()
	assert.True(t, ok)
	assert.Equal(t, 0, n)
}
