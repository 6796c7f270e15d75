package table

import (
	"errors"
	"math"
	"testing"

	"github.com/golang-sql/civil"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Table {
	return &Table{
		Name: "t",
		Schema: Schema{
			{Name: "city", Type: String},
			{Name: "state", Type: String},
			{Name: "pop", Type: Int32},
		},
		Rows: [][]any{
			{"AUSTIN", "TX", int32(10)},
			{"AUSTIN", "TX", int32(10)},
			{"DALLAS", "TX", int32(20)},
			{"RENO", "NV", nil},
			{"RENO", "NV", nil},
		},
	}
}

func TestSelect_ProjectsInRequestedOrder(t *testing.T) {
	t.Parallel()

	got, err := sample().Select("state", "city")
	require.NoError(t, err)
	assert.Equal(t, []string{"state", "city"}, got.Schema.Names())
	assert.Equal(t, []any{"TX", "AUSTIN"}, got.Rows[0])
}

func TestSelect_UnknownColumn(t *testing.T) {
	t.Parallel()

	_, err := sample().Select("nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownColumn), "err = %v", err)
}

func TestDistinct_KeepsFirstOccurrenceOrder(t *testing.T) {
	t.Parallel()

	got := sample().Distinct()
	want := [][]any{
		{"AUSTIN", "TX", int32(10)},
		{"DALLAS", "TX", int32(20)},
		{"RENO", "NV", nil},
	}
	if diff := cmp.Diff(want, got.Rows); diff != "" {
		t.Fatalf("Distinct rows mismatch (-want +got):\n%s", diff)
	}
}

func TestDistinct_Idempotent(t *testing.T) {
	t.Parallel()

	once := sample().Distinct()
	twice := once.Distinct()
	if diff := cmp.Diff(once.Rows, twice.Rows); diff != "" {
		t.Fatalf("Distinct is not idempotent (-once +twice):\n%s", diff)
	}
}

func TestDistinct_TypeSensitive(t *testing.T) {
	t.Parallel()

	tb := &Table{
		Name:   "mixed",
		Schema: Schema{{Name: "v", Type: String}},
		Rows:   [][]any{{"1"}, {int32(1)}, {int64(1)}, {nil}, {""}, {civil.Date{Year: 2016, Month: 4, Day: 1}}},
	}
	assert.Len(t, tb.Distinct().Rows, 6)
}

func TestDistinct_FloatEdgeCases(t *testing.T) {
	t.Parallel()

	tb := &Table{
		Name:   "temps",
		Schema: Schema{{Name: "city", Type: String}, {Name: "avg_temp", Type: Float64}},
		Rows: [][]any{
			{"ÅRHUS", math.NaN()},
			{"ÅRHUS", math.NaN()},
			{"ÅRHUS", math.Copysign(0, -1)},
			{"ÅRHUS", 0.0},
			{"ÅRHUS", 6.068},
		},
	}
	got := tb.Distinct().Rows
	require.Len(t, got, 3)
	require.True(t, math.IsNaN(got[0][1].(float64)))
	require.True(t, math.Signbit(got[1][1].(float64)), "first occurrence (-0) kept")
	require.Equal(t, 6.068, got[2][1])
}

func TestWithSurrogateID_Unique(t *testing.T) {
	t.Parallel()

	got, err := sample().Distinct().WithSurrogateID("id")
	require.NoError(t, err)

	seen := map[int64]bool{}
	for _, r := range got.Rows {
		id := r[len(r)-1].(int64)
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
	assert.Len(t, seen, 3)

	_, err = got.WithSurrogateID("id")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestRename_Positional(t *testing.T) {
	t.Parallel()

	got, err := sample().Rename("a", "b", "c")
	require.NoError(t, err)
	assert.Equal(t, Schema{{"a", String}, {"b", String}, {"c", Int32}}, got.Schema)

	_, err = sample().Rename("a")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestUnion_RequiresEqualSchema(t *testing.T) {
	t.Parallel()

	a := sample()
	got, err := a.Union(sample())
	require.NoError(t, err)
	assert.Equal(t, 10, got.Len())

	b, _ := sample().Rename("x", "y", "z")
	_, err = a.Union(b)
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestMapColumn_ChangesTypeAndValues(t *testing.T) {
	t.Parallel()

	got, err := sample().MapColumn("pop", Int64, func(v any) (any, error) {
		if v == nil {
			return nil, nil
		}
		return int64(v.(int32)) * 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, Int64, got.Schema[2].Type)
	assert.Equal(t, int64(20), got.Rows[0][2])
	assert.Nil(t, got.Rows[3][2])

	// input untouched
	assert.Equal(t, int32(10), sample().Rows[0][2])
}

func TestWithColumn_AppendsAndReplaces(t *testing.T) {
	t.Parallel()

	got, err := sample().WithColumn("label", String, func(r []any) (any, error) {
		return r[0].(string) + "," + r[1].(string), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "AUSTIN,TX", got.Rows[0][3])

	got, err = got.WithColumn("city", String, func(r []any) (any, error) { return "X", nil })
	require.NoError(t, err)
	assert.Len(t, got.Schema, 4)
	assert.Equal(t, "X", got.Rows[2][0])
}

func TestDrop_IgnoresMissing(t *testing.T) {
	t.Parallel()

	got := sample().Drop("pop", "missing")
	assert.Equal(t, []string{"city", "state"}, got.Schema.Names())
}

func TestPartitionBy_ExactDistinctKeys(t *testing.T) {
	t.Parallel()

	in := sample()
	in.Rows = append(in.Rows, []any{"NOWHERE", nil, int32(1)}, []any{"SOMEWHERE", "", int32(2)})

	parts, err := in.PartitionBy("state")
	require.NoError(t, err)
	require.Len(t, parts, 3)

	assert.Equal(t, "TX", parts[0].Value)
	assert.Equal(t, "NV", parts[1].Value)
	assert.True(t, parts[2].Null)

	total := 0
	for _, p := range parts {
		assert.Equal(t, []string{"city", "pop"}, p.Table.Schema.Names())
		total += p.Table.Len()
	}
	assert.Equal(t, in.Len(), total)
	assert.Equal(t, 2, parts[2].Table.Len())
}

func TestPartitionBy_RejectsNonStringKey(t *testing.T) {
	t.Parallel()

	_, err := sample().PartitionBy("pop")
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}
