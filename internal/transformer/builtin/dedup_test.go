package builtin

import (
	"reflect"
	"testing"

	"i94etl/internal/table"
	"i94etl/internal/transformer"
)

func demoTable() *table.Table {
	return &table.Table{
		Name: "demo",
		Schema: table.Schema{
			{Name: "City", Type: table.String},
			{Name: "State", Type: table.String},
			{Name: "Race", Type: table.String},
			{Name: "Median Age", Type: table.Float64},
		},
		Rows: [][]any{
			{"QUINCY", "MASSACHUSETTS", "White", 41.0},
			{"QUINCY", "MASSACHUSETTS", "Asian", 41.0},
			{"QUINCY", "MASSACHUSETTS", "Asian", 41.0},
		},
	}
}

func TestChain_SelectDistinctIDRename(t *testing.T) {
	t.Parallel()

	chain := transformer.Chain{
		Select{Columns: []string{"City", "State", "Median Age"}},
		Distinct{},
		SurrogateID{Name: "pop_statistics_id"},
		Rename{Names: []string{"city", "state", "median_age", "pop_statistics_id"}},
		Named("Population_Statistics"),
	}
	out, err := chain.Apply(demoTable())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.Name != "Population_Statistics" {
		t.Fatalf("name = %q", out.Name)
	}
	want := [][]any{{"QUINCY", "MASSACHUSETTS", 41.0, int64(0)}}
	if !reflect.DeepEqual(out.Rows, want) {
		t.Fatalf("rows = %#v, want %#v", out.Rows, want)
	}
}

func TestChain_StopsAtFirstError(t *testing.T) {
	t.Parallel()

	called := false
	chain := transformer.Chain{
		Select{Columns: []string{"nope"}},
		transformer.Func(func(in *table.Table) (*table.Table, error) { called = true; return in, nil }),
	}
	if _, err := chain.Apply(demoTable()); err == nil {
		t.Fatalf("expected error")
	}
	if called {
		t.Fatalf("step after failing step was executed")
	}
}

func TestDistinct_TwoRacesOneCity(t *testing.T) {
	t.Parallel()

	out, err := transformer.Chain{Select{Columns: []string{"City", "State", "Race"}}, Distinct{}}.Apply(demoTable())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if out.Len() != 2 {
		t.Fatalf("rows = %d, want 2", out.Len())
	}
}

func TestDropColumns(t *testing.T) {
	t.Parallel()

	out, _ := DropColumns{Columns: []string{"Race", "validres"}}.Apply(demoTable())
	if got := out.Schema.Names(); !reflect.DeepEqual(got, []string{"City", "State", "Median Age"}) {
		t.Fatalf("columns = %v", got)
	}
}
