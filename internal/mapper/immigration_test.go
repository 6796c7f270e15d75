package mapper

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-sql/civil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"i94etl/internal/table"
)

// rawExtract builds a table shaped like a decoded SAS file: numeric columns
// as Float64, character columns as String, plus any extra columns.
func rawExtract(name string, extra []string, rows ...map[string]any) *table.Table {
	var schema table.Schema
	for _, c := range ImmigrationSchema {
		typ := table.String
		if c.Type.Kind != table.KindString {
			typ = table.Float64
		}
		schema = append(schema, table.Column{Name: c.Name, Type: typ})
	}
	for _, e := range extra {
		schema = append(schema, table.Column{Name: e, Type: table.Float64})
	}
	t := table.New(name, schema)
	for _, r := range rows {
		row := make([]any, len(schema))
		for i, c := range schema {
			row[i] = r[c.Name]
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func visitor(cicid float64, addr string, arr, dep any) map[string]any {
	return map[string]any{
		"cicid": cicid, "i94yr": 2016.0, "i94mon": 4.0, "i94cit": 101.0, "i94res": 101.0,
		"i94port": "NYC", "arrdate": arr, "i94mode": 1.0, "i94addr": addr, "depdate": dep,
		"i94bir": 33.0, "i94visa": 2.0, "count": 1.0, "matflag": "M", "biryear": 1983.0,
		"gender": "F", "airline": "AA", "admnum": 55425779230.0, "fltno": "00101", "visatype": "B2",
	}
}

type fakeSAS struct {
	mu     sync.Mutex
	tables map[string]*table.Table
	chunk  int
}

func (f *fakeSAS) read(_ context.Context, path string, chunkRows int) (*table.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunk = chunkRows
	t, ok := f.tables[filepath.Base(path)]
	if !ok {
		return nil, errors.New("unexpected file " + path)
	}
	return t, nil
}

func immigrationInput(t *testing.T, tables map[string]*table.Table) (*Session, *memWriter, *fakeSAS) {
	t.Helper()
	dir := t.TempDir()
	writeInput(t, dir, "sas/apr.sas7bdat", "")
	writeInput(t, dir, "sas/sub/jun.SAS7BDAT", "")
	writeInput(t, dir, "sas/readme.txt", "")
	s, w := newSession(t, dir)
	s.Job.Input.Immigration.Path = "sas"
	return s, w, &fakeSAS{tables: tables}
}

func TestImmigration_RunDropsLegacyAndMaps(t *testing.T) {
	t.Parallel()

	s, w, sas := immigrationInput(t, map[string]*table.Table{
		"apr.sas7bdat": rawExtract("apr", nil,
			visitor(1, "NY", 20545.0, 20574.0),
			visitor(2, "CA", 20545.0, nil),
		),
		"jun.SAS7BDAT": rawExtract("jun", LegacyColumns,
			visitor(1, "NY", 20545.0, 20574.0),
			visitor(3, "", 20546.0, nil),
		),
	})
	require.NoError(t, Immigration{Read: sas.read}.Run(context.Background(), s))
	require.Equal(t, s.Job.Runtime.SASChunkRows, sas.chunk)

	require.Equal(t, []string{"Immigrations", "Immigrants", "Airports"}, w.order)
	require.Equal(t, "state_code", w.keys["Immigrations"])
	require.Equal(t, "", w.keys["Airports"])

	imm := w.tables["Immigrations"]
	require.Equal(t, []string{"cic_id", "year", "month", "state_code", "port_code", "mode_code",
		"visa_code", "arrival_date", "departure_date", "match_flag", "immigration_id"}, imm.Schema.Names())
	require.Len(t, imm.Rows, 3)

	apr1 := civil.Date{Year: 2016, Month: time.April, Day: 1}
	first := imm.Rows[0]
	require.Equal(t, int32(1), first[0])
	require.Equal(t, int32(2016), first[1])
	require.Equal(t, "NY", first[3])
	require.Equal(t, apr1, first[7])
	require.Equal(t, civil.Date{Year: 2016, Month: time.April, Day: 30}, first[8])
	require.Nil(t, imm.Rows[1][8])

	ids := map[any]bool{}
	for _, r := range imm.Rows {
		ids[r[10]] = true
	}
	require.Len(t, ids, 3)

	require.Equal(t, []string{"cic_id", "citizen_country", "residence_country", "age", "gender",
		"ins_num", "immigrants_id"}, w.tables["Immigrants"].Schema.Names())
	require.Len(t, w.tables["Immigrants"].Rows, 3)

	airports := w.tables["Airports"]
	require.Equal(t, []string{"cic_id", "airline", "flight_number", "admin_number", "visa_type", "airports_id"},
		airports.Schema.Names())
	require.Equal(t, table.Decimal(18, 0), airports.Schema[3].Type)
	require.Equal(t, int64(55425779230), airports.Rows[0][3])
}

func TestConformImmigration_Mismatch(t *testing.T) {
	t.Parallel()

	partial := rawExtract("partial", LegacyColumns[:3], visitor(1, "NY", 20545.0, nil))
	_, err := ConformImmigration(partial, "partial.sas7bdat", zap.NewNop())
	require.ErrorIs(t, err, table.ErrSchemaMismatch)
	require.ErrorContains(t, err, "delete_mexl")

	extra := rawExtract("extra", []string{"zz"}, visitor(1, "NY", 20545.0, nil))
	_, err = ConformImmigration(extra, "extra.sas7bdat", zap.NewNop())
	require.ErrorIs(t, err, table.ErrSchemaMismatch)
	require.ErrorContains(t, err, "extra.sas7bdat")

	missing, err := rawExtract("missing", nil).Select("cicid", "i94yr")
	require.NoError(t, err)
	_, err = ConformImmigration(missing, "missing.sas7bdat", zap.NewNop())
	require.ErrorIs(t, err, table.ErrSchemaMismatch)
	require.ErrorContains(t, err, "visatype")
}

func TestConformImmigration_DeclaredOrderAndTypes(t *testing.T) {
	t.Parallel()

	got, err := ConformImmigration(rawExtract("apr", LegacyColumns, visitor(7, "TX", 20545.0, nil)), "apr", zap.NewNop())
	require.NoError(t, err)
	require.Equal(t, ImmigrationSchema, got.Schema)
	require.Equal(t, int32(7), got.Rows[0][0])
	require.Equal(t, 20545.0, got.Rows[0][6])
}

func TestImmigration_Errors(t *testing.T) {
	t.Parallel()

	s, _ := newSession(t, t.TempDir())
	s.Job.Input.Immigration.Path = "."
	err := Immigration{Read: (&fakeSAS{}).read}.Run(context.Background(), s)
	require.ErrorIs(t, err, fs.ErrNotExist)

	s, _, sas := immigrationInput(t, map[string]*table.Table{
		"apr.sas7bdat": rawExtract("apr", nil, visitor(1, "NY", 20545.0, nil)),
	})
	err = Immigration{Read: sas.read}.Run(context.Background(), s)
	require.ErrorContains(t, err, "unexpected file")
}

func TestImmigration_PerFileProjectionMatchesUnion(t *testing.T) {
	t.Parallel()

	log := zap.NewNop()
	apr, err := ConformImmigration(rawExtract("apr", nil,
		visitor(1, "NY", 20545.0, 20574.0),
		visitor(1, "NY", 20545.0, 20574.0),
		visitor(2, "CA", 20545.0, nil),
	), "apr", log)
	require.NoError(t, err)
	jun, err := ConformImmigration(rawExtract("jun", nil,
		visitor(2, "CA", 20545.0, nil),
		visitor(3, "WA", 20546.0, nil),
	), "jun", log)
	require.NoError(t, err)

	aprParts, err := project(apr)
	require.NoError(t, err)
	require.Equal(t, 2, aprParts[0].Len(), "duplicate visit dropped within the file")

	junParts, err := project(jun)
	require.NoError(t, err)
	imm, immigrants, airports, err := finish([]projection{aprParts, junParts})
	require.NoError(t, err)

	union, err := apr.Union(jun)
	require.NoError(t, err)
	wantImm, wantImmigrants, wantAirports, err := Immigration{}.Map(union)
	require.NoError(t, err)

	require.Equal(t, wantImm, imm)
	require.Equal(t, wantImmigrants, immigrants)
	require.Equal(t, wantAirports, airports)
	require.Equal(t, 3, imm.Len(), "visit 2 appears in both files once")
	require.Equal(t, []any{int32(1), int32(2), int32(3)},
		[]any{imm.Rows[0][0], imm.Rows[1][0], imm.Rows[2][0]})
}
