package mapper

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"i94etl/internal/datasource/file"
	"i94etl/internal/parser/sas"
	"i94etl/internal/table"
	"i94etl/internal/transformer"
	"i94etl/internal/transformer/builtin"
)

// ImmigrationSchema is the declared shape of every I94 SAS extract.
var ImmigrationSchema = table.Schema{
	{Name: "cicid", Type: table.Int32},
	{Name: "i94yr", Type: table.Int32},
	{Name: "i94mon", Type: table.Int32},
	{Name: "i94cit", Type: table.Int32},
	{Name: "i94res", Type: table.Int32},
	{Name: "i94port", Type: table.String},
	{Name: "arrdate", Type: table.Float64},
	{Name: "i94mode", Type: table.Int32},
	{Name: "i94addr", Type: table.String},
	{Name: "depdate", Type: table.Float64},
	{Name: "i94bir", Type: table.Int32},
	{Name: "i94visa", Type: table.Int32},
	{Name: "count", Type: table.Int32},
	{Name: "dtadfile", Type: table.String},
	{Name: "visapost", Type: table.String},
	{Name: "occup", Type: table.String},
	{Name: "entdepa", Type: table.String},
	{Name: "entdepd", Type: table.String},
	{Name: "entdepu", Type: table.String},
	{Name: "matflag", Type: table.String},
	{Name: "biryear", Type: table.Int32},
	{Name: "dtaddto", Type: table.String},
	{Name: "gender", Type: table.String},
	{Name: "insnum", Type: table.String},
	{Name: "airline", Type: table.String},
	{Name: "admnum", Type: table.Decimal(18, 0)},
	{Name: "fltno", Type: table.String},
	{Name: "visatype", Type: table.String},
}

// LegacyColumns appear in one historical extract only. A file carrying all
// of them has them dropped before the union.
var LegacyColumns = []string{"validres", "delete_days", "delete_mexl", "delete_dup", "delete_visa", "delete_recdup"}

// ImmigrationPattern selects the SAS extracts under the immigration root.
const ImmigrationPattern = "*.sas7bdat"

// SASReader decodes one SAS7BDAT file into a table with lower-cased column
// names. chunkRows <= 0 lets the reader pick.
type SASReader func(ctx context.Context, path string, chunkRows int) (*table.Table, error)

func readSASFile(ctx context.Context, path string, chunkRows int) (*table.Table, error) {
	return sas.Read(ctx, file.NewLocal(path), filepath.Base(path), chunkRows)
}

// Immigration maps the monthly I94 SAS extracts to the Immigrations fact
// table and the Immigrants and Airports dimensions.
type Immigration struct {
	// Read defaults to the SAS7BDAT reader.
	Read SASReader
}

// Name implements Mapper.
func (Immigration) Name() string { return "immigration" }

// Run implements Mapper.
func (m Immigration) Run(ctx context.Context, s *Session) error {
	in := s.Job.Input
	root := in.Resolve(in.Immigration.Path)
	paths, err := file.Discover(root, ImmigrationPattern)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no %s files under %s: %w", ImmigrationPattern, root, fs.ErrNotExist)
	}
	log := s.logger()
	log.Info("immigration: discovered", zap.String("root", root), zap.Int("files", len(paths)))

	read := m.Read
	if read == nil {
		read = readSASFile
	}

	// Each extract is reduced to its deduplicated projections as soon as it
	// is read, so only one raw file per worker is held at a time.
	parts := make([]projection, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(s.Job.Runtime.ReadWorkers))
	for i, p := range paths {
		g.Go(func() error {
			raw, err := read(gctx, p, s.Job.Runtime.SASChunkRows)
			if err != nil {
				return fmt.Errorf("read %s: %w", p, err)
			}
			conformed, err := ConformImmigration(raw, p, log)
			if err != nil {
				return err
			}
			if parts[i], err = project(conformed); err != nil {
				return fmt.Errorf("%s: %w", p, err)
			}
			log.Debug("immigration: read",
				zap.String("file", p),
				zap.Int("rows", raw.Len()),
				zap.Int("distinct_visits", parts[i][0].Len()),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	imm, immigrants, airports, err := finish(parts)
	if err != nil {
		return err
	}
	if err := s.Emit(ctx, imm, "state_code"); err != nil {
		return err
	}
	if err := s.Emit(ctx, immigrants, ""); err != nil {
		return err
	}
	return s.Emit(ctx, airports, "")
}

// ConformImmigration drops the legacy columns when the file carries the full
// legacy set, checks the remaining columns against ImmigrationSchema, and
// casts them to their declared types in declared order.
func ConformImmigration(t *table.Table, source string, log *zap.Logger) (*table.Table, error) {
	if hasAll(t.Schema, LegacyColumns) {
		var err error
		if t, err = (builtin.DropColumns{Columns: LegacyColumns}).Apply(t); err != nil {
			return nil, err
		}
		log.Info("immigration: dropped legacy columns",
			zap.String("file", source),
			zap.Strings("columns", LegacyColumns),
		)
	}

	declared := make(map[string]struct{}, len(ImmigrationSchema))
	var missing, extra []string
	for _, c := range ImmigrationSchema {
		declared[c.Name] = struct{}{}
		if t.Schema.Index(c.Name) < 0 {
			missing = append(missing, c.Name)
		}
	}
	for _, c := range t.Schema {
		if _, ok := declared[c.Name]; !ok {
			extra = append(extra, c.Name)
		}
	}
	if len(missing) > 0 || len(extra) > 0 {
		sort.Strings(extra)
		return nil, fmt.Errorf("%s: missing [%s] extra [%s]: %w",
			source, strings.Join(missing, ", "), strings.Join(extra, ", "), table.ErrSchemaMismatch)
	}

	sel, err := t.Select(ImmigrationSchema.Names()...)
	if err != nil {
		return nil, err
	}
	types := make(map[string]table.Type, len(ImmigrationSchema))
	for _, c := range ImmigrationSchema {
		types[c.Name] = c.Type
	}
	out, err := builtin.Coerce{Types: types}.Apply(sel)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}
	return out, nil
}

func hasAll(s table.Schema, names []string) bool {
	for _, n := range names {
		if s.Index(n) < 0 {
			return false
		}
	}
	return true
}

// Map derives Immigrations, Immigrants and Airports from the conformed,
// unioned extracts.
func (Immigration) Map(src *table.Table) (imm, immigrants, airports *table.Table, err error) {
	p, err := project(src)
	if err != nil {
		return nil, nil, nil, err
	}
	return finish([]projection{p})
}

// outputs lists, per derived table, the source columns it keeps, its final
// column names (surrogate id last) and the chain applied after the union.
var outputs = [3]struct {
	name    string
	columns []string
	rename  []string
	id      string
	tail    transformer.Chain
}{
	{
		name: "Immigrations",
		columns: []string{"cicid", "i94yr", "i94mon", "i94addr", "i94port", "i94mode",
			"i94visa", "arrdate", "depdate", "matflag"},
		rename: []string{"cic_id", "year", "month", "state_code", "port_code", "mode_code",
			"visa_code", "arrival_date", "departure_date", "match_flag", "immigration_id"},
		id:   "immigration_id",
		tail: transformer.Chain{builtin.SASDate{Columns: []string{"arrival_date", "departure_date"}}},
	},
	{
		name:    "Immigrants",
		columns: []string{"cicid", "i94cit", "i94res", "i94bir", "gender", "insnum"},
		rename: []string{"cic_id", "citizen_country", "residence_country", "age", "gender",
			"ins_num", "immigrants_id"},
		id: "immigrants_id",
	},
	{
		name:    "Airports",
		columns: []string{"cicid", "airline", "fltno", "admnum", "visatype"},
		rename:  []string{"cic_id", "airline", "flight_number", "admin_number", "visa_type", "airports_id"},
		id:      "airports_id",
	},
}

// projection holds one extract's deduplicated column sets, indexed like
// outputs.
type projection [3]*table.Table

func project(src *table.Table) (projection, error) {
	var p projection
	for i, o := range outputs {
		t, err := transformer.Chain{
			builtin.Select{Columns: o.columns},
			builtin.Distinct{},
		}.Apply(src)
		if err != nil {
			return p, fmt.Errorf("%s: %w", o.name, err)
		}
		p[i] = t
	}
	return p, nil
}

// finish unions the per-extract projections, removes rows repeated across
// extracts, and assigns ids and final names.
func finish(parts []projection) (imm, immigrants, airports *table.Table, err error) {
	var out [3]*table.Table
	for i, o := range outputs {
		tables := make([]*table.Table, len(parts))
		for j, p := range parts {
			tables[j] = p[i]
		}
		u, err := unionAll(tables)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("%s: %w", o.name, err)
		}
		chain := transformer.Chain{
			builtin.Distinct{},
			builtin.SurrogateID{Name: o.id},
			builtin.Rename{Names: o.rename},
		}
		chain = append(chain, o.tail...)
		chain = append(chain, builtin.Named(o.name))
		if out[i], err = chain.Apply(u); err != nil {
			return nil, nil, nil, fmt.Errorf("%s: %w", o.name, err)
		}
	}
	return out[0], out[1], out[2], nil
}
