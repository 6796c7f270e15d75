package mapper

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"i94etl/internal/datasource/file"
	csvparser "i94etl/internal/parser/csv"
	"i94etl/internal/table"
	"i94etl/internal/transformer"
	"i94etl/internal/transformer/builtin"
)

// Demographics source headers.
const (
	colCity             = "City"
	colState            = "State"
	colStateCode        = "State Code"
	colMalePop          = "Male Population"
	colFemalePop        = "Female Population"
	colTotalPop         = "Total Population"
	colVeterans         = "Number of Veterans"
	colForeignBorn      = "Foreign-born"
	colRace             = "Race"
	colMedianAge        = "Median Age"
	colAvgHouseholdSize = "Average Household Size"
)

var demographicsTypes = map[string]table.Type{
	colMalePop:          table.Int32,
	colFemalePop:        table.Int32,
	colTotalPop:         table.Int32,
	colVeterans:         table.Int32,
	colForeignBorn:      table.Int32,
	colMedianAge:        table.Float64,
	colAvgHouseholdSize: table.Float64,
}

// Demographics maps the city demographics CSV to Populations and
// Population_Statistics, both partitioned by state.
type Demographics struct{}

// Name implements Mapper.
func (Demographics) Name() string { return "demographics" }

// Run implements Mapper.
func (d Demographics) Run(ctx context.Context, s *Session) error {
	in := s.Job.Input
	path := in.Resolve(in.Demographics.Path)

	src, err := readCSV(ctx, s, path, "demographics", in.Demographics.CSV(';'))
	if err != nil {
		return err
	}
	pops, stats, err := d.Map(src, path)
	if err != nil {
		return err
	}
	if err := s.Emit(ctx, pops, "state"); err != nil {
		return err
	}
	return s.Emit(ctx, stats, "state")
}

// Map derives the two output tables from the raw all-String source table.
func (Demographics) Map(src *table.Table, source string) (pops, stats *table.Table, err error) {
	if err := requireColumns(src, source,
		colCity, colState, colStateCode, colMalePop, colFemalePop, colTotalPop,
		colVeterans, colForeignBorn, colRace, colMedianAge, colAvgHouseholdSize,
	); err != nil {
		return nil, nil, err
	}

	base, err := transformer.Chain{
		builtin.Normalize{},
		builtin.Upper{Columns: []string{colCity, colState}},
		builtin.Coerce{Types: demographicsTypes},
	}.Apply(src)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", source, err)
	}

	pops, err = transformer.Chain{
		builtin.Select{Columns: []string{colCity, colState, colStateCode, colMalePop, colFemalePop,
			colTotalPop, colVeterans, colForeignBorn, colRace}},
		builtin.Distinct{},
		builtin.SurrogateID{Name: "population_id"},
		builtin.Rename{Names: []string{"city", "state", "state_code", "male_population", "female_population",
			"total_population", "num_of_veterans", "foreign_born", "race", "population_id"}},
		builtin.Named("Populations"),
	}.Apply(base)
	if err != nil {
		return nil, nil, fmt.Errorf("Populations: %w", err)
	}

	stats, err = transformer.Chain{
		builtin.Select{Columns: []string{colCity, colState, colStateCode, colMedianAge, colAvgHouseholdSize}},
		builtin.Distinct{},
		builtin.SurrogateID{Name: "pop_statistics_id"},
		builtin.Rename{Names: []string{"city", "state", "state_code", "median_age", "avg_household_size", "pop_statistics_id"}},
		builtin.Named("Population_Statistics"),
	}.Apply(base)
	if err != nil {
		return nil, nil, fmt.Errorf("Population_Statistics: %w", err)
	}
	return pops, stats, nil
}

// readCSV loads one CSV file as an all-String table. Rows with the wrong
// number of fields are logged and skipped.
func readCSV(ctx context.Context, s *Session, path, name string, opt csvparser.Options) (*table.Table, error) {
	log := s.logger()
	opt.OnError = func(line int, err error) {
		log.Warn("csv: skip row", zap.String("file", path), zap.Int("line", line), zap.Error(err))
	}
	t, skipped, err := csvparser.ReadTable(ctx, file.NewLocal(path), name, opt)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	log.Info("csv: read",
		zap.String("file", path),
		zap.Int("rows", t.Len()),
		zap.Int("skipped", skipped),
	)
	return t, nil
}
