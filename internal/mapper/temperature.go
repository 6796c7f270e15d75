package mapper

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"i94etl/internal/datasource/file"
	"i94etl/internal/table"
	"i94etl/internal/transformer"
	"i94etl/internal/transformer/builtin"
)

// Temperature source headers.
const (
	colDt            = "dt"
	colAvgTemp       = "AverageTemperature"
	colAvgTempUncert = "AverageTemperatureUncertainty"
	colTempCity      = "City"
	colCountry       = "Country"
	colLatitude      = "Latitude"
	colLongitude     = "Longitude"
)

var temperatureColumns = []string{colDt, colAvgTemp, colAvgTempUncert, colTempCity, colCountry, colLatitude, colLongitude}

// Temperature maps the global land temperature CSVs to Temperatures and
// Temperature_Statistics. Neither table carries a surrogate id.
type Temperature struct{}

// Name implements Mapper.
func (Temperature) Name() string { return "temperature" }

// Run implements Mapper.
func (t Temperature) Run(ctx context.Context, s *Session) error {
	in := s.Job.Input
	paths, err := file.Glob(in.Resolve(in.Temperature.Path))
	if err != nil {
		return err
	}
	opt := in.Temperature.CSV(',')

	parts := make([]*table.Table, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers(s.Job.Runtime.ReadWorkers))
	for i, p := range paths {
		g.Go(func() error {
			raw, err := readCSV(gctx, s, p, "temperature", opt)
			if err != nil {
				return err
			}
			if err := requireColumns(raw, p, temperatureColumns...); err != nil {
				return err
			}
			parts[i], err = raw.Select(temperatureColumns...)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	src, err := unionAll(parts)
	if err != nil {
		return err
	}
	temps, stats, err := t.Map(src)
	if err != nil {
		return err
	}
	if err := s.Emit(ctx, temps, ""); err != nil {
		return err
	}
	return s.Emit(ctx, stats, "")
}

// Map derives the two output tables from the unioned all-String source.
// Rows whose dt does not parse keep a NULL date, year and month.
func (Temperature) Map(src *table.Table) (temps, stats *table.Table, err error) {
	base, err := transformer.Chain{
		builtin.Coerce{Types: map[string]table.Type{colAvgTemp: table.Float64, colAvgTempUncert: table.Float64}},
		builtin.Upper{Columns: []string{colTempCity, colCountry}},
		builtin.ParseDate{Column: colDt, YearColumn: "year", MonthColumn: "month"},
	}.Apply(src)
	if err != nil {
		return nil, nil, fmt.Errorf("temperature: %w", err)
	}

	temps, err = transformer.Chain{
		builtin.Select{Columns: []string{colDt, "year", "month", colCountry, colTempCity, colLatitude, colLongitude}},
		builtin.Distinct{},
		builtin.Rename{Names: []string{"date", "year", "month", "country", "city", "latitude", "longitude"}},
		builtin.Named("Temperatures"),
	}.Apply(base)
	if err != nil {
		return nil, nil, fmt.Errorf("Temperatures: %w", err)
	}

	stats, err = transformer.Chain{
		builtin.Select{Columns: []string{colDt, "year", "month", colCountry, colTempCity, colAvgTemp, colAvgTempUncert}},
		builtin.Rename{Names: []string{"date", "year", "month", "country", "city", "avg_temp", "avg_temp_uncertainty"}},
		builtin.Named("Temperature_Statistics"),
	}.Apply(base)
	if err != nil {
		return nil, nil, fmt.Errorf("Temperature_Statistics: %w", err)
	}
	return temps, stats, nil
}

// unionAll concatenates parts in order. parts must not be empty.
func unionAll(parts []*table.Table) (*table.Table, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("union of no tables: %w", table.ErrSchemaMismatch)
	}
	out := parts[0]
	for _, p := range parts[1:] {
		var err error
		if out, err = out.Union(p); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// workers returns n, or 1 when n is not positive.
func workers(n int) int {
	if n <= 0 {
		return 1
	}
	return n
}
