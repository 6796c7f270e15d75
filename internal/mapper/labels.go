package mapper

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"i94etl/internal/datasource/file"
	"i94etl/internal/parser/labels"
	"i94etl/internal/table"
	"i94etl/internal/transformer/builtin"
)

// Labels maps the SAS label description file to the Countries, States,
// Ports and Visas lookup tables.
type Labels struct{}

// Name implements Mapper.
func (Labels) Name() string { return "labels" }

// Run implements Mapper.
func (l Labels) Run(ctx context.Context, s *Session) error {
	in := s.Job.Input
	path := in.Resolve(in.Labels.Path)
	lines, err := file.ReadLines(path)
	if err != nil {
		return err
	}
	tables, err := l.Map(lines, path, s.logger())
	if err != nil {
		return err
	}
	for _, t := range tables {
		if err := s.Emit(ctx, t, ""); err != nil {
			return err
		}
	}
	return nil
}

// Map parses every section of the description file. Country and visa codes
// are cast to Int32; a code that does not cast fails the whole mapper.
func (Labels) Map(lines []string, source string, log *zap.Logger) ([]*table.Table, error) {
	out := make([]*table.Table, 0, len(labels.Sections))
	for _, sec := range labels.Sections {
		res, err := labels.Parse(lines, sec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source, err)
		}
		if res.Drifted() {
			log.Warn("labels: section moved",
				zap.String("section", sec.Name),
				zap.Int("want_line", sec.Start),
				zap.Int("got_line", res.MarkerLine+1),
			)
		} else if res.EndMoved() {
			log.Warn("labels: section end moved",
				zap.String("section", sec.Name),
				zap.Int("want_line", sec.End),
				zap.Int("got_line", res.LastLine()),
			)
		}

		t := res.Table()
		switch sec.Name {
		case labels.Countries.Name, labels.Visas.Name:
			code := sec.Columns[0]
			for _, e := range res.Entries {
				if _, err := builtin.ToInt32(e.Code); err != nil {
					return nil, fmt.Errorf("%s line %d: %s %s: %w", source, e.Line, sec.Name, code, err)
				}
			}
			if t, err = (builtin.Coerce{Types: map[string]table.Type{code: table.Int32}}).Apply(t); err != nil {
				return nil, fmt.Errorf("%s: %s %s: %w", source, sec.Name, code, err)
			}
		}
		log.Debug("labels: parsed", zap.String("section", sec.Name), zap.Int("entries", t.Len()))
		out = append(out, t)
	}
	return out, nil
}
