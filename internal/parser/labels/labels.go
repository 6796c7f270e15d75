// Package labels parses the I94 SAS label description file, a SAS program
// whose PROC FORMAT "value" blocks map coded values to display labels:
//
//	value i94cntyl
//	   582 =  'MEXICO Air Sea, and Not Reported (I-94, no land arrivals)'
//	   236 =  'AFGHANISTAN'
//	   ...
//	   589 =  'No Country Code (589)' ;
//
// Each Section is located by a marker string rather than trusted line
// numbers. The historical line offsets are kept alongside the marker so the
// caller can warn when the file layout has drifted.
package labels

import (
	"errors"
	"fmt"
	"strings"

	"i94etl/internal/table"
)

var (
	// ErrSectionNotFound means a section marker does not occur in the file.
	ErrSectionNotFound = errors.New("labels: section marker not found")
	// ErrMalformedLine means an entry line does not split into code and label.
	ErrMalformedLine = errors.New("labels: malformed line")
)

// Section markers as they appear in I94_SAS_Labels_Descriptions.SAS.
const (
	CountryMarker = "value i94cntyl"
	PortMarker    = "value $i94prtl"
	StateMarker   = "value i94addrl"
	VisaMarker    = "I94VISA"
)

// Section describes one lookup block of the description file.
type Section struct {
	// Name is the output table name.
	Name string
	// Marker is a substring of the line that opens the block.
	Marker string
	// Start and End are the historical zero-based, half-open line range of
	// the entries. The marker is expected on line Start-1.
	Start, End int
	// Columns names the code and label columns of the output table.
	Columns [2]string
	// TruncateAtComma keeps only the label text before the first comma.
	TruncateAtComma bool
}

// The four lookup sections, in file order.
var (
	Countries = Section{Name: "Countries", Marker: CountryMarker, Start: 9, End: 298, Columns: [2]string{"code", "country"}}
	Ports     = Section{Name: "Ports", Marker: PortMarker, Start: 302, End: 961, Columns: [2]string{"port_code", "port_city"}, TruncateAtComma: true}
	States    = Section{Name: "States", Marker: StateMarker, Start: 981, End: 1036, Columns: [2]string{"state_code", "state"}}
	Visas     = Section{Name: "Visas", Marker: VisaMarker, Start: 1046, End: 1049, Columns: [2]string{"visa_code", "visa"}}
)

// Sections lists every known section.
var Sections = []Section{Countries, Ports, States, Visas}

// Entry is one code/label pair. Line is 1-based.
type Entry struct {
	Code  string
	Label string
	Line  int
}

// Result is the parsed content of a section.
type Result struct {
	Section Section
	Entries []Entry
	// MarkerLine is the zero-based index of the marker line.
	MarkerLine int
}

// Drifted reports whether the marker was found somewhere other than the
// historical offset.
func (r Result) Drifted() bool { return r.MarkerLine != r.Section.Start-1 }

// LastLine is the 1-based line of the final entry, or 0 without entries.
func (r Result) LastLine() int {
	if len(r.Entries) == 0 {
		return 0
	}
	return r.Entries[len(r.Entries)-1].Line
}

// EndMoved reports whether a section found at its historical offset ends
// somewhere other than the historical End line, which means entries were
// added or removed. Drifted sections are not checked.
func (r Result) EndMoved() bool {
	return !r.Drifted() && r.LastLine() != r.Section.End
}

// Parse extracts the entries of s from lines.
//
// The block runs from the line after the marker up to the first terminator:
// an entry ending in ";", a bare ";", or a line starting with "*/". Blank
// lines are skipped. Every other line must hold exactly one "=".
func Parse(lines []string, s Section) (Result, error) {
	at, err := s.find(lines)
	if err != nil {
		return Result{}, err
	}
	res := Result{Section: s, MarkerLine: at}

	for i := at + 1; i < len(lines); i++ {
		raw := strings.TrimSpace(lines[i])
		if raw == "" {
			continue
		}
		if raw == ";" || strings.HasPrefix(raw, "*/") {
			break
		}
		e, err := s.parseEntry(raw, i+1)
		if err != nil {
			return Result{}, err
		}
		res.Entries = append(res.Entries, e)
		if strings.HasSuffix(raw, ";") {
			break
		}
	}
	return res, nil
}

// find returns the marker line, preferring the historical offset.
func (s Section) find(lines []string) (int, error) {
	if want := s.Start - 1; want >= 0 && want < len(lines) && strings.Contains(lines[want], s.Marker) {
		return want, nil
	}
	for i, l := range lines {
		if strings.Contains(l, s.Marker) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%s: %q: %w", s.Name, s.Marker, ErrSectionNotFound)
}

func (s Section) parseEntry(raw string, line int) (Entry, error) {
	parts := strings.Split(raw, "=")
	if len(parts) != 2 {
		return Entry{}, fmt.Errorf("%s line %d: %q: %w", s.Name, line, raw, ErrMalformedLine)
	}
	code := unquote(parts[0])
	label := strings.TrimSpace(parts[1])
	label = strings.TrimSpace(strings.TrimSuffix(label, ";"))
	label = unquote(label)
	if s.TruncateAtComma {
		if i := strings.IndexByte(label, ','); i >= 0 {
			label = strings.TrimSpace(label[:i])
		}
	}
	return Entry{Code: code, Label: label, Line: line}, nil
}

func unquote(v string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(v), "'"))
}

// Table converts a parse result into a two-column String table named after
// the section. Empty codes or labels become nil.
func (r Result) Table() *table.Table {
	t := table.New(r.Section.Name, table.Schema{
		{Name: r.Section.Columns[0], Type: table.String},
		{Name: r.Section.Columns[1], Type: table.String},
	})
	for _, e := range r.Entries {
		t.Rows = append(t.Rows, []any{nilIfEmpty(e.Code), nilIfEmpty(e.Label)})
	}
	return t
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
