package labels

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// sampleFile lays sections out so that Visas sits at its historical offset
// and the others have drifted.
func sampleFile() []string {
	lines := []string{
		"libname library 'Your file location' ;",
		"proc format library=library ;",
		"",
		"/* I94CIT & I94RES - This format shows all the valid and invalid codes */",
		"  value i94cntyl",
		"   582 =  'MEXICO Air Sea, and Not Reported (I-94, no land arrivals)'",
		"",
		"   236 =  'AFGHANISTAN'",
		"   589 =  'No Country Code (589)' ;",
		"",
		"  value $i94prtl",
		"\t'ALC'\t=\t'ALCAN, AK             '",
		"\t'XXX'\t=\t'NOT REPORTED/UNKNOWN      '",
		";",
		"  value i94addrl",
		"\t'AL'='ALABAMA'",
		"\t'99'='All Other Codes' ;",
	}
	for len(lines) < Visas.Start-1 {
		lines = append(lines, "")
	}
	return append(lines,
		"/* I94VISA - Visa codes collapsed into three categories:",
		"   1 = Business",
		"   2 = Pleasure",
		"   3 = Student",
		"*/",
		"   9 = Never reached",
	)
}

func TestParse_Sections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		section Section
		want    []Entry
		drifted bool
	}{
		{
			section: Countries,
			want: []Entry{
				{Code: "582", Label: "MEXICO Air Sea, and Not Reported (I-94, no land arrivals)", Line: 6},
				{Code: "236", Label: "AFGHANISTAN", Line: 8},
				{Code: "589", Label: "No Country Code (589)", Line: 9},
			},
			drifted: true,
		},
		{
			section: Ports,
			want: []Entry{
				{Code: "ALC", Label: "ALCAN", Line: 12},
				{Code: "XXX", Label: "NOT REPORTED/UNKNOWN", Line: 13},
			},
			drifted: true,
		},
		{
			section: States,
			want: []Entry{
				{Code: "AL", Label: "ALABAMA", Line: 16},
				{Code: "99", Label: "All Other Codes", Line: 17},
			},
			drifted: true,
		},
		{
			section: Visas,
			want: []Entry{
				{Code: "1", Label: "Business", Line: 1047},
				{Code: "2", Label: "Pleasure", Line: 1048},
				{Code: "3", Label: "Student", Line: 1049},
			},
			drifted: false,
		},
	}

	lines := sampleFile()
	for _, tc := range tests {
		tc := tc
		t.Run(tc.section.Name, func(t *testing.T) {
			t.Parallel()
			res, err := Parse(lines, tc.section)
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, res.Entries); diff != "" {
				t.Fatalf("entries (-want +got):\n%s", diff)
			}
			require.Equal(t, tc.drifted, res.Drifted())
		})
	}
}

func TestParse_CountryExample(t *testing.T) {
	t.Parallel()

	lines := []string{"  value i94cntyl", "582 = 'CANADA'", ";"}
	res, err := Parse(lines, Countries)
	require.NoError(t, err)
	require.Equal(t, []Entry{{Code: "582", Label: "CANADA", Line: 2}}, res.Entries)
}

func TestParse_PortExample(t *testing.T) {
	t.Parallel()

	lines := []string{"value $i94prtl", "ABC = 'CITYNAME,ST'", ";"}
	res, err := Parse(lines, Ports)
	require.NoError(t, err)
	require.Equal(t, []Entry{{Code: "ABC", Label: "CITYNAME", Line: 2}}, res.Entries)
}

func TestParse_MissingMarker(t *testing.T) {
	t.Parallel()

	_, err := Parse([]string{"nothing here"}, States)
	if !errors.Is(err, ErrSectionNotFound) {
		t.Fatalf("err = %v, want ErrSectionNotFound", err)
	}
}

func TestParse_MalformedLine(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"no equals":  "   582   'CANADA'",
		"two equals": "   582 = 'A' = 'B'",
	}
	for name, line := range tests {
		name, line := name, line
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]string{"value i94cntyl", line, ";"}, Countries)
			if !errors.Is(err, ErrMalformedLine) {
				t.Fatalf("err = %v, want ErrMalformedLine", err)
			}
		})
	}
}

func TestResult_Table(t *testing.T) {
	t.Parallel()

	res := Result{Section: States, Entries: []Entry{{Code: "AL", Label: "ALABAMA"}, {Code: "ZZ", Label: ""}}}
	tbl := res.Table()
	require.Equal(t, "States", tbl.Name)
	require.Equal(t, []string{"state_code", "state"}, tbl.Schema.Names())
	require.Equal(t, [][]any{{"AL", "ALABAMA"}, {"ZZ", nil}}, tbl.Rows)
}

func TestResult_EndMoved(t *testing.T) {
	t.Parallel()

	lines := sampleFile()
	res, err := Parse(lines, Visas)
	require.NoError(t, err)
	require.Equal(t, Visas.End, res.LastLine())
	require.False(t, res.EndMoved())

	// Drop "3 = Student": the block now closes one line early.
	short := append(append([]string{}, lines[:Visas.End-1]...), lines[Visas.End:]...)
	res, err = Parse(short, Visas)
	require.NoError(t, err)
	require.False(t, res.Drifted())
	require.Equal(t, Visas.End-1, res.LastLine())
	require.True(t, res.EndMoved())

	// Drifted sections are reported by Drifted only.
	res, err = Parse(lines, Countries)
	require.NoError(t, err)
	require.False(t, res.EndMoved())
}
