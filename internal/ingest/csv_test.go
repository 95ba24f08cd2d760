package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Basic(t *testing.T) {
	text := "koi_period, koi_depth ,name\n54.32,1200,Kepler-22 b\n12.5,null,K00752.01\n"

	table, err := Parse(text, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"koi_period", "koi_depth", "name"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Empty(t, table.Skipped)

	period, ok := table.Rows[0].Get("koi_period")
	require.True(t, ok)
	assert.Equal(t, Number, period.Kind)
	assert.Equal(t, 54.32, period.Num)

	name, _ := table.Rows[0].Get("name")
	assert.Equal(t, Text, name.Kind)
	assert.Equal(t, "Kepler-22 b", name.Str)

	depth, ok := table.Rows[1].Get("koi_depth")
	require.True(t, ok)
	assert.Equal(t, Null, depth.Kind)
	assert.Equal(t, 3, table.Rows[1].Line)
}

func TestParse_HeaderCase(t *testing.T) {
	text := "KOI_Period,Label\n1,1\n"

	lowered, err := Parse(text, Options{LowerHeader: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"koi_period", "label"}, lowered.Header)

	authored, err := Parse(text, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"KOI_Period", "Label"}, authored.Header)
}

func TestParseValue(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		kind Kind
		num  float64
		str  string
	}{
		{"empty", "", Null, 0, ""},
		{"spaces", "   ", Null, 0, ""},
		{"null literal", "null", Null, 0, ""},
		{"NaN literal", "NaN", Null, 0, ""},
		{"lowercase nan is text", "nan", Text, 0, "nan"},
		{"NULL is text", "NULL", Text, 0, "NULL"},
		{"integer", "42", Number, 42, ""},
		{"float with spaces", " 3.5 ", Number, 3.5, ""},
		{"scientific", "1e-3", Number, 0.001, ""},
		{"negative", "-7.25", Number, -7.25, ""},
		{"infinity is text", "Infinity", Text, 0, "Infinity"},
		{"word", " CONFIRMED ", Text, 0, "CONFIRMED"},
		{"partial number", "12abc", Text, 0, "12abc"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := ParseValue(tc.raw)
			assert.Equal(t, tc.kind, v.Kind)
			assert.Equal(t, tc.num, v.Num)
			assert.Equal(t, tc.str, v.Str)
		})
	}
}

func TestParse_EmptyInput(t *testing.T) {
	testCases := []struct {
		name  string
		text  string
		lines int
	}{
		{"empty string", "", 0},
		{"only whitespace", "  \n\t\n", 0},
		{"header only", "koi_period,koi_depth\n", 1},
		{"header and blank lines", "koi_period\n\n   \n", 1},
		{"blank header fields", " , \n1,2\n", 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			table, err := Parse(tc.text, Options{})
			assert.Nil(t, table)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrEmptyInput))

			var empty *EmptyInputError
			require.True(t, errors.As(err, &empty))
			assert.Equal(t, tc.lines, empty.Lines)
		})
	}
}

func TestParse_ShortRowsAndSlack(t *testing.T) {
	text := "a,b,c,d\n1,2,3,4\n1,2,3\n1,2\n1\n1,2,3,4,5\n"

	strict, err := Parse(text, Options{Slack: 0})
	require.NoError(t, err)
	require.Len(t, strict.Rows, 2, "full row and over-long row survive")
	require.Len(t, strict.Skipped, 3)
	for _, s := range strict.Skipped {
		assert.Equal(t, SkipShortRow, s.Reason)
	}
	assert.Equal(t, []int{3, 4, 5}, []int{strict.Skipped[0].Line, strict.Skipped[1].Line, strict.Skipped[2].Line})

	lenient, err := Parse(text, Options{Slack: 2})
	require.NoError(t, err)
	require.Len(t, lenient.Rows, 4)
	require.Len(t, lenient.Skipped, 1)
	assert.Equal(t, 5, lenient.Skipped[0].Line)

	truncated := lenient.Rows[2]
	_, hasC := truncated.Get("c")
	_, hasD := truncated.Get("d")
	assert.False(t, hasC, "missing trailing fields are absent")
	assert.False(t, hasD)

	long := lenient.Rows[3]
	assert.Len(t, long.Values, 4, "extra fields are ignored")
}

func TestParse_CRLFAndBOM(t *testing.T) {
	text := "\uFEFFkoi_period,koi_depth\r\n1.5,200\r\n\r\n2.5,300\r\n"

	table, err := Parse(text, Options{LowerHeader: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"koi_period", "koi_depth"}, table.Header)
	require.Len(t, table.Rows, 2)

	depth, _ := table.Rows[1].Get("koi_depth")
	assert.Equal(t, 300.0, depth.Num)
	assert.True(t, table.HasColumn("koi_period"))
	assert.False(t, table.HasColumn("\uFEFFkoi_period"))
}

func TestParse_QuotedFields(t *testing.T) {
	text := "name,koi_period\n\"Kepler-1, b\",10.5\n"

	table, err := Parse(text, Options{})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	name, _ := table.Rows[0].Get("name")
	assert.Equal(t, "Kepler-1, b", name.Str)
	period, _ := table.Rows[0].Get("koi_period")
	assert.Equal(t, 10.5, period.Num)
}

func TestValue_Accessors(t *testing.T) {
	x, ok := Value{Kind: Number, Num: 2.5}.Float()
	assert.True(t, ok)
	assert.Equal(t, 2.5, x)

	_, ok = Value{Kind: Text, Str: "2.5"}.Float()
	assert.False(t, ok)

	assert.Equal(t, "2.5", Value{Kind: Number, Num: 2.5}.String())
	assert.Equal(t, "abc", Value{Kind: Text, Str: "abc"}.String())
	assert.Equal(t, "", Value{}.String())
}
