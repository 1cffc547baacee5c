package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInfersColumnTypes(t *testing.T) {
	data := "id,price,name,active,flag,empty\n" +
		"1,1.5,Alice,True,true,\n" +
		"2,2,bob,False,,\n" +
		"3,,Carol,True,false,\n"

	batch, err := Read(strings.NewReader(data), DefaultLoadOptions())
	require.NoError(t, err)
	require.Len(t, batch.Columns, 6)
	assert.Equal(t, 3, batch.Rows)

	tests := map[string]DType{
		"id":     DTypeInt64,
		"price":  DTypeFloat64,
		"name":   DTypeObject,
		"active": DTypeBool,
		"flag":   DTypeObject,
		"empty":  DTypeFloat64,
	}
	for name, want := range tests {
		t.Run(name, func(t *testing.T) {
			col, ok := batch.Column(name)
			require.True(t, ok)
			assert.Equal(t, want, col.DType())
		})
	}

	price, _ := batch.Column("price")
	assert.Equal(t, "2.0", price.Format(1))
	assert.Equal(t, "nan", price.Format(2))

	id, _ := batch.Column("id")
	assert.Equal(t, "3", id.Format(2))
}

func TestReadMixedColumnKeepsText(t *testing.T) {
	batch, err := Read(strings.NewReader("code\n12\nA7\n"), DefaultLoadOptions())
	require.NoError(t, err)

	col := batch.Columns[0]
	assert.Equal(t, DTypeObject, col.DType())
	assert.Equal(t, Text, col.At(0).Kind)
	assert.Equal(t, "12", col.At(0).Str)
}

func TestReadNoneIsNotMissing(t *testing.T) {
	batch, err := Read(strings.NewReader("name\nNone\nx\n"), DefaultLoadOptions())
	require.NoError(t, err)

	assert.Equal(t, 0, batch.Columns[0].MissingCount())
}

func TestReadStripsBOMAndDetectsDelimiter(t *testing.T) {
	data := "\xef\xbb\xbfa;b\n1;x\n2;y\n"

	batch, err := Read(strings.NewReader(data), LoadOptions{})
	require.NoError(t, err)
	require.Len(t, batch.Columns, 2)
	assert.Equal(t, "a", batch.Columns[0].Name)
	assert.Equal(t, DTypeInt64, batch.Columns[0].DType())
}

func TestReadRejectsLongRows(t *testing.T) {
	_, err := Read(strings.NewReader("a,b\n1,2,3\n"), DefaultLoadOptions())
	assert.Error(t, err)
}

func TestReadPadsShortRows(t *testing.T) {
	batch, err := Read(strings.NewReader("a,b\n1,2\n3\n"), DefaultLoadOptions())
	require.NoError(t, err)

	b, _ := batch.Column("b")
	assert.Equal(t, 1, b.MissingCount())
	assert.Equal(t, DTypeFloat64, b.DType())
}

func TestLoadNamesBatchAfterFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n"), 0644))

	batch, err := Load(path, 4, DefaultLoadOptions())
	require.NoError(t, err)
	assert.Equal(t, "sales.csv", batch.Name)
	assert.Equal(t, 4, batch.Number)
}

func TestLoadNamesBatchRelativeToRoot(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "2024", "sales.csv")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("a\n1\n"), 0644))

	opts := DefaultLoadOptions()
	opts.Root = root
	batch, err := Load(path, 0, opts)
	require.NoError(t, err)
	assert.Equal(t, "2024/sales.csv", batch.Name)
}

func TestBatchName(t *testing.T) {
	assert.Equal(t, "sales.csv", BatchName("", filepath.Join("data", "2024", "sales.csv")))
	assert.Equal(t, "2024/sales.csv", BatchName("data", filepath.Join("data", "2024", "sales.csv")))
	assert.Equal(t, "sales.csv", BatchName(filepath.Join("data", "x"), filepath.Join("data", "sales.csv")))
}

func TestInferDType(t *testing.T) {
	tests := map[string]struct {
		values []Value
		want   DType
	}{
		"ints":            {[]Value{IntValue(1), IntValue(2)}, DTypeInt64},
		"ints-missing":    {[]Value{IntValue(1), MissingValue()}, DTypeFloat64},
		"all-missing":     {[]Value{MissingValue()}, DTypeFloat64},
		"bools":           {[]Value{BoolValue(true), BoolValue(false)}, DTypeBool},
		"bools-missing":   {[]Value{BoolValue(true), MissingValue()}, DTypeObject},
		"number-and-text": {[]Value{IntValue(1), TextValue("a b")}, DTypeObject},
		"empty":           {nil, DTypeFloat64},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.want, NewColumn("c", test.values).DType())
		})
	}
}

func TestFormatFloat(t *testing.T) {
	tests := map[float64]string{
		5:       "5.0",
		0.25:    "0.25",
		-3.5:    "-3.5",
		1e16:    "1e+16",
		0.00001: "1e-05",
		123456:  "123456.0",
	}

	for in, want := range tests {
		assert.Equal(t, want, FormatFloat(in))
	}
}

func TestValueEqual(t *testing.T) {
	assert.True(t, IntValue(1).Equal(FloatValue(1)))
	assert.False(t, MissingValue().Equal(MissingValue()))
	assert.True(t, MissingValue().Same(MissingValue()))
	assert.False(t, TextValue("1").Equal(IntValue(1)))

	_, ok := TextValue("a").Less(IntValue(1))
	assert.False(t, ok)
}

func TestColumnDiff(t *testing.T) {
	a := NewColumn("c", []Value{IntValue(1), IntValue(2), MissingValue()})
	b := NewColumn("c", []Value{IntValue(1), IntValue(5), MissingValue()})

	assert.Equal(t, 1, a.Diff(b))
	assert.True(t, a.Equal(a))
	assert.False(t, a.Equal(b))
}

func TestParseDelimiter(t *testing.T) {
	d, ok := ParseDelimiter("auto")
	assert.True(t, ok)
	assert.Equal(t, rune(0), d)

	d, ok = ParseDelimiter("tab")
	assert.True(t, ok)
	assert.Equal(t, '\t', d)

	_, ok = ParseDelimiter("x")
	assert.False(t, ok)
}
