package isbn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable(t *testing.T) *RangeTable {
	t.Helper()
	table, err := NewRangeTable(Metadata{Source: "test"}, []Group{
		{Prefix: "978-0", Agency: "English language", Rules: []Rule{
			{Low: 0, High: 19, Length: 2},
			{Low: 200, High: 227, Length: 3},
			{Low: 2280, High: 2289, Length: 4},
			{Low: 229, High: 647, Length: 3},
			{Low: 6480000, High: 6489999, Length: 7},
			{Low: 649, High: 699, Length: 3},
			{Low: 7000, High: 8499, Length: 4},
			{Low: 85000, High: 89999, Length: 5},
			{Low: 900000, High: 949999, Length: 6},
			{Low: 9500000, High: 9999999, Length: 7},
		}},
		{Prefix: "978-1", Agency: "English language", Rules: []Rule{
			{Low: 0, High: 9, Length: 2},
			{Low: 100, High: 399, Length: 3},
		}},
		{Prefix: "979-10", Agency: "France", Rules: []Rule{
			{Low: 0, High: 19, Length: 2},
			{Low: 200, High: 699, Length: 3},
			{Low: 7000, High: 8999, Length: 4},
			{Low: 90000, High: 97599, Length: 5},
			{Low: 976000, High: 999999, Length: 6},
		}},
	})
	require.NoError(t, err)
	return table
}

func TestDecompose(t *testing.T) {
	table := testTable(t)

	p, err := Decompose(table, "9780596528126")
	require.NoError(t, err)
	assert.Equal(t, Parts{EAN: "978", Group: "0", Registrant: "596", Publication: "52812", Check: "6", Agency: "English language"}, p)
	assert.Equal(t, "978-0-596-52812-6", p.String())
	assert.Equal(t, "9780596528126", p.ISBN13())

	p, err = Decompose(table, "9780201616224")
	require.NoError(t, err)
	assert.Equal(t, "978-0-201-61622-4", p.String())

	p, err = Decompose(table, "9791090636071")
	require.NoError(t, err)
	assert.Equal(t, "979-10-90636-07-1", p.String())
	assert.Equal(t, "France", p.Agency)
}

func TestDecomposeKeepsLeadingZeros(t *testing.T) {
	// 9780000000002: group 978-0, registrant "00" from the first rule
	p, err := Decompose(testTable(t), "9780000000002")
	require.NoError(t, err)
	assert.Equal(t, "00", p.Registrant)
	assert.Equal(t, "000000", p.Publication)
	assert.Equal(t, "9780000000002", p.ISBN13())
}

func TestDecomposeFirstRuleWins(t *testing.T) {
	table, err := NewRangeTable(Metadata{}, []Group{
		{Prefix: "9780", Rules: []Rule{
			{Low: 500, High: 599, Length: 3},
			{Low: 5000, High: 5999, Length: 4},
		}},
	})
	require.NoError(t, err)

	p, err := Decompose(table, "9780596528126")
	require.NoError(t, err)
	assert.Equal(t, "596", p.Registrant)

	table, err = NewRangeTable(Metadata{}, []Group{
		{Prefix: "9780", Rules: []Rule{
			{Low: 5000, High: 5999, Length: 4},
			{Low: 500, High: 599, Length: 3},
		}},
	})
	require.NoError(t, err)

	p, err = Decompose(table, "9780596528126")
	require.NoError(t, err)
	assert.Equal(t, "5965", p.Registrant)
	assert.Equal(t, "2812", p.Publication)
}

func TestDecomposeFirstGroupWins(t *testing.T) {
	// only the first matching group is considered, even when its rules miss
	table, err := NewRangeTable(Metadata{}, []Group{
		{Prefix: "9780", Rules: []Rule{{Low: 0, High: 1, Length: 1}}},
		{Prefix: "97805", Rules: []Rule{{Low: 0, High: 9, Length: 1}}},
	})
	require.NoError(t, err)

	_, err = Decompose(table, "9780596528126")
	assert.ErrorIs(t, err, ErrUncategorizable)
}

func TestDecomposeUncategorizable(t *testing.T) {
	table := testTable(t)

	// group 978-2 is absent
	_, err := Decompose(table, "9782070360024")
	assert.ErrorIs(t, err, ErrUncategorizable)
	assert.NotErrorIs(t, err, ErrInvalid)

	// group present, no rule covers 978-1-5...
	_, err = Decompose(table, "9781566199094")
	assert.ErrorIs(t, err, ErrUncategorizable)

	_, err = Decompose(nil, "9780596528126")
	assert.ErrorIs(t, err, ErrUncategorizable)

	empty, err := NewRangeTable(Metadata{}, nil)
	require.NoError(t, err)
	_, err = Decompose(empty, "9780596528126")
	assert.ErrorIs(t, err, ErrUncategorizable)
}

func TestDecomposeInvalid(t *testing.T) {
	table := testTable(t)

	for _, in := range []string{"", "9780596528127", "0596528124", "abc"} {
		_, err := Decompose(table, in)
		assert.ErrorIs(t, err, ErrInvalid, in)
		assert.NotErrorIs(t, err, ErrUncategorizable, in)
	}
}

func TestDecomposeSkipsRulesReachingCheckDigit(t *testing.T) {
	table, err := NewRangeTable(Metadata{}, []Group{
		{Prefix: "9780", Rules: []Rule{
			{Low: 0, High: 999999999, Length: 9},
			{Low: 0, High: 999, Length: 3},
		}},
	})
	require.NoError(t, err)

	p, err := Decompose(table, "9780596528126")
	require.NoError(t, err)
	assert.Equal(t, "596", p.Registrant)
}

func TestTableParts(t *testing.T) {
	table := testTable(t)

	p, err := table.Parts("0-596-52812-4")
	require.NoError(t, err)
	assert.Equal(t, "978-0-596-52812-6", p.String())

	h, err := table.Hyphenate("9780306406157")
	require.NoError(t, err)
	assert.Equal(t, "978-0-306-40615-7", h)

	_, err = table.Parts("0596528123")
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = table.Hyphenate("9782070360024")
	assert.ErrorIs(t, err, ErrUncategorizable)
}
