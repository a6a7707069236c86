package products

import (
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListFilter_Defaults(t *testing.T) {
	f := ParseListFilter(url.Values{})
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 10, f.Limit)
	assert.Equal(t, SortNewest, f.Sort)
	assert.Equal(t, 0, f.Offset())

	where, args := f.whereClause()
	assert.Empty(t, where)
	assert.Empty(t, args)
	assert.Equal(t, " ORDER BY created_at DESC, id", f.orderBy())
}

func TestParseListFilter_Bounds(t *testing.T) {
	f := ParseListFilter(url.Values{"page": {"3"}, "limit": {"500"}, "sort": {"bogus"}})
	assert.Equal(t, 3, f.Page)
	assert.Equal(t, maxLimit, f.Limit)
	assert.Equal(t, SortNewest, f.Sort)
	assert.Equal(t, 200, f.Offset())

	f = ParseListFilter(url.Values{"page": {"-1"}, "limit": {"abc"}})
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 10, f.Limit)
}

func TestParsePriceRanges(t *testing.T) {
	ranges := ParsePriceRanges("0-50, 100-200,30,abc,10-x,40-0")
	require.Len(t, ranges, 4)

	require.NotNil(t, ranges[0].Min)
	assert.True(t, ranges[0].Min.IsZero())
	assert.True(t, ranges[0].Max.Equal(decimal.NewFromInt(50)))

	assert.True(t, ranges[1].Min.Equal(decimal.NewFromInt(100)))
	assert.True(t, ranges[1].Max.Equal(decimal.NewFromInt(200)))

	assert.Nil(t, ranges[2].Min)
	assert.True(t, ranges[2].Max.Equal(decimal.NewFromInt(30)))

	assert.Nil(t, ranges[3].Min)
	assert.True(t, ranges[3].Max.Equal(decimal.NewFromInt(40)))
}

func TestWhereClause_Combined(t *testing.T) {
	f := ParseListFilter(url.Values{
		"search":      {"50%_off"},
		"productCode": {"VX-1"},
		"price":       {"10-20,99"},
		"category":    {"shirts, jeans"},
		"gender":      {"Men"},
		"sort":        {"price"},
	})
	where, args := f.whereClause()
	assert.Equal(t,
		" WHERE (title ILIKE $1 OR category ILIKE $1) AND product_code = $2"+
			" AND (total_price BETWEEN $3 AND $4 OR total_price <= $5)"+
			" AND category = ANY($6) AND gender = ANY($7)",
		where)
	require.Len(t, args, 7)
	assert.Equal(t, `%50\%\_off%`, args[0])
	assert.Equal(t, "VX-1", args[1])
	assert.Equal(t, []string{"shirts", "jeans"}, args[5])
	assert.Equal(t, []string{"Men"}, args[6])
	assert.Equal(t, " ORDER BY selling_price ASC, id", f.orderBy())
}

func TestTotalPages(t *testing.T) {
	f := ListFilter{Page: 1, Limit: 10}
	assert.Equal(t, 0, f.TotalPages(0))
	assert.Equal(t, 1, f.TotalPages(10))
	assert.Equal(t, 2, f.TotalPages(11))
}
