package products

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	defaultPage  = 1
	defaultLimit = 10
	maxLimit     = 100
)

// Sort orders accepted by the public listing.
const (
	SortNewest = "newest"
	SortName   = "name"
	SortPrice  = "price"
	SortOldest = "oldest"
)

// PriceRange bounds totalPrice. A range without Min means "up to Max".
type PriceRange struct {
	Min *decimal.Decimal
	Max decimal.Decimal
}

// ListFilter is the parsed query of GET /products.
type ListFilter struct {
	Page        int
	Limit       int
	Search      string
	ProductCode string
	Prices      []PriceRange
	Categories  []string
	Genders     []string
	Sort        string
}

// Offset returns the number of rows skipped for the page.
func (f ListFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// TotalPages returns the number of pages for total rows.
func (f ListFilter) TotalPages(total int) int {
	if total == 0 {
		return 0
	}
	return (total + f.Limit - 1) / f.Limit
}

// ParseListFilter reads the listing query. Malformed numbers fall back to
// defaults and malformed price ranges are ignored.
func ParseListFilter(q url.Values) ListFilter {
	f := ListFilter{
		Page:        positiveInt(q.Get("page"), defaultPage),
		Limit:       positiveInt(q.Get("limit"), defaultLimit),
		Search:      strings.TrimSpace(q.Get("search")),
		ProductCode: strings.TrimSpace(q.Get("productCode")),
		Prices:      ParsePriceRanges(q.Get("price")),
		Categories:  splitCSV(q.Get("category")),
		Genders:     splitCSV(q.Get("gender")),
		Sort:        q.Get("sort"),
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	switch f.Sort {
	case SortName, SortPrice, SortOldest:
	default:
		f.Sort = SortNewest
	}
	return f
}

// ParsePriceRanges parses "0-50,100-200,30": "a-b" is [a,b] and a lone number
// is an upper bound. A zero upper bound in "a-0" also means "up to a".
func ParsePriceRanges(s string) []PriceRange {
	var out []PriceRange
	for _, part := range splitCSV(s) {
		lo, hi, hasHi := strings.Cut(part, "-")
		first, err := decimal.NewFromString(strings.TrimSpace(lo))
		if err != nil {
			continue
		}
		if hasHi && strings.TrimSpace(hi) != "" {
			second, err := decimal.NewFromString(strings.TrimSpace(hi))
			if err != nil {
				continue
			}
			if !second.IsZero() {
				lower := first
				out = append(out, PriceRange{Min: &lower, Max: second})
				continue
			}
		}
		out = append(out, PriceRange{Max: first})
	}
	return out
}

// whereClause renders the filter as a SQL condition with positional args.
func (f ListFilter) whereClause() (string, []any) {
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if f.Search != "" {
		p := arg("%" + escapeLike(f.Search) + "%")
		conds = append(conds, fmt.Sprintf("(title ILIKE %s OR category ILIKE %s)", p, p))
	}
	if f.ProductCode != "" {
		conds = append(conds, "product_code = "+arg(f.ProductCode))
	}
	if len(f.Prices) > 0 {
		ranges := make([]string, 0, len(f.Prices))
		for _, r := range f.Prices {
			if r.Min != nil {
				ranges = append(ranges, fmt.Sprintf("total_price BETWEEN %s AND %s", arg(*r.Min), arg(r.Max)))
			} else {
				ranges = append(ranges, "total_price <= "+arg(r.Max))
			}
		}
		conds = append(conds, "("+strings.Join(ranges, " OR ")+")")
	}
	if len(f.Categories) > 0 {
		conds = append(conds, "category = ANY("+arg(f.Categories)+")")
	}
	if len(f.Genders) > 0 {
		conds = append(conds, "gender = ANY("+arg(f.Genders)+")")
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func (f ListFilter) orderBy() string {
	switch f.Sort {
	case SortName:
		return " ORDER BY title ASC, id"
	case SortPrice:
		return " ORDER BY selling_price ASC, id"
	case SortOldest:
		return " ORDER BY created_at ASC, id"
	default:
		return " ORDER BY created_at DESC, id"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }

func positiveInt(s string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func splitCSV(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
