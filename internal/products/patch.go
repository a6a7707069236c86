package products

import (
	"encoding/json"
	"html"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velixa/storefront/internal/models"
)

const maxDescriptionLength = 2000

// ValidationError is a rejected product input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(msg string) error { return &ValidationError{Msg: msg} }

// Patch holds product fields from a create or edit form. Nil fields were
// absent and leave the product unchanged.
type Patch struct {
	Title           *string
	Description     *string
	TotalPrice      *decimal.Decimal
	SellingPrice    *decimal.Decimal
	CostPrice       *decimal.Decimal
	Category        *string
	Sizes           []string
	FabricType      *string
	FitType         *string
	Pattern         *string
	SleeveType      *string
	CollarType      *string
	Gender          *string
	Color           *string
	Stock           *int
	AvailableState  *bool
	MadeToOrder     *bool
	Popular         *bool
	Country         *string
	Active          *string
	ProductCode     *string
	RelatedProducts []uuid.UUID
	DeleteImages    []string
}

// sanitize trims and HTML-escapes free text before it is stored.
func sanitize(s string) string {
	return html.EscapeString(strings.TrimSpace(s))
}

// ParseForm reads a multipart form's values into a Patch. Empty values of
// optional text fields count as absent; an empty title or description is an error.
func ParseForm(form map[string][]string) (*Patch, error) {
	p := &Patch{}
	text := func(key string) *string {
		vs, ok := form[key]
		if !ok || len(vs) == 0 {
			return nil
		}
		v := sanitize(vs[0])
		if v == "" {
			return nil
		}
		return &v
	}
	required := func(key, msg string) (*string, error) {
		vs, ok := form[key]
		if !ok {
			return nil, nil
		}
		if len(vs) == 0 || strings.TrimSpace(vs[0]) == "" {
			return nil, invalid(msg)
		}
		v := sanitize(vs[0])
		return &v, nil
	}
	money := func(key, label string) (*decimal.Decimal, error) {
		vs, ok := form[key]
		if !ok || len(vs) == 0 || strings.TrimSpace(vs[0]) == "" {
			return nil, nil
		}
		d, err := decimal.NewFromString(strings.TrimSpace(vs[0]))
		if err != nil {
			return nil, invalid(label + " must be a number!")
		}
		if d.IsNegative() {
			return nil, invalid(label + " must be a positive number!")
		}
		return &d, nil
	}
	flag := func(key string) (*bool, error) {
		vs, ok := form[key]
		if !ok || len(vs) == 0 || strings.TrimSpace(vs[0]) == "" {
			return nil, nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(vs[0]))
		if err != nil {
			return nil, invalid(key + " must be true or false!")
		}
		return &b, nil
	}

	var err error
	if p.Title, err = required("title", "Title is required!"); err != nil {
		return nil, err
	}
	if p.Description, err = required("description", "Description is required!"); err != nil {
		return nil, err
	}
	if p.TotalPrice, err = money("totalPrice", "Total price"); err != nil {
		return nil, err
	}
	if p.SellingPrice, err = money("sellingPrice", "Selling price"); err != nil {
		return nil, err
	}
	if p.CostPrice, err = money("costPrice", "Cost price"); err != nil {
		return nil, err
	}
	p.Category = text("category")
	p.FabricType = text("fabricType")
	p.FitType = text("fitType")
	p.Pattern = text("pattern")
	p.SleeveType = text("sleeveType")
	p.CollarType = text("collarType")
	p.Gender = text("gender")
	p.Color = text("color")
	p.Country = text("country")
	p.Active = text("active")
	p.ProductCode = text("productCode")

	if vs, ok := form["stock"]; ok && len(vs) > 0 && strings.TrimSpace(vs[0]) != "" {
		n, err := strconv.Atoi(strings.TrimSpace(vs[0]))
		if err != nil || n < 0 {
			return nil, invalid("Stock must be a non-negative integer!")
		}
		p.Stock = &n
	}
	if p.AvailableState, err = flag("availableState"); err != nil {
		return nil, err
	}
	if p.MadeToOrder, err = flag("madeToOrder"); err != nil {
		return nil, err
	}
	if p.Popular, err = flag("popular"); err != nil {
		return nil, err
	}

	if p.Sizes, err = list(form, "sizes"); err != nil {
		return nil, err
	}
	if p.DeleteImages, err = list(form, "deleteImages"); err != nil {
		return nil, err
	}
	related, err := list(form, "relatedProducts")
	if err != nil {
		return nil, err
	}
	for _, r := range related {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, invalid("relatedProducts must be product ids!")
		}
		p.RelatedProducts = append(p.RelatedProducts, id)
	}
	return p, nil
}

// list reads a field sent either as repeated values or as one JSON array.
func list(form map[string][]string, key string) ([]string, error) {
	vs := form[key]
	if len(vs) == 1 && strings.HasPrefix(strings.TrimSpace(vs[0]), "[") {
		var out []string
		if err := json.Unmarshal([]byte(vs[0]), &out); err != nil {
			return nil, invalid(key + " must be a JSON array!")
		}
		return out, nil
	}
	var out []string
	for _, v := range vs {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

// CheckRequired reports the first field a new product is missing.
func (p *Patch) CheckRequired() error {
	switch {
	case p.Title == nil:
		return invalid("Title is required!")
	case p.Description == nil:
		return invalid("Description is required!")
	case p.TotalPrice == nil:
		return invalid("Total price is required!")
	case p.SellingPrice == nil:
		return invalid("Selling price is required!")
	case p.CostPrice == nil:
		return invalid("Cost price is required!")
	case p.Category == nil:
		return invalid("Category is required!")
	case p.FabricType == nil:
		return invalid("Fabric type is required!")
	case p.FitType == nil:
		return invalid("Fit type is required!")
	case p.Pattern == nil:
		return invalid("Pattern is required!")
	case p.Gender == nil:
		return invalid("Gender is required!")
	case p.Color == nil:
		return invalid("Color is required!")
	case p.Stock == nil:
		return invalid("Stock is required!")
	case p.Country == nil:
		return invalid("Country is required!")
	case p.ProductCode == nil:
		return invalid("Product code is required!")
	}
	return nil
}

// NewProduct builds a product from a complete patch with the catalog defaults.
func (p *Patch) NewProduct() *models.Product {
	prod := &models.Product{
		Images:          []string{},
		Sizes:           []string{},
		AvailableState:  true,
		Active:          "active",
		RelatedProducts: []uuid.UUID{},
	}
	p.Apply(prod)
	return prod
}

// Apply copies every present field onto prod.
func (p *Patch) Apply(prod *models.Product) {
	setString(&prod.Title, p.Title)
	setString(&prod.Description, p.Description)
	setDecimal(&prod.TotalPrice, p.TotalPrice)
	setDecimal(&prod.SellingPrice, p.SellingPrice)
	setDecimal(&prod.CostPrice, p.CostPrice)
	setString(&prod.Category, p.Category)
	setString(&prod.FabricType, p.FabricType)
	setString(&prod.FitType, p.FitType)
	setString(&prod.Pattern, p.Pattern)
	setString(&prod.Gender, p.Gender)
	setString(&prod.Color, p.Color)
	setString(&prod.Country, p.Country)
	setString(&prod.Active, p.Active)
	setString(&prod.ProductCode, p.ProductCode)
	if p.SleeveType != nil {
		prod.SleeveType = p.SleeveType
	}
	if p.CollarType != nil {
		prod.CollarType = p.CollarType
	}
	if p.Sizes != nil {
		prod.Sizes = p.Sizes
	}
	if p.Stock != nil {
		prod.Stock = *p.Stock
	}
	if p.AvailableState != nil {
		prod.AvailableState = *p.AvailableState
	}
	if p.MadeToOrder != nil {
		prod.MadeToOrder = *p.MadeToOrder
	}
	if p.Popular != nil {
		prod.Popular = *p.Popular
	}
	if p.RelatedProducts != nil {
		prod.RelatedProducts = p.RelatedProducts
	}
}

type enumCheck struct {
	field, value string
	allowed      []string
}

// Validate checks a product's enums and bounds after a patch was applied.
func Validate(prod *models.Product) error {
	if len([]rune(prod.Description)) > maxDescriptionLength {
		return invalid("Description cannot exceed 2000 characters")
	}
	checks := []enumCheck{
		{"category", prod.Category, models.ProductCategories},
		{"fitType", prod.FitType, models.ProductFitTypes},
		{"pattern", prod.Pattern, models.ProductPatterns},
		{"gender", prod.Gender, models.ProductGenders},
		{"active", prod.Active, models.ProductStates},
	}
	if prod.SleeveType != nil {
		checks = append(checks, enumCheck{"sleeveType", *prod.SleeveType, models.ProductSleeves})
	}
	if prod.CollarType != nil {
		checks = append(checks, enumCheck{"collarType", *prod.CollarType, models.ProductCollars})
	}
	for _, c := range checks {
		if !slices.Contains(c.allowed, c.value) {
			return invalid(c.value + " is not a valid " + c.field)
		}
	}
	for _, s := range prod.Sizes {
		if !slices.Contains(models.ProductSizes, s) {
			return invalid(s + " is not a valid size")
		}
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setDecimal(dst *decimal.Decimal, v *decimal.Decimal) {
	if v != nil {
		*dst = *v
	}
}
