package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry.
type Product struct {
	ID              uuid.UUID       `json:"id"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	Images          []string        `json:"images"`
	TotalPrice      decimal.Decimal `json:"totalPrice"`
	SellingPrice    decimal.Decimal `json:"sellingPrice"`
	CostPrice       decimal.Decimal `json:"costPrice"`
	Category        string          `json:"category"`
	Sizes           []string        `json:"sizes"`
	FabricType      string          `json:"fabricType"`
	FitType         string          `json:"fitType"`
	Pattern         string          `json:"pattern"`
	SleeveType      *string         `json:"sleeveType"`
	CollarType      *string         `json:"collarType"`
	Gender          string          `json:"gender"`
	Color           string          `json:"color"`
	Stock           int             `json:"stock"`
	AvailableState  bool            `json:"availableState"`
	MadeToOrder     bool            `json:"madeToOrder"`
	Popular         bool            `json:"popular"`
	Country         string          `json:"country"`
	Active          string          `json:"active"`
	ProductCode     string          `json:"productCode"`
	RelatedProducts []uuid.UUID     `json:"relatedProducts"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Allowed enum values for product attributes.
var (
	ProductCategories = []string{"tshirts", "shirts", "jeans", "jackets", "hoodies", "dresses", "skirts", "shorts", "pants", "ethnic", "formal", "casual", "activewear"}
	ProductSizes      = []string{"XS", "S", "M", "L", "XL", "XXL", "XXXL"}
	ProductFitTypes   = []string{"Slim Fit", "Regular Fit", "Loose Fit", "Oversized"}
	ProductPatterns   = []string{"Solid", "Striped", "Checked", "Floral", "Printed", "Graphic", "Abstract"}
	ProductSleeves    = []string{"Full Sleeve", "Half Sleeve", "Sleeveless", "Cap Sleeve", "Three-Quarter Sleeve"}
	ProductCollars    = []string{"Round Neck", "V Neck", "Polo", "Turtleneck", "Collared", "Mandarin Collar"}
	ProductGenders    = []string{"Men", "Women", "Unisex", "Kids"}
	ProductStates     = []string{"freeze", "active"}
)

// ProductSummary is the slice of a product embedded in carts and related lists.
type ProductSummary struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	Images       []string        `json:"images"`
	SellingPrice decimal.Decimal `json:"sellingPrice"`
	ProductCode  string          `json:"productCode,omitempty"`
}

// Summary returns the product's summary view.
func (p *Product) Summary() ProductSummary {
	return ProductSummary{
		ID:           p.ID,
		Title:        p.Title,
		Images:       p.Images,
		SellingPrice: p.SellingPrice,
		ProductCode:  p.ProductCode,
	}
}
