// Package catalog holds the fixed table of tradable products.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"continuous-futures/internal/series"
)

// Product describes one commodity and how its contracts are listed.
type Product struct {
	Symbol   string
	VendorID int
	Name     string
	Sector   string
	Exchange string
	// Months holds the listed contract month codes, e.g. "HKNUZ".
	Months string
}

// Contracts enumerates the product's contracts from startYear to endYear inclusive, ordered by expiry.
func (p Product) Contracts(startYear, endYear int) []series.ContractID {
	months := []byte(p.Months)
	sort.SliceStable(months, func(i, j int) bool {
		return series.MonthNumber(months[i]) < series.MonthNumber(months[j])
	})

	var out []series.ContractID
	for year := startYear; year <= endYear; year++ {
		for _, m := range months {
			out = append(out, series.ContractID{Product: p.Symbol, Month: m, Year: year})
		}
	}
	return out
}

// Catalog is an immutable symbol-keyed product table.
type Catalog struct {
	products map[string]Product
	order    []string
}

// New builds a catalog, rejecting duplicate symbols and unknown month codes.
func New(products ...Product) (Catalog, error) {
	c := Catalog{products: make(map[string]Product, len(products))}
	for _, p := range products {
		p.Symbol = normalize(p.Symbol)
		if p.Symbol == "" {
			return Catalog{}, fmt.Errorf("catalog: empty symbol")
		}
		if _, dup := c.products[p.Symbol]; dup {
			return Catalog{}, fmt.Errorf("catalog: duplicate symbol %s", p.Symbol)
		}
		if p.Months == "" {
			return Catalog{}, fmt.Errorf("catalog: %s has no contract months", p.Symbol)
		}
		for i := 0; i < len(p.Months); i++ {
			if series.MonthNumber(p.Months[i]) == 0 {
				return Catalog{}, fmt.Errorf("catalog: %s has unknown month code %q", p.Symbol, p.Months[i])
			}
		}
		c.products[p.Symbol] = p
		c.order = append(c.order, p.Symbol)
	}
	return c, nil
}

// Lookup returns the product for a symbol.
func (c Catalog) Lookup(symbol string) (Product, bool) {
	p, ok := c.products[normalize(symbol)]
	return p, ok
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Products returns every product in declaration order.
func (c Catalog) Products() []Product {
	out := make([]Product, 0, len(c.order))
	for _, s := range c.order {
		out = append(out, c.products[s])
	}
	return out
}

// Select resolves symbols to products. An empty list selects the whole catalog.
func (c Catalog) Select(symbols []string) ([]Product, error) {
	if len(symbols) == 0 {
		return c.Products(), nil
	}
	out := make([]Product, 0, len(symbols))
	for _, s := range symbols {
		p, ok := c.Lookup(s)
		if !ok {
			return nil, fmt.Errorf("unknown product %q", s)
		}
		out = append(out, p)
	}
	return out, nil
}

// QuandlVendorID is the data vendor row every default product refers to.
const QuandlVendorID = 1

// Default is the built-in product table.
func Default() Catalog {
	c, err := New(
		Product{Symbol: "CL", VendorID: QuandlVendorID, Name: "Crude_Oil", Sector: "Energy", Exchange: "CME", Months: "FGHJKMNQUVXZ"},
		Product{Symbol: "NG", VendorID: QuandlVendorID, Name: "Natural_Gas", Sector: "Energy", Exchange: "CME", Months: "FGHJKMNQUVXZ"},
		Product{Symbol: "HO", VendorID: QuandlVendorID, Name: "Heating_Oil", Sector: "Energy", Exchange: "CME", Months: "FGHJKMNQUVXZ"},
		Product{Symbol: "RB", VendorID: QuandlVendorID, Name: "Gasoline", Sector: "Energy", Exchange: "CME", Months: "FGHJKMNQUVXZ"},
		Product{Symbol: "B", VendorID: QuandlVendorID, Name: "Brent_Crude_Oil", Sector: "Energy", Exchange: "ICE", Months: "FGHJKMNQUVXZ"},
		Product{Symbol: "BO", VendorID: QuandlVendorID, Name: "Soybean_Oil", Sector: "Grains", Exchange: "CME", Months: "FHKNQUVZ"},
		Product{Symbol: "SM", VendorID: QuandlVendorID, Name: "Soybean_Meal", Sector: "Grains", Exchange: "CME", Months: "FHKNUVZ"},
		Product{Symbol: "W", VendorID: QuandlVendorID, Name: "Wheat", Sector: "Grains", Exchange: "CME", Months: "HKNUZ"},
		Product{Symbol: "C", VendorID: QuandlVendorID, Name: "Corn", Sector: "Grains", Exchange: "CME", Months: "HKNUZ"},
		Product{Symbol: "S", VendorID: QuandlVendorID, Name: "Soybeans", Sector: "Grains", Exchange: "CME", Months: "FHKNQUX"},
		Product{Symbol: "SB", VendorID: QuandlVendorID, Name: "Sugar", Sector: "Softs", Exchange: "ICE", Months: "HKNV"},
		Product{Symbol: "KC", VendorID: QuandlVendorID, Name: "Coffee", Sector: "Softs", Exchange: "ICE", Months: "HKNUZ"},
		Product{Symbol: "RC", VendorID: QuandlVendorID, Name: "Robusta_Coffee", Sector: "Softs", Exchange: "LIFFE", Months: "FHKNUX"},
		Product{Symbol: "CC", VendorID: QuandlVendorID, Name: "Cocoa", Sector: "Softs", Exchange: "ICE", Months: "HKNUZ"},
		Product{Symbol: "CT", VendorID: QuandlVendorID, Name: "Cotton", Sector: "Softs", Exchange: "ICE", Months: "HKNVZ"},
	)
	if err != nil {
		panic("invalid built-in catalog: " + err.Error())
	}
	return c
}

// Vendor is the data vendor row seeded into storage.
type Vendor struct {
	ID   int
	Name string
	URL  string
}

// DefaultVendor describes the market data provider behind the built-in catalog.
func DefaultVendor() Vendor {
	return Vendor{ID: QuandlVendorID, Name: "Quandl", URL: "https://docs.quandl.com"}
}
