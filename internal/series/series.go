package series

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MinPoints is the shortest series the roll window arithmetic can work with.
const MinPoints = 5

// DefaultWindowDays is the number of trailing settle rows kept per contract.
const DefaultWindowDays = 200

// monthCodes lists the exchange month codes in calendar order.
const monthCodes = "FGHJKMNQUVXZ"

// MonthNumber returns the calendar month (1-12) for an exchange month code, or 0 if unknown.
func MonthNumber(code byte) int {
	idx := strings.IndexByte(monthCodes, code)
	if idx < 0 {
		return 0
	}
	return idx + 1
}

// ContractID identifies a single futures contract.
type ContractID struct {
	Product string `json:"product"`
	Month   byte   `json:"month"`
	Year    int    `json:"year"`
}

// String renders the contract as product + month code + year, e.g. CLZ2015.
func (c ContractID) String() string {
	return fmt.Sprintf("%s%c%d", c.Product, c.Month, c.Year)
}

// Before reports whether c expires before other.
func (c ContractID) Before(other ContractID) bool {
	if c.Year != other.Year {
		return c.Year < other.Year
	}
	return MonthNumber(c.Month) < MonthNumber(other.Month)
}

// RawRow is one provider row before cleaning.
type RawRow struct {
	Date         time.Time       `json:"date"`
	Open         decimal.Decimal `json:"open"`
	High         decimal.Decimal `json:"high"`
	Low          decimal.Decimal `json:"low"`
	Settle       decimal.Decimal `json:"settle"`
	Volume       decimal.Decimal `json:"volume"`
	OpenInterest decimal.Decimal `json:"open_interest"`
}

// RawContractSeries is a contract's history as the provider returned it.
type RawContractSeries struct {
	Contract ContractID `json:"contract"`
	Rows     []RawRow   `json:"rows"`
}

// Bar is one cleaned trading day of a contract.
type Bar struct {
	Date         time.Time
	Open         decimal.Decimal
	High         decimal.Decimal
	Low          decimal.Decimal
	Close        decimal.Decimal
	Volume       decimal.Decimal
	OpenInterest decimal.Decimal
	Change       decimal.Decimal
}

// ContractSeries is a cleaned, trimmed contract history ordered by date.
type ContractSeries struct {
	Contract ContractID
	Bars     []Bar
}

// Len returns the number of bars.
func (s ContractSeries) Len() int { return len(s.Bars) }

// Closes projects the series onto (date, close) points.
func (s ContractSeries) Closes() []Point {
	points := make([]Point, len(s.Bars))
	for i, bar := range s.Bars {
		points[i] = Point{Date: bar.Date, Close: bar.Close}
	}
	return points
}

// Point is a single dated close.
type Point struct {
	Date  time.Time
	Close decimal.Decimal
}

// ContinuousSeries is a product's stitched closing-price history.
type ContinuousSeries struct {
	Product string
	Points  []Point
}

// Len returns the number of points.
func (s ContinuousSeries) Len() int { return len(s.Points) }

// First returns the earliest date, or the zero time for an empty series.
func (s ContinuousSeries) First() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[0].Date
}

// Last returns the latest date, or the zero time for an empty series.
func (s ContinuousSeries) Last() time.Time {
	if len(s.Points) == 0 {
		return time.Time{}
	}
	return s.Points[len(s.Points)-1].Date
}

// CheckOrdered verifies dates are strictly increasing.
func CheckOrdered(points []Point) error {
	for i := 1; i < len(points); i++ {
		if !points[i].Date.After(points[i-1].Date) {
			return &ValidationError{Reason: fmt.Sprintf("date %s does not follow %s", FormatDate(points[i].Date), FormatDate(points[i-1].Date))}
		}
	}
	return nil
}

// DateLayout is the calendar date layout used on the wire and in storage.
const DateLayout = "2006-01-02"

// FormatDate renders a trading date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate parses a trading date as UTC midnight.
func ParseDate(v string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(v), time.UTC)
}
