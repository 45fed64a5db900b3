package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"continuous-futures/internal/series"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()
	require.Len(t, c.Products(), 15)

	cl, ok := c.Lookup("cl")
	require.True(t, ok)
	assert.Equal(t, "Crude_Oil", cl.Name)
	assert.Equal(t, "CME", cl.Exchange)
	assert.Equal(t, QuandlVendorID, cl.VendorID)

	_, ok = c.Lookup("XX")
	assert.False(t, ok)
}

func TestContractsOrderedByExpiry(t *testing.T) {
	p := Product{Symbol: "W", Months: "ZHKNU"}

	got := p.Contracts(2015, 2016)
	require.Len(t, got, 10)
	assert.Equal(t, series.ContractID{Product: "W", Month: 'H', Year: 2015}, got[0])
	assert.Equal(t, series.ContractID{Product: "W", Month: 'Z', Year: 2016}, got[9])
	for i := 1; i < len(got); i++ {
		assert.True(t, got[i-1].Before(got[i]), "%s should precede %s", got[i-1], got[i])
	}
	assert.Equal(t, "ZHKNU", p.Months, "month codes must not be reordered in place")
}

func TestNewRejectsInvalidProducts(t *testing.T) {
	_, err := New(Product{Symbol: "CL", Months: "F"}, Product{Symbol: "CL", Months: "G"})
	assert.Error(t, err)

	_, err = New(Product{Symbol: "CL", Months: "FA"})
	assert.Error(t, err)

	_, err = New(Product{Symbol: "CL"})
	assert.Error(t, err)
}

func TestNewNormalizesSymbols(t *testing.T) {
	c, err := New(Product{Symbol: " cl ", Months: "FZ"})
	require.NoError(t, err)

	p, ok := c.Lookup("CL")
	require.True(t, ok)
	assert.Equal(t, "CL", p.Symbol)
	assert.Equal(t, "CLF2015", p.Contracts(2015, 2015)[0].String())

	_, err = New(Product{Symbol: "cl", Months: "F"}, Product{Symbol: "CL", Months: "G"})
	assert.Error(t, err)

	_, err = New(Product{Symbol: "  ", Months: "F"})
	assert.Error(t, err)
}

func TestSelect(t *testing.T) {
	c := Default()

	all, err := c.Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, 15)

	some, err := c.Select([]string{"NG", "kc"})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, "NG", some[0].Symbol)
	assert.Equal(t, "KC", some[1].Symbol)

	_, err = c.Select([]string{"NOPE"})
	assert.Error(t, err)
}
