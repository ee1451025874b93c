package export

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"quotedesk/internal"
)

func TestQuotesToXLSXRoundTrip(t *testing.T) {
	out := filepath.Join(t.TempDir(), "quotes.xlsx")
	rows := []internal.QuoteExportRow{
		{
			QuoteNumber: "Q-20260831-AB12CD", BusinessName: "Kyoto Custom Surfaces",
			CustomerMail: "ana@cust.example", ProductName: "Walnut Slab",
			LengthInches: 48, WidthInches: 36, AreaSqInches: 1728,
			UnitPrice: 0.05, TotalPrice: 86.40, Status: "pending",
			CreatedAt: "2026-08-31 10:00:00",
		},
	}
	require.NoError(t, QuotesToXLSX(rows, out))

	f, err := excelize.OpenFile(out)
	require.NoError(t, err)
	defer f.Close()

	got, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "quote_number", got[0][0])
	assert.Equal(t, "Q-20260831-AB12CD", got[1][0])
	assert.Equal(t, "86.4", got[1][8])
}
