package migrations

import (
	"fmt"
	"io/fs"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/banner-pricing/internal/pricing"
)

func TestDriverURL(t *testing.T) {
	require.Equal(t, "pgx5://u:p@db:5432/banner", driverURL("postgres://u:p@db:5432/banner"))
	require.Equal(t, "pgx5://db/banner", driverURL("postgresql://db/banner"))
	require.Equal(t, "pgx5://db/banner", driverURL("pgx5://db/banner"))
}

func TestMigrationsArePaired(t *testing.T) {
	ups, err := fs.Glob(files, "sql/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(files, "sql/*.down.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	require.Len(t, downs, len(ups))
}

// Orders are re-priced from stored columns, so the columns must hold every
// value the pricing core accepts without rounding it.
func TestOrderColumnsHoldPricedValues(t *testing.T) {
	schema, err := fs.ReadFile(files, "sql/000002_orders.up.sql")
	require.NoError(t, err)

	numeric := func(column string) (precision, scale int) {
		m := regexp.MustCompile(column + `\s+NUMERIC\((\d+),\s*(\d+)\)`).FindSubmatch(schema)
		require.NotNil(t, m, column)
		_, err := fmt.Sscan(string(m[1])+" "+string(m[2]), &precision, &scale)
		require.NoError(t, err)
		return precision, scale
	}

	maxDigits := len(pricing.MaxDimensionInches.StringFixed(0))
	for _, column := range []string{"width_in", "height_in"} {
		precision, scale := numeric(column)
		require.Equal(t, pricing.DimensionPlaces, scale, column)
		require.GreaterOrEqual(t, precision-scale, maxDigits, column)
	}
	_, scale := numeric("tax_rate")
	require.Equal(t, pricing.TaxRatePlaces, scale)
}
