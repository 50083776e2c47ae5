package bankstatement

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ncastro/comprobantes/internal/config"
	"ncastro/comprobantes/internal/recerror"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.ColumnMapping.Fecha = "Fecha"
	cfg.ColumnMapping.CUIT = "CUIT"
	cfg.ColumnMapping.Monto = "Monto"
	return cfg
}

func writeSheet(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "banco.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestLoadNormalizesRows(t *testing.T) {
	path := writeSheet(t, [][]interface{}{
		{"Fecha", "CUIT", "Monto"},
		{"01/03/2024", "20-12345678-9", "$ 1.000,50"},
		{"02/03/2024", "27.99999999.4", "250,00"},
	})

	movements, err := Load(path, testConfig())
	require.NoError(t, err)
	require.Len(t, movements, 2)

	assert.Equal(t, "20123456789", movements[0].CUIT)
	assert.True(t, movements[0].Monto.Equal(decimal.RequireFromString("1000.50")))
	assert.Equal(t, 2024, movements[0].Fecha.Year())
	assert.Equal(t, 2, movements[0].Row)

	assert.Equal(t, "27999999994", movements[1].CUIT)
	assert.Equal(t, 3, movements[1].Row)
}

func TestLoadDropsInvalidRows(t *testing.T) {
	path := writeSheet(t, [][]interface{}{
		{"Fecha", "CUIT", "Monto"},
		{"01/03/2024", "20-12345678-9", "1.000,50"}, // valid
		{"01/03/2024", "", "1.000,50"},              // no tax-id
		{"no es fecha", "20-12345678-9", "500,00"},  // bad date
		{"01/03/2024", "20-12345678-9", "abc"},      // bad amount
		{"01/03/2024", "20-12345678-9", "-10,00"},   // non-positive
	})

	movements, err := Load(path, testConfig())
	require.NoError(t, err)
	assert.Len(t, movements, 1)
}

func TestLoadMissingColumns(t *testing.T) {
	path := writeSheet(t, [][]interface{}{
		{"Fecha", "Concepto", "Importe"},
		{"01/03/2024", "algo", "100,00"},
	})

	movements, err := Load(path, testConfig())
	assert.Nil(t, movements)

	var cfgErr *recerror.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.ElementsMatch(t, []string{"CUIT", "Monto"}, cfgErr.MissingColumns)
	assert.Contains(t, cfgErr.AvailableColumns, "Concepto")
	assert.Contains(t, err.Error(), "CUIT")
}

func TestLoadHeaderRowAndSkipRows(t *testing.T) {
	path := writeSheet(t, [][]interface{}{
		{"Banco Ejemplo - Ultimos Movimientos"},
		{""},
		{"Fecha", "CUIT", "Monto"},
		{"01/03/2024", "20-12345678-9", "1.000,50"},
	})

	cfg := testConfig()
	cfg.ExcelOptions.SkipRows = 2

	movements, err := Load(path, cfg)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	assert.Equal(t, 4, movements[0].Row)
}

func TestLoadMissingFile(t *testing.T) {
	movements, err := Load(filepath.Join(t.TempDir(), "nope.xlsx"), testConfig())
	assert.Nil(t, movements)

	var notFound *recerror.SourceNotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestLoadSkipsBlankRows(t *testing.T) {
	path := writeSheet(t, [][]interface{}{
		{"Fecha", "CUIT", "Monto"},
		{"", "", ""},
		{"01/03/2024", "20-12345678-9", "1.000,50"},
	})

	movements, err := Load(path, testConfig())
	require.NoError(t, err)
	assert.Len(t, movements, 1)
}
