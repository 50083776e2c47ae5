package config

import (
	"os"
	"path/filepath"
	"testing"

	"ncastro/comprobantes/internal/recerror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "Fecha", cfg.ColumnMapping.Fecha)
	assert.Equal(t, "CUIT", cfg.ColumnMapping.CUIT)
	assert.Equal(t, "Monto", cfg.ColumnMapping.Monto)
	assert.Equal(t, "02/01/2006", cfg.DataFormats.FechaFormat)
	assert.Equal(t, ",", cfg.DataFormats.MontoDecimalSeparator)
	assert.Equal(t, ".", cfg.DataFormats.MontoThousandsSeparator)
	assert.Equal(t, 1, cfg.Tolerances.FechaDias)
	assert.InDelta(t, 0.01, cfg.Tolerances.MontoDiferencia, 1e-9)
	assert.False(t, cfg.Reconciliation.IncludeReconciled)
}

func TestLoadExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bank.yaml")
	content := `
excel_options:
  sheet_name: Movimientos
  header_row: 2
  skip_rows: 1
column_mapping:
  fecha: Fecha Operacion
  cuit: CUIT Ordenante
  monto: Importe
tolerances:
  fecha_dias: 3
  monto_diferencia: 0.5
reconciliation:
  include_reconciled: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Movimientos", cfg.ExcelOptions.SheetName)
	assert.Equal(t, 2, cfg.ExcelOptions.HeaderRow)
	assert.Equal(t, 1, cfg.ExcelOptions.SkipRows)
	assert.Equal(t, "Fecha Operacion", cfg.ColumnMapping.Fecha)
	assert.Equal(t, "CUIT Ordenante", cfg.ColumnMapping.CUIT)
	assert.Equal(t, "Importe", cfg.ColumnMapping.Monto)
	assert.Equal(t, 3, cfg.Tolerances.FechaDias)
	assert.InDelta(t, 0.5, cfg.Tolerances.MontoDiferencia, 1e-9)
	assert.True(t, cfg.Reconciliation.IncludeReconciled)
	// Sections absent from the file keep their defaults.
	assert.Equal(t, "comprobantes.db", cfg.DB.Path)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	cfg, err := Load(missing)
	assert.Nil(t, cfg)

	var cfgErr *recerror.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, missing, cfgErr.Path)
	assert.Contains(t, err.Error(), missing)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "gemini-2.5-flash", cfg.AI.Model)
	assert.Equal(t, 5, cfg.AI.Workers)
	assert.Equal(t, ":8080", cfg.Server.Addr)
}

func TestConfigureLogging(t *testing.T) {
	cfg := Default()
	cfg.Log.Level = "debug"
	log := cfg.ConfigureLogging()
	assert.Equal(t, "debug", log.GetLevel().String())

	cfg.Log.Level = "not-a-level"
	log = cfg.ConfigureLogging()
	assert.Equal(t, "info", log.GetLevel().String())
}
