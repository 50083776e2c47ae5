package report

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"ncastro/comprobantes/internal/models"
)

func sampleOutcome() *models.Outcome {
	movement := models.BankMovement{
		RawFecha: "01/03/2024",
		RawCUIT:  "20-12345678-9",
		RawMonto: "1.000,50",
		Fecha:    time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		CUIT:     "20123456789",
		Monto:    decimal.RequireFromString("1000.50"),
		Row:      2,
	}
	receipt := models.Receipt{
		ID:                 7,
		Banco:              "Banco Galicia",
		Monto:              "1000.50",
		FechaTransferencia: "2024/03/01",
		ClienteCodigo:      "CL-42",
		ImagenPath:         "/img/recibo.jpg",
	}
	return &models.Outcome{
		Matches: []models.MatchResult{{
			ReceiptID:     7,
			BankRow:       2,
			DateDeltaDays: 0,
			AmountDelta:   decimal.Zero,
			Receipt:       receipt,
			Movement:      movement,
		}},
		UnmatchedBank:     []models.BankMovement{movement},
		UnmatchedReceipts: []models.Receipt{receipt},
	}
}

func TestWriteAllSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reporte.xlsx")
	require.NoError(t, Write(sampleOutcome(), path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	assert.ElementsMatch(t,
		[]string{SheetMatched, SheetMissingInDB, SheetMissingInBank},
		f.GetSheetList())

	rows, err := f.GetRows(SheetMatched)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ID Comprobante", rows[0][0])
	assert.Equal(t, "7", rows[1][0])
	assert.Equal(t, "CL-42", rows[1][1])

	rows, err = f.GetRows(SheetMissingInDB)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "20-12345678-9", rows[1][1])
}

func TestWriteOmitsEmptySections(t *testing.T) {
	outcome := sampleOutcome()
	outcome.UnmatchedBank = nil
	outcome.UnmatchedReceipts = nil

	path := filepath.Join(t.TempDir(), "reporte.xlsx")
	require.NoError(t, Write(outcome, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	assert.Equal(t, []string{SheetMatched}, f.GetSheetList())
}

func TestWriteEmptyOutcome(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reporte.xlsx")
	require.NoError(t, Write(&models.Outcome{}, path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() {
		_ = f.Close()
	}()

	// No partitions, but the workbook still exists and opens.
	assert.Equal(t, []string{placeholderSheetRename}, f.GetSheetList())
}
